// Copyright 2025 The Pubflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pubmed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubflow/pubflow/internal/article"
)

func TestGenerateArticleSet(t *testing.T) {
	art := &article.Article{
		DOI:   "10.7554/eLife.29353",
		ID:    "29353",
		Title: "A study of something",
		Authors: []article.Contributor{
			{Surname: "Smith", GivenNames: "Jan"},
		},
	}
	art.SetPubDate("publication", time.Date(2017, 12, 12, 0, 0, 0, 0, time.UTC))

	out, err := GenerateArticleSet([]*article.Article{art}, GenerateOptions{
		JournalTitle:  "eLife",
		PublisherName: "eLife Sciences Publications",
		PubDateTypes:  []string{"publication"},
	})
	require.NoError(t, err)

	xml := string(out)
	assert.Contains(t, xml, "<JournalTitle>eLife</JournalTitle>")
	assert.Contains(t, xml, `<ArticleId IdType="doi">10.7554/eLife.29353</ArticleId>`)
	assert.Contains(t, xml, "<LastName>Smith</LastName>")
	assert.Contains(t, xml, `<PubDate PubStatus="epublish">`)
	assert.Contains(t, xml, "<Year>2017</Year>")
}

func TestGenerateArticleSetRejectsEmptyBatch(t *testing.T) {
	_, err := GenerateArticleSet(nil, GenerateOptions{})
	assert.Error(t, err)
}

func TestBatchFileName(t *testing.T) {
	ts := time.Date(2018, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "pubmed-20180102030405.xml", BatchFileName(ts))
}
