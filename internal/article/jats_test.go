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

package article

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJATS = `<?xml version="1.0"?>
<article article-type="research-article">
  <front>
    <article-meta>
      <article-id pub-id-type="publisher-id">29353</article-id>
      <article-id pub-id-type="doi">10.7554/eLife.29353</article-id>
      <title-group>
        <article-title>A study of something</article-title>
      </title-group>
      <contrib-group>
        <contrib contrib-type="author">
          <name><surname>Smith</surname><given-names>Jan</given-names></name>
        </contrib>
        <contrib contrib-type="author">
          <name><surname>Jones</surname><given-names>Sam</given-names></name>
          <contrib-id contrib-id-type="orcid">0000-0002-1825-0097</contrib-id>
        </contrib>
      </contrib-group>
      <contrib-group content-type="section-editors">
        <contrib contrib-type="editor">
          <name><surname>Chen</surname><given-names>Lee</given-names></name>
          <role>senior_editor</role>
        </contrib>
      </contrib-group>
      <pub-date date-type="publication">
        <day>12</day><month>12</month><year>2017</year>
      </pub-date>
    </article-meta>
  </front>
  <sub-article article-type="referee-report">
    <front-stub>
      <article-meta>
        <article-id pub-id-type="doi">10.7554/eLife.29353.sa1</article-id>
        <title-group><article-title>Decision letter</article-title></title-group>
      </article-meta>
    </front-stub>
  </sub-article>
  <sub-article article-type="reply">
    <front-stub>
      <article-meta>
        <article-id pub-id-type="doi">10.7554/eLife.29353.sa2</article-id>
        <title-group><article-title>Author response</article-title></title-group>
      </article-meta>
    </front-stub>
  </sub-article>
</article>`

func TestParseArticle(t *testing.T) {
	art, err := ParseArticle([]byte(sampleJATS))
	require.NoError(t, err)

	assert.Equal(t, "10.7554/eLife.29353", art.DOI)
	assert.Equal(t, "29353", art.ID)
	assert.Equal(t, "A study of something", art.Title)
	require.Len(t, art.Authors, 2)
	assert.Equal(t, "0000-0002-1825-0097", art.Authors[1].ORCID)
	require.Len(t, art.Editors, 1)
	assert.Equal(t, "senior_editor", art.Editors[0].Role)

	pub, ok := art.FirstPubDate([]string{"pub", "publication"})
	require.True(t, ok)
	assert.Equal(t, time.Date(2017, 12, 12, 0, 0, 0, 0, time.UTC), pub)

	require.Len(t, art.SubArticles, 2)
	assert.Equal(t, "referee-report", art.SubArticles[0].Type)
	assert.Equal(t, "10.7554/eLife.29353.sa2", art.SubArticles[1].DOI)
}

func TestParseArticleRejectsMalformedXML(t *testing.T) {
	_, err := ParseArticle([]byte("<article><front>"))
	assert.Error(t, err)
}

func TestSetPubDate(t *testing.T) {
	art := &Article{}
	when := time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC)
	art.SetPubDate("pub", when)

	got, ok := art.FirstPubDate([]string{"pub"})
	require.True(t, ok)
	assert.Equal(t, when, got)
}
