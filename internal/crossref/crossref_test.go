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

package crossref

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubflow/pubflow/internal/article"
)

func sampleArticle() *article.Article {
	art := &article.Article{
		DOI:   "10.7554/eLife.29353",
		ID:    "29353",
		Title: "A study of something",
		Authors: []article.Contributor{
			{Role: "author", Surname: "Smith", GivenNames: "Jan"},
			{Role: "author", Surname: "Jones", GivenNames: "Sam", ORCID: "0000-0002-1825-0097"},
		},
		Editors: []article.Contributor{
			{Role: "senior_editor", Surname: "Chen", GivenNames: "Lee"},
		},
		SubArticles: []article.SubArticle{
			{Type: "referee-report", DOI: "10.7554/eLife.29353.sa1", Title: "Decision letter"},
			{Type: "reply", DOI: "10.7554/eLife.29353.sa2", Title: "Author response"},
		},
	}
	art.SetPubDate("publication", time.Date(2017, 12, 12, 0, 0, 0, 0, time.UTC))
	return art
}

func TestGenerateDeposit(t *testing.T) {
	out, err := GenerateDeposit(sampleArticle(), DepositOptions{
		DepositorName: "pubflow",
		Email:         "production@example.org",
		Registrant:    "pubflow",
		PubDateTypes:  []string{"publication"},
		Timestamp:     time.Date(2018, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)

	xml := string(out)
	assert.Contains(t, xml, "<doi_batch_id>crossref-29353-20180102030405</doi_batch_id>")
	assert.Contains(t, xml, "<doi>10.7554/eLife.29353</doi>")
	assert.Contains(t, xml, "<resource>https://doi.org/10.7554/eLife.29353</resource>")
	assert.Contains(t, xml, "<year>2017</year>")
	assert.Contains(t, xml, "<surname>Smith</surname>")
	assert.NotContains(t, xml, "peer_review")
}

func TestGenerateDepositRequiresDOI(t *testing.T) {
	_, err := GenerateDeposit(&article.Article{ID: "29353"}, DepositOptions{})
	assert.Error(t, err)
}

func TestPrepareForPeerReview(t *testing.T) {
	withReviews := sampleArticle()
	withoutReviews := &article.Article{DOI: "10.7554/eLife.11111", ID: "11111"}

	kept := PrepareForPeerReview([]*article.Article{withReviews, withoutReviews})
	require.Len(t, kept, 1)
	art := kept[0]

	// the referee report inherits the parent editors, senior_editor
	// rewritten to editor
	require.Len(t, art.SubArticles[0].Contributors, 1)
	assert.Equal(t, "editor", art.SubArticles[0].Contributors[0].Role)
	assert.Equal(t, "Chen", art.SubArticles[0].Contributors[0].Surname)

	// the reply inherits the parent authors
	require.Len(t, art.SubArticles[1].Contributors, 2)
	assert.Equal(t, "Smith", art.SubArticles[1].Contributors[0].Surname)
}

func TestGeneratePeerReviewDeposit(t *testing.T) {
	kept := PrepareForPeerReview([]*article.Article{sampleArticle()})
	require.Len(t, kept, 1)

	out, err := GeneratePeerReviewDeposit(kept[0], DepositOptions{
		Timestamp: time.Date(2018, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)

	xml := string(out)
	assert.Contains(t, xml, `<peer_review type="referee-report">`)
	assert.Contains(t, xml, `<peer_review type="author-comment">`)
	assert.Contains(t, xml, "<doi>10.7554/eLife.29353.sa1</doi>")
}

func TestBatchFileName(t *testing.T) {
	assert.Equal(t, "crossref-29353.xml", BatchFileName("crossref", "29353"))
	assert.Equal(t, "crossref-353.xml", BatchFileName("crossref", "00353"))
}

func TestDeposit(t *testing.T) {
	var gotOperation, gotFile string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotOperation = r.FormValue("operation")
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotFile = header.Filename
		fmt.Fprint(w, "SUCCESS: batch queued")
	}))
	defer server.Close()

	c := NewClient(server.URL, "user", "pass")
	body, err := c.Deposit(context.Background(), "crossref-29353.xml", []byte("<doi_batch/>"))
	require.NoError(t, err)
	assert.Equal(t, "doMDUpload", gotOperation)
	assert.Equal(t, "crossref-29353.xml", gotFile)
	assert.Equal(t, "SUCCESS: batch queued", body)
}

func TestDepositRejectsNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient(server.URL, "user", "pass")
	body, err := c.Deposit(context.Background(), "crossref-29353.xml", []byte("<doi_batch/>"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "403"))
	// the rejection body is still surfaced for the detail log
	assert.Contains(t, body, "no")
}
