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
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/pubflow/pubflow/internal/article"
)

// DepositOptions configures deposit XML generation.
type DepositOptions struct {
	// DepositorName and Email identify the depositor in the batch head.
	DepositorName string
	Email         string
	Registrant    string

	// PubDateTypes is the ordered list of publication date types to
	// consult, first match wins.
	PubDateTypes []string

	// Timestamp stamps the batch head; the zero value means now.
	Timestamp time.Time
}

// BatchFileName names the deposit file for one article, for example
// "crossref-29353.xml".
func BatchFileName(prefix, articleID string) string {
	return fmt.Sprintf("%s-%s.xml", prefix, strings.TrimLeft(articleID, "0"))
}

type doiBatch struct {
	XMLName xml.Name  `xml:"doi_batch"`
	Version string    `xml:"version,attr"`
	Xmlns   string    `xml:"xmlns,attr"`
	Head    batchHead `xml:"head"`
	Body    batchBody `xml:"body"`
}

type batchHead struct {
	DoiBatchID string    `xml:"doi_batch_id"`
	Timestamp  string    `xml:"timestamp"`
	Depositor  depositor `xml:"depositor"`
	Registrant string    `xml:"registrant"`
}

type depositor struct {
	Name  string `xml:"depositor_name"`
	Email string `xml:"email_address"`
}

type batchBody struct {
	Journal *journal `xml:"journal,omitempty"`
}

type journal struct {
	Articles []journalArticle `xml:"journal_article"`
}

type journalArticle struct {
	PublicationType string        `xml:"publication_type,attr"`
	Titles          titles        `xml:"titles"`
	Contributors    *contributors `xml:"contributors,omitempty"`
	PublicationDate *pubDate      `xml:"publication_date,omitempty"`
	DoiData         doiData       `xml:"doi_data"`
	PeerReviews     []peerReview  `xml:"peer_review,omitempty"`
}

type titles struct {
	Title string `xml:"title"`
}

type contributors struct {
	Persons []personName `xml:"person_name"`
}

type personName struct {
	Sequence  string `xml:"sequence,attr"`
	Role      string `xml:"contributor_role,attr"`
	GivenName string `xml:"given_name,omitempty"`
	Surname   string `xml:"surname"`
	ORCID     string `xml:"ORCID,omitempty"`
}

type pubDate struct {
	Month string `xml:"month,omitempty"`
	Day   string `xml:"day,omitempty"`
	Year  string `xml:"year"`
}

type doiData struct {
	DOI      string `xml:"doi"`
	Resource string `xml:"resource"`
}

type peerReview struct {
	Type         string        `xml:"type,attr"`
	Titles       titles        `xml:"titles"`
	Contributors *contributors `xml:"contributors,omitempty"`
	DoiData      doiData       `xml:"doi_data"`
}

// GenerateDeposit renders the Crossref deposit XML for one article.
func GenerateDeposit(art *article.Article, opts DepositOptions) ([]byte, error) {
	if art.DOI == "" {
		return nil, fmt.Errorf("crossref: article %s has no doi", art.ID)
	}

	entry := journalArticle{
		PublicationType: "full_text",
		Titles:          titles{Title: art.Title},
		DoiData: doiData{
			DOI:      art.DOI,
			Resource: resourceURL(art.DOI),
		},
	}
	if t, ok := art.FirstPubDate(opts.PubDateTypes); ok {
		entry.PublicationDate = &pubDate{
			Year:  t.Format("2006"),
			Month: t.Format("01"),
			Day:   t.Format("02"),
		}
	}
	if persons := convertPersons(art.Authors, "author"); len(persons) > 0 {
		entry.Contributors = &contributors{Persons: persons}
	}
	return marshalBatch(art, entry, opts)
}

// GeneratePeerReviewDeposit renders the deposit XML registering DOIs
// for the article's peer-review sub-articles. The article must have
// been through PrepareForPeerReview first.
func GeneratePeerReviewDeposit(art *article.Article, opts DepositOptions) ([]byte, error) {
	if len(art.SubArticles) == 0 {
		return nil, fmt.Errorf("crossref: article %s has no review sub-articles", art.ID)
	}

	entry := journalArticle{
		PublicationType: "full_text",
		Titles:          titles{Title: art.Title},
		DoiData: doiData{
			DOI:      art.DOI,
			Resource: resourceURL(art.DOI),
		},
	}
	for _, sub := range art.SubArticles {
		review := peerReview{
			Type:   reviewType(sub.Type),
			Titles: titles{Title: sub.Title},
			DoiData: doiData{
				DOI:      sub.DOI,
				Resource: resourceURL(sub.DOI),
			},
		}
		if persons := convertPersons(sub.Contributors, "reviewer"); len(persons) > 0 {
			review.Contributors = &contributors{Persons: persons}
		}
		entry.PeerReviews = append(entry.PeerReviews, review)
	}
	return marshalBatch(art, entry, opts)
}

// PrepareForPeerReview filters and enriches articles for the
// peer-review deposit:
//
//   - articles with no review sub-articles are pruned
//   - parent editors are copied into review sub-articles that have no
//     contributors, rewriting the senior_editor role to editor
//   - replies with no explicit contributors inherit the parent authors
func PrepareForPeerReview(articles []*article.Article) []*article.Article {
	var kept []*article.Article
	for _, art := range articles {
		if len(art.SubArticles) == 0 {
			continue
		}
		for i := range art.SubArticles {
			sub := &art.SubArticles[i]
			if len(sub.Contributors) > 0 {
				continue
			}
			if sub.Type == "reply" {
				sub.Contributors = append(sub.Contributors, art.Authors...)
				continue
			}
			for _, editor := range art.Editors {
				if editor.Role == "senior_editor" {
					editor.Role = "editor"
				}
				sub.Contributors = append(sub.Contributors, editor)
			}
		}
		kept = append(kept, art)
	}
	return kept
}

func reviewType(subArticleType string) string {
	switch subArticleType {
	case "reply":
		return "author-comment"
	case "editor-report", "decision-letter":
		return "editor-report"
	default:
		return "referee-report"
	}
}

func convertPersons(contribs []article.Contributor, role string) []personName {
	var persons []personName
	for i, c := range contribs {
		sequence := "additional"
		if i == 0 {
			sequence = "first"
		}
		if c.Surname == "" {
			continue
		}
		persons = append(persons, personName{
			Sequence:  sequence,
			Role:      role,
			GivenName: c.GivenNames,
			Surname:   c.Surname,
			ORCID:     c.ORCID,
		})
	}
	return persons
}

func resourceURL(doi string) string {
	return "https://doi.org/" + doi
}

func marshalBatch(art *article.Article, entry journalArticle, opts DepositOptions) ([]byte, error) {
	ts := opts.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	batch := doiBatch{
		Version: "5.3.1",
		Xmlns:   "http://www.crossref.org/schema/5.3.1",
		Head: batchHead{
			DoiBatchID: fmt.Sprintf("crossref-%s-%s", art.ID, ts.UTC().Format("20060102150405")),
			Timestamp:  ts.UTC().Format("20060102150405"),
			Depositor:  depositor{Name: opts.DepositorName, Email: opts.Email},
			Registrant: opts.Registrant,
		},
		Body: batchBody{Journal: &journal{Articles: []journalArticle{entry}}},
	}
	out, err := xml.MarshalIndent(batch, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("crossref: marshal deposit: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
