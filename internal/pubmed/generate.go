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
	"encoding/xml"
	"fmt"
	"time"

	"github.com/pubflow/pubflow/internal/article"
)

// GenerateOptions configures article-set generation.
type GenerateOptions struct {
	JournalTitle  string
	PublisherName string

	// PubDateTypes is the ordered list of publication date types to
	// consult, first match wins.
	PubDateTypes []string
}

// BatchFileName names the deposit file for one run, for example
// "pubmed-20180102030405.xml".
func BatchFileName(ts time.Time) string {
	return fmt.Sprintf("pubmed-%s.xml", ts.UTC().Format("20060102150405"))
}

type articleSet struct {
	XMLName  xml.Name        `xml:"ArticleSet"`
	Articles []pubmedArticle `xml:"Article"`
}

type pubmedArticle struct {
	Journal       pubmedJournal `xml:"Journal"`
	ArticleTitle  string        `xml:"ArticleTitle"`
	AuthorList    *authorList   `xml:"AuthorList,omitempty"`
	ArticleIDList articleIDList `xml:"ArticleIdList"`
}

type pubmedJournal struct {
	PublisherName string     `xml:"PublisherName"`
	JournalTitle  string     `xml:"JournalTitle"`
	PubDate       *xmlPubDate `xml:"PubDate,omitempty"`
}

type xmlPubDate struct {
	PubStatus string `xml:"PubStatus,attr"`
	Year      string `xml:"Year"`
	Month     string `xml:"Month"`
	Day       string `xml:"Day"`
}

type authorList struct {
	Authors []pubmedAuthor `xml:"Author"`
}

type pubmedAuthor struct {
	FirstName string `xml:"FirstName,omitempty"`
	LastName  string `xml:"LastName"`
}

type articleIDList struct {
	IDs []articleID `xml:"ArticleId"`
}

type articleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}

// GenerateArticleSet renders the PubMed deposit XML for a batch of
// articles.
func GenerateArticleSet(articles []*article.Article, opts GenerateOptions) ([]byte, error) {
	if len(articles) == 0 {
		return nil, fmt.Errorf("pubmed: empty article set")
	}

	set := articleSet{}
	for _, art := range articles {
		entry := pubmedArticle{
			Journal: pubmedJournal{
				PublisherName: opts.PublisherName,
				JournalTitle:  opts.JournalTitle,
			},
			ArticleTitle: art.Title,
			ArticleIDList: articleIDList{IDs: []articleID{
				{IDType: "doi", Value: art.DOI},
				{IDType: "publisher-id", Value: art.ID},
			}},
		}
		if t, ok := art.FirstPubDate(opts.PubDateTypes); ok {
			entry.Journal.PubDate = &xmlPubDate{
				PubStatus: "epublish",
				Year:      t.Format("2006"),
				Month:     t.Format("January"),
				Day:       t.Format("2"),
			}
		}
		if len(art.Authors) > 0 {
			list := &authorList{}
			for _, a := range art.Authors {
				if a.Surname == "" {
					continue
				}
				list.Authors = append(list.Authors, pubmedAuthor{
					FirstName: a.GivenNames,
					LastName:  a.Surname,
				})
			}
			if len(list.Authors) > 0 {
				entry.AuthorList = list
			}
		}
		set.Articles = append(set.Articles, entry)
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("pubmed: marshal article set: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
