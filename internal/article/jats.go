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
	"encoding/xml"
	"fmt"
	"strconv"
	"time"
)

// Contributor is one person on an article or sub-article.
type Contributor struct {
	Role       string
	Surname    string
	GivenNames string
	ORCID      string
}

// SubArticle is a peer-review sub-article: an editor report, referee
// report or author reply.
type SubArticle struct {
	Type         string
	DOI          string
	Title        string
	Contributors []Contributor
}

// Article is the thin article record parsed from JATS XML, carrying
// just the fields deposit generation needs.
type Article struct {
	DOI     string
	ID      string
	Title   string
	Version int

	// PubDates is keyed by the JATS date-type (or pub-type) attribute.
	PubDates map[string]time.Time

	Authors     []Contributor
	Editors     []Contributor
	SubArticles []SubArticle
}

// FirstPubDate returns the article's date for the first of the
// configured date types it carries.
func (a *Article) FirstPubDate(dateTypes []string) (time.Time, bool) {
	for _, dt := range dateTypes {
		if t, ok := a.PubDates[dt]; ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// SetPubDate records a date under the given type, creating the map on
// first use.
func (a *Article) SetPubDate(dateType string, t time.Time) {
	if a.PubDates == nil {
		a.PubDates = make(map[string]time.Time)
	}
	a.PubDates[dateType] = t
}

type jatsArticle struct {
	XMLName     xml.Name         `xml:"article"`
	Front       jatsFront        `xml:"front"`
	SubArticles []jatsSubArticle `xml:"sub-article"`
}

type jatsFront struct {
	ArticleMeta jatsArticleMeta `xml:"article-meta"`
}

type jatsArticleMeta struct {
	ArticleIDs    []jatsArticleID    `xml:"article-id"`
	TitleGroup    jatsTitleGroup     `xml:"title-group"`
	PubDates      []jatsPubDate      `xml:"pub-date"`
	ContribGroups []jatsContribGroup `xml:"contrib-group"`
	Version       string             `xml:"article-version"`
}

type jatsArticleID struct {
	Type  string `xml:"pub-id-type,attr"`
	Value string `xml:",chardata"`
}

type jatsTitleGroup struct {
	Title string `xml:"article-title"`
}

type jatsPubDate struct {
	DateType string `xml:"date-type,attr"`
	PubType  string `xml:"pub-type,attr"`
	Day      string `xml:"day"`
	Month    string `xml:"month"`
	Year     string `xml:"year"`
}

type jatsContribGroup struct {
	ContentType string        `xml:"content-type,attr"`
	Contribs    []jatsContrib `xml:"contrib"`
}

type jatsContrib struct {
	Type       string          `xml:"contrib-type,attr"`
	Surname    string          `xml:"name>surname"`
	GivenNames string          `xml:"name>given-names"`
	ContribIDs []jatsContribID `xml:"contrib-id"`
	Role       string          `xml:"role"`
}

type jatsContribID struct {
	Type  string `xml:"contrib-id-type,attr"`
	Value string `xml:",chardata"`
}

type jatsSubArticle struct {
	Type      string    `xml:"article-type,attr"`
	FrontStub jatsFront `xml:"front-stub"`
}

// ParseArticle parses a JATS article XML into the thin record used for
// deposit generation. Fields absent from the XML are zero; callers fill
// them in from the article-versions service.
func ParseArticle(data []byte) (*Article, error) {
	var doc jatsArticle
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("article: parse jats xml: %w", err)
	}

	article := &Article{PubDates: make(map[string]time.Time)}
	fillMeta(&doc.Front.ArticleMeta, article)

	for _, sub := range doc.SubArticles {
		subArticle := SubArticle{
			Type:  sub.Type,
			Title: sub.FrontStub.ArticleMeta.TitleGroup.Title,
		}
		for _, id := range sub.FrontStub.ArticleMeta.ArticleIDs {
			if id.Type == "doi" {
				subArticle.DOI = id.Value
			}
		}
		for _, group := range sub.FrontStub.ArticleMeta.ContribGroups {
			subArticle.Contributors = append(subArticle.Contributors, convertContribs(group.Contribs)...)
		}
		article.SubArticles = append(article.SubArticles, subArticle)
	}
	return article, nil
}

func fillMeta(meta *jatsArticleMeta, article *Article) {
	for _, id := range meta.ArticleIDs {
		switch id.Type {
		case "doi":
			if article.DOI == "" {
				article.DOI = id.Value
			}
		case "publisher-id":
			article.ID = id.Value
		}
	}
	article.Title = meta.TitleGroup.Title
	if meta.Version != "" {
		if v, err := strconv.Atoi(meta.Version); err == nil {
			article.Version = v
		}
	}
	for _, pd := range meta.PubDates {
		dateType := pd.DateType
		if dateType == "" {
			dateType = pd.PubType
		}
		if dateType == "" {
			continue
		}
		if t, ok := parseDateParts(pd.Year, pd.Month, pd.Day); ok {
			article.PubDates[dateType] = t
		}
	}
	for _, group := range meta.ContribGroups {
		contribs := convertContribs(group.Contribs)
		for _, c := range contribs {
			switch c.Role {
			case "editor", "senior_editor", "Reviewing Editor", "Senior Editor":
				article.Editors = append(article.Editors, c)
			default:
				article.Authors = append(article.Authors, c)
			}
		}
	}
}

func convertContribs(contribs []jatsContrib) []Contributor {
	var out []Contributor
	for _, c := range contribs {
		contributor := Contributor{
			Role:       c.Role,
			Surname:    c.Surname,
			GivenNames: c.GivenNames,
		}
		if contributor.Role == "" {
			contributor.Role = c.Type
		}
		for _, id := range c.ContribIDs {
			if id.Type == "orcid" {
				contributor.ORCID = id.Value
			}
		}
		out = append(out, contributor)
	}
	return out
}

func parseDateParts(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		m = 1
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		d = 1
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), true
}
