// Package extract derives a title, a main-content text body and a
// representative illustration from parsed HTML. Each extraction is an
// ordered chain of selector queries, short-circuiting on the first
// non-empty match; a document matching nothing yields an empty result,
// which is not an error.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// titleQueries are tried head-first, then document-wide because some
// publishers misplace head elements inside the body.
var titleQueries = []func(*goquery.Document) string{
	func(doc *goquery.Document) string { return metaContent(doc, `head meta[property="og:title"]`) },
	func(doc *goquery.Document) string { return metaContent(doc, `head meta[name="twitter:title"]`) },
	func(doc *goquery.Document) string { return text(doc.Find("head title").First()) },
	func(doc *goquery.Document) string { return metaContent(doc, `meta[property="og:title"]`) },
	func(doc *goquery.Document) string { return metaContent(doc, `meta[name="twitter:title"]`) },
	titleOutsideSVG,
}

// Title returns the document title, or "" when no heuristic matches.
func Title(doc *goquery.Document) string {
	for _, query := range titleQueries {
		if title := query(doc); title != "" {
			return title
		}
	}
	return ""
}

// titleOutsideSVG matches any <title> element that is not part of an
// embedded vector graphic; inline SVGs carry their own unrelated titles.
func titleOutsideSVG(doc *goquery.Document) string {
	titles := doc.Find("title").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Closest("svg").Length() == 0
	})
	return text(titles.First())
}

// Content returns the main text of the document: the <main> element if
// present, else an element with id "main", else the whole body, with
// scripts stripped.
func Content(doc *goquery.Document) string {
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return ""
	}

	scope := body.Find("main").First()
	if scope.Length() == 0 {
		scope = body.Find("#main").First()
	}
	if scope.Length() == 0 {
		scope = body
	}

	scope.Find("script").Remove()

	return strings.Join(strings.Fields(scope.Text()), " ")
}

var illustrationQueries = []string{
	`head meta[property="og:image"]`,
	`head meta[name="twitter:image"]`,
	`meta[property="og:image"]`,
	`meta[name="twitter:image"]`,
}

// Illustration returns the URL of a representative image for the
// document, or "" when none is declared. The result may be relative; the
// caller absolutizes and sanitizes it against the page URL.
func Illustration(doc *goquery.Document) string {
	for _, query := range illustrationQueries {
		if url := metaContent(doc, query); url != "" {
			return url
		}
	}
	return ""
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
