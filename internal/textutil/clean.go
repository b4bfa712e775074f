package textutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanText strips markup and decodes entities that some vendor feeds leave in
// product and store names (e.g. "鮪魚飯糰<br>&amp;茶"), then collapses whitespace.
func CleanText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapse(s)
	}
	doc.Find("br").ReplaceWithHtml(" ")
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
