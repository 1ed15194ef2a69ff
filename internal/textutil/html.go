package textutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockSelectors = "p, div, li, ul, ol, h1, h2, h3, h4, h5, h6, tr, td, section, article, blockquote"

// StripHTML returns the visible text of an HTML fragment with entities decoded and
// whitespace collapsed. Block elements are separated by a space.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return CollapseSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return CollapseSpace(s)
	}
	doc.Find("script, style, noscript, template").Remove()
	doc.Find("br").ReplaceWithHtml(" ")
	doc.Find(blockSelectors).AppendHtml(" ")
	return CollapseSpace(doc.Text())
}

// CollapseSpace trims s and folds every whitespace run into a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
