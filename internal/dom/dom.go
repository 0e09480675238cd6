// Package dom locates the validated elements in an already parsed HTML
// document. It is the boundary between a crawler's goquery documents and the
// validate package.
package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/site-audit/internal/pagemap"
	"github.com/JakeFAU/site-audit/internal/validate"
)

// Selection is a single matched node.
type Selection struct {
	sel *goquery.Selection
}

// Text implements validate.Element.
func (s Selection) Text() string {
	return s.sel.Text()
}

// Attr implements validate.Element.
func (s Selection) Attr(name string) (string, bool) {
	return s.sel.Attr(strings.ToLower(name))
}

// Elements splits sel into one Element per matched node. The result is
// non-nil even when nothing matched.
func Elements(sel *goquery.Selection) []validate.Element {
	out := make([]validate.Element, 0, sel.Length())
	sel.Each(func(_ int, node *goquery.Selection) {
		out = append(out, Selection{sel: node})
	})
	return out
}

// ContentInfoFromDocument locates the title, h1 and meta description
// elements of doc.
func ContentInfoFromDocument(doc *goquery.Document) *pagemap.ContentInfo {
	descriptions := doc.Find("meta[name]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		return strings.EqualFold(strings.TrimSpace(name), "description")
	})
	return &pagemap.ContentInfo{
		PageTitleElements:       Elements(doc.Find("head title")),
		H1Elements:              Elements(doc.Find("h1")),
		MetaDescriptionElements: Elements(descriptions),
	}
}

// ParseContentInfo parses r as HTML and locates its elements.
func ParseContentInfo(r io.Reader) (*pagemap.ContentInfo, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return ContentInfoFromDocument(doc), nil
}

var _ validate.Element = Selection{}
