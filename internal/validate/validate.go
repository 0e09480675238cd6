// Package validate classifies the content located for one area of one page
// into a six-way verdict.
package validate

import (
	"strings"
	"unicode"
)

// Verdict is the outcome of classifying one area.
type Verdict int

// Verdict values.
const (
	// ValidString means exactly one non-blank value was found.
	ValidString Verdict = iota
	// NotRequested means the crawl deliberately did not check this area.
	NotRequested
	// Missing means nothing was found.
	Missing
	// Empty means one value was found and it is blank.
	Empty
	// Multiple means more than one candidate was found.
	Multiple
	// Invalid means a candidate was found but its value is unusable.
	Invalid
)

var verdictNames = map[Verdict]string{
	ValidString:  "valid",
	NotRequested: "not_requested",
	Missing:      "missing",
	Empty:        "empty",
	Multiple:     "multiple",
	Invalid:      "invalid",
}

func (v Verdict) String() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}
	return "unknown"
}

// Element is a located content node. Handles come from whatever parsed the
// page; this package never parses markup itself.
type Element interface {
	// Text returns the node's text content.
	Text() string
	// Attr returns the named attribute and whether it is present.
	Attr(name string) (string, bool)
}

// ClassifyElements judges the text of the elements located for one area.
func ClassifyElements[E Element](elements []E) Verdict {
	switch len(elements) {
	case 0:
		return Missing
	case 1:
		return ClassifyString(elements[0].Text())
	default:
		return Multiple
	}
}

// ClassifyAttribute judges a single element by one of its attributes rather
// than its text. An absent attribute is Invalid.
func ClassifyAttribute(el Element, name string) Verdict {
	if el == nil {
		return Missing
	}
	value, ok := el.Attr(name)
	if !ok {
		return Invalid
	}
	return ClassifyString(value)
}

// ClassifyString judges a scalar value.
func ClassifyString(s string) Verdict {
	if IsBlank(s) {
		return Empty
	}
	return ValidString
}

// IsBlank reports whether s is empty or whitespace only.
func IsBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}

// StaticElement is an Element held in memory, used at the HTTP edge and in
// tests.
type StaticElement struct {
	Content    string            `json:"text"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Text implements Element.
func (e StaticElement) Text() string { return e.Content }

// Attr implements Element.
func (e StaticElement) Attr(name string) (string, bool) {
	if v, ok := e.Attributes[name]; ok {
		return v, true
	}
	// HTML attribute names are case-insensitive.
	for k, v := range e.Attributes {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

var _ Element = StaticElement{}
