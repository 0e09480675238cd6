package pagemap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JakeFAU/site-audit/internal/validate"
)

var (
	// ErrUnknownArea is returned by ParseArea.
	ErrUnknownArea = errors.New("unknown validation area")
	// ErrUnknownContentType is returned by ParseBaseContentType.
	ErrUnknownContentType = errors.New("unknown base content type")
)

// Result is the public verdict for one area of one page.
type Result int

// Result values, one per validate.Verdict.
const (
	Valid Result = iota
	NotRequested
	Missing
	Empty
	Multiple
	Invalid
)

var resultNames = []string{"valid", "not_requested", "missing", "empty", "multiple", "invalid"}

func (r Result) String() string {
	if int(r) < 0 || int(r) >= len(resultNames) {
		return "unknown"
	}
	return resultNames[r]
}

// MarshalText renders the result name in JSON responses.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ResultFromVerdict maps a classifier verdict to a Result.
func ResultFromVerdict(v validate.Verdict) Result {
	switch v {
	case validate.ValidString:
		return Valid
	case validate.NotRequested:
		return NotRequested
	case validate.Missing:
		return Missing
	case validate.Empty:
		return Empty
	case validate.Multiple:
		return Multiple
	case validate.Invalid:
		return Invalid
	}
	return Invalid
}

// ValidateMIMEType is Missing for a blank value and Valid otherwise.
func ValidateMIMEType(mimeType string) Result {
	if validate.IsBlank(mimeType) {
		return Missing
	}
	return Valid
}

// Area is one checkable dimension of a page.
type Area int

// Area values. Zero is reserved so an unset Area is never a real one.
const (
	AreaMIMEType Area = iota + 1
	AreaTitle
	AreaH1
	AreaMetaDescription
)

var areas = []struct {
	area  Area
	key   string
	title string
}{
	{AreaMIMEType, "mime_type", "MIME Type"},
	{AreaTitle, "title", "Title"},
	{AreaH1, "h1", "H1"},
	{AreaMetaDescription, "meta_description", "Meta Description"},
}

// AllAreas returns every area in display order.
func AllAreas() []Area {
	out := make([]Area, len(areas))
	for i, a := range areas {
		out[i] = a.area
	}
	return out
}

// ParseArea accepts the key ("meta_description") or the display title
// ("Meta Description"), case-insensitively.
func ParseArea(s string) (Area, error) {
	s = strings.TrimSpace(s)
	for _, a := range areas {
		if strings.EqualFold(s, a.key) || strings.EqualFold(s, a.title) {
			return a.area, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownArea, s)
}

// String returns the machine key.
func (a Area) String() string {
	for _, e := range areas {
		if e.area == a {
			return e.key
		}
	}
	return "unknown"
}

// MarshalText lets areas key JSON objects.
func (a Area) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Title returns the display name.
func (a Area) Title() string {
	for _, e := range areas {
		if e.area == a {
			return e.title
		}
	}
	return ""
}

// IsRequired reports whether a Missing verdict counts as a failure.
// Every current area is required.
func (a Area) IsRequired() bool {
	return true
}

// ValidateArea judges one area of the page. Areas with no captured data are
// Missing; this engine never reports NotRequested at the page level.
func (p PageInfo) ValidateArea(area Area) Result {
	switch area {
	case AreaMIMEType:
		if p.MIMEType != nil {
			return ValidateMIMEType(*p.MIMEType)
		}
	case AreaTitle:
		if p.ContentInfo != nil {
			return ResultFromVerdict(validate.ClassifyElements(p.ContentInfo.PageTitleElements))
		}
	case AreaH1:
		if p.ContentInfo != nil {
			return ResultFromVerdict(validate.ClassifyElements(p.ContentInfo.H1Elements))
		}
	case AreaMetaDescription:
		if p.ContentInfo != nil {
			return validateMetaDescription(p.ContentInfo.MetaDescriptionElements)
		}
	}
	return Missing
}

// The description lives in the content attribute, not the element text.
func validateMetaDescription(elements []validate.Element) Result {
	switch len(elements) {
	case 0:
		return Missing
	case 1:
		return ResultFromVerdict(validate.ClassifyAttribute(elements[0], "content"))
	default:
		return Multiple
	}
}

// ValidateAll judges every area.
func (p PageInfo) ValidateAll() map[Area]Result {
	out := make(map[Area]Result, len(areas))
	for _, a := range AllAreas() {
		out[a] = p.ValidateArea(a)
	}
	return out
}
