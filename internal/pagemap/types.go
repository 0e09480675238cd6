// Package pagemap holds crawl results per URL and answers validation queries
// over them.
//
// Nothing here locks. Like the site registry, an Index is owned by the main
// queue and must only be touched from it.
package pagemap

import (
	"fmt"
	"mime"
	"strings"

	"github.com/JakeFAU/site-audit/internal/validate"
)

// BaseContentType is the broad category of a URL's content.
type BaseContentType int

// BaseContentType values.
const (
	BaseContentUnknown BaseContentType = iota
	BaseContentLocalHTMLPage
	BaseContentText
	BaseContentImage
	BaseContentFeed
	BaseContentRedirect
	BaseContentEssential
)

var baseContentNames = []string{"unknown", "html", "text", "image", "feed", "redirect", "essential"}

func (t BaseContentType) String() string {
	if int(t) < 0 || int(t) >= len(baseContentNames) {
		return baseContentNames[0]
	}
	return baseContentNames[t]
}

// ParseBaseContentType accepts the names produced by String.
func ParseBaseContentType(s string) (BaseContentType, error) {
	for i, name := range baseContentNames {
		if strings.EqualFold(s, name) {
			return BaseContentType(i), nil
		}
	}
	return BaseContentUnknown, fmt.Errorf("%w: %q", ErrUnknownContentType, s)
}

// BaseContentTypeFromMIMEType categorizes a Content-Type header value.
// Parameters such as charset are ignored.
func BaseContentTypeFromMIMEType(value string) BaseContentType {
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(value))
	}
	switch mediaType {
	case "":
		return BaseContentUnknown
	case "text/html", "application/xhtml+xml":
		return BaseContentLocalHTMLPage
	case "application/rss+xml", "application/atom+xml", "application/feed+json":
		return BaseContentFeed
	case "text/css", "text/javascript", "application/javascript", "application/json":
		return BaseContentEssential
	}
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return BaseContentImage
	case strings.HasPrefix(mediaType, "font/"):
		return BaseContentEssential
	case strings.HasPrefix(mediaType, "text/"):
		return BaseContentText
	}
	return BaseContentUnknown
}

// ResponseType classifies an HTTP outcome.
type ResponseType int

// ResponseType values.
const (
	ResponseUnknown ResponseType = iota
	ResponseSuccessful
	ResponseRedirect
	ResponseClientError
	ResponseServerError
)

var responseNames = []string{"unknown", "successful", "redirect", "client_error", "server_error"}

func (t ResponseType) String() string {
	if int(t) < 0 || int(t) >= len(responseNames) {
		return responseNames[0]
	}
	return responseNames[t]
}

// ResponseTypeFromStatusCode maps an HTTP status to its class.
func ResponseTypeFromStatusCode(code int) ResponseType {
	switch {
	case code >= 200 && code < 300:
		return ResponseSuccessful
	case code >= 300 && code < 400:
		return ResponseRedirect
	case code >= 400 && code < 500:
		return ResponseClientError
	case code >= 500 && code < 600:
		return ResponseServerError
	}
	return ResponseUnknown
}

// ContentInfo holds the elements located on a page per area. A nil slice
// means the area was not captured; both nil and empty validate as Missing.
type ContentInfo struct {
	PageTitleElements       []validate.Element
	H1Elements              []validate.Element
	MetaDescriptionElements []validate.Element
}

// PageInfo is the crawl result for one URL. It is replaced wholesale on
// re-crawl, never patched.
type PageInfo struct {
	URL             string
	MIMEType        *string
	BaseContentType BaseContentType
	ResponseType    ResponseType
	StatusCode      int
	ContentInfo     *ContentInfo
}

// NewPageInfo derives the content and response classes from the raw
// response. A blank mimeType is still recorded so that it validates as
// Missing rather than absent.
func NewPageInfo(url, mimeType string, statusCode int, content *ContentInfo) PageInfo {
	return PageInfo{
		URL:             url,
		MIMEType:        &mimeType,
		BaseContentType: BaseContentTypeFromMIMEType(mimeType),
		ResponseType:    ResponseTypeFromStatusCode(statusCode),
		StatusCode:      statusCode,
		ContentInfo:     content,
	}
}
