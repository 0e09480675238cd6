package api

import (
	"net/http"
	"strings"

	"github.com/JakeFAU/site-audit/internal/pagemap"
	"github.com/JakeFAU/site-audit/internal/validate"
)

// pageRequest is the crawler's view of one fetched URL. A missing content
// object, or a missing element list inside it, means the area was not captured.
type pageRequest struct {
	URL        string          `json:"url"`
	MIMEType   *string         `json:"mime_type"`
	StatusCode int             `json:"status_code"`
	Content    *contentRequest `json:"content"`
}

type contentRequest struct {
	Title           []validate.StaticElement `json:"title"`
	H1              []validate.StaticElement `json:"h1"`
	MetaDescription []validate.StaticElement `json:"meta_description"`
}

type pageResponse struct {
	URL             string                          `json:"url"`
	BaseContentType string                          `json:"base_content_type"`
	ResponseType    string                          `json:"response_type"`
	Results         map[pagemap.Area]pagemap.Result `json:"results"`
}

type urlsResponse struct {
	URLs []string `json:"urls"`
}

type summaryResponse struct {
	Type    string               `json:"type"`
	Failing map[pagemap.Area]int `json:"failing"`
}

func elements(in []validate.StaticElement) []validate.Element {
	if in == nil {
		return nil
	}
	out := make([]validate.Element, len(in))
	for i, el := range in {
		out[i] = el
	}
	return out
}

func (req pageRequest) pageInfo() pagemap.PageInfo {
	var content *pagemap.ContentInfo
	if req.Content != nil {
		content = &pagemap.ContentInfo{
			PageTitleElements:       elements(req.Content.Title),
			H1Elements:              elements(req.Content.H1),
			MetaDescriptionElements: elements(req.Content.MetaDescription),
		}
	}
	mimeType := ""
	if req.MIMEType != nil {
		mimeType = *req.MIMEType
	}
	info := pagemap.NewPageInfo(req.URL, mimeType, req.StatusCode, content)
	info.MIMEType = req.MIMEType
	return info
}

func toPageResponse(info pagemap.PageInfo) pageResponse {
	return pageResponse{
		URL:             info.URL,
		BaseContentType: info.BaseContentType.String(),
		ResponseType:    info.ResponseType.String(),
		Results:         info.ValidateAll(),
	}
}

func (s *Server) putPage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url required")
		return
	}
	info := req.pageInfo()
	if !s.do(w, r, func() { s.app.Index().SetPageInfo(info) }) {
		return
	}
	s.app.Metrics().ObservePage(info)
	writeJSON(w, http.StatusOK, toPageResponse(info))
}

func (s *Server) getPage(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	var (
		info  pagemap.PageInfo
		found bool
	)
	if !s.do(w, r, func() { info, found = s.app.Index().PageInfo(url) }) {
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "page not found")
		return
	}
	writeJSON(w, http.StatusOK, toPageResponse(info))
}

// removePage forgets a crawled URL. Like site removal, an unknown URL is a
// no-op and still answers 204.
func (s *Server) removePage(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if strings.TrimSpace(url) == "" {
		writeError(w, http.StatusBadRequest, "url required")
		return
	}
	if !s.do(w, r, func() { s.app.Index().Remove(url) }) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) validURLs(w http.ResponseWriter, r *http.Request) {
	contentType, ok := contentTypeParam(w, r)
	if !ok {
		return
	}
	var urls []string
	if !s.do(w, r, func() { urls = s.app.Index().FullyValidURLs(contentType) }) {
		return
	}
	writeJSON(w, http.StatusOK, urlsResponse{URLs: urls})
}

func (s *Server) failingURLs(w http.ResponseWriter, r *http.Request) {
	contentType, ok := contentTypeParam(w, r)
	if !ok {
		return
	}
	area, err := pagemap.ParseArea(r.URL.Query().Get("area"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var urls []string
	if !s.do(w, r, func() { urls = s.app.Index().URLsFailingArea(contentType, area) }) {
		return
	}
	writeJSON(w, http.StatusOK, urlsResponse{URLs: urls})
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	contentType, ok := contentTypeParam(w, r)
	if !ok {
		return
	}
	var failing map[pagemap.Area]int
	if !s.do(w, r, func() { failing = s.app.Index().Summary(contentType) }) {
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Type: contentType.String(), Failing: failing})
}

// contentTypeParam reads ?type=, defaulting to html.
func contentTypeParam(w http.ResponseWriter, r *http.Request) (pagemap.BaseContentType, bool) {
	raw := r.URL.Query().Get("type")
	if raw == "" {
		return pagemap.BaseContentLocalHTMLPage, true
	}
	contentType, err := pagemap.ParseBaseContentType(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return contentType, true
}
