package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JakeFAU/site-audit/internal/site"
)

type sitesResponse struct {
	Sites []site.Site `json:"sites"`
}

func (s *Server) listSites(w http.ResponseWriter, r *http.Request) {
	var (
		sites     []site.Site
		available bool
	)
	if !s.do(w, r, func() { sites, available = s.app.Sites().AllSites() }) {
		return
	}
	if !available {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "sites not yet available")
		return
	}
	writeJSON(w, http.StatusOK, sitesResponse{Sites: sites})
}

func (s *Server) createSite(w http.ResponseWriter, r *http.Request) {
	values, ok := decodeValues(w, r)
	if !ok {
		return
	}
	var created site.Site
	if !s.do(w, r, func() { created = s.app.Sites().CreateSite(values) }) {
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getSite(w http.ResponseWriter, r *http.Request) {
	id, ok := siteID(w, r)
	if !ok {
		return
	}
	var (
		found site.Site
		exist bool
	)
	if !s.do(w, r, func() { found, exist = s.app.Sites().Site(id) }) {
		return
	}
	if !exist {
		writeError(w, http.StatusNotFound, "site not found")
		return
	}
	writeJSON(w, http.StatusOK, found)
}

// updateSite answers 204 whether or not the site exists; an unknown UUID is a
// no-op, not an error.
func (s *Server) updateSite(w http.ResponseWriter, r *http.Request) {
	id, ok := siteID(w, r)
	if !ok {
		return
	}
	values, ok := decodeValues(w, r)
	if !ok {
		return
	}
	if !s.do(w, r, func() { s.app.Sites().UpdateSite(id, values) }) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeSite(w http.ResponseWriter, r *http.Request) {
	id, ok := siteID(w, r)
	if !ok {
		return
	}
	if !s.do(w, r, func() { s.app.Sites().RemoveSite(id) }) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func siteID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid site uuid")
		return uuid.Nil, false
	}
	return id, true
}

func decodeValues(w http.ResponseWriter, r *http.Request) (site.Values, bool) {
	var values site.Values
	if err := decodeJSON(r, &values); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return site.Values{}, false
	}
	if err := values.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return site.Values{}, false
	}
	return values, true
}
