// Package site holds the registry of monitored sites.
package site

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Errors returned by Values.Validate.
var (
	ErrNameRequired    = errors.New("site name is required")
	ErrInvalidHomePage = errors.New("home page URL must be an absolute http or https URL")
	ErrInvalidMaxPages = errors.New("maximum page count must be >= 0")
)

// Values is the mutable profile of a site.
type Values struct {
	Name        string `json:"name"`
	HomePageURL string `json:"homePageURL"`
	// MaximumPageCount caps a crawl round; zero means the crawler default.
	MaximumPageCount int `json:"maximumPageCount,omitempty"`
	// IncludedURLPrefixes restricts crawling to URLs under these prefixes.
	IncludedURLPrefixes []string `json:"includedURLPrefixes,omitempty"`
}

// Validate reports whether the values describe a crawlable site. The registry
// itself accepts any values; callers at the process edge validate first.
func (v Values) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return ErrNameRequired
	}
	u, err := url.Parse(v.HomePageURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidHomePage, v.HomePageURL)
	}
	if v.MaximumPageCount < 0 {
		return ErrInvalidMaxPages
	}
	return nil
}

// Site is a registry entry. Two Sites with the same ID are the same site.
type Site struct {
	ID uuid.UUID `json:"uuid"`
	Values
}

func uuidOf(s Site) uuid.UUID {
	return s.ID
}
