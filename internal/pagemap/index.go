package pagemap

import "slices"

// URLSource lists crawled URLs by classification, in crawl order. The crawler
// owns the real implementation; Catalog is the in-memory one.
type URLSource interface {
	URLsWithBaseContentType(contentType BaseContentType, responseType ResponseType) []string
}

type classification struct {
	contentType  BaseContentType
	responseType ResponseType
}

// Catalog records the classification of each URL in first-seen order.
type Catalog struct {
	order   []string
	entries map[string]classification
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]classification)}
}

// Record sets the classification of url. A re-recorded URL keeps its place.
func (c *Catalog) Record(url string, contentType BaseContentType, responseType ResponseType) {
	if _, ok := c.entries[url]; !ok {
		c.order = append(c.order, url)
	}
	c.entries[url] = classification{contentType: contentType, responseType: responseType}
}

// Forget drops url.
func (c *Catalog) Forget(url string) {
	if _, ok := c.entries[url]; !ok {
		return
	}
	delete(c.entries, url)
	c.order = slices.DeleteFunc(c.order, func(u string) bool { return u == url })
}

// URLsWithBaseContentType implements URLSource.
func (c *Catalog) URLsWithBaseContentType(contentType BaseContentType, responseType ResponseType) []string {
	out := make([]string, 0, len(c.order))
	for _, url := range c.order {
		e := c.entries[url]
		if e.contentType == contentType && e.responseType == responseType {
			out = append(out, url)
		}
	}
	return out
}

// Index maps URL to its latest PageInfo. Validation runs on query, never on
// insert.
type Index struct {
	pages   map[string]PageInfo
	source  URLSource
	catalog *Catalog
}

// NewIndex builds an Index over source. With a nil source the index keeps its
// own Catalog fed by SetPageInfo.
func NewIndex(source URLSource) *Index {
	idx := &Index{pages: make(map[string]PageInfo)}
	if source == nil {
		idx.catalog = NewCatalog()
		source = idx.catalog
	}
	idx.source = source
	return idx
}

// SetPageInfo stores info under info.URL, replacing any earlier entry.
func (x *Index) SetPageInfo(info PageInfo) {
	x.pages[info.URL] = info
	if x.catalog != nil {
		x.catalog.Record(info.URL, info.BaseContentType, info.ResponseType)
	}
}

// Update stores the result of fn. prev is nil when url has no entry; the
// returned value is always stored under url.
func (x *Index) Update(url string, fn func(prev *PageInfo) PageInfo) PageInfo {
	var prev *PageInfo
	if existing, ok := x.pages[url]; ok {
		prev = &existing
	}
	next := fn(prev)
	next.URL = url
	x.SetPageInfo(next)
	return next
}

// PageInfo returns the entry for url.
func (x *Index) PageInfo(url string) (PageInfo, bool) {
	info, ok := x.pages[url]
	return info, ok
}

// Remove drops the entry for url.
func (x *Index) Remove(url string) {
	delete(x.pages, url)
	if x.catalog != nil {
		x.catalog.Forget(url)
	}
}

// Len returns the number of entries.
func (x *Index) Len() int {
	return len(x.pages)
}

// FullyValidURLs returns the successfully fetched URLs of contentType whose
// page validates as Valid in every area. URLs without an entry are not yet
// judged and are left out.
func (x *Index) FullyValidURLs(contentType BaseContentType) []string {
	all := AllAreas()
	return x.filter(contentType, func(info PageInfo) bool {
		for _, area := range all {
			if info.ValidateArea(area) != Valid {
				return false
			}
		}
		return true
	})
}

// URLsFailingArea returns the successfully fetched URLs of contentType whose
// page fails area. Missing only fails a required area.
func (x *Index) URLsFailingArea(contentType BaseContentType, area Area) []string {
	return x.filter(contentType, func(info PageInfo) bool {
		return fails(info.ValidateArea(area), area)
	})
}

// Summary counts failing URLs per area.
func (x *Index) Summary(contentType BaseContentType) map[Area]int {
	out := make(map[Area]int)
	for _, area := range AllAreas() {
		out[area] = len(x.URLsFailingArea(contentType, area))
	}
	return out
}

func fails(result Result, area Area) bool {
	switch result {
	case Valid:
		return false
	case Missing:
		return area.IsRequired()
	default:
		return true
	}
}

func (x *Index) filter(contentType BaseContentType, keep func(PageInfo) bool) []string {
	urls := x.source.URLsWithBaseContentType(contentType, ResponseSuccessful)
	out := make([]string, 0, len(urls))
	for _, url := range urls {
		info, ok := x.pages[url]
		if ok && keep(info) {
			out = append(out, url)
		}
	}
	return out
}
