// Package api hosts the HTTP server, middleware, and REST handlers for operator
// access. Notable routes:
//   - GET /healthz and /readyz for probes; readyz fails until the site
//     registry has loaded.
//   - GET /metrics for Prometheus scraping.
//   - /v1/sites for the registry command surface.
//   - /v1/pages for crawl result ingest, removal and validation queries.
//
// Every handler touches registry and index state only through the main queue.
package api
