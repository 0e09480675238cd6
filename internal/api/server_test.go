package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-audit/internal/app"
	"github.com/JakeFAU/site-audit/internal/config"
	"github.com/JakeFAU/site-audit/internal/site"
)

func newTestServer(t *testing.T) (*Server, *app.App) {
	t.Helper()
	return newTestServerWith(t, app.Options{})
}

func newTestServerWith(t *testing.T, opts app.Options) (*Server, *app.App) {
	t.Helper()
	cfg := config.Config{
		Server: config.ServerConfig{Port: 8080},
		Storage: config.StorageConfig{
			Dir:        t.TempDir(),
			AppName:    "siteaudit",
			VersionDir: "v1",
			FileName:   "sites.json",
			ItemsKey:   "items",
		},
		Queue: config.QueueConfig{Depth: 8},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a, err := app.New(ctx, cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	require.NoError(t, a.WaitLoaded(ctx))
	return NewServer(a, zap.NewNop()), a
}

func serve(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, bytes.NewBufferString(body)))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestServer_HealthAndReady(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	require.Equal(t, http.StatusOK, serve(t, s, http.MethodGet, "/healthz", "").Code)
	require.Equal(t, http.StatusOK, serve(t, s, http.MethodGet, "/readyz", "").Code)

	rec := serve(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestServer_SiteLifecycle(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	rec := serve(t, s, http.MethodGet, "/v1/sites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[sitesResponse](t, rec).Sites)

	rec = serve(t, s, http.MethodPost, "/v1/sites", `{"name":"Example","homePageURL":"https://example.com/"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[site.Site](t, rec)
	require.NotEqual(t, uuid.Nil, created.ID)

	path := "/v1/sites/" + created.ID.String()
	rec = serve(t, s, http.MethodPut, path, `{"name":"Renamed","homePageURL":"https://example.org/"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, s, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Renamed", decode[site.Site](t, rec).Name)

	require.Equal(t, http.StatusNoContent, serve(t, s, http.MethodDelete, path, "").Code)
	require.Equal(t, http.StatusNotFound, serve(t, s, http.MethodGet, path, "").Code)
}

func TestServer_UnknownSiteIsNoOp(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	serve(t, s, http.MethodPost, "/v1/sites", `{"name":"Kept","homePageURL":"https://kept.example/"}`)
	unknown := "/v1/sites/" + uuid.NewString()

	require.Equal(t, http.StatusNoContent,
		serve(t, s, http.MethodPut, unknown, `{"name":"Ghost","homePageURL":"https://ghost.example/"}`).Code)
	require.Equal(t, http.StatusNoContent, serve(t, s, http.MethodDelete, unknown, "").Code)

	sites := decode[sitesResponse](t, serve(t, s, http.MethodGet, "/v1/sites", "")).Sites
	require.Len(t, sites, 1)
	require.Equal(t, "Kept", sites[0].Name)
}

func TestServer_SiteValidation(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	require.Equal(t, http.StatusBadRequest, serve(t, s, http.MethodPost, "/v1/sites", "{invalid").Code)
	rec := serve(t, s, http.MethodPost, "/v1/sites", `{"name":"","homePageURL":"https://example.com"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "name is required")
	require.Equal(t, http.StatusBadRequest, serve(t, s, http.MethodDelete, "/v1/sites/not-a-uuid", "").Code)
}

const (
	pageA = `{"url":"https://example.com/a","mime_type":"text/html","status_code":200,"content":{
		"title":[{"text":"Home"}],"h1":[{"text":"Welcome"}],
		"meta_description":[{"attributes":{"name":"description","content":"A great page"}}]}}`
	pageB = `{"url":"https://example.com/b","mime_type":"text/html","status_code":200,"content":{
		"title":[],"h1":[{"text":"Welcome"}],
		"meta_description":[{"attributes":{"content":"x"}}]}}`
	pageC = `{"url":"https://example.com/c","mime_type":"text/html","status_code":200,"content":{
		"title":[{"text":"one"},{"text":"two"}],"h1":[{"text":"Welcome"}],
		"meta_description":[{"attributes":{"content":"x"}}]}}`
)

func TestServer_PageQueries(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	for _, body := range []string{pageA, pageB, pageC} {
		require.Equal(t, http.StatusOK, serve(t, s, http.MethodPut, "/v1/pages", body).Code)
	}

	rec := serve(t, s, http.MethodGet, "/v1/pages/valid?type=html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"https://example.com/a"}, decode[urlsResponse](t, rec).URLs)

	rec = serve(t, s, http.MethodGet, "/v1/pages/failing?type=html&area=title", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"https://example.com/b", "https://example.com/c"}, decode[urlsResponse](t, rec).URLs)

	rec = serve(t, s, http.MethodGet, "/v1/pages/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"type":"html","failing":{"mime_type":0,"title":2,"h1":0,"meta_description":0}}`, rec.Body.String())

	rec = serve(t, s, http.MethodGet, "/v1/pages?url=https://example.com/c", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"title":"multiple"`)

	require.Equal(t, http.StatusNotFound, serve(t, s, http.MethodGet, "/v1/pages?url=https://nope/", "").Code)
	require.Equal(t, http.StatusBadRequest, serve(t, s, http.MethodGet, "/v1/pages/failing?area=footer", "").Code)
	require.Equal(t, http.StatusBadRequest, serve(t, s, http.MethodGet, "/v1/pages/valid?type=video", "").Code)
	require.Equal(t, http.StatusBadRequest, serve(t, s, http.MethodPut, "/v1/pages", `{"url":""}`).Code)
}

func TestServer_RemovePage(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	for _, body := range []string{pageA, pageB} {
		require.Equal(t, http.StatusOK, serve(t, s, http.MethodPut, "/v1/pages", body).Code)
	}

	require.Equal(t, http.StatusNoContent, serve(t, s, http.MethodDelete, "/v1/pages?url=https://example.com/a", "").Code)
	require.Equal(t, http.StatusNotFound, serve(t, s, http.MethodGet, "/v1/pages?url=https://example.com/a", "").Code)
	require.Empty(t, decode[urlsResponse](t, serve(t, s, http.MethodGet, "/v1/pages/valid", "")).URLs)
	require.Equal(t, []string{"https://example.com/b"},
		decode[urlsResponse](t, serve(t, s, http.MethodGet, "/v1/pages/failing?area=title", "")).URLs)

	require.Equal(t, http.StatusNoContent, serve(t, s, http.MethodDelete, "/v1/pages?url=https://nope/", "").Code)
	require.Equal(t, http.StatusBadRequest, serve(t, s, http.MethodDelete, "/v1/pages", "").Code)
}

func TestServer_PageWithoutContentIsMissing(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	rec := serve(t, s, http.MethodPut, "/v1/pages", `{"url":"https://example.com/x","status_code":200}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]any](t, rec)
	require.Equal(t, map[string]any{
		"mime_type": "missing", "title": "missing", "h1": "missing", "meta_description": "missing",
	}, resp["results"])
	require.Equal(t, "unknown", resp["base_content_type"])
}

func TestRequestIDMiddlewareSetsHeader(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	rec := serve(t, s, http.MethodGet, "/healthz", "")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestServer_TracesRequests(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	s, _ := newTestServerWith(t, app.Options{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)),
	})

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	req := httptest.NewRequest(http.MethodGet, "/v1/sites/"+uuid.NewString(), nil)
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var server, queue sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		switch span.Name() {
		case "mainqueue.Sync":
			queue = span
		default:
			server = span
		}
	}
	require.NotNil(t, server)
	require.NotNil(t, queue)
	require.Contains(t, server.Name(), "GET /v1/sites/{uuid}")
	require.Equal(t, traceID, server.SpanContext().TraceID().String())
	require.Equal(t, server.SpanContext().SpanID(), queue.Parent().SpanID())
}

func TestServer_QueueClosed(t *testing.T) {
	t.Parallel()

	s, a := newTestServer(t)
	require.NoError(t, a.Close(context.Background()))
	require.Equal(t, http.StatusServiceUnavailable, serve(t, s, http.MethodGet, "/v1/sites", "").Code)
}

type hijackableRecorder struct {
	*httptest.ResponseRecorder
	client net.Conn
	server net.Conn
}

func (h *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	rw := bufio.NewReadWriter(bufio.NewReader(h.server), bufio.NewWriter(h.server))
	return h.server, rw, nil
}

func TestResponseWriterHijackBehavior(t *testing.T) {
	t.Parallel()

	rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}
	_, _, err := rw.Hijack()
	require.Error(t, err)

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	rw = &responseWriter{ResponseWriter: &hijackableRecorder{
		ResponseRecorder: httptest.NewRecorder(), client: client, server: server,
	}}
	conn, buf, err := rw.Hijack()
	require.NoError(t, err)
	require.Equal(t, server, conn)
	require.NotNil(t, buf)
}
