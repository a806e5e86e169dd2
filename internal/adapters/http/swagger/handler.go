// Package swagger serves the OpenAPI document and a ReDoc page that renders it.
package swagger

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"html/template"
	"net/http"
)

// RedocURL is the default ReDoc bundle loaded by the docs page.
const RedocURL = "https://cdn.redoc.ly/redoc/v2.1.5/bundles/redoc.standalone.js"

const (
	docsPath = "/api-docs"
	specPath = "/openapi.yaml"
)

// Option customizes the docs page.
type Option func(*page)

// WithTitle sets the HTML title.
func WithTitle(title string) Option {
	return func(p *page) {
		if title != "" {
			p.Title = title
		}
	}
}

// WithRedocURL points the page at another ReDoc bundle, e.g. a self-hosted one.
func WithRedocURL(url string) Option {
	return func(p *page) {
		if url != "" {
			p.Script = url
		}
	}
}

type page struct {
	Title  string
	Script string
	Spec   string
}

var pageTmpl = template.Must(template.New("docs").Parse(`<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container" spec-url="{{.Spec}}"></redoc>
    <script src="{{.Script}}"></script>
  </body>
</html>`))

// Register attaches GET /api-docs and GET /openapi.yaml to mux. It panics on
// a nil mux or a page that fails to render.
func Register(_ context.Context, mux *http.ServeMux, opts ...Option) {
	if mux == nil {
		panic("swagger: nil mux")
	}

	p := page{Title: "Flashquiz API Docs", Script: RedocURL, Spec: specPath}
	for _, opt := range opts {
		opt(&p)
	}
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, p); err != nil {
		panic("swagger: render docs page: " + err.Error())
	}
	html := buf.Bytes()

	sum := sha256.Sum256(OpenAPI)
	etag := `"` + hex.EncodeToString(sum[:8]) + `"`

	mux.HandleFunc("GET "+docsPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(html)
	})

	mux.HandleFunc("GET "+specPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(OpenAPI)
	})
}
