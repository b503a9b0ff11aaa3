// Package apidocs serves the OpenAPI description of the HTTP API.
package apidocs

import (
	"bytes"
	_ "embed"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

//go:embed openapi.yaml
var openAPISpec []byte

// Spec returns a copy of the embedded OpenAPI document.
func Spec() []byte {
	return bytes.Clone(openAPISpec)
}

func Routes(r chi.Router) {
	r.Get("/docs/openapi.yaml", openAPIHandler)
}

func openAPIHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	http.ServeContent(w, r, "openapi.yaml", time.Time{}, bytes.NewReader(openAPISpec))
}
