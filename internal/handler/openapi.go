package handler

import (
	"net/http"

	"github.com/trialq/trialq/internal/openapi"
	"github.com/trialq/trialq/internal/service"
)

// OpenAPIHandler serves the OpenAPI 3.1 document for this server.
type OpenAPIHandler struct {
	svc     *service.TrialService
	version string
}

// NewOpenAPIHandler creates a new OpenAPIHandler.
func NewOpenAPIHandler(svc *service.TrialService, version string) *OpenAPIHandler {
	return &OpenAPIHandler{svc: svc, version: version}
}

// ServeSpec returns the document with the current sources as the source enum.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	doc := openapi.Generate(openapi.Options{
		BaseURL: scheme + "://" + r.Host,
		Version: h.version,
		Sources: h.svc.Sources(),
	})
	writeJSON(w, http.StatusOK, doc)
}
