package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/trialq/trialq/internal/model"
	"github.com/trialq/trialq/internal/repair"
	"github.com/trialq/trialq/internal/report"
	"github.com/trialq/trialq/internal/service"
)

// MaxResponseRows caps the rows returned inline by the query endpoint.
const MaxResponseRows = 50

// QueryHandler answers natural-language questions over the trial sources.
type QueryHandler struct {
	svc *service.TrialService
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(svc *service.TrialService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type queryRequest struct {
	Query  string `json:"query"`
	Source string `json:"source"`
}

// Query runs the repair loop for a question. The bare words "schema" and
// "stats" short-circuit to the schema description and row counts.
// POST /api/v1/query
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	question := strings.TrimSpace(req.Query)
	if question == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}

	switch strings.ToLower(question) {
	case "schema":
		desc, err := h.svc.Describe(r.Context(), req.Source)
		if err != nil {
			writeServiceError(w, h.svc, "Failed to describe schema: ", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"type": "schema", "data": desc.String()})
		return
	case "stats":
		stats, err := h.svc.Stats(r.Context(), req.Source)
		if err != nil {
			writeServiceError(w, h.svc, "Failed to collect stats: ", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"type": "stats", "data": stats})
		return
	}

	ans, err := h.svc.Ask(r.Context(), req.Source, question)
	if err != nil {
		var ex *repair.ExhaustedError
		if errors.As(err, &ex) {
			writeJSON(w, http.StatusOK, model.QueryResponse{
				Type:     "error",
				SQL:      ex.LastSQL,
				Attempts: ex.Attempts,
				Error:    ex.LastError,
			})
			return
		}
		writeServiceError(w, h.svc, "Query failed: ", err)
		return
	}

	rows := ans.Result.Rows
	total := len(rows)
	if len(rows) > MaxResponseRows {
		rows = rows[:MaxResponseRows]
	}
	writeJSON(w, http.StatusOK, model.QueryResponse{
		Type:      "success",
		SQL:       ans.FinalSQL,
		RowCount:  len(rows),
		TotalRows: total,
		Attempts:  ans.AttemptsUsed,
		Columns:   report.DisplayColumns(ans.Result.Columns, rows),
		Data:      report.CleanRows(rows),
	})
}

type schemaResponse struct {
	Source string                  `json:"source"`
	Text   string                  `json:"text"`
	Tables []model.TableDescriptor `json:"tables"`
}

// Schema returns the schema description of a source.
// GET /api/v1/schema?source=
func (h *QueryHandler) Schema(w http.ResponseWriter, r *http.Request) {
	source := queryString(r, "source")
	desc, err := h.svc.Describe(r.Context(), source)
	if err != nil {
		writeServiceError(w, h.svc, "Failed to describe schema: ", err)
		return
	}
	if source == "" {
		source = h.svc.DefaultSource()
	}
	writeJSON(w, http.StatusOK, schemaResponse{Source: source, Text: desc.String(), Tables: desc.Tables})
}

// Stats returns row counts per table of a source.
// GET /api/v1/stats?source=
func (h *QueryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), queryString(r, "source"))
	if err != nil {
		writeServiceError(w, h.svc, "Failed to collect stats: ", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
