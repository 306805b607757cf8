package handler

import (
	"net/http"
	"path"
	"strings"

	"github.com/trialq/trialq/internal/model"
	"github.com/trialq/trialq/internal/report"
	"github.com/trialq/trialq/internal/service"
)

// ReportHandler renders query results into downloadable reports.
type ReportHandler struct {
	svc *service.TrialService
	// urlPrefix is where locally stored reports are served from.
	urlPrefix string
}

// NewReportHandler creates a new ReportHandler. Reports written to the local
// sink are linked under urlPrefix.
func NewReportHandler(svc *service.TrialService, urlPrefix string) *ReportHandler {
	if urlPrefix == "" {
		urlPrefix = "/reports/"
	}
	return &ReportHandler{svc: svc, urlPrefix: urlPrefix}
}

type reportRequest struct {
	Query   string      `json:"query"`
	Columns []string    `json:"columns"`
	Data    []model.Row `json:"data"`
	Format  string      `json:"format"`
}

type reportResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Format   string `json:"format"`
	Location string `json:"location"`
}

// Create renders the posted rows and stores the artifact.
// POST /api/v1/report
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Data) == 0 {
		writeError(w, http.StatusBadRequest, "No data to generate PDF")
		return
	}
	format, err := report.ParseFormat(req.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	art, err := h.svc.GenerateReport(r.Context(), format, report.Document{
		Question: req.Query,
		Columns:  req.Columns,
		Rows:     req.Data,
	})
	if err != nil {
		writeError(w, statusForError(err), "Failed to generate report: "+err.Error())
		return
	}

	url := path.Join(h.urlPrefix, art.Filename)
	if strings.Contains(art.Location, "://") {
		url = art.Location
	}
	writeJSON(w, http.StatusOK, reportResponse{
		Success:  true,
		Filename: art.Filename,
		URL:      url,
		Format:   string(art.Format),
		Location: art.Location,
	})
}

// List returns generated reports, newest first.
// GET /api/v1/report
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	store := h.svc.Store()
	if store == nil {
		writeJSON(w, http.StatusOK, model.ListResponse{Resource: []model.ReportRecord{}})
		return
	}
	reports, err := store.ListReports(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reports: "+err.Error())
		return
	}
	if reports == nil {
		reports = []model.ReportRecord{}
	}
	writeJSON(w, http.StatusOK, model.ListResponse{Resource: reports})
}
