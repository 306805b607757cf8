package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/trialq/trialq/internal/model"
	"github.com/trialq/trialq/internal/nl2sql"
	"github.com/trialq/trialq/internal/service"
)

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the {"error":{code,message,context}} envelope.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

var errEmptyBody = errors.New("request body is empty")

// readJSON decodes a single JSON document from the request body.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// queryInt extracts an integer query parameter, returning defaultVal if the
// parameter is missing or cannot be parsed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// queryString extracts a string query parameter without surrounding spaces.
func queryString(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// statusForError maps service errors to HTTP status codes.
func statusForError(err error) int {
	var te *nl2sql.TranslationError
	switch {
	case errors.Is(err, service.ErrSourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNoSources), errors.Is(err, service.ErrReportsDisabled):
		return http.StatusServiceUnavailable
	case errors.As(err, &te):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes err from the trial service. An unknown source
// lists the available ones in the error context.
func writeServiceError(w http.ResponseWriter, svc *service.TrialService, prefix string, err error) {
	if errors.Is(err, service.ErrSourceNotFound) {
		writeError(w, http.StatusNotFound, prefix+err.Error(), map[string]interface{}{"available": svc.Sources()})
		return
	}
	writeError(w, statusForError(err), prefix+err.Error())
}

// clampInt constrains val to be within [min, max].
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
