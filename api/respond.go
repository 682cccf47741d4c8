package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bamtlab/conductor"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps engine error classes to HTTP statuses: not found to
// 404, conflicts to 409, invalid input to 400, everything else to 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case conductor.IsNotFound(err):
		status = http.StatusNotFound
	case conductor.IsConflict(err):
		status = http.StatusConflict
	case conductor.IsInvalidInput(err):
		status = http.StatusBadRequest
	case errors.Is(err, conductor.ErrInvalidTransition):
		status = http.StatusConflict
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	return dec.Decode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
