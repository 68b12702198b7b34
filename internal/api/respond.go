package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"vectra/internal/services"
)

type errorPayload struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// writeError maps classified service errors onto status codes. Oversized
// request bodies surface from MaxBytesReader and map to 413.
func writeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorPayload{Detail: "upload exceeds the size limit"})
		return
	}
	writeJSON(w, services.HTTPStatus(err), errorPayload{Detail: err.Error()})
}
