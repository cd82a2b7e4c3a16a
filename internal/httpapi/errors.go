package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"detectd/internal/detector"
	"detectd/internal/imagecodec"
	"detectd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusForError maps well-known domain errors to HTTP status codes.
func statusForError(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case imagecodec.IsImageDecode(err):
		return http.StatusBadRequest
	case detector.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	case detector.IsModelInference(err):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// errorKind is the metrics label for a failed inference.
func errorKind(err error) string {
	switch {
	case imagecodec.IsImageDecode(err):
		return "decode"
	case detector.IsDependencyUnavailable(err):
		return "dependency"
	case detector.IsModelInference(err):
		return "model"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "other"
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
