package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log := logger.WithComponent("api")
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError responds with {"error": message} and the status of err's kind.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errorutil.HTTPStatus(err), models.ErrorResponse{Error: err.Error()})
}

// decodeJSON reads a request body limited to maxBytes. Numbers are kept as
// json.Number so parameters reach the trainer exactly as sent.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v interface{}) error {
	body := r.Body
	if maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errorutil.Validation("request body exceeds %d bytes", tooLarge.Limit)
		}
		return errorutil.Validation("invalid request body")
	}
	return nil
}
