package httptransport

import (
	"encoding/json"
	"net/http"

	dErrors "cardex/pkg/domain-errors"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError translates domain error codes into HTTP statuses. Internal
// details stay in the log; the response carries the code and message only.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInvalidData:
		status = http.StatusBadRequest
	case dErrors.CodeNotFound:
		status = http.StatusNotFound
	case dErrors.CodeStorage:
		status = http.StatusServiceUnavailable
	case dErrors.CodeConfiguration:
		status = http.StatusNotImplemented
	}
	writeJSON(w, status, map[string]string{
		"code":  string(dErrors.CodeOf(err)),
		"error": err.Error(),
	})
}
