package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/kaeptnchris246/eut-v1-sub002/pkg/apperr"
)

func NewRequestID() string { return "req_" + uuid.NewString() }

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ReadJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	resp := map[string]any{
		"request_id": NewRequestID(),
		"error": map[string]any{
			"code": code, "message": message, "details": details,
		},
	}
	WriteJSON(w, status, resp)
}

// WriteAppError renders an error using the apperr taxonomy. Internal faults
// are rendered opaquely; the caller is expected to have logged the cause.
func WriteAppError(w http.ResponseWriter, err error) {
	ae, ok := apperr.As(err)
	if !ok || ae.Kind == apperr.KindInternal {
		WriteError(w, http.StatusInternalServerError, string(apperr.KindInternal), "internal error", nil)
		return
	}
	WriteError(w, StatusOf(ae.Kind), string(ae.Kind), ae.Message, ae.Details)
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindBadRequest:
		return http.StatusBadRequest
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
