package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/dualauth/autherr"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind autherr.Kind) int {
	switch kind {
	case autherr.KindBadRequest:
		return http.StatusBadRequest
	case autherr.KindAuthorization:
		return http.StatusUnauthorized
	case autherr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// WriteError writes err as {"error":{"kind":...,"message":...}} with the
// status for its kind. Only the public message is written.
func WriteError(w http.ResponseWriter, err error) {
	kind := autherr.KindOf(err)
	if kind == "" {
		kind = autherr.KindInternal
	}
	WriteJSON(w, StatusFor(kind), errorBody{Error: errorDetail{
		Kind:    string(kind),
		Message: autherr.Message(err),
	}})
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
