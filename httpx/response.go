// Package httpx holds the JSON response and request helpers shared by handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes bounds request bodies decoded by DecodeJSON.
const MaxBodyBytes = 1 << 20

// ErrBadRequestBody is returned by DecodeJSON for malformed or oversized bodies.
var ErrBadRequestBody = errors.New("invalid request body")

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// SuccessResponse is the body of writes that return nothing else.
type SuccessResponse struct {
	Success bool `json:"success"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// OK writes {"success": true}.
func OK(w http.ResponseWriter) {
	JSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// DecodeJSON decodes the request body into dst. An empty body, trailing data
// or a body over MaxBodyBytes is rejected with ErrBadRequestBody.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequestBody)
		}
		return fmt.Errorf("%w: %v", ErrBadRequestBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrBadRequestBody)
	}
	return nil
}
