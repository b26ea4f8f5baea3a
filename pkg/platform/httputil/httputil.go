// Package httputil centralizes JSON response writing so every handler maps
// domain errors to transport codes the same way.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "certrail/pkg/domain-errors"
)

var codeStatus = map[dErrors.Code]int{
	dErrors.CodeNotFound:            http.StatusNotFound,
	dErrors.CodeInvalidTransition:   http.StatusConflict,
	dErrors.CodeStaleTransition:     http.StatusConflict,
	dErrors.CodeOutOfRange:          http.StatusBadRequest,
	dErrors.CodeMissingPrerequisite: http.StatusUnprocessableEntity,
	dErrors.CodeInvalidInput:        http.StatusBadRequest,
	dErrors.CodeBadRequest:          http.StatusBadRequest,
	dErrors.CodeUnauthorized:        http.StatusUnauthorized,
	dErrors.CodeInternal:            http.StatusInternalServerError,
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into an HTTP response. Internal errors
// omit the description so infrastructure details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := codeStatus[code]
	if !ok {
		code = dErrors.CodeInternal
		status = http.StatusInternalServerError
	}

	body := errorBody{Error: string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.ErrorDescription = de.Message
		}
	}
	WriteJSON(w, status, body)
}
