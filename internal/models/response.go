package models

import (
	"sort"
	"strings"
)

// FieldErrors is a validation failure keyed by request field.
// It doubles as the 400 response body.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

// ErrorResponse is the body written for rejected requests.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Errors  map[string]string `json:"errors"`
}

// MessageResponse is the body written for accepted commands.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
