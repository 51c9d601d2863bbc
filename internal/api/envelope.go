package api

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// apiVersion is stamped on every envelope so clients can detect drift.
const apiVersion = "v1"

// envelope is the uniform response wrapper.
type envelope struct {
	Version string `json:"version"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

// EnvelopeTransformer wraps every response body in the standard envelope.
// Success bodies land under data, error bodies under error.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	env := envelope{Version: apiVersion, Success: !strings.HasPrefix(status, "4") && !strings.HasPrefix(status, "5")}
	if env.Success {
		env.Data = v
	} else {
		env.Error = v
	}
	return env, nil
}
