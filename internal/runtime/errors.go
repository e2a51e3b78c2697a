package runtime

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoToken         = errors.New("runtime: no API token configured")
	ErrUnknownChannel  = errors.New("runtime: unknown channel")
	ErrUnauthorized    = errors.New("runtime: unauthorized")
	ErrBackendNotFound = errors.New("runtime: backend not found")
	ErrJobNotFound     = errors.New("runtime: job not found")
	ErrJobFailed       = errors.New("runtime: job failed")
	ErrJobCancelled    = errors.New("runtime: job cancelled")
	ErrNoResults       = errors.New("runtime: job returned no results")
)

// APIError is a non-2xx response from the runtime API.
type APIError struct {
	Status  int
	Code    int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	if e.Code != 0 {
		return fmt.Sprintf("runtime: http %d (code %d): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("runtime: http %d: %s", e.Status, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// errorBody matches the runtime API error envelope.
type errorBody struct {
	Errors []struct {
		Code     int    `json:"code"`
		Message  string `json:"message"`
		Solution string `json:"solution"`
	} `json:"errors"`
	Message string `json:"message"`
	Trace   string `json:"trace"`
}

func (b *errorBody) message() (string, int) {
	if b == nil {
		return "", 0
	}
	if len(b.Errors) == 0 {
		return b.Message, 0
	}
	parts := make([]string, 0, len(b.Errors))
	for _, e := range b.Errors {
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, "; "), b.Errors[0].Code
}
