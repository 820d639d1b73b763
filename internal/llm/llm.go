package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRefused is returned when the model declines to answer.
	ErrRefused = errors.New("model refused to answer")
	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("model returned an empty response")
)

// Request is a single-turn completion request.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	// JSON asks the backend to constrain the answer to a JSON object when it can.
	JSON bool
}

// Client is a language model backend.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Model() string
}

// StatusError is a non-2xx answer from a backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.Code, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// RefusalError carries the model's explanation for declining. It matches ErrRefused.
type RefusalError struct {
	Reason string
}

func (e *RefusalError) Error() string {
	if e.Reason == "" {
		return ErrRefused.Error()
	}
	return fmt.Sprintf("%s: %s", ErrRefused.Error(), e.Reason)
}

func (e *RefusalError) Is(target error) bool { return target == ErrRefused }
