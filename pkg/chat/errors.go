package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pario-ai/folio/pkg/llm"
	"github.com/pario-ai/folio/pkg/rag"
)

// Kind classifies a chat failure for the client.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindModelUnavailable
	KindRetrieverUnavailable
	KindRateLimited
	KindAuthFailed
	KindTimeout
	KindCanceled
)

var kindNames = map[Kind]string{
	KindInternal:             "internal",
	KindInvalidInput:         "invalid_input",
	KindModelUnavailable:     "model_unavailable",
	KindRetrieverUnavailable: "retriever_unavailable",
	KindRateLimited:          "rate_limited",
	KindAuthFailed:           "auth_failed",
	KindTimeout:              "timeout",
	KindCanceled:             "canceled",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "internal"
}

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindModelUnavailable, KindRetrieverUnavailable, KindAuthFailed, KindTimeout, KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified chat failure.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the text shown to clients. Upstream details are only exposed
// for invalid input.
func (e *Error) Message() string {
	switch e.Kind {
	case KindInvalidInput:
		return e.Err.Error()
	case KindRateLimited:
		return "too many requests, please try again later"
	case KindModelUnavailable, KindAuthFailed:
		return "the language model is currently unavailable"
	case KindRetrieverUnavailable:
		return "the content search is currently unavailable"
	case KindTimeout:
		return "the request timed out"
	case KindCanceled:
		return "the request was canceled"
	default:
		return "internal error"
	}
}

// KindOf returns the Kind of err, or KindInternal when err is not a chat
// error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}

// StatusCode maps err to an HTTP status code.
func StatusCode(err error) int {
	return KindOf(err).Status()
}

func invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Stage: "validate", Err: fmt.Errorf(format, args...)}
}

// classify tags an error from one of the pipeline stages.
func classify(stage string, err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindCanceled, Stage: stage, Err: err}
	}

	kind := KindInternal
	switch llm.KindOf(err) {
	case llm.KindRateLimited:
		kind = KindRateLimited
	case llm.KindAuth:
		kind = KindAuthFailed
	case llm.KindTimeout:
		kind = KindTimeout
	case llm.KindCanceled:
		kind = KindCanceled
	case llm.KindUnavailable:
		kind = KindModelUnavailable
	}
	if errors.Is(err, rag.ErrRetrieval) && (kind == KindInternal || kind == KindModelUnavailable) {
		kind = KindRetrieverUnavailable
	}
	return &Error{Kind: kind, Stage: stage, Err: err}
}
