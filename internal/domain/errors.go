package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidRequest signals a malformed assist request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrChatProviderError signals a chat model failure.
	ErrChatProviderError = errors.New("chat provider error")
	// ErrRerankerError signals a cross-encoder failure.
	ErrRerankerError = errors.New("reranker error")
)

// Pipeline error taxonomy. Each sentinel maps to a stable ErrorCode.
var (
	ErrInputEmpty            = errors.New("input empty")
	ErrExtractionFailed      = errors.New("extraction failed")
	ErrRetrievalPartial      = errors.New("retrieval partial")
	ErrRetrievalFailed       = errors.New("retrieval failed")
	ErrRerankUnavailable     = errors.New("rerank unavailable")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrDeadlineExceeded      = errors.New("deadline exceeded")
)

// ErrorCode is the stable identifier reported to callers and metrics.
type ErrorCode string

const (
	CodeInputEmpty            ErrorCode = "input_empty"
	CodeExtractionFailed      ErrorCode = "extraction_failed"
	CodeRetrievalPartial      ErrorCode = "retrieval_partial"
	CodeRetrievalFailed       ErrorCode = "retrieval_failed"
	CodeRerankUnavailable     ErrorCode = "rerank_unavailable"
	CodeGenerationUnavailable ErrorCode = "generation_unavailable"
	CodeDeadlineExceeded      ErrorCode = "deadline_exceeded"
	CodeInternal              ErrorCode = "internal"
)

var codes = []struct {
	err  error
	code ErrorCode
}{
	{ErrInputEmpty, CodeInputEmpty},
	{ErrExtractionFailed, CodeExtractionFailed},
	{ErrRetrievalPartial, CodeRetrievalPartial},
	{ErrRetrievalFailed, CodeRetrievalFailed},
	{ErrRerankUnavailable, CodeRerankUnavailable},
	{ErrGenerationUnavailable, CodeGenerationUnavailable},
	{ErrDeadlineExceeded, CodeDeadlineExceeded},
}

// CodeOf classifies err. Unknown errors map to CodeInternal.
func CodeOf(err error) ErrorCode {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// DeadlineError is returned when the per-request deadline expires.
// No partial result accompanies it.
type DeadlineError struct {
	Stage    string
	Deadline time.Duration
}

func (e *DeadlineError) Error() string {
	return fmt.Sprintf("%s: request deadline %s reached during %s", ErrDeadlineExceeded, e.Deadline, e.Stage)
}

func (e *DeadlineError) Unwrap() error { return ErrDeadlineExceeded }

// NewDeadlineError creates a deadline error for the given pipeline stage.
func NewDeadlineError(stage string, deadline time.Duration) error {
	return &DeadlineError{Stage: stage, Deadline: deadline}
}
