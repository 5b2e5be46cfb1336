package rag

import (
	"context"
	"errors"
	"fmt"
)

// ErrTimeout matches retrieval and generation errors caused by a deadline
// or cancellation of the caller's context.
var ErrTimeout = errors.New("operation timed out")

// ValidationError describes a malformed question or batch. It is raised
// before the pipeline runs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RetrievalError reports a failed embedding or vector store call during
// retrieval.
type RetrievalError struct {
	// Op is the failing step, e.g. "embed", "search" or "scroll".
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("failed to search knowledge base: %s: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

func (e *RetrievalError) Is(target error) bool {
	return target == ErrTimeout && isTimeout(e.Err)
}

// GenerationError reports a failed completion provider call.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to generate answer: %s: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrTimeout && isTimeout(e.Err)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
