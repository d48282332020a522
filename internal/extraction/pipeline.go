// Package extraction turns a receipt image into a raw key/value field
// mapping using a vision-capable LLM. The core treats it as an external
// collaborator behind the Pipeline interface.
package extraction

import (
	"context"
	"fmt"
)

// Pipeline extracts structured fields from a receipt image. The returned
// map is keyed by whatever names the model chose; the field mapper
// downstream translates them to the canonical schema.
type Pipeline interface {
	Extract(ctx context.Context, imagePath string) (map[string]string, error)
}

// ExtractionError wraps a pipeline failure with its underlying cause.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Func adapts a plain function to the Pipeline interface, mainly for
// tests and the batch evaluator.
type Func func(ctx context.Context, imagePath string) (map[string]string, error)

func (f Func) Extract(ctx context.Context, imagePath string) (map[string]string, error) {
	return f(ctx, imagePath)
}
