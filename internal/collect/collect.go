// Package collect marks orders as picked up. The operation is idempotent:
// once a record is collected, repeating it neither errors nor regresses
// state.
package collect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/receiptwise/receiptwise/internal/models"
	"github.com/receiptwise/receiptwise/internal/reconcile"
)

// Status describes what MarkCollected did.
type Status string

const (
	// StatusInserted means no record existed; a minimal one was created
	// already marked collected.
	StatusInserted Status = "inserted"
	// StatusMarked means an existing record was flipped to collected.
	StatusMarked Status = "marked"
	// StatusAlreadyCollected means the record was collected before this
	// call; nothing was written.
	StatusAlreadyCollected Status = "already_collected"
)

// Outcome reports the result of a collection call. For
// StatusAlreadyCollected the record carries the timestamp of the earlier
// collection.
type Outcome struct {
	Status Status        `json:"status"`
	Record *models.Order `json:"record"`
}

// BarcodeDecoder extracts barcode payloads from an image. An empty slice
// with a nil error means the image decoded fine but contained no barcode.
type BarcodeDecoder interface {
	Decode(ctx context.Context, image []byte) ([]string, error)
}

// DecodeError reports a barcode image that could not be used: invalid
// image data or no decodable symbol.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "barcode decode failed: " + e.Reason
}

// Workflow performs idempotent collection marking against the repository.
type Workflow struct {
	repo reconcile.Repository
	now  func() time.Time
}

// NewWorkflow creates a collection workflow.
func NewWorkflow(repo reconcile.Repository) *Workflow {
	return &Workflow{repo: repo, now: time.Now}
}

// MarkCollected marks the record keyed by identifier as collected,
// inserting a minimal record when none exists. The identifier comes from
// manual entry or a decoded barcode; it is trimmed, and an empty result
// is a validation failure.
func (w *Workflow) MarkCollected(ctx context.Context, identifier string) (*Outcome, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, &models.ValidationError{Field: "order_id", Reason: "no order identifier supplied"}
	}

	existing, err := w.repo.FindByOrderID(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to look up order %s: %w", identifier, err)
	}

	if existing == nil {
		order := &models.Order{
			OrderID:     identifier,
			Collected:   true,
			LastUpdated: w.now().UTC(),
		}
		inserted, err := w.repo.Insert(ctx, order)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order %s: %w", identifier, err)
		}
		return &Outcome{Status: StatusInserted, Record: inserted}, nil
	}

	if existing.Collected {
		return &Outcome{Status: StatusAlreadyCollected, Record: existing}, nil
	}

	existing.Collected = true
	existing.LastUpdated = w.now().UTC()
	updated, err := w.repo.Update(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", identifier, err)
	}
	return &Outcome{Status: StatusMarked, Record: updated}, nil
}
