// Package reconcile decides how incoming extraction results relate to
// stored records: new, identical, or conflicting. Conflicting updates are
// never applied silently; the engine proposes a diff and commits it only
// through an explicit Confirm call carrying the proposed payload back.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/receiptwise/receiptwise/internal/fieldmap"
	"github.com/receiptwise/receiptwise/internal/models"
)

// State is the outcome of a reconcile or confirm call.
type State string

const (
	StateNew             State = "new"
	StateIdentical       State = "identical"
	StateConflictPending State = "conflict_pending"
	StateCommitted       State = "committed"
)

// Outcome is the result surface of the engine. ProposedToken is set only
// in the conflict_pending state; it round-trips through the caller and is
// fed back to Confirm unchanged.
type Outcome struct {
	State         State         `json:"state"`
	Record        *models.Order `json:"record"`
	Diff          models.Diff   `json:"diff,omitempty"`
	ProposedToken string        `json:"proposed_token,omitempty"`
}

// Repository is the abstract key-indexed record store the engine works
// against. Each call is atomic with respect to itself; FindByOrderID
// returns nil when no record exists.
type Repository interface {
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	Insert(ctx context.Context, order *models.Order) (*models.Order, error)
	Update(ctx context.Context, order *models.Order) (*models.Order, error)
}

// Engine reconciles canonical field mappings against the repository.
type Engine struct {
	repo   Repository
	mapper *fieldmap.Mapper
	now    func() time.Time
}

// NewEngine creates an engine over the given repository and field mapper.
func NewEngine(repo Repository, mapper *fieldmap.Mapper) *Engine {
	return &Engine{repo: repo, mapper: mapper, now: time.Now}
}

// Reconcile looks up the record keyed by the canonical order_id and
// decides between insert, no-op, and propose-update. It writes only in
// the insert case; a conflicting record is never touched here.
func (e *Engine) Reconcile(ctx context.Context, canonical models.Fields, filename string) (*Outcome, error) {
	orderID := strings.TrimSpace(canonical["order_id"])
	if orderID == "" {
		return nil, &models.ValidationError{Field: "order_id", Reason: "no order identifier detected"}
	}

	existing, err := e.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up order %s: %w", orderID, err)
	}

	if existing == nil {
		order := &models.Order{
			OrderID:     orderID,
			Filename:    filename,
			Collected:   false,
			LastUpdated: e.now().UTC(),
		}
		for _, name := range e.mapper.FieldNames() {
			if name == "order_id" {
				continue
			}
			order.SetField(name, canonical[name])
		}

		inserted, err := e.repo.Insert(ctx, order)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order %s: %w", orderID, err)
		}
		return &Outcome{State: StateNew, Record: inserted}, nil
	}

	diff := e.diff(existing, canonical)
	if len(diff) == 0 {
		return &Outcome{State: StateIdentical, Record: existing}, nil
	}

	token, err := EncodeProposed(canonical)
	if err != nil {
		return nil, fmt.Errorf("failed to encode proposed fields: %w", err)
	}

	return &Outcome{
		State:         StateConflictPending,
		Record:        existing,
		Diff:          diff,
		ProposedToken: token,
	}, nil
}

// Confirm applies a previously proposed update. The record is re-fetched
// by key; the proposed values pass through the same alias mapping as the
// original extraction before being applied.
func (e *Engine) Confirm(ctx context.Context, orderID, token string) (*Outcome, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, &models.ValidationError{Field: "order_id", Reason: "no order identifier supplied"}
	}

	proposed, err := DecodeProposed(token)
	if err != nil {
		return nil, &models.ValidationError{Field: "proposed_token", Reason: err.Error()}
	}

	existing, err := e.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up order %s: %w", orderID, err)
	}
	if existing == nil {
		return nil, &models.NotFoundError{OrderID: orderID}
	}

	canonical := e.mapper.Map(proposed)
	for _, name := range e.mapper.FieldNames() {
		if name == "order_id" {
			continue
		}
		existing.SetField(name, canonical[name])
	}
	existing.LastUpdated = e.now().UTC()

	updated, err := e.repo.Update(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", orderID, err)
	}
	return &Outcome{State: StateCommitted, Record: updated}, nil
}

// diff compares the canonical fields against the stored record. Only
// declared fields are compared; record attributes outside the field
// table, such as collected, never appear in a diff. Values are trimmed
// before comparison.
func (e *Engine) diff(existing *models.Order, canonical models.Fields) models.Diff {
	diff := make(models.Diff)
	for _, name := range e.mapper.FieldNames() {
		oldVal := strings.TrimSpace(existing.FieldValue(name))
		newVal := strings.TrimSpace(canonical[name])
		if oldVal != newVal {
			diff[name] = models.FieldChange{Old: oldVal, New: newVal}
		}
	}
	return diff
}
