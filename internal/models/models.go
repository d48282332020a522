package models

import (
	"fmt"
	"time"
)

// Order is the canonical persisted record for a single receipt.
// OrderID is the business key every lookup goes through; ID is the
// surrogate key assigned by the store on insert.
type Order struct {
	ID          int64             `json:"id"`
	OrderID     string            `json:"order_id"`
	Filename    string            `json:"filename,omitempty"`
	Fields      map[string]string `json:"fields"`
	Collected   bool              `json:"collected"`
	LastUpdated time.Time         `json:"last_updated"`
}

// FieldValue returns the stored value for a canonical field name.
// Absent fields read as empty string; absence and empty string are not
// distinguished anywhere in the record model.
func (o *Order) FieldValue(name string) string {
	if name == "order_id" {
		return o.OrderID
	}
	return o.Fields[name]
}

// SetField stores a canonical field value on the order.
func (o *Order) SetField(name, value string) {
	if name == "order_id" {
		o.OrderID = value
		return
	}
	if o.Fields == nil {
		o.Fields = make(map[string]string)
	}
	o.Fields[name] = value
}

// Fields is a canonical field mapping produced by the field mapper.
type Fields map[string]string

// FieldChange holds the old and new value for a single diffed field.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Diff maps canonical field names to their old/new values. Only fields
// whose trimmed values differ appear in it.
type Diff map[string]FieldChange

// ValidationError reports a missing or malformed caller-supplied value,
// most commonly an empty order identifier.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports that a record expected to exist has vanished,
// e.g. between a proposed update and its confirmation.
type NotFoundError struct {
	OrderID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order %q not found", e.OrderID)
}
