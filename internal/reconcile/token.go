package reconcile

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/receiptwise/receiptwise/internal/models"
)

// EncodeProposed serializes a proposed field mapping into an opaque token
// safe to carry through any text transport (form field, query parameter,
// JSON string) and hand back to Confirm later.
func EncodeProposed(fields models.Fields) (string, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// DecodeProposed reverses EncodeProposed.
func DecodeProposed(token string) (models.Fields, error) {
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("malformed proposed token: %w", err)
	}

	var fields models.Fields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("malformed proposed token: %w", err)
	}
	return fields, nil
}
