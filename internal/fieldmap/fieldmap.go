// Package fieldmap translates raw extraction output, whose key names vary
// with the upstream model and prompt, into the canonical record schema.
// The mapping is a static alias table resolved at startup; adding a field
// means adding a table entry, not code.
package fieldmap

import (
	"fmt"
	"os"
	"strings"

	"github.com/receiptwise/receiptwise/internal/models"
	"gopkg.in/yaml.v3"
)

// FieldSpec declares one canonical field and the source keys accepted
// for it, in lookup order. The canonical name itself is always accepted,
// so a previously mapped payload round-trips through Map unchanged.
type FieldSpec struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// Config is the full alias table.
type Config struct {
	Fields []FieldSpec `yaml:"fields"`
}

// DefaultConfig returns the built-in alias table covering the fields the
// extraction prompt asks for.
func DefaultConfig() Config {
	return Config{
		Fields: []FieldSpec{
			{Name: "order_id", Aliases: []string{"Order ID", "OrderID", "Order Number", "order id"}},
			{Name: "date", Aliases: []string{"Date", "Order Date", "Purchase Date"}},
			{Name: "total", Aliases: []string{"Total", "Total Amount", "Amount", "Grand Total"}},
		},
	}
}

// LoadConfig reads an alias table from a YAML file. An empty path yields
// the default table.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read field config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse field config: %w", err)
	}

	if len(cfg.Fields) == 0 {
		return Config{}, fmt.Errorf("field config %s declares no fields", path)
	}

	for _, f := range cfg.Fields {
		if f.Name == "" {
			return Config{}, fmt.Errorf("field config %s contains a field with no name", path)
		}
	}

	return cfg, nil
}

// Mapper applies an alias table to raw key/value extraction output.
type Mapper struct {
	cfg Config
}

// NewMapper builds a mapper over the given table.
func NewMapper(cfg Config) *Mapper {
	return &Mapper{cfg: cfg}
}

// FieldNames returns the canonical field names in declaration order.
func (m *Mapper) FieldNames() []string {
	names := make([]string, 0, len(m.cfg.Fields))
	for _, f := range m.cfg.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Map translates a raw extraction mapping into canonical fields. Keys not
// in the table are dropped; canonical fields with no accepted source key
// present default to empty string. Values are trimmed. Missing keys never
// produce an error.
func (m *Mapper) Map(raw map[string]string) models.Fields {
	out := make(models.Fields, len(m.cfg.Fields))
	for _, f := range m.cfg.Fields {
		out[f.Name] = strings.TrimSpace(m.lookup(raw, f))
	}
	return out
}

func (m *Mapper) lookup(raw map[string]string, f FieldSpec) string {
	if v, ok := raw[f.Name]; ok {
		return v
	}
	for _, alias := range f.Aliases {
		if v, ok := raw[alias]; ok {
			return v
		}
	}
	return ""
}
