package similarity

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
)

// ComparisonRow is the per-field result of comparing a scanned code
// against the reference row.
type ComparisonRow struct {
	Column         string  `json:"column"`
	ReferenceValue string  `json:"reference_value"`
	Similarity     float64 `json:"similarity"`
}

// Comparator scores a candidate string against a fixed reference row.
// The reference is injected at construction so callers (and tests) can
// supply arbitrary baselines.
type Comparator struct {
	columns   []string
	reference map[string]string
}

// NewComparator builds a comparator over the given columns, in order.
func NewComparator(columns []string, reference map[string]string) *Comparator {
	return &Comparator{columns: columns, reference: reference}
}

// Compare scores the candidate against every reference column. A column
// with an empty reference value scores 0.0 regardless of the candidate:
// there is nothing to compare against, which is not the same as a match.
// Similarities are rounded to 2 decimal places for display.
func (c *Comparator) Compare(candidate string) []ComparisonRow {
	rows := make([]ComparisonRow, 0, len(c.columns))
	for _, col := range c.columns {
		ref := c.reference[col]
		sim := 0.0
		if ref != "" {
			sim = math.Round(Ratio(ref, candidate)*100) / 100
		}
		rows = append(rows, ComparisonRow{
			Column:         col,
			ReferenceValue: ref,
			Similarity:     sim,
		})
	}
	return rows
}

// LoadReference reads the first data row of a CSV file and returns a
// comparator keyed by the header columns. The file is the structured
// output of a previous extraction run, used as the live comparison
// baseline.
func LoadReference(path string) (*Comparator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read reference header: %w", err)
	}

	row, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reference file %s has no data row: %w", path, err)
	}

	reference := make(map[string]string, len(header))
	for i, col := range header {
		if i < len(row) {
			reference[col] = row[i]
		}
	}

	return NewComparator(header, reference), nil
}
