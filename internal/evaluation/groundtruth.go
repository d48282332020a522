package evaluation

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// GroundTruth holds reference field values keyed by image filename.
type GroundTruth struct {
	// Fields lists the structured columns in file order, filename excluded.
	Fields []string
	Rows   map[string]map[string]string
}

// ParquetRecord is the row shape for Parquet ground-truth files. Parquet
// datasets carry the default field set; use CSV for custom field tables.
type ParquetRecord struct {
	Filename string `parquet:"filename"`
	OrderID  string `parquet:"order_id"`
	Date     string `parquet:"date"`
	Total    string `parquet:"total"`
}

// LoadGroundTruth loads a ground-truth table from a CSV or Parquet file.
func LoadGroundTruth(path string) (*GroundTruth, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".parquet":
		return loadParquet(path)
	case ".csv":
		return loadCSV(path)
	default:
		return nil, fmt.Errorf("unsupported ground truth format: %s (supported: .csv, .parquet)", ext)
	}
}

// loadCSV reads a table whose header is "filename" plus one column per
// structured field. Every row becomes a reference record for one image.
func loadCSV(path string) (*GroundTruth, error) {
	slog.Debug("Opening ground truth CSV", "path", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ground truth file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse ground truth CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("ground truth file %s is empty", path)
	}

	header := records[0]
	filenameCol := -1
	for i, name := range header {
		if strings.TrimSpace(name) == "filename" {
			filenameCol = i
			break
		}
	}
	if filenameCol == -1 {
		return nil, fmt.Errorf("ground truth file %s has no filename column", path)
	}

	gt := &GroundTruth{
		Rows: make(map[string]map[string]string, len(records)-1),
	}
	for i, name := range header {
		if i == filenameCol {
			continue
		}
		gt.Fields = append(gt.Fields, strings.TrimSpace(name))
	}

	for lineNum, row := range records[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("ground truth row %d has %d columns, header has %d", lineNum+2, len(row), len(header))
		}
		filename := strings.TrimSpace(row[filenameCol])
		if filename == "" {
			continue
		}
		// Values are stored verbatim: scoring compares the raw strings,
		// so whitespace differences count against the extraction.
		fields := make(map[string]string, len(gt.Fields))
		for i, value := range row {
			if i == filenameCol {
				continue
			}
			fields[strings.TrimSpace(header[i])] = value
		}
		gt.Rows[filename] = fields
	}

	slog.Debug("Loaded ground truth", "rows", len(gt.Rows), "fields", len(gt.Fields))

	return gt, nil
}

func loadParquet(path string) (*GroundTruth, error) {
	slog.Debug("Opening ground truth Parquet file", "path", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[ParquetRecord](pf)
	defer reader.Close()

	gt := &GroundTruth{
		Fields: []string{"order_id", "date", "total"},
		Rows:   make(map[string]map[string]string),
	}

	rows := make([]ParquetRecord, 128)
	for {
		n, err := reader.Read(rows)
		for _, rec := range rows[:n] {
			filename := strings.TrimSpace(rec.Filename)
			if filename == "" {
				continue
			}
			gt.Rows[filename] = map[string]string{
				"order_id": rec.OrderID,
				"date":     rec.Date,
				"total":    rec.Total,
			}
		}
		if err != nil {
			break
		}
	}

	slog.Debug("Loaded ground truth", "rows", len(gt.Rows))

	return gt, nil
}
