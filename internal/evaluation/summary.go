package evaluation

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Summary aggregates a run over the items that produced extracted fields.
// Items that failed extraction or had no ground truth do not count toward
// TotalFiles.
type Summary struct {
	FieldAverages  map[string]float64 `yaml:"fieldaverages" json:"field_averages"`
	TotalFiles     int                `yaml:"totalfiles" json:"total_files"`
	ExactMatches   int                `yaml:"exactmatches" json:"exact_match_files"`
	ExactMatchRate float64            `yaml:"exactmatchrate" json:"exact_match_rate"`
}

// Summarize computes aggregate statistics over a run's item results.
func Summarize(fields []string, items []ItemResult) Summary {
	summary := Summary{
		FieldAverages: make(map[string]float64, len(fields)),
	}

	sums := make(map[string]float64, len(fields))
	for _, item := range items {
		if item.Error != "" {
			continue
		}
		summary.TotalFiles++
		if item.ExactMatch {
			summary.ExactMatches++
		}
		scores := item.rawScores
		if scores == nil {
			scores = item.FieldScores
		}
		for _, field := range fields {
			sums[field] += scores[field]
		}
	}

	for _, field := range fields {
		if summary.TotalFiles > 0 {
			summary.FieldAverages[field] = sums[field] / float64(summary.TotalFiles)
		} else {
			summary.FieldAverages[field] = 0
		}
	}
	if summary.TotalFiles > 0 {
		summary.ExactMatchRate = float64(summary.ExactMatches) / float64(summary.TotalFiles)
	}

	return summary
}

// WriteSummaryCSV writes the two-section summary artifact: per-field
// average similarities, a blank line, then the run totals.
func WriteSummaryCSV(path string, fields []string, summary Summary) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"field", "avg_similarity"}); err != nil {
		return fmt.Errorf("failed to write summary header: %w", err)
	}
	for _, field := range fields {
		if err := writer.Write([]string{field, fmt.Sprintf("%.3f", summary.FieldAverages[field])}); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	if err := writer.Write([]string{""}); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}

	rows := [][]string{
		{"total_files", fmt.Sprintf("%d", summary.TotalFiles)},
		{"exact_match_files", fmt.Sprintf("%d", summary.ExactMatches)},
		{"exact_match_rate", fmt.Sprintf("%.3f", summary.ExactMatchRate)},
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// SaveResults writes the full per-item results to a timestamped YAML file
// under outputDir and the summary CSV alongside it. It returns the paths
// it wrote.
func SaveResults(results *Results, fields []string, outputDir string) (yamlPath, csvPath string, err error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")

	yamlPath = filepath.Join(outputDir, fmt.Sprintf("eval_%s.yaml", timestamp))
	data, err := yaml.Marshal(results)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(yamlPath, data, 0644); err != nil {
		return "", "", fmt.Errorf("failed to write results file: %w", err)
	}

	csvPath = filepath.Join(outputDir, "batch_summary.csv")
	if err := WriteSummaryCSV(csvPath, fields, results.Summary); err != nil {
		return "", "", err
	}

	return yamlPath, csvPath, nil
}
