package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/receiptwise/receiptwise/internal/extraction"
	"github.com/receiptwise/receiptwise/internal/similarity"
)

// ItemResult captures the outcome of evaluating a single image.
type ItemResult struct {
	Filename    string             `yaml:"filename" json:"filename"`
	Extracted   map[string]string  `yaml:"extracted,omitempty" json:"extracted,omitempty"`
	FieldScores map[string]float64 `yaml:"fieldscores,omitempty" json:"field_scores,omitempty"`
	ExactMatch  bool               `yaml:"exactmatch" json:"exact_match"`
	Error       string             `yaml:"error,omitempty" json:"error,omitempty"`

	// rawScores holds the unrounded ratios the summary aggregates over;
	// FieldScores is the rounded per-item display value.
	rawScores map[string]float64
}

// Results holds every per-item outcome of a run plus the aggregate summary.
type Results struct {
	Provider string       `yaml:"provider" json:"provider"`
	Model    string       `yaml:"model" json:"model"`
	Items    []ItemResult `yaml:"items" json:"items"`
	Summary  Summary      `yaml:"summary" json:"summary"`
}

// Evaluator runs an extraction pipeline over a directory of receipt images
// and scores the output against a ground-truth table.
type Evaluator struct {
	pipeline    extraction.Pipeline
	concurrency int
}

// NewEvaluator creates an evaluator. Concurrency values below 1 are
// treated as sequential.
func NewEvaluator(pipeline extraction.Pipeline, concurrency int) *Evaluator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Evaluator{
		pipeline:    pipeline,
		concurrency: concurrency,
	}
}

// Run evaluates every image in imagesDir that has a ground-truth row.
// Images without a ground-truth entry are reported but not scored, and
// extraction failures are excluded from the summary totals.
func (e *Evaluator) Run(ctx context.Context, imagesDir string, gt *GroundTruth) (*Results, error) {
	files, err := listImages(imagesDir)
	if err != nil {
		return nil, err
	}

	slog.Info("Processing images", "count", len(files), "concurrency", e.concurrency)

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, e.concurrency)
	resultsChan := make(chan ItemResult, len(files))

	for i, filename := range files {
		wg.Add(1)
		go func(idx int, filename string) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			slog.Info("Processing image", "filename", filename, "progress", fmt.Sprintf("%d/%d", idx+1, len(files)))

			resultsChan <- e.processImage(ctx, imagesDir, filename, gt)
		}(i, filename)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := &Results{
		Items: make([]ItemResult, 0, len(files)),
	}
	for item := range resultsChan {
		results.Items = append(results.Items, item)
	}

	sort.Slice(results.Items, func(i, j int) bool {
		return results.Items[i].Filename < results.Items[j].Filename
	})

	results.Summary = Summarize(gt.Fields, results.Items)

	return results, nil
}

func (e *Evaluator) processImage(ctx context.Context, imagesDir, filename string, gt *GroundTruth) ItemResult {
	result := ItemResult{Filename: filename}

	reference, ok := gt.Rows[filename]
	if !ok {
		result.Error = "no ground truth entry"
		return result
	}

	extracted, err := e.pipeline.Extract(ctx, filepath.Join(imagesDir, filename))
	if err != nil {
		result.Error = fmt.Sprintf("extraction failed: %v", err)
		return result
	}

	result.Extracted = extracted
	result.FieldScores = make(map[string]float64, len(gt.Fields))
	result.rawScores = make(map[string]float64, len(gt.Fields))
	result.ExactMatch = true

	for _, field := range gt.Fields {
		score := similarity.Ratio(extracted[field], reference[field])
		result.rawScores[field] = score
		result.FieldScores[field] = math.Round(score*100) / 100
		if score != 1.0 {
			result.ExactMatch = false
		}
	}

	return result
}

// listImages returns the image filenames in dir, sorted.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read images directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg", ".webp":
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	return files, nil
}
