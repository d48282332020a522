package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/receiptwise/receiptwise/internal/evaluation"
	"github.com/receiptwise/receiptwise/internal/extraction"
	"github.com/receiptwise/receiptwise/internal/fieldmap"
)

func newEvalCmd() *cobra.Command {
	var (
		imagesDir   string
		truthPath   string
		outputDir   string
		fieldsPath  string
		provider    string
		model       string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate extraction accuracy against a ground-truth table",
		Long: `Runs the extraction pipeline over a directory of receipt images and
scores every extracted field against a ground-truth table (CSV or
Parquet, keyed by filename).

Images without a ground-truth row are reported but not scored, and
extraction failures are excluded from the summary totals. Results are
written as a timestamped YAML file plus a batch_summary.csv artifact.`,
		Example: `  # Evaluate a directory of receipts
  receiptwise eval --images testdata/receipts --truth testdata/ground_truth.csv

  # With a specific provider and more parallelism
  receiptwise eval --images receipts/ --truth gt.csv --provider openai --concurrency 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			gt, err := evaluation.LoadGroundTruth(truthPath)
			if err != nil {
				return err
			}

			cfg, err := fieldmap.LoadConfig(fieldsPath)
			if err != nil {
				return fmt.Errorf("failed to load field config: %w", err)
			}
			mapper := fieldmap.NewMapper(cfg)

			llm, err := extraction.NewLLM(provider, model, mapper.FieldNames())
			if err != nil {
				return err
			}

			results, err := evaluation.NewEvaluator(llm, concurrency).Run(cmd.Context(), imagesDir, gt)
			if err != nil {
				return err
			}
			results.Provider = llm.Provider()
			results.Model = llm.Model()

			yamlPath, csvPath, err := evaluation.SaveResults(results, gt.Fields, outputDir)
			if err != nil {
				return err
			}

			printEvalSummary(gt.Fields, results.Summary)
			fmt.Printf("\nDetailed results: %s\nSummary CSV:      %s\n", yamlPath, csvPath)

			return nil
		},
	}

	cmd.Flags().StringVar(&imagesDir, "images", "", "Directory of receipt images to evaluate")
	cmd.Flags().StringVar(&truthPath, "truth", "", "Ground-truth table (CSV or Parquet)")
	cmd.Flags().StringVar(&outputDir, "output", "evals", "Directory to write results into")
	cmd.Flags().StringVar(&fieldsPath, "fields", "", "Path to a YAML field mapping config (default built-in fields)")
	cmd.Flags().StringVar(&provider, "provider", "", "Extraction provider: ollama, openai, or gemini (default $EXTRACTION_PROVIDER or ollama)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (default per provider)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Number of images to process in parallel")
	_ = cmd.MarkFlagRequired("images")
	_ = cmd.MarkFlagRequired("truth")

	return cmd
}

func printEvalSummary(fields []string, summary evaluation.Summary) {
	fmt.Println("\n=== Evaluation Summary ===")
	for _, field := range fields {
		fmt.Printf("%-20s %.3f\n", field, summary.FieldAverages[field])
	}
	fmt.Printf("\nTotal files:       %d\n", summary.TotalFiles)
	fmt.Printf("Exact matches:     %d\n", summary.ExactMatches)
	fmt.Printf("Exact match rate:  %.3f\n", summary.ExactMatchRate)
}
