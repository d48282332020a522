package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/receiptwise/receiptwise/internal/barcode"
	"github.com/receiptwise/receiptwise/internal/collect"
	"github.com/receiptwise/receiptwise/internal/extraction"
	"github.com/receiptwise/receiptwise/internal/fieldmap"
	"github.com/receiptwise/receiptwise/internal/handlers"
	"github.com/receiptwise/receiptwise/internal/reconcile"
	"github.com/receiptwise/receiptwise/internal/similarity"
	"github.com/receiptwise/receiptwise/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port          string
		dbPath        string
		fieldsPath    string
		referencePath string
		provider      string
		model         string
		uploadsDir    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the receipt reconciliation API server",
		Long: `Starts the Receiptwise HTTP API on the specified port.

The API accepts receipt image uploads, extracts order fields with a
vision-capable LLM (Ollama, OpenAI, or Gemini), reconciles them against
the order database, and records collections by order id or barcode.`,
		Example: `  # Start server on default port 8888
  receiptwise serve

  # Custom port and database location
  receiptwise serve --port 3000 --db /var/lib/receiptwise/orders.db

  # Load a reference row for the compare endpoint
  receiptwise serve --reference data/reference.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := fieldmap.LoadConfig(fieldsPath)
			if err != nil {
				return fmt.Errorf("failed to load field config: %w", err)
			}
			mapper := fieldmap.NewMapper(cfg)

			st, err := store.Open(dbPath, mapper.FieldNames())
			if err != nil {
				return fmt.Errorf("failed to open order database: %w", err)
			}
			defer st.Close()

			pipeline, err := extraction.NewLLM(provider, model, mapper.FieldNames())
			if err != nil {
				return err
			}

			var comparator *similarity.Comparator
			if referencePath != "" {
				comparator, err = similarity.LoadReference(referencePath)
				if err != nil {
					return fmt.Errorf("failed to load reference data: %w", err)
				}
				slog.Info("Reference data loaded", "path", referencePath)
			}

			handler := handlers.New(handlers.Config{
				Engine:     reconcile.NewEngine(st, mapper),
				Workflow:   collect.NewWorkflow(st),
				Pipeline:   pipeline,
				Mapper:     mapper,
				Comparator: comparator,
				Decoder:    barcode.NewZbarDecoder(),
				Orders:     st,
				UploadsDir: uploadsDir,
			})

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/scan", handler.HandleScan)
			mux.HandleFunc("/api/scan/confirm", handler.HandleConfirm)
			mux.HandleFunc("/api/collect", handler.HandleCollect)
			mux.HandleFunc("/api/compare", handler.HandleCompare)
			mux.HandleFunc("/api/orders", handler.HandleOrders)
			mux.HandleFunc("/healthcheck", handler.HandleHealthcheck)

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Receiptwise API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&dbPath, "db", "orders.db", "Path to the SQLite order database")
	cmd.Flags().StringVar(&fieldsPath, "fields", "", "Path to a YAML field mapping config (default built-in fields)")
	cmd.Flags().StringVar(&referencePath, "reference", "", "Path to a reference CSV for the compare endpoint")
	cmd.Flags().StringVar(&provider, "provider", "", "Extraction provider: ollama, openai, or gemini (default $EXTRACTION_PROVIDER or ollama)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (default per provider)")
	cmd.Flags().StringVar(&uploadsDir, "uploads", "uploads", "Directory for uploaded receipt images")

	return cmd
}
