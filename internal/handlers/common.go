package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/receiptwise/receiptwise/internal/collect"
	"github.com/receiptwise/receiptwise/internal/extraction"
	"github.com/receiptwise/receiptwise/internal/fieldmap"
	"github.com/receiptwise/receiptwise/internal/models"
	"github.com/receiptwise/receiptwise/internal/reconcile"
	"github.com/receiptwise/receiptwise/internal/similarity"
)

// OrderLister is the read side the order listing endpoint needs.
type OrderLister interface {
	All(ctx context.Context) ([]models.Order, error)
}

type Handler struct {
	engine     *reconcile.Engine
	workflow   *collect.Workflow
	pipeline   extraction.Pipeline
	mapper     *fieldmap.Mapper
	comparator *similarity.Comparator
	decoder    collect.BarcodeDecoder
	orders     OrderLister
	uploadsDir string
}

// Config wires the handler's collaborators. Comparator and Decoder are
// optional; the endpoints that need them report unavailability.
type Config struct {
	Engine     *reconcile.Engine
	Workflow   *collect.Workflow
	Pipeline   extraction.Pipeline
	Mapper     *fieldmap.Mapper
	Comparator *similarity.Comparator
	Decoder    collect.BarcodeDecoder
	Orders     OrderLister
	UploadsDir string
}

func New(cfg Config) *Handler {
	uploadsDir := cfg.UploadsDir
	if uploadsDir == "" {
		uploadsDir = "uploads"
	}
	return &Handler{
		engine:     cfg.Engine,
		workflow:   cfg.Workflow,
		pipeline:   cfg.Pipeline,
		mapper:     cfg.Mapper,
		comparator: cfg.Comparator,
		decoder:    cfg.Decoder,
		orders:     cfg.Orders,
		uploadsDir: uploadsDir,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	h.writeJSON(w, code, map[string]string{"error": message})
}

// writeDomainError maps the error taxonomy onto HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var validationErr *models.ValidationError
	var notFoundErr *models.NotFoundError
	var decodeErr *collect.DecodeError
	var extractionErr *extraction.ExtractionError

	switch {
	case errors.As(err, &validationErr):
		h.writeError(w, validationErr.Error(), http.StatusBadRequest)
	case errors.As(err, &notFoundErr):
		h.writeError(w, notFoundErr.Error(), http.StatusNotFound)
	case errors.As(err, &decodeErr):
		h.writeError(w, decodeErr.Error(), http.StatusBadRequest)
	case errors.As(err, &extractionErr):
		h.writeError(w, extractionErr.Error(), http.StatusBadGateway)
	default:
		h.writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) ensureUploadsDir() error {
	return os.MkdirAll(h.uploadsDir, 0755)
}

func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Unable to write healthcheck", "err", err)
	}
}
