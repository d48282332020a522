package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const maxUploadBytes = 10 * 1024 * 1024

// HandleScan accepts a receipt image upload, extracts its structured
// fields, and reconciles them against the stored record for the same
// order identifier.
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if len(data) >= maxUploadBytes {
		h.writeError(w, "File too large (max 10MB)", http.StatusBadRequest)
		return
	}

	imagePath, err := h.saveUpload(data, header.Filename)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	raw, err := h.pipeline.Extract(r.Context(), imagePath)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	canonical := h.mapper.Map(raw)

	outcome, err := h.engine.Reconcile(r.Context(), canonical, header.Filename)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, outcome)
}

// HandleConfirm commits a previously proposed update. The client sends
// back the order identifier and the opaque token from the scan response.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		OrderID       string `json:"order_id"`
		ProposedToken string `json:"proposed_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	outcome, err := h.engine.Confirm(r.Context(), request.OrderID, request.ProposedToken)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, outcome)
}

// saveUpload writes an uploaded image to the uploads directory under a
// fresh name, keeping the original extension.
func (h *Handler) saveUpload(data []byte, originalName string) (string, error) {
	if err := h.ensureUploadsDir(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	path := filepath.Join(h.uploadsDir, uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}

	return path, nil
}
