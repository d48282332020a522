package handlers

import (
	"io"
	"net/http"
	"strings"
)

// HandleCollect marks an order as collected. The client either posts the
// order identifier directly as a form value, or uploads a barcode image
// for decoding.
func (h *Handler) HandleCollect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	identifier := ""
	scanned := []string{}

	if file, _, err := r.FormFile("file"); err == nil {
		defer file.Close()

		if h.decoder == nil {
			h.writeError(w, "Barcode decoding is not available", http.StatusServiceUnavailable)
			return
		}

		image, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if len(image) >= maxUploadBytes {
			h.writeError(w, "File too large (max 10MB)", http.StatusBadRequest)
			return
		}

		codes, err := h.decoder.Decode(r.Context(), image)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		if len(codes) == 0 {
			h.writeError(w, "No barcode found in image", http.StatusBadRequest)
			return
		}
		scanned = codes
		identifier = codes[0]
	} else {
		identifier = strings.TrimSpace(r.FormValue("order_id"))
	}

	outcome, err := h.workflow.MarkCollected(r.Context(), identifier)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	response := map[string]any{
		"status": outcome.Status,
		"record": outcome.Record,
	}
	if len(scanned) > 0 {
		response["scanned_codes"] = scanned
	}

	h.writeJSON(w, http.StatusOK, response)
}
