package handlers

import (
	"net/http"
)

// HandleCompare scores a candidate code against every column of the
// loaded reference row and returns the per-column similarities.
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.comparator == nil {
		h.writeError(w, "No reference data loaded", http.StatusServiceUnavailable)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.writeError(w, "code query parameter is required", http.StatusBadRequest)
		return
	}

	rows := h.comparator.Compare(code)

	h.writeJSON(w, http.StatusOK, map[string]any{
		"code":    code,
		"results": rows,
	})
}

// HandleOrders lists every stored order.
func (h *Handler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	orders, err := h.orders.All(r.Context())
	if err != nil {
		h.writeError(w, "Failed to list orders: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"count":  len(orders),
	})
}
