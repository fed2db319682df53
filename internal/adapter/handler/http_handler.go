package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/storefront/order-fulfillment/internal/port"
)

// HTTPHandler is the read-only operational surface: health, current
// stock, and fulfillment records for audit.
type HTTPHandler struct {
	inventory port.InventoryRepository
	records   port.RecordStore
}

func NewHTTPHandler(inventory port.InventoryRepository, records port.RecordStore) *HTTPHandler {
	return &HTTPHandler{inventory: inventory, records: records}
}

// Register mounts the routes on the router.
func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/inventory/{productID}", h.GetInventory).Methods(http.MethodGet)
	router.HandleFunc("/fulfillments/{orderID}", h.GetFulfillment).Methods(http.MethodGet)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["productID"]

	inv, err := h.inventory.Get(r.Context(), productID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if inv == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"product_id": inv.ProductID,
		"stock":      inv.Stock,
		"version":    inv.Version,
		"updated_at": inv.UpdatedAt,
	})
}

func (h *HTTPHandler) GetFulfillment(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderID"]

	record, err := h.records.Get(r.Context(), orderID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if record == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "fulfillment not found"})
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
