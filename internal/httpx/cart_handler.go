package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-marketplace-orders.git/internal/cart"
)

type CartHandler struct {
	Carts *cart.Service
}

type AddLineReq struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type SetQuantityReq struct {
	Quantity int `json:"quantity"`
}

type CartResp struct {
	CustomerID  string          `json:"customerId"`
	Lines       []cart.Line     `json:"lines"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Get("/cart", h.getCart)
	r.Post("/cart/add", h.addLine)
	r.Put("/cart/update/{productId}", h.setQuantity)
	r.Delete("/cart/remove/{productId}", h.removeLine)
	r.Delete("/cart/clear", h.clear)
}

func cartResp(c *cart.Cart) CartResp {
	lines := c.Lines
	if lines == nil {
		lines = []cart.Line{}
	}
	return CartResp{
		CustomerID:  c.CustomerID,
		Lines:       lines,
		TotalAmount: c.Total(),
		UpdatedAt:   c.UpdatedAt,
	}
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	customerID := callerID(r)
	if customerID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Carts.Get(ctx, customerID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, cartResp(c))
}

func (h *CartHandler) addLine(w http.ResponseWriter, r *http.Request) {
	customerID := callerID(r)
	if customerID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}
	var req AddLineReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing productId"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.Carts.AddLine(ctx, customerID, req.ProductID, req.Quantity)
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrProductUnavailable):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, cartResp(c))
}

func (h *CartHandler) setQuantity(w http.ResponseWriter, r *http.Request) {
	customerID := callerID(r)
	if customerID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}
	productID := chi.URLParam(r, "productId")
	var req SetQuantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.Carts.SetQuantity(ctx, customerID, productID, req.Quantity)
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, cart.ErrLineNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, cartResp(c))
}

func (h *CartHandler) removeLine(w http.ResponseWriter, r *http.Request) {
	customerID := callerID(r)
	if customerID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}
	productID := chi.URLParam(r, "productId")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.Carts.RemoveLine(ctx, customerID, productID)
	switch {
	case errors.Is(err, cart.ErrLineNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, cartResp(c))
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	customerID := callerID(r)
	if customerID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Carts.Clear(ctx, customerID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}
