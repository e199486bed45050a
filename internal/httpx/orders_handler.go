package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-marketplace-orders.git/internal/checkout"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/redisx"
)

type OrdersHandler struct {
	Checkout *checkout.Service
	Orders   *orders.Service
	Redis    *redis.Client
}

type UpdateStatusReq struct {
	Status orders.Status `json:"status"`
}

type SalesResp struct {
	TotalSales decimal.Decimal `json:"totalSales"`
	Period     SalesPeriod     `json:"period"`
}

type SalesPeriod struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/user", h.userOrders)
	r.Get("/orders/shop", h.shopOrders)
	r.Get("/orders/sales", h.sales)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Put("/orders/{id}/status", h.updateStatus)
}

// createOrder = checkout: body kosong, cart yang menentukan isi order.
func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	customerID := callerID(r)
	if customerID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.Checkout.Checkout(ctx, customerID)
	var conflict *checkout.StockConflictError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":     err.Error(),
			"productId": conflict.ProductID,
		})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	// cache status buat GET /orders/{id}/status
	if h.Redis != nil {
		statusKey := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
		b, _ := json.Marshal(statusCacheOf(o))
		_ = h.Redis.Set(ctx, statusKey, b, redisx.TTLStatusCache).Err()
	}

	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) userOrders(w http.ResponseWriter, r *http.Request) {
	customerID := callerID(r)
	if customerID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	os, err := h.Orders.CustomerOrders(ctx, customerID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if os == nil {
		os = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, os)
}

func (h *OrdersHandler) shopOrders(w http.ResponseWriter, r *http.Request) {
	ownerID := callerID(r)
	if ownerID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}
	if callerRole(r) != RoleShopOwner {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "shop owner only"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	os, err := h.Orders.ShopOrders(ctx, ownerID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if os == nil {
		os = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, os)
}

// getOrder: customer cuma lihat order sendiri, owner cuma order yang memuat
// line-nya.
func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.Get(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	switch callerRole(r) {
	case RoleShopOwner:
		if !o.HasOwner(caller) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "order contains none of your products"})
			return
		}
	default:
		if o.CustomerID != caller {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your order"})
			return
		}
	}
	writeJSON(w, http.StatusOK, o)
}

// statusCache: isi key order_status:{id}. Visibility ikut ke-cache supaya
// polling status tidak perlu baca ledger.
type statusCache struct {
	Status     orders.Status `json:"status"`
	CustomerID string        `json:"customerId"`
	OwnerIDs   []string      `json:"ownerIds"`
}

func statusCacheOf(o *orders.Order) statusCache {
	seen := map[string]bool{}
	var owners []string
	for _, l := range o.Lines {
		if !seen[l.OwnerID] {
			seen[l.OwnerID] = true
			owners = append(owners, l.OwnerID)
		}
	}
	return statusCache{Status: o.Status, CustomerID: o.CustomerID, OwnerIDs: owners}
}

func (c statusCache) visibleTo(caller, role string) bool {
	if role == RoleShopOwner {
		for _, id := range c.OwnerIDs {
			if id == caller {
				return true
			}
		}
		return false
	}
	return c.CustomerID == caller
}

// getStatus: visibility sama dengan getOrder; cache redis dulu, fallback
// ledger (jalur murah buat polling UI).
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if h.Redis != nil {
		if raw, err := h.Redis.Get(ctx, key).Result(); err == nil && raw != "" {
			var sc statusCache
			if json.Unmarshal([]byte(raw), &sc) == nil {
				if !sc.visibleTo(caller, callerRole(r)) {
					writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your order"})
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"status": sc.Status})
				return
			}
		}
	}

	o, err := h.Orders.Get(ctx, orderID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	sc := statusCacheOf(o)
	if !sc.visibleTo(caller, callerRole(r)) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your order"})
		return
	}
	if h.Redis != nil {
		b, _ := json.Marshal(sc)
		_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": sc.Status})
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ownerID := callerID(r)
	if ownerID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}
	if callerRole(r) != RoleShopOwner {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "shop owner only"})
		return
	}
	orderID := chi.URLParam(r, "id")
	var req UpdateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.Orders.UpdateStatus(ctx, orderID, ownerID, req.Status)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	case errors.Is(err, orders.ErrNotOrderOwner):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, orders.ErrInvalidTransition):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	// refresh cache status
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
		b, _ := json.Marshal(statusCacheOf(o))
		_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	}

	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) sales(w http.ResponseWriter, r *http.Request) {
	ownerID := callerID(r)
	if ownerID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}
	if callerRole(r) != RoleShopOwner {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "shop owner only"})
		return
	}

	var from, to *time.Time
	q := r.URL.Query()
	if v := q.Get("startDate"); v != "" {
		t, err := parseDate(v, false)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid startDate"})
			return
		}
		from = &t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := parseDate(v, true)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid endDate"})
			return
		}
		to = &t
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	total, err := h.Orders.SalesTotal(ctx, ownerID, from, to)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, SalesResp{
		TotalSales: total,
		Period:     SalesPeriod{StartDate: q.Get("startDate"), EndDate: q.Get("endDate")},
	})
}

// parseDate: "2006-01-02" atau RFC3339. Tanggal polos sebagai batas akhir
// dihitung sampai akhir hari supaya range-nya inklusif.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
