package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-marketplace-orders.git/internal/catalog"
)

// ProductsHandler cuma read-only: katalog dikelola sistem lain.
type ProductsHandler struct {
	Catalog catalog.Store
}

func (h *ProductsHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listAvailable)
	r.Get("/products/shop", h.listMine)
	r.Get("/products/{id}", h.getProduct)
}

func (h *ProductsHandler) listAvailable(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.ListAvailable(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if ps == nil {
		ps = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

// listMine: semua product milik owner, termasuk yang stoknya habis.
func (h *ProductsHandler) listMine(w http.ResponseWriter, r *http.Request) {
	ownerID := callerID(r)
	if ownerID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}
	if callerRole(r) != RoleShopOwner {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "shop owner only"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.ListByOwner(ctx, ownerID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if ps == nil {
		ps = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.GetByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}
