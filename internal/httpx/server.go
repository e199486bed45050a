package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Identitas datang dari gateway di depan; service ini tidak mengurus auth.
const (
	headerUserID = "X-User-Id"
	headerRole   = "X-User-Role"

	RoleCustomer  = "User"
	RoleShopOwner = "OwnerShop"
)

func callerID(r *http.Request) string { return r.Header.Get(headerUserID) }
func callerRole(r *http.Request) string {
	if v := r.Header.Get(headerRole); v != "" {
		return v
	}
	return RoleCustomer
}
