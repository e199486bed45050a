package catalog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("product not found")

// Store adalah kontrak catalog untuk checkout & cart.
// DecrementIfAvailable wajib berupa satu mutasi kondisional atomik di storage
// ("stock = stock - N where stock >= N"), bukan read-then-write.
type Store interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	ListAvailable(ctx context.Context) ([]Product, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Product, error)
	DecrementIfAvailable(ctx context.Context, id string, n int) (bool, error)
	Increment(ctx context.Context, id string, n int) error
}
