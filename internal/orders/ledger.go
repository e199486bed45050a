package orders

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("order not found")

// Ledger append-only: Insert sekali per checkout sukses, sesudah itu hanya
// status yang boleh berubah.
//
// UpdateStatus adalah compare-and-set: status baru hanya ditulis kalau status
// tersimpan masih `from`. ok=false berarti kalah race dari transisi lain --
// pola yang sama dengan DecrementIfAvailable di catalog.
type Ledger interface {
	Insert(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	FindByCustomer(ctx context.Context, customerID string) ([]Order, error)
	FindByOwner(ctx context.Context, ownerID string) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error)
}
