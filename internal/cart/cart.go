package cart

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrProductUnavailable = errors.New("product not available or insufficient stock")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrLineNotFound       = errors.New("item not found in cart")
)

// Line menyimpan snapshot nama/harga/gambar saat add-to-cart.
// Harga di sini advisory; harga final order selalu dari catalog saat checkout.
type Line struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	ImageURL    string          `json:"imageUrl,omitempty"`
}

// Cart: satu dokumen per customer, maksimal satu line per product.
type Cart struct {
	CustomerID string    `json:"customerId"`
	Lines      []Line    `json:"lines"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (c *Cart) Empty() bool { return c == nil || len(c.Lines) == 0 }

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

func (c *Cart) line(productID string) *Line {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

// Store menyimpan cart sebagai satu dokumen utuh; Save mengganti seluruh
// dokumen dalam satu operasi, tidak ada cart setengah jadi yang kebaca.
type Store interface {
	Get(ctx context.Context, customerID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, customerID string) error
}
