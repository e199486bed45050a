package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line adalah snapshot saat checkout: nama/harga/shop/owner diambil dari
// catalog waktu itu dan tidak berubah lagi setelah order dibuat.
type Line struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	ShopName    string          `json:"shopName"`
	OwnerID     string          `json:"ownerId"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order immutable kecuali Status.
type Order struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customerId"`
	Lines           []Line          `json:"lines"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	ShippingAddress string          `json:"shippingAddress,omitempty"`
}

// HasOwner: true jika minimal satu line milik ownerID.
func (o *Order) HasOwner(ownerID string) bool {
	for _, l := range o.Lines {
		if l.OwnerID == ownerID {
			return true
		}
	}
	return false
}
