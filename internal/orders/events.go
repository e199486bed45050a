package orders

import (
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventStockReconcile     = "StockReconcile"
)

// Publisher dipenuhi oleh kafka.Producer; test pakai stub.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type LinePayload struct {
	ProductID string          `json:"product_id"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	OwnerID   string          `json:"owner_id"`
}

type OrderCreatedPayload struct {
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	Lines      []LinePayload   `json:"lines"`
	Total      decimal.Decimal `json:"total"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
}

// StockReconcilePayload dikirim saat kompensasi stok gagal: increment yang
// belum ter-apply, dicoba ulang oleh reconciler. CorrelationID = order id
// untuk CANCEL_RESTORE_FAILED; untuk kegagalan sebelum order ada
// (CHECKOUT_ROLLBACK_FAILED) isinya customer id checkout yang gagal.
type StockReconcilePayload struct {
	CorrelationID string `json:"correlation_id"`
	ProductID     string `json:"product_id"`
	Qty           int    `json:"qty"`
	Reason        string `json:"reason"` // CHECKOUT_ROLLBACK_FAILED | CANCEL_RESTORE_FAILED
}
