package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-marketplace-orders.git/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/catalog"
	kafkax "github.com/ariefcatur/go-marketplace-orders.git/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrOrderPersist = errors.New("order could not be persisted")
)

// StockConflictError: stok salah satu line sudah tidak cukup saat checkout.
type StockConflictError struct{ ProductID string }

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s", e.ProductID)
}

type Service struct {
	Carts             cart.Store
	Catalog           catalog.Store
	Ledger            orders.Ledger
	ProducerCreated   orders.Publisher // topic order.created
	ProducerReconcile orders.Publisher // topic stock.reconcile
	ServiceName       string
}

// release: satu kompensasi yang harus dijalankan kalau checkout gagal di
// tengah jalan. Daftar release inilah state saga-nya, bukan nested error
// handling.
type release struct {
	productID string
	qty       int
}

// Checkout mengubah cart customer menjadi satu order immutable.
//
//  1. Cart kosong -> ErrEmptyCart, tanpa side effect.
//  2. Validasi: tiap line dicek ulang ke catalog dan harga/shop/owner
//     di-snapshot dari sana, bukan dari harga cache di cart. Gagal di sini
//     belum ada side effect sama sekali.
//  3. Reservasi per line (urutan cart, first-line-wins): decrement
//     kondisional atomik di catalog. Gagal -> rollback semua decrement yang
//     sudah ter-apply, lalu StockConflictError. Error storage/timeout lewat
//     jalur kompensasi yang sama.
//  4. Insert ledger gagal -> rollback decrement -> ErrOrderPersist.
//  5. Sukses -> clear cart (gagal clear cuma di-log; order sudah jadi
//     kebenaran, cart basi terkoreksi sendiri di read berikutnya).
func (s *Service) Checkout(ctx context.Context, customerID string) (*orders.Order, error) {
	c, err := s.Carts.Get(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if c.Empty() {
		return nil, ErrEmptyCart
	}

	lines, total, err := s.validate(ctx, c)
	if err != nil {
		return nil, err
	}

	// reservasi; decrement kondisional-lah yang memutus race, validasi di
	// atas cuma advisory
	var pending []release
	for _, l := range lines {
		ok, err := s.Catalog.DecrementIfAvailable(ctx, l.ProductID, l.Quantity)
		if err != nil {
			s.rollback(ctx, customerID, pending)
			return nil, fmt.Errorf("reserve stock %s: %w", l.ProductID, err)
		}
		if !ok {
			s.rollback(ctx, customerID, pending)
			return nil, &StockConflictError{ProductID: l.ProductID}
		}
		pending = append(pending, release{productID: l.ProductID, qty: l.Quantity})
	}

	o := &orders.Order{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		Lines:       lines,
		TotalAmount: total,
		Status:      orders.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Ledger.Insert(ctx, o); err != nil {
		log.Error().Err(err).Str("customer_id", customerID).Msg("ledger insert failed, releasing stock")
		s.rollback(ctx, o.ID, pending)
		return nil, fmt.Errorf("%w: %v", ErrOrderPersist, err)
	}

	if err := s.Carts.Delete(ctx, customerID); err != nil {
		log.Warn().Err(err).Str("customer_id", customerID).Str("order_id", o.ID).
			Msg("cart clear failed after committed order")
	}

	s.emitCreated(o)
	log.Info().Str("order_id", o.ID).Str("customer_id", customerID).
		Str("total", total.String()).Int("lines", len(lines)).Msg("checkout committed")
	return o, nil
}

// validate mengecek ulang tiap line ke catalog dan membangun snapshot line
// order dengan harga otoritatif. Tidak menyentuh stok.
func (s *Service) validate(ctx context.Context, c *cart.Cart) ([]orders.Line, decimal.Decimal, error) {
	lines := make([]orders.Line, 0, len(c.Lines))
	total := decimal.Zero
	for _, cl := range c.Lines {
		p, err := s.Catalog.GetByID(ctx, cl.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, decimal.Zero, &StockConflictError{ProductID: cl.ProductID}
			}
			return nil, decimal.Zero, fmt.Errorf("read product %s: %w", cl.ProductID, err)
		}
		if p.Stock < cl.Quantity {
			return nil, decimal.Zero, &StockConflictError{ProductID: cl.ProductID}
		}
		lines = append(lines, orders.Line{
			ProductID:   p.ID,
			ProductName: p.Name,
			Price:       p.Price,
			Quantity:    cl.Quantity,
			ShopName:    p.ShopName,
			OwnerID:     p.OwnerID,
		})
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(cl.Quantity))))
	}
	return lines, total, nil
}

// rollback mengembalikan persis jumlah yang tadi dikurangi, urutan terbalik.
// Increment yang gagal bukan alasan berhenti: sisanya tetap dicoba, dan yang
// gagal dikirim ke reconciler sebagai item rekonsiliasi.
func (s *Service) rollback(ctx context.Context, correlationID string, pending []release) {
	for i := len(pending) - 1; i >= 0; i-- {
		r := pending[i]
		if err := s.Catalog.Increment(ctx, r.productID, r.qty); err != nil {
			log.Error().Err(err).Str("product_id", r.productID).Int("qty", r.qty).
				Msg("stock compensation failed, queueing reconcile")
			s.emitReconcile(correlationID, r)
		}
	}
}

func (s *Service) emitCreated(o *orders.Order) {
	if s.ProducerCreated == nil {
		return
	}
	lines := make([]orders.LinePayload, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, orders.LinePayload{
			ProductID: l.ProductID, Qty: l.Quantity, Price: l.Price, OwnerID: l.OwnerID,
		})
	}
	s.publish(s.ProducerCreated, orders.EventOrderCreated, o.ID, orders.OrderCreatedPayload{
		OrderID: o.ID, CustomerID: o.CustomerID, Lines: lines, Total: o.TotalAmount,
	})
}

func (s *Service) emitReconcile(correlationID string, r release) {
	if s.ProducerReconcile == nil {
		return
	}
	s.publish(s.ProducerReconcile, orders.EventStockReconcile, correlationID, orders.StockReconcilePayload{
		CorrelationID: correlationID, ProductID: r.productID, Qty: r.qty,
		Reason: "CHECKOUT_ROLLBACK_FAILED",
	})
}

func (s *Service) publish(p orders.Publisher, eventType, correlationID string, payload any) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(correlationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
