package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-marketplace-orders.git/internal/catalog"
	kafkax "github.com/ariefcatur/go-marketplace-orders.git/internal/kafka"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotOrderOwner     = errors.New("no lines in this order belong to caller")
)

type Service struct {
	Ledger            Ledger
	Catalog           catalog.Store
	ProducerStatus    Publisher // topic order.status.changed
	ProducerReconcile Publisher // topic stock.reconcile
	ServiceName       string
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.Ledger.FindByID(ctx, id)
}

func (s *Service) CustomerOrders(ctx context.Context, customerID string) ([]Order, error) {
	return s.Ledger.FindByCustomer(ctx, customerID)
}

func (s *Service) ShopOrders(ctx context.Context, ownerID string) ([]Order, error) {
	return s.Ledger.FindByOwner(ctx, ownerID)
}

// UpdateStatus: hanya owner dengan minimal satu line di order, dan hanya
// lewat edge state machine. Transisi ke Cancelled mengembalikan stok line
// milik owner tsb -- cermin dari decrement saat checkout.
func (s *Service) UpdateStatus(ctx context.Context, orderID, ownerID string, to Status) (*Order, error) {
	if !ValidStatus(to) {
		return nil, ErrInvalidTransition
	}

	o, err := s.Ledger.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.HasOwner(ownerID) {
		return nil, ErrNotOrderOwner
	}
	if !CanTransition(o.Status, to) {
		return nil, ErrInvalidTransition
	}

	won, err := s.Ledger.UpdateStatus(ctx, orderID, o.Status, to)
	if err != nil {
		return nil, err
	}
	if !won {
		// transisi lain keburu menang, status tersimpan sudah bukan o.Status
		return nil, ErrInvalidTransition
	}
	from := o.Status
	o.Status = to

	if to == StatusCancelled {
		s.restoreOwnerLines(ctx, o, ownerID)
	}

	s.emit(s.ProducerStatus, EventOrderStatusChanged, o.ID, OrderStatusChangedPayload{
		OrderID: o.ID, From: from, To: to,
	})

	log.Info().Str("order_id", o.ID).Str("owner_id", ownerID).
		Str("from", string(from)).Str("to", string(to)).Msg("order status updated")
	return o, nil
}

// restoreOwnerLines: increment stok per line milik owner. CAS di ledger
// menjamin ini jalan maksimal sekali per order, berapapun cancel yang
// rebutan. Increment yang gagal diserahkan ke reconciler, tidak ditelan
// diam-diam.
func (s *Service) restoreOwnerLines(ctx context.Context, o *Order, ownerID string) {
	for _, l := range o.Lines {
		if l.OwnerID != ownerID {
			continue
		}
		if err := s.Catalog.Increment(ctx, l.ProductID, l.Quantity); err != nil {
			log.Error().Err(err).Str("order_id", o.ID).Str("product_id", l.ProductID).
				Int("qty", l.Quantity).Msg("cancel restock failed, queueing reconcile")
			s.emit(s.ProducerReconcile, EventStockReconcile, o.ID, StockReconcilePayload{
				CorrelationID: o.ID, ProductID: l.ProductID, Qty: l.Quantity,
				Reason: "CANCEL_RESTORE_FAILED",
			})
		}
	}
}

// SalesTotal: jumlah price*qty atas line milik owner, hanya order non-Cancelled,
// createdAt dalam [from, to] inklusif. Murni proyeksi ledger, tanpa mutasi.
func (s *Service) SalesTotal(ctx context.Context, ownerID string, from, to *time.Time) (decimal.Decimal, error) {
	os, err := s.Ledger.FindByOwner(ctx, ownerID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, o := range os {
		if o.Status == StatusCancelled {
			continue
		}
		if from != nil && o.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && o.CreatedAt.After(*to) {
			continue
		}
		for _, l := range o.Lines {
			if l.OwnerID == ownerID {
				total = total.Add(l.Subtotal())
			}
		}
	}
	return total, nil
}

func (s *Service) emit(p Publisher, eventType, correlationID string, payload any) {
	if p == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(correlationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
