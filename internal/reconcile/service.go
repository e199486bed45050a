package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-marketplace-orders.git/internal/catalog"
	kafkax "github.com/ariefcatur/go-marketplace-orders.git/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/redisx"
)

// Service mengeksekusi ulang restorasi stok yang gagal saat kompensasi
// checkout/cancel. Return error -> offset tidak di-commit -> kafka retry.
type Service struct {
	Catalog     catalog.Store
	Redis       *redis.Client
	ServiceName string
}

// HandleStockReconcile: dipasang sebagai handler consumer.
func (s *Service) HandleStockReconcile(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventStockReconcile {
		return nil
	} // ignore

	// dedup via Redis (pakai event_id)
	dkey := fmt.Sprintf(redisx.KeyDedup, "reconciler", env.EventID)
	if s.Redis != nil {
		exists, _ := redisx.Exists(ctx, s.Redis, dkey)
		if exists {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.StockReconcilePayload](env.Payload)
	if err != nil {
		return err
	}

	if err := s.Catalog.Increment(ctx, p.ProductID, p.Qty); err != nil {
		log.Error().Err(err).Str("product_id", p.ProductID).Int("qty", p.Qty).
			Str("correlation_id", p.CorrelationID).Str("reason", p.Reason).
			Msg("reconcile increment failed, will retry")
		return err
	}

	if s.Redis != nil {
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}
	log.Info().Str("product_id", p.ProductID).Int("qty", p.Qty).
		Str("correlation_id", p.CorrelationID).Str("reason", p.Reason).Msg("stock restored by reconciler")
	return nil
}
