package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-marketplace-orders.git/internal/redisx"
)

type RedisStore struct{ RDB *redis.Client }

// Get: cart yang belum pernah ada -> (nil, nil).
func (s *RedisStore) Get(ctx context.Context, customerID string) (*Cart, error) {
	key := fmt.Sprintf(redisx.KeyCart, customerID)
	raw, err := s.RDB.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart %s: %w", customerID, err)
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", customerID, err)
	}
	return &c, nil
}

// Save: SET satu dokumen utuh = atomic replace.
func (s *RedisStore) Save(ctx context.Context, c *Cart) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(redisx.KeyCart, c.CustomerID)
	if err := s.RDB.Set(ctx, key, b, 0).Err(); err != nil {
		return fmt.Errorf("save cart %s: %w", c.CustomerID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, customerID string) error {
	key := fmt.Sprintf(redisx.KeyCart, customerID)
	if err := s.RDB.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete cart %s: %w", customerID, err)
	}
	return nil
}
