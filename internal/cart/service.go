package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-marketplace-orders.git/internal/catalog"
)

type Service struct {
	Store   Store
	Catalog catalog.Store
}

// Get: customer tanpa cart dapat cart kosong, bukan error.
func (s *Service) Get(ctx context.Context, customerID string) (*Cart, error) {
	c, err := s.Store.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return &Cart{CustomerID: customerID, Lines: []Line{}}, nil
	}
	return c, nil
}

// AddLine: cek stok terhadap catalog saat add (advisory, divalidasi ulang saat
// checkout). Product yang sudah ada di cart di-increment, bukan diduplikasi.
func (s *Service) AddLine(ctx context.Context, customerID, productID string, qty int) (*Cart, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.Catalog.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrProductUnavailable
		}
		return nil, fmt.Errorf("check product %s: %w", productID, err)
	}

	c, err := s.Store.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if c == nil {
		c = &Cart{CustomerID: customerID, CreatedAt: now}
	}

	cumulative := qty
	if line := c.line(productID); line != nil {
		cumulative += line.Quantity
	}
	if p.Stock < cumulative {
		return nil, ErrProductUnavailable
	}

	if line := c.line(productID); line != nil {
		line.Quantity = cumulative
	} else {
		c.Lines = append(c.Lines, Line{
			ProductID:   p.ID,
			ProductName: p.Name,
			Price:       p.Price,
			Quantity:    qty,
			ImageURL:    p.ImageURL,
		})
	}
	c.UpdatedAt = now

	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetQuantity: qty < 1 ditolak; hapus line lewat RemoveLine.
func (s *Service) SetQuantity(ctx context.Context, customerID, productID string, qty int) (*Cart, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	c, err := s.Store.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrLineNotFound
	}
	line := c.line(productID)
	if line == nil {
		return nil, ErrLineNotFound
	}

	line.Quantity = qty
	c.UpdatedAt = time.Now().UTC()

	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) RemoveLine(ctx context.Context, customerID, productID string) (*Cart, error) {
	c, err := s.Store.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrLineNotFound
	}

	kept := c.Lines[:0]
	found := false
	for _, l := range c.Lines {
		if l.ProductID == productID {
			found = true
			continue
		}
		kept = append(kept, l)
	}
	if !found {
		return nil, ErrLineNotFound
	}
	c.Lines = kept
	c.UpdatedAt = time.Now().UTC()

	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Clear(ctx context.Context, customerID string) error {
	return s.Store.Delete(ctx, customerID)
}
