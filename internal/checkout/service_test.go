package checkout_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-marketplace-orders.git/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/catalog"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/checkout"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
)

type stubPublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func (p *stubPublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, value)
}

func (p *stubPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

type failingLedger struct {
	orders.Ledger
}

func (f *failingLedger) Insert(context.Context, *orders.Order) error {
	return errors.New("ledger down")
}

type brokenIncrementCatalog struct {
	catalog.Store
}

func (b *brokenIncrementCatalog) Increment(context.Context, string, int) error {
	return errors.New("increment failed")
}

// staleReadCatalog melaporkan stok lebih besar dari kenyataan: pembeli lain
// seolah menyerobot di antara validasi dan reservasi.
type staleReadCatalog struct {
	*catalog.MemoryStore
}

func (s *staleReadCatalog) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	p, err := s.MemoryStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Stock += 100
	return p, nil
}

type failingDeleteCarts struct {
	cart.Store
}

func (f *failingDeleteCarts) Delete(context.Context, string) error {
	return errors.New("redis down")
}

func setup(t *testing.T) (*catalog.MemoryStore, *cart.MemoryStore, *orders.MemoryLedger, *checkout.Service) {
	t.Helper()
	cat := catalog.NewMemoryStore()
	carts := cart.NewMemoryStore()
	ledger := orders.NewMemoryLedger()
	svc := &checkout.Service{
		Carts:             carts,
		Catalog:           cat,
		Ledger:            ledger,
		ProducerCreated:   &stubPublisher{},
		ProducerReconcile: &stubPublisher{},
		ServiceName:       "test",
	}
	return cat, carts, ledger, svc
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedProduct(cat *catalog.MemoryStore, id, owner string, p string, stock int) {
	cat.Put(catalog.Product{
		ID: id, Name: "product-" + id, Price: price(p), Stock: stock,
		OwnerID: owner, ShopName: "shop-" + owner,
	})
}

func seedCart(t *testing.T, carts *cart.MemoryStore, customerID string, lines ...cart.Line) {
	t.Helper()
	err := carts.Save(context.Background(), &cart.Cart{CustomerID: customerID, Lines: lines})
	require.NoError(t, err)
}

func stockOf(t *testing.T, cat *catalog.MemoryStore, id string) int {
	t.Helper()
	p, err := cat.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestCheckout_Success(t *testing.T) {
	ctx := context.Background()
	cat, carts, ledger, svc := setup(t)

	seedProduct(cat, "p1", "owner-a", "12.00", 10)
	seedProduct(cat, "p2", "owner-b", "3.50", 4)
	// harga cache cart sengaja beda dari catalog
	seedCart(t, carts, "cust-1",
		cart.Line{ProductID: "p1", ProductName: "stale", Price: price("9.99"), Quantity: 2},
		cart.Line{ProductID: "p2", ProductName: "stale", Price: price("1.00"), Quantity: 1},
	)

	o, err := svc.Checkout(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, o.Lines, 2)

	// total dari harga catalog, bukan harga cache cart: 2*12.00 + 1*3.50
	assert.True(t, o.TotalAmount.Equal(price("27.50")), "got total %s", o.TotalAmount)
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Equal(t, "owner-a", o.Lines[0].OwnerID)
	assert.Equal(t, "shop-owner-a", o.Lines[0].ShopName)
	assert.Equal(t, "product-p1", o.Lines[0].ProductName)
	assert.True(t, o.Lines[0].Price.Equal(price("12.00")))

	// stok berkurang
	assert.Equal(t, 8, stockOf(t, cat, "p1"))
	assert.Equal(t, 3, stockOf(t, cat, "p2"))

	// cart bersih
	c, err := carts.Get(ctx, "cust-1")
	require.NoError(t, err)
	assert.True(t, c.Empty())

	// order kebaca lagi dari ledger
	got, err := ledger.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(price("27.50")))
}

func TestCheckout_PriceFromCatalogNotCart(t *testing.T) {
	ctx := context.Background()
	cat, carts, _, svc := setup(t)

	seedProduct(cat, "p1", "owner-a", "12.00", 5)
	seedCart(t, carts, "cust-1",
		cart.Line{ProductID: "p1", Price: price("9.99"), Quantity: 2})

	o, err := svc.Checkout(ctx, "cust-1")
	require.NoError(t, err)
	assert.True(t, o.TotalAmount.Equal(price("24.00")), "got %s, want 24.00 not 19.98", o.TotalAmount)
}

func TestCheckout_EmptyCart(t *testing.T) {
	_, _, _, svc := setup(t)

	_, err := svc.Checkout(context.Background(), "nobody")
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
}

func TestCheckout_StockConflict_NoSideEffects(t *testing.T) {
	ctx := context.Background()
	cat, carts, ledger, svc := setup(t)

	seedProduct(cat, "p1", "owner-a", "5.00", 10)
	seedProduct(cat, "p2", "owner-a", "5.00", 1) // kurang
	seedProduct(cat, "p3", "owner-a", "5.00", 10)
	seedCart(t, carts, "cust-1",
		cart.Line{ProductID: "p1", Price: price("5.00"), Quantity: 3},
		cart.Line{ProductID: "p2", Price: price("5.00"), Quantity: 2},
		cart.Line{ProductID: "p3", Price: price("5.00"), Quantity: 1},
	)

	_, err := svc.Checkout(ctx, "cust-1")
	var conflict *checkout.StockConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "p2", conflict.ProductID)

	// net stock change nol untuk semua product yang kesentuh
	assert.Equal(t, 10, stockOf(t, cat, "p1"))
	assert.Equal(t, 1, stockOf(t, cat, "p2"))
	assert.Equal(t, 10, stockOf(t, cat, "p3"))

	// cart tidak berubah
	c, err := carts.Get(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, c.Lines, 3)

	// tidak ada order
	got, err := ledger.FindByCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCheckout_MidReserveConflict_RollsBackDecrements(t *testing.T) {
	// validasi lolos (stok kelihatan cukup) tapi decrement p2 gagal:
	// decrement p1 yang sudah ter-apply harus dikembalikan.
	ctx := context.Background()
	cat, carts, ledger, _ := setup(t)
	svc := &checkout.Service{
		Carts:             carts,
		Catalog:           &staleReadCatalog{MemoryStore: cat},
		Ledger:            ledger,
		ProducerCreated:   &stubPublisher{},
		ProducerReconcile: &stubPublisher{},
		ServiceName:       "test",
	}

	seedProduct(cat, "p1", "owner-a", "5.00", 10)
	seedProduct(cat, "p2", "owner-a", "5.00", 1)
	seedCart(t, carts, "cust-1",
		cart.Line{ProductID: "p1", Price: price("5.00"), Quantity: 3},
		cart.Line{ProductID: "p2", Price: price("5.00"), Quantity: 2},
	)

	_, err := svc.Checkout(ctx, "cust-1")
	var conflict *checkout.StockConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "p2", conflict.ProductID)

	assert.Equal(t, 10, stockOf(t, cat, "p1"), "applied decrement must be released")
	assert.Equal(t, 1, stockOf(t, cat, "p2"))

	got, err := ledger.FindByCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCheckout_MissingProduct_IsStockConflict(t *testing.T) {
	ctx := context.Background()
	cat, carts, _, svc := setup(t)

	seedProduct(cat, "p1", "owner-a", "5.00", 10)
	seedCart(t, carts, "cust-1",
		cart.Line{ProductID: "p1", Price: price("5.00"), Quantity: 1},
		cart.Line{ProductID: "ghost", Price: price("5.00"), Quantity: 1},
	)

	_, err := svc.Checkout(ctx, "cust-1")
	var conflict *checkout.StockConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "ghost", conflict.ProductID)
	assert.Equal(t, 10, stockOf(t, cat, "p1"))
}

func TestCheckout_LedgerFailure_ReleasesStock(t *testing.T) {
	ctx := context.Background()
	cat, carts, ledger, _ := setup(t)
	svc := &checkout.Service{
		Carts:             carts,
		Catalog:           cat,
		Ledger:            &failingLedger{Ledger: ledger},
		ProducerCreated:   &stubPublisher{},
		ProducerReconcile: &stubPublisher{},
		ServiceName:       "test",
	}

	seedProduct(cat, "p1", "owner-a", "5.00", 10)
	seedCart(t, carts, "cust-1", cart.Line{ProductID: "p1", Price: price("5.00"), Quantity: 4})

	_, err := svc.Checkout(ctx, "cust-1")
	assert.ErrorIs(t, err, checkout.ErrOrderPersist)

	assert.Equal(t, 10, stockOf(t, cat, "p1"))

	c, err := carts.Get(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
}

func TestCheckout_CompensationFailure_QueuesReconcile(t *testing.T) {
	ctx := context.Background()
	cat, carts, ledger, _ := setup(t)
	reconcile := &stubPublisher{}
	svc := &checkout.Service{
		Carts:             carts,
		Catalog:           &brokenIncrementCatalog{Store: cat},
		Ledger:            &failingLedger{Ledger: ledger},
		ProducerCreated:   &stubPublisher{},
		ProducerReconcile: reconcile,
		ServiceName:       "test",
	}

	seedProduct(cat, "p1", "owner-a", "5.00", 10)
	seedCart(t, carts, "cust-1", cart.Line{ProductID: "p1", Price: price("5.00"), Quantity: 4})

	_, err := svc.Checkout(ctx, "cust-1")
	assert.ErrorIs(t, err, checkout.ErrOrderPersist)
	assert.Equal(t, 1, reconcile.count(), "failed compensation must surface as reconcile item")
}

func TestCheckout_CartClearFailure_OrderStands(t *testing.T) {
	ctx := context.Background()
	cat, carts, ledger, _ := setup(t)
	svc := &checkout.Service{
		Carts:             &failingDeleteCarts{Store: carts},
		Catalog:           cat,
		Ledger:            ledger,
		ProducerCreated:   &stubPublisher{},
		ProducerReconcile: &stubPublisher{},
		ServiceName:       "test",
	}

	seedProduct(cat, "p1", "owner-a", "5.00", 10)
	seedCart(t, carts, "cust-1", cart.Line{ProductID: "p1", Price: price("5.00"), Quantity: 1})

	o, err := svc.Checkout(ctx, "cust-1")
	require.NoError(t, err)

	got, err := ledger.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, got.Status)
}

func TestCheckout_LastUnitRace(t *testing.T) {
	// stok 1, dua customer rebutan: tepat satu order jadi, stok akhir 0.
	ctx := context.Background()
	cat, carts, ledger, svc := setup(t)

	seedProduct(cat, "p1", "owner-a", "5.00", 1)
	seedCart(t, carts, "cust-a", cart.Line{ProductID: "p1", Price: price("5.00"), Quantity: 1})
	seedCart(t, carts, "cust-b", cart.Line{ProductID: "p1", Price: price("5.00"), Quantity: 1})

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, cust := range []string{"cust-a", "cust-b"} {
		wg.Add(1)
		go func(i int, cust string) {
			defer wg.Done()
			_, results[i] = svc.Checkout(ctx, cust)
		}(i, cust)
	}
	wg.Wait()

	var okCount, conflictCount int
	for _, err := range results {
		var conflict *checkout.StockConflictError
		switch {
		case err == nil:
			okCount++
		case errors.As(err, &conflict):
			conflictCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, conflictCount)
	assert.Equal(t, 0, stockOf(t, cat, "p1"))

	committed := 0
	for _, cust := range []string{"cust-a", "cust-b"} {
		os, err := ledger.FindByCustomer(ctx, cust)
		require.NoError(t, err)
		committed += len(os)
	}
	assert.Equal(t, 1, committed)
}

func TestCheckout_ConcurrentNoOversell(t *testing.T) {
	ctx := context.Background()
	cat, carts, ledger, svc := setup(t)

	const stock = 5
	const customers = 20
	seedProduct(cat, "p1", "owner-a", "5.00", stock)

	ids := make([]string, customers)
	for i := range ids {
		ids[i] = "cust-" + string(rune('a'+i))
		seedCart(t, carts, ids[i], cart.Line{ProductID: "p1", Price: price("5.00"), Quantity: 1})
	}

	var wg sync.WaitGroup
	for _, cust := range ids {
		wg.Add(1)
		go func(cust string) {
			defer wg.Done()
			_, _ = svc.Checkout(ctx, cust)
		}(cust)
	}
	wg.Wait()

	sold := 0
	for _, cust := range ids {
		os, err := ledger.FindByCustomer(ctx, cust)
		require.NoError(t, err)
		for _, o := range os {
			for _, l := range o.Lines {
				sold += l.Quantity
			}
		}
	}
	assert.Equal(t, stock, sold, "units sold must equal starting stock")
	assert.Equal(t, 0, stockOf(t, cat, "p1"))
}
