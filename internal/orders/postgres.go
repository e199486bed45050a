package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresLedger struct{ DB *pgxpool.Pool }

// Insert: order + semua line dalam satu transaksi, all-or-nothing.
func (r *PostgresLedger) Insert(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, customer_id, total_amount, status, created_at, shipping_address)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.CustomerID, o.TotalAmount, o.Status, o.CreatedAt, o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, l := range o.Lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_lines(order_id, line_no, product_id, product_name, price, quantity, shop_name, owner_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			o.ID, i, l.ProductID, l.ProductName, l.Price, l.Quantity, l.ShopName, l.OwnerID)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PostgresLedger) FindByID(ctx context.Context, id string) (*Order, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT id, customer_id, total_amount, status, created_at, shipping_address
		FROM orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PostgresLedger) FindByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	return r.findMany(ctx, `
		SELECT id, customer_id, total_amount, status, created_at, shipping_address
		FROM orders WHERE customer_id=$1 ORDER BY created_at DESC`, customerID)
}

func (r *PostgresLedger) FindByOwner(ctx context.Context, ownerID string) ([]Order, error) {
	return r.findMany(ctx, `
		SELECT o.id, o.customer_id, o.total_amount, o.status, o.created_at, o.shipping_address
		FROM orders o
		WHERE EXISTS (SELECT 1 FROM order_lines l WHERE l.order_id = o.id AND l.owner_id = $1)
		ORDER BY o.created_at DESC`, ownerID)
}

// UpdateStatus: conditional update, dua cancel yang rebutan order yang sama
// tidak bisa dua-duanya menang.
func (r *PostgresLedger) UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error) {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1 AND status=$3`, id, to, from)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *PostgresLedger) findMany(ctx context.Context, q string, arg any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		refs = append(refs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, refs); err != nil {
		return nil, err
	}

	out := make([]Order, 0, len(refs))
	for _, o := range refs {
		out = append(out, *o)
	}
	return out, nil
}

func (r *PostgresLedger) loadLines(ctx context.Context, os []*Order) error {
	if len(os) == 0 {
		return nil
	}
	ids := make([]string, 0, len(os))
	byID := make(map[string]*Order, len(os))
	for _, o := range os {
		ids = append(ids, o.ID)
		byID[o.ID] = o
	}

	rows, err := r.DB.Query(ctx, `
		SELECT order_id, product_id, product_name, price, quantity, shop_name, owner_id
		FROM order_lines WHERE order_id = ANY($1) ORDER BY order_id, line_no`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var l Line
		if err := rows.Scan(&orderID, &l.ProductID, &l.ProductName, &l.Price, &l.Quantity, &l.ShopName, &l.OwnerID); err != nil {
			return err
		}
		o := byID[orderID]
		o.Lines = append(o.Lines, l)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.TotalAmount, &o.Status, &o.CreatedAt, &o.ShippingAddress)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
