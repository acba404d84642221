package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pwojcik/gameshop/internal/domain/order"
)

const (
	listOrdersSQL = `SELECT id, user_id, order_date, status FROM orders
		WHERE status <> 'cart' ORDER BY order_date DESC, id`

	listOrdersByUserSQL = `SELECT id, user_id, order_date, status FROM orders
		WHERE user_id = $1 AND status <> 'cart' ORDER BY order_date DESC, id`

	getOrderSQL = `SELECT id, user_id, order_date, status FROM orders
		WHERE id = $1 AND status <> 'cart'`

	getItemsByOrdersSQL = `SELECT id, order_id, game_id, quantity, price FROM order_items
		WHERE order_id = ANY($1) ORDER BY created_at, id`

	updateStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1 AND status <> 'cart'`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1 AND status <> 'cart'`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Every
// query excludes cart-status rows; carts are reachable only through
// CartRepository.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts the order with its items and decrements stock for every
// item in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertPlacedOrder(ctx, tx, o); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

// List returns all placed orders, newest first, with their items.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return r.collectWithItems(ctx, rows)
}

// ListByUser returns the user's placed orders, newest first, with their items.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders of user %s", userID)
	}
	return r.collectWithItems(ctx, rows)
}

// GetByID returns a single placed order with its items, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	var o order.Order
	err := r.pool.QueryRow(ctx, getOrderSQL, id).
		Scan(&o.ID, &o.UserID, &o.OrderDate, &o.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %s", id)
	}

	rows, err := r.pool.Query(ctx, getItemsByOrdersSQL, []string{o.ID})
	if err != nil {
		return nil, errors.Wrapf(err, "get items of order %s", id)
	}
	o.Items, err = pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, errors.Wrapf(err, "scan items of order %s", id)
	}
	return &o, nil
}

// UpdateStatus sets the status of a placed order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	ct, err := r.pool.Exec(ctx, updateStatusSQL, id, status)
	if err != nil {
		return errors.Wrapf(err, "update status of order %s", id)
	}
	if ct.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Delete removes a placed order; its items cascade.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete order %s", id)
	}
	if ct.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// collectWithItems scans order rows, then loads the items of all of them in
// a single batch query.
func (r *OrderRepository) collectWithItems(ctx context.Context, rows pgx.Rows) ([]order.Order, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Order, error) {
		var o order.Order
		err := row.Scan(&o.ID, &o.UserID, &o.OrderDate, &o.Status)
		return o, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	index := make(map[string]int, len(out))
	for i, o := range out {
		ids[i] = o.ID
		index[o.ID] = i
	}

	itemRows, err := r.pool.Query(ctx, getItemsByOrdersSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get order items")
	}
	items, err := pgx.CollectRows(itemRows, scanItem)
	if err != nil {
		return nil, errors.Wrap(err, "scan order items")
	}
	for _, it := range items {
		i := index[it.OrderID]
		out[i].Items = append(out[i].Items, it)
	}
	return out, nil
}
