package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pwojcik/gameshop/internal/domain/order"
)

const (
	getCartSQL = `SELECT id, user_id, order_date, status FROM orders
		WHERE user_id = $1 AND status = 'cart'`

	getCartItemsSQL = `SELECT id, order_id, game_id, quantity, price FROM order_items
		WHERE order_id = $1 ORDER BY created_at, id`

	getCartItemSQL = `SELECT oi.id, oi.order_id, oi.game_id, oi.quantity, oi.price
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.id = $1 AND o.user_id = $2 AND o.status = 'cart'`

	insertOrderSQL = `INSERT INTO orders (id, user_id, order_date, status)
		VALUES ($1, $2, $3, $4)`

	insertItemSQL = `INSERT INTO order_items (id, order_id, game_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)`

	setItemQuantitySQL = `UPDATE order_items SET quantity = $2 WHERE id = $1`

	deleteItemSQL = `DELETE FROM order_items WHERE id = $1`

	deleteCartSQL = `DELETE FROM orders WHERE id = $1 AND status = 'cart'`

	// Conditional decrement: the WHERE clause is what makes concurrent
	// checkouts safe. An affected-row count of zero means the stock check
	// failed under the transaction.
	decrementStockSQL = `UPDATE games SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`

	gameStockSQL = `SELECT title, stock FROM games WHERE id = $1`
)

var _ order.CartRepository = (*CartRepository)(nil)

// CartRepository implements order.CartRepository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetCart returns the user's cart-status order with its items in insertion
// order, or order.ErrNotFound when the user has no cart.
func (r *CartRepository) GetCart(ctx context.Context, userID string) (*order.Order, error) {
	var o order.Order
	err := r.pool.QueryRow(ctx, getCartSQL, userID).
		Scan(&o.ID, &o.UserID, &o.OrderDate, &o.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get cart for user %s", userID)
	}

	rows, err := r.pool.Query(ctx, getCartItemsSQL, o.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "get cart items for order %s", o.ID)
	}
	o.Items, err = pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, errors.Wrapf(err, "scan cart items for order %s", o.ID)
	}
	return &o, nil
}

// CreateCart persists a new, empty cart row.
func (r *CartRepository) CreateCart(ctx context.Context, cart *order.Order) error {
	_, err := r.pool.Exec(ctx, insertOrderSQL, cart.ID, cart.UserID, cart.OrderDate, cart.Status)
	if err != nil {
		return errors.Wrapf(err, "create cart %s", cart.ID)
	}
	return nil
}

// GetItem returns a cart item scoped to the user's cart-status order. Items
// of other users or of placed orders report order.ErrNotFound.
func (r *CartRepository) GetItem(ctx context.Context, userID, itemID string) (*order.OrderItem, error) {
	var it order.OrderItem
	err := r.pool.QueryRow(ctx, getCartItemSQL, itemID, userID).
		Scan(&it.ID, &it.OrderID, &it.GameID, &it.Quantity, &it.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get cart item %s", itemID)
	}
	return &it, nil
}

func (r *CartRepository) AddItem(ctx context.Context, item *order.OrderItem) error {
	_, err := r.pool.Exec(ctx, insertItemSQL,
		item.ID, item.OrderID, item.GameID, item.Quantity, item.Price)
	if err != nil {
		return errors.Wrapf(err, "add item %s", item.ID)
	}
	return nil
}

func (r *CartRepository) SetItemQuantity(ctx context.Context, itemID string, quantity int) error {
	ct, err := r.pool.Exec(ctx, setItemQuantitySQL, itemID, quantity)
	if err != nil {
		return errors.Wrapf(err, "set quantity of item %s", itemID)
	}
	if ct.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *CartRepository) DeleteItem(ctx context.Context, itemID string) error {
	if _, err := r.pool.Exec(ctx, deleteItemSQL, itemID); err != nil {
		return errors.Wrapf(err, "delete item %s", itemID)
	}
	return nil
}

// DeleteCart removes the cart row; its items go with it via cascade.
func (r *CartRepository) DeleteCart(ctx context.Context, cartID string) error {
	if _, err := r.pool.Exec(ctx, deleteCartSQL, cartID); err != nil {
		return errors.Wrapf(err, "delete cart %s", cartID)
	}
	return nil
}

// Convert commits a checkout in one transaction: decrement stock for every
// item of the prepared order, insert the order and its items, delete the
// cart. Any stock shortage aborts the whole transaction with an
// InsufficientStockError; nothing is left half done.
func (r *CartRepository) Convert(ctx context.Context, cart *order.Order, next *order.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertPlacedOrder(ctx, tx, next); err != nil {
		return err
	}

	ct, err := tx.Exec(ctx, deleteCartSQL, cart.ID)
	if err != nil {
		return errors.Wrapf(err, "delete cart %s", cart.ID)
	}
	if ct.RowsAffected() == 0 {
		// Cart vanished between validation and commit, e.g. a concurrent
		// checkout of the same cart. Abort so stock is not decremented twice.
		return order.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

// insertPlacedOrder inserts a non-cart order with its items and performs the
// conditional stock decrement for every item. Shared by cart conversion and
// direct order placement; must run inside a transaction.
func insertPlacedOrder(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	for _, it := range o.Items {
		ct, err := tx.Exec(ctx, decrementStockSQL, it.GameID, it.Quantity)
		if err != nil {
			return errors.Wrapf(err, "decrement stock of game %s", it.GameID)
		}
		if ct.RowsAffected() == 0 {
			var (
				title string
				stock int
			)
			if err := tx.QueryRow(ctx, gameStockSQL, it.GameID).Scan(&title, &stock); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return &order.GameNotFoundError{GameID: it.GameID}
				}
				return errors.Wrapf(err, "get stock of game %s", it.GameID)
			}
			return &order.InsufficientStockError{GameID: it.GameID, Title: title, Available: stock}
		}
	}

	if _, err := tx.Exec(ctx, insertOrderSQL, o.ID, o.UserID, o.OrderDate, o.Status); err != nil {
		return errors.Wrapf(err, "insert order %s", o.ID)
	}
	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, insertItemSQL,
			it.ID, it.OrderID, it.GameID, it.Quantity, it.Price); err != nil {
			return errors.Wrapf(err, "insert item %s", it.ID)
		}
	}
	return nil
}

func scanItem(row pgx.CollectableRow) (order.OrderItem, error) {
	var it order.OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.GameID, &it.Quantity, &it.Price)
	return it, err
}
