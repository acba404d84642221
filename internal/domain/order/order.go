// Package order implements the cart and order engine: the single active cart
// per user, its conversion into a placed order at checkout, and the manual
// order workflow behind the admin screens.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/pwojcik/gameshop/internal/domain/catalog"
)

// Sentinel errors for cart and order operations. Ownership and status
// mismatches are folded into ErrNotFound so callers cannot distinguish
// "exists but not yours" from "does not exist".
var (
	ErrNotFound        = errors.New("order not found")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// GameNotFoundError indicates a requested game does not exist in the catalog.
type GameNotFoundError struct {
	GameID string
}

func (e *GameNotFoundError) Error() string {
	return fmt.Sprintf("game %s not found", e.GameID)
}

// InsufficientStockError indicates a requested quantity exceeds the game's
// current stock. Available carries the max the caller could still order.
type InsufficientStockError struct {
	GameID    string
	Title     string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available", e.Title, e.Available)
}

// InvalidTransitionError indicates a manual status edit outside the allowed
// transition set.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// Order is a user's order. With StatusCart it is the user's staging area;
// checkout replaces it with a fresh StatusNew order.
type Order struct {
	ID        string
	UserID    string
	OrderDate time.Time
	Status    Status
	Items     []OrderItem
}

// OrderItem is a line of an order. Price is the unit price snapshotted when
// the item first entered the cart; it is never re-synced to the catalog.
type OrderItem struct {
	ID       string
	OrderID  string
	GameID   string
	Quantity int
	Price    decimal.Decimal
}

// LineTotal is the snapshot price multiplied by the quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Total sums the line totals of all items.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// CartLine pairs a cart item with its game details for display.
type CartLine struct {
	Item      OrderItem
	Game      catalog.Game
	LineTotal decimal.Decimal
}

// CartView is the full cart as returned to the presentation layer. Order.ID
// is empty when the user has no persisted cart.
type CartView struct {
	Order Order
	Lines []CartLine
	Total decimal.Decimal
}

// CartRepository persists the per-user cart and its items. Every item
// operation is scoped to a cart-status order owned by the given user;
// anything else reports ErrNotFound.
type CartRepository interface {
	// GetCart returns the user's cart with items in insertion order, or
	// ErrNotFound when none exists.
	GetCart(ctx context.Context, userID string) (*Order, error)

	// CreateCart persists a new, empty cart row.
	CreateCart(ctx context.Context, cart *Order) error

	// GetItem returns an item of the user's cart, or ErrNotFound.
	GetItem(ctx context.Context, userID, itemID string) (*OrderItem, error)

	AddItem(ctx context.Context, item *OrderItem) error
	SetItemQuantity(ctx context.Context, itemID string, quantity int) error
	DeleteItem(ctx context.Context, itemID string) error

	// DeleteCart removes the cart row and all its items.
	DeleteCart(ctx context.Context, cartID string) error

	// Convert atomically replaces the cart with the prepared order: it
	// decrements stock for every item with an affected-row check, inserts the
	// new order and its items, and deletes the cart. On a stock conflict it
	// returns an InsufficientStockError and leaves everything untouched.
	Convert(ctx context.Context, cart *Order, next *Order) error
}

// Repository persists placed (non-cart) orders. Cart-status rows are never
// reachable through it.
type Repository interface {
	// Create inserts the order with its items and decrements stock for every
	// item inside one transaction, with the same affected-row check as
	// CartRepository.Convert.
	Create(ctx context.Context, o *Order) error

	List(ctx context.Context) ([]Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	Delete(ctx context.Context, id string) error
}
