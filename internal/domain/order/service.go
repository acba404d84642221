package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/pwojcik/gameshop/internal/domain/auth"
	"github.com/pwojcik/gameshop/internal/domain/catalog"
)

// Service encapsulates the cart and order business logic.
type Service struct {
	games  catalog.GameRepository
	carts  CartRepository
	orders Repository
	now    func() time.Time
}

// NewService creates a Service with the required domain dependencies.
func NewService(games catalog.GameRepository, carts CartRepository, orders Repository) *Service {
	return &Service{
		games:  games,
		carts:  carts,
		orders: orders,
		now:    time.Now,
	}
}

// GetCart returns the user's cart with game details and line totals. Viewing
// never persists anything: a user without a cart gets an empty, unsaved view.
func (s *Service) GetCart(ctx context.Context, userID string) (*CartView, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &CartView{
				Order: Order{UserID: userID, Status: StatusCart},
			}, nil
		}
		return nil, errors.Wrap(err, "get cart")
	}
	return s.buildView(ctx, cart)
}

func (s *Service) buildView(ctx context.Context, cart *Order) (*CartView, error) {
	if len(cart.Items) == 0 {
		return &CartView{Order: *cart}, nil
	}

	ids := make([]string, len(cart.Items))
	for i, it := range cart.Items {
		ids[i] = it.GameID
	}

	fetched, err := s.games.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get games")
	}
	byID := make(map[string]catalog.Game, len(fetched))
	for _, g := range fetched {
		byID[g.ID] = g
	}

	view := &CartView{Order: *cart}
	for _, it := range cart.Items {
		line := CartLine{
			Item:      it,
			Game:      byID[it.GameID],
			LineTotal: it.LineTotal(),
		}
		view.Lines = append(view.Lines, line)
		view.Total = view.Total.Add(line.LineTotal)
	}
	return view, nil
}

// AddItem puts a game into the user's cart, creating the cart row on first
// use. The unit price is snapshotted from the catalog once, when the item is
// created; incrementing an existing item keeps the original snapshot. The
// requested total must fit in the game's current stock.
func (s *Service) AddItem(ctx context.Context, userID, gameID string, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, &GameNotFoundError{GameID: gameID}
		}
		return nil, errors.Wrapf(err, "get game %s", gameID)
	}
	if quantity > game.Stock {
		return nil, &InsufficientStockError{GameID: game.ID, Title: game.Title, Available: game.Stock}
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		cart = &Order{
			ID:        uuid.NewString(),
			UserID:    userID,
			OrderDate: s.now(),
			Status:    StatusCart,
		}
		if err := s.carts.CreateCart(ctx, cart); err != nil {
			return nil, errors.Wrap(err, "create cart")
		}
	} else if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	if existing := cart.findItem(gameID); existing != nil {
		total := existing.Quantity + quantity
		if total > game.Stock {
			return nil, &InsufficientStockError{GameID: game.ID, Title: game.Title, Available: game.Stock}
		}
		if err := s.carts.SetItemQuantity(ctx, existing.ID, total); err != nil {
			return nil, errors.Wrap(err, "set item quantity")
		}
		existing.Quantity = total
	} else {
		item := &OrderItem{
			ID:       uuid.NewString(),
			OrderID:  cart.ID,
			GameID:   game.ID,
			Quantity: quantity,
			Price:    game.Price,
		}
		if err := s.carts.AddItem(ctx, item); err != nil {
			return nil, errors.Wrap(err, "add item")
		}
		cart.Items = append(cart.Items, *item)
	}

	return s.buildView(ctx, cart)
}

func (o *Order) findItem(gameID string) *OrderItem {
	for i := range o.Items {
		if o.Items[i].GameID == gameID {
			return &o.Items[i]
		}
	}
	return nil
}

// UpdateItemQuantity sets the exact quantity of a cart item. A quantity of
// zero or less removes the item. A quantity above the game's current stock
// fails and leaves the item unchanged.
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	item, err := s.carts.GetItem(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrap(err, "get item")
	}

	if quantity <= 0 {
		if err := s.carts.DeleteItem(ctx, item.ID); err != nil {
			return errors.Wrap(err, "delete item")
		}
		return nil
	}

	game, err := s.games.GetByID(ctx, item.GameID)
	if err != nil {
		return errors.Wrapf(err, "get game %s", item.GameID)
	}
	if quantity > game.Stock {
		return &InsufficientStockError{GameID: game.ID, Title: game.Title, Available: game.Stock}
	}

	if err := s.carts.SetItemQuantity(ctx, item.ID, quantity); err != nil {
		return errors.Wrap(err, "set item quantity")
	}
	return nil
}

// RemoveItem deletes a cart item.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) error {
	item, err := s.carts.GetItem(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrap(err, "get item")
	}
	if err := s.carts.DeleteItem(ctx, item.ID); err != nil {
		return errors.Wrap(err, "delete item")
	}
	return nil
}

// ClearCart deletes the user's cart and all its items. Clearing a
// nonexistent cart succeeds with no effect.
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, "get cart")
	}
	if err := s.carts.DeleteCart(ctx, cart.ID); err != nil {
		return errors.Wrap(err, "delete cart")
	}
	return nil
}

// Checkout converts the user's cart into a placed order. It validates every
// item against live stock, then hands the storage layer a prepared order to
// commit atomically: stock decrements, new order and items, cart deletion,
// all or nothing. The storage layer re-verifies stock under the transaction,
// so concurrent checkouts can never overcommit.
func (s *Service) Checkout(ctx context.Context, userID string) (string, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrEmptyCart
		}
		return "", errors.Wrap(err, "get cart")
	}
	if len(cart.Items) == 0 {
		return "", ErrEmptyCart
	}

	ids := make([]string, len(cart.Items))
	for i, it := range cart.Items {
		ids[i] = it.GameID
	}
	games, err := s.games.GetByIDs(ctx, ids)
	if err != nil {
		return "", errors.Wrap(err, "get games")
	}
	byID := make(map[string]catalog.Game, len(games))
	for _, g := range games {
		byID[g.ID] = g
	}

	for _, it := range cart.Items {
		g, ok := byID[it.GameID]
		if !ok {
			return "", &GameNotFoundError{GameID: it.GameID}
		}
		if g.Stock < it.Quantity {
			return "", &InsufficientStockError{GameID: g.ID, Title: g.Title, Available: g.Stock}
		}
	}

	next := &Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		OrderDate: s.now(),
		Status:    StatusNew,
	}
	for _, it := range cart.Items {
		next.Items = append(next.Items, OrderItem{
			ID:       uuid.NewString(),
			OrderID:  next.ID,
			GameID:   it.GameID,
			Quantity: it.Quantity,
			Price:    it.Price,
		})
	}

	if err := s.carts.Convert(ctx, cart, next); err != nil {
		var ise *InsufficientStockError
		if errors.As(err, &ise) {
			return "", ise
		}
		return "", errors.Wrap(err, "convert cart")
	}
	return next.ID, nil
}

// OrderLine is one requested line of a directly placed order.
type OrderLine struct {
	GameID   string
	Quantity int
}

// PlaceOrder creates a placed order straight from game selections, bypassing
// the cart. Prices are snapshotted from the catalog and stock is decremented
// under the same atomic commit as checkout.
func (s *Service) PlaceOrder(ctx context.Context, userID string, lines []OrderLine) (string, error) {
	if len(lines) == 0 {
		return "", ErrEmptyCart
	}

	o := &Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		OrderDate: s.now(),
		Status:    StatusNew,
	}
	for _, line := range lines {
		if line.Quantity < 1 {
			return "", ErrInvalidQuantity
		}
		game, err := s.games.GetByID(ctx, line.GameID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return "", &GameNotFoundError{GameID: line.GameID}
			}
			return "", errors.Wrapf(err, "get game %s", line.GameID)
		}
		if line.Quantity > game.Stock {
			return "", &InsufficientStockError{GameID: game.ID, Title: game.Title, Available: game.Stock}
		}
		o.Items = append(o.Items, OrderItem{
			ID:       uuid.NewString(),
			OrderID:  o.ID,
			GameID:   game.ID,
			Quantity: line.Quantity,
			Price:    game.Price,
		})
	}

	if err := s.orders.Create(ctx, o); err != nil {
		var ise *InsufficientStockError
		if errors.As(err, &ise) {
			return "", ise
		}
		return "", errors.Wrap(err, "create order")
	}
	return o.ID, nil
}

// ListOrders returns placed orders, newest first. Admins see every order,
// users only their own. Cart-status orders never appear.
func (s *Service) ListOrders(ctx context.Context, identity auth.Identity) ([]Order, error) {
	if identity.IsAdmin() {
		return s.orders.List(ctx)
	}
	return s.orders.ListByUser(ctx, identity.UserID)
}

// GetOrder returns a single placed order. Users other than the owner get
// ErrNotFound, admins see everything.
func (s *Service) GetOrder(ctx context.Context, identity auth.Identity, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !identity.IsAdmin() && o.UserID != identity.UserID {
		return nil, ErrNotFound
	}
	return o, nil
}

// UpdateStatus performs an admin-only manual status edit, validated against
// the transition set. Non-admins get ErrNotFound.
func (s *Service) UpdateStatus(ctx context.Context, identity auth.Identity, orderID string, status Status) error {
	if !identity.IsAdmin() {
		return ErrNotFound
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, status) {
		return &InvalidTransitionError{From: o.Status, To: status}
	}
	return s.orders.UpdateStatus(ctx, o.ID, status)
}

// DeleteOrder removes a placed order and its items. Admin only.
func (s *Service) DeleteOrder(ctx context.Context, identity auth.Identity, orderID string) error {
	if !identity.IsAdmin() {
		return ErrNotFound
	}
	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return err
	}
	return s.orders.Delete(ctx, orderID)
}
