// Package catalog holds the store's reference data: games with their stock
// counts, and the categories and publishers that own them.
package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for catalog lookups and mutations.
var (
	ErrNotFound          = errors.New("game not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrPublisherNotFound = errors.New("publisher not found")
)

// ReferencedError indicates an entity cannot be deleted because other rows
// still reference it. Games with order history, and categories or publishers
// with games, are never deleted.
type ReferencedError struct {
	Kind string
	ID   string
}

func (e *ReferencedError) Error() string {
	return e.Kind + " " + e.ID + " is still referenced"
}

// Game represents a single catalog item available for purchase.
type Game struct {
	ID          string
	Title       string
	Description string
	Price       decimal.Decimal
	ReleaseDate time.Time
	Stock       int
	CategoryID  string
	PublisherID string
	Platform    Platform
}

// Category groups games by genre.
type Category struct {
	ID   string
	Name string
}

// Publisher is the company that released a game.
type Publisher struct {
	ID   string
	Name string
}

// Validate checks the fields an admin can set on a game.
func (g *Game) Validate() error {
	if g.Title == "" {
		return errors.New("title is required")
	}
	if g.Price.IsNegative() {
		return errors.New("price must not be negative")
	}
	if g.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	if !g.Platform.Valid() {
		return errors.Errorf("unknown platform %q", g.Platform)
	}
	return nil
}

// GameRepository defines read operations over the game catalog. Stock is
// never mutated through this interface; decrements happen only inside the
// checkout transaction owned by the order storage layer.
type GameRepository interface {
	List(ctx context.Context) ([]Game, error)
	ListInStock(ctx context.Context) ([]Game, error)
	GetByID(ctx context.Context, id string) (*Game, error)
	GetByIDs(ctx context.Context, ids []string) ([]Game, error)
}

// AdminRepository extends the catalog with the mutations behind the admin
// screens. Delete fails with ReferencedError when order history exists.
type AdminRepository interface {
	GameRepository

	CreateGame(ctx context.Context, g *Game) error
	UpdateGame(ctx context.Context, g *Game) error
	DeleteGame(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id string) error

	ListPublishers(ctx context.Context) ([]Publisher, error)
	CreatePublisher(ctx context.Context, p *Publisher) error
	UpdatePublisher(ctx context.Context, p *Publisher) error
	DeletePublisher(ctx context.Context, id string) error
}
