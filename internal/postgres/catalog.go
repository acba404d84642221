package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pwojcik/gameshop/internal/domain/catalog"
)

const (
	gameColumns = `id, title, description, price, release_date, stock, category_id, publisher_id, platform`

	listGamesSQL        = `SELECT ` + gameColumns + ` FROM games ORDER BY title, id`
	listGamesInStockSQL = `SELECT ` + gameColumns + ` FROM games WHERE stock > 0 ORDER BY title, id`
	getGameSQL          = `SELECT ` + gameColumns + ` FROM games WHERE id = $1`
	getGamesByIDsSQL    = `SELECT ` + gameColumns + ` FROM games WHERE id = ANY($1)`

	insertGameSQL = `INSERT INTO games (` + gameColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateGameSQL = `UPDATE games SET title = $2, description = $3, price = $4,
		release_date = $5, stock = $6, category_id = $7, publisher_id = $8, platform = $9
		WHERE id = $1`

	gameReferencedSQL = `SELECT EXISTS (SELECT 1 FROM order_items WHERE game_id = $1)`
	deleteGameSQL     = `DELETE FROM games WHERE id = $1`
)

var _ catalog.AdminRepository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.AdminRepository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// List returns the full game catalog ordered by title.
func (r *CatalogRepository) List(ctx context.Context) ([]catalog.Game, error) {
	rows, err := r.pool.Query(ctx, listGamesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list games")
	}
	return pgx.CollectRows(rows, scanGame)
}

// ListInStock returns the games with at least one unit available.
func (r *CatalogRepository) ListInStock(ctx context.Context) ([]catalog.Game, error) {
	rows, err := r.pool.Query(ctx, listGamesInStockSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list games in stock")
	}
	return pgx.CollectRows(rows, scanGame)
}

// GetByID returns a single game, or catalog.ErrNotFound.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*catalog.Game, error) {
	rows, err := r.pool.Query(ctx, getGameSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get game %s", id)
	}
	g, err := pgx.CollectExactlyOneRow(rows, scanGame)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get game %s", id)
	}
	return &g, nil
}

// GetByIDs returns the games matching any of the given IDs.
func (r *CatalogRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Game, error) {
	rows, err := r.pool.Query(ctx, getGamesByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get games by ids")
	}
	return pgx.CollectRows(rows, scanGame)
}

func (r *CatalogRepository) CreateGame(ctx context.Context, g *catalog.Game) error {
	_, err := r.pool.Exec(ctx, insertGameSQL,
		g.ID, g.Title, g.Description, g.Price, g.ReleaseDate,
		g.Stock, g.CategoryID, g.PublisherID, g.Platform)
	if err != nil {
		return errors.Wrapf(err, "create game %s", g.ID)
	}
	return nil
}

func (r *CatalogRepository) UpdateGame(ctx context.Context, g *catalog.Game) error {
	ct, err := r.pool.Exec(ctx, updateGameSQL,
		g.ID, g.Title, g.Description, g.Price, g.ReleaseDate,
		g.Stock, g.CategoryID, g.PublisherID, g.Platform)
	if err != nil {
		return errors.Wrapf(err, "update game %s", g.ID)
	}
	if ct.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// DeleteGame removes a game. Games referenced by any order item are kept to
// preserve order history; the caller gets a ReferencedError instead.
func (r *CatalogRepository) DeleteGame(ctx context.Context, id string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var referenced bool
	if err := tx.QueryRow(ctx, gameReferencedSQL, id).Scan(&referenced); err != nil {
		return errors.Wrapf(err, "check references of game %s", id)
	}
	if referenced {
		return &catalog.ReferencedError{Kind: "game", ID: id}
	}

	ct, err := tx.Exec(ctx, deleteGameSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete game %s", id)
	}
	if ct.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return tx.Commit(ctx)
}

func scanGame(row pgx.CollectableRow) (catalog.Game, error) {
	var g catalog.Game
	err := row.Scan(&g.ID, &g.Title, &g.Description, &g.Price, &g.ReleaseDate,
		&g.Stock, &g.CategoryID, &g.PublisherID, &g.Platform)
	return g, err
}
