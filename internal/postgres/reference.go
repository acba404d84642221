package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/pwojcik/gameshop/internal/domain/catalog"
)

const (
	listCategoriesSQL      = `SELECT id, name FROM categories ORDER BY name`
	insertCategorySQL      = `INSERT INTO categories (id, name) VALUES ($1, $2)`
	updateCategorySQL      = `UPDATE categories SET name = $2 WHERE id = $1`
	categoryReferencedSQL  = `SELECT EXISTS (SELECT 1 FROM games WHERE category_id = $1)`
	deleteCategorySQL      = `DELETE FROM categories WHERE id = $1`
	listPublishersSQL      = `SELECT id, name FROM publishers ORDER BY name`
	insertPublisherSQL     = `INSERT INTO publishers (id, name) VALUES ($1, $2)`
	updatePublisherSQL     = `UPDATE publishers SET name = $2 WHERE id = $1`
	publisherReferencedSQL = `SELECT EXISTS (SELECT 1 FROM games WHERE publisher_id = $1)`
	deletePublisherSQL     = `DELETE FROM publishers WHERE id = $1`
)

func (r *CatalogRepository) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Category, error) {
		var c catalog.Category
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	})
}

func (r *CatalogRepository) CreateCategory(ctx context.Context, c *catalog.Category) error {
	if _, err := r.pool.Exec(ctx, insertCategorySQL, c.ID, c.Name); err != nil {
		return errors.Wrapf(err, "create category %s", c.ID)
	}
	return nil
}

func (r *CatalogRepository) UpdateCategory(ctx context.Context, c *catalog.Category) error {
	ct, err := r.pool.Exec(ctx, updateCategorySQL, c.ID, c.Name)
	if err != nil {
		return errors.Wrapf(err, "update category %s", c.ID)
	}
	if ct.RowsAffected() == 0 {
		return catalog.ErrCategoryNotFound
	}
	return nil
}

// DeleteCategory refuses to delete a category that still owns games.
func (r *CatalogRepository) DeleteCategory(ctx context.Context, id string) error {
	return r.deleteReference(ctx, "category", id, categoryReferencedSQL, deleteCategorySQL, catalog.ErrCategoryNotFound)
}

func (r *CatalogRepository) ListPublishers(ctx context.Context) ([]catalog.Publisher, error) {
	rows, err := r.pool.Query(ctx, listPublishersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list publishers")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Publisher, error) {
		var p catalog.Publisher
		err := row.Scan(&p.ID, &p.Name)
		return p, err
	})
}

func (r *CatalogRepository) CreatePublisher(ctx context.Context, p *catalog.Publisher) error {
	if _, err := r.pool.Exec(ctx, insertPublisherSQL, p.ID, p.Name); err != nil {
		return errors.Wrapf(err, "create publisher %s", p.ID)
	}
	return nil
}

func (r *CatalogRepository) UpdatePublisher(ctx context.Context, p *catalog.Publisher) error {
	ct, err := r.pool.Exec(ctx, updatePublisherSQL, p.ID, p.Name)
	if err != nil {
		return errors.Wrapf(err, "update publisher %s", p.ID)
	}
	if ct.RowsAffected() == 0 {
		return catalog.ErrPublisherNotFound
	}
	return nil
}

// DeletePublisher refuses to delete a publisher that still owns games.
func (r *CatalogRepository) DeletePublisher(ctx context.Context, id string) error {
	return r.deleteReference(ctx, "publisher", id, publisherReferencedSQL, deletePublisherSQL, catalog.ErrPublisherNotFound)
}

func (r *CatalogRepository) deleteReference(ctx context.Context, kind, id, existsSQL, deleteSQL string, notFound error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var referenced bool
	if err := tx.QueryRow(ctx, existsSQL, id).Scan(&referenced); err != nil {
		return errors.Wrapf(err, "check references of %s %s", kind, id)
	}
	if referenced {
		return &catalog.ReferencedError{Kind: kind, ID: id}
	}

	ct, err := tx.Exec(ctx, deleteSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete %s %s", kind, id)
	}
	if ct.RowsAffected() == 0 {
		return notFound
	}
	return tx.Commit(ctx)
}
