// Command seed-db loads the catalog seed file and a default admin API key
// into the database. It is idempotent: every row is upserted by ID, so it
// can run on each deploy.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pwojcik/gameshop/internal/domain/catalog"
	"github.com/pwojcik/gameshop/internal/postgres"
)

type seedFile struct {
	Categories []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"categories"`
	Publishers []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"publishers"`
	Games []gameJSON `json:"games"`
}

type gameJSON struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ReleaseDate string          `json:"releaseDate"`
	Stock       int             `json:"stock"`
	CategoryID  string          `json:"categoryId"`
	PublisherID string          `json:"publisherId"`
	Platform    string          `json:"platform"`
}

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or GAMESHOP_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or GAMESHOP_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("GAMESHOP_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or GAMESHOP_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("GAMESHOP_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, pool, catalogFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

const (
	upsertCategorySQL = `INSERT INTO categories (id, name) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

	upsertPublisherSQL = `INSERT INTO publishers (id, name) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

	upsertGameSQL = `INSERT INTO games (id, title, description, price, release_date, stock, category_id, publisher_id, platform)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	price = EXCLUDED.price,
	release_date = EXCLUDED.release_date,
	stock = EXCLUDED.stock,
	category_id = EXCLUDED.category_id,
	publisher_id = EXCLUDED.publisher_id,
	platform = EXCLUDED.platform`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, user_id, role, name, active)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	key_hash = EXCLUDED.key_hash,
	user_id = EXCLUDED.user_id,
	role = EXCLUDED.role,
	name = EXCLUDED.name,
	active = EXCLUDED.active`
)

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, catalogFile string) error {
	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	slog.Info("upserting categories", slog.Int("count", len(seed.Categories)))
	for _, c := range seed.Categories {
		if _, err := pool.Exec(ctx, upsertCategorySQL, c.ID, c.Name); err != nil {
			return errors.Wrapf(err, "upsert category %s", c.ID)
		}
	}

	slog.Info("upserting publishers", slog.Int("count", len(seed.Publishers)))
	for _, p := range seed.Publishers {
		if _, err := pool.Exec(ctx, upsertPublisherSQL, p.ID, p.Name); err != nil {
			return errors.Wrapf(err, "upsert publisher %s", p.ID)
		}
	}

	slog.Info("upserting games", slog.Int("count", len(seed.Games)))
	for _, g := range seed.Games {
		if _, err := catalog.ParsePlatform(g.Platform); err != nil {
			return errors.Wrapf(err, "game %s", g.ID)
		}
		releaseDate, err := time.Parse(time.DateOnly, g.ReleaseDate)
		if err != nil {
			return errors.Wrapf(err, "game %s: parse release date", g.ID)
		}
		if _, err := pool.Exec(ctx, upsertGameSQL,
			g.ID, g.Title, g.Description, g.Price, releaseDate,
			g.Stock, g.CategoryID, g.PublisherID, g.Platform,
		); err != nil {
			return errors.Wrapf(err, "upsert game %s", g.ID)
		}

		slog.Info("upserted game", slog.String("id", g.ID), slog.String("title", g.Title))
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default admin API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		"default-admin", keyHash, "admin", "admin", "Default admin key", true,
	); err != nil {
		return errors.Wrap(err, "upsert default admin API key")
	}

	slog.Info("upserted API key", slog.String("id", "default-admin"))

	return nil
}
