// Command catalog-ingest imports distributor game feeds into the catalog.
// A feed is a gzip-compressed file of JSON lines, one game per line. Feeds
// from different distributors overlap, so games are deduplicated by ID
// across all files; the first occurrence wins. Rows are upserted in batches.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/pwojcik/gameshop/internal/domain/catalog"
	"github.com/pwojcik/gameshop/internal/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	batchSize     = 500
	progressEvery = 100_000
)

type feedGame struct {
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
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz feed files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	ing := newIngester(pool)

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(ing.ingestFile(ctx, f))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := ing.flush(ctx); err != nil {
		return errors.Wrap(err, "flush final batch")
	}

	slog.Info("ingest summary",
		slog.Uint64("upserted", ing.upserted),
		slog.Uint64("duplicates", ing.duplicates),
		slog.Uint64("invalid", ing.invalid),
	)

	return nil
}

const upsertGameSQL = `INSERT INTO games (id, title, description, price, release_date, stock, category_id, publisher_id, platform)
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

// ingester dedupes games across feeds and writes them in batches. The bloom
// filter answers "seen before" with a small false positive rate; positives
// are confirmed against the exact seen set, so dedup never drops a game that
// was not actually ingested.
type ingester struct {
	pool *pgxpool.Pool

	mu     sync.Mutex
	filter *bloom.BloomFilter
	seen   map[string]struct{}
	batch  *pgx.Batch

	upserted   uint64
	duplicates uint64
	invalid    uint64
}

func newIngester(pool *pgxpool.Pool) *ingester {
	return &ingester{
		pool:   pool,
		filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		seen:   make(map[string]struct{}),
		batch:  &pgx.Batch{},
	}
}

func (ing *ingester) ingestFile(ctx context.Context, path string) func() error {
	return func() error {
		var lines uint64

		err := streamGzFile(ctx, path, func(line []byte) error {
			lines++
			if lines%progressEvery == 0 {
				slog.Info("ingest progress", slog.String("file", filepath.Base(path)), slog.Uint64("lines", lines))
			}
			return ing.ingestLine(ctx, line)
		})
		if err != nil {
			return errors.Wrapf(err, "ingest %s", path)
		}

		slog.Info("feed complete", slog.String("file", filepath.Base(path)), slog.Uint64("lines", lines))
		return nil
	}
}

func (ing *ingester) ingestLine(ctx context.Context, line []byte) error {
	var g feedGame
	if err := json.Unmarshal(line, &g); err != nil {
		ing.skipInvalid()
		return nil
	}

	releaseDate, err := time.Parse(time.DateOnly, g.ReleaseDate)
	if err != nil {
		ing.skipInvalid()
		return nil
	}
	if _, err := catalog.ParsePlatform(g.Platform); err != nil {
		ing.skipInvalid()
		return nil
	}
	if g.ID == "" || g.Title == "" || g.Price.IsNegative() || g.Stock < 0 {
		ing.skipInvalid()
		return nil
	}

	ing.mu.Lock()
	defer ing.mu.Unlock()

	if ing.filter.TestString(g.ID) {
		if _, ok := ing.seen[g.ID]; ok {
			ing.duplicates++
			return nil
		}
	}
	ing.filter.AddString(g.ID)
	ing.seen[g.ID] = struct{}{}

	ing.batch.Queue(upsertGameSQL,
		g.ID, g.Title, g.Description, g.Price, releaseDate,
		g.Stock, g.CategoryID, g.PublisherID, g.Platform,
	)
	ing.upserted++

	if ing.batch.Len() >= batchSize {
		return ing.flushLocked(ctx)
	}
	return nil
}

func (ing *ingester) skipInvalid() {
	ing.mu.Lock()
	ing.invalid++
	ing.mu.Unlock()
}

func (ing *ingester) flush(ctx context.Context) error {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	return ing.flushLocked(ctx)
}

func (ing *ingester) flushLocked(ctx context.Context) error {
	if ing.batch.Len() == 0 {
		return nil
	}
	br := ing.pool.SendBatch(ctx, ing.batch)
	if err := br.Close(); err != nil {
		return errors.Wrap(err, "send batch")
	}
	ing.batch = &pgx.Batch{}
	return nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
