//go:build integration

package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pwojcik/gameshop/internal/domain/catalog"
	"github.com/pwojcik/gameshop/internal/domain/order"
	"github.com/pwojcik/gameshop/internal/postgres"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("gameshop"),
		tcpostgres.WithUsername("gameshop"),
		tcpostgres.WithPassword("gameshop"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() { _ = testcontainers.TerminateContainer(container) }()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("connection string: %v", err)
	}

	pool, err = postgres.NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	return m.Run()
}

// --- Helpers ---

func newService() (*order.Service, *postgres.CartRepository, *postgres.OrderRepository) {
	catalogRepo := postgres.NewCatalogRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	return order.NewService(catalogRepo, cartRepo, orderRepo), cartRepo, orderRepo
}

// seedGame inserts a game with fresh category and publisher rows and returns
// its ID. Every call seeds distinct rows so tests can share one database.
func seedGame(t *testing.T, title, price string, stock int) string {
	t.Helper()
	ctx := context.Background()

	categoryID := uuid.NewString()
	publisherID := uuid.NewString()
	gameID := uuid.NewString()

	_, err := pool.Exec(ctx, `INSERT INTO categories (id, name) VALUES ($1, $2)`, categoryID, "cat-"+categoryID[:8])
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO publishers (id, name) VALUES ($1, $2)`, publisherID, "pub-"+publisherID[:8])
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`INSERT INTO games (id, title, description, price, release_date, stock, category_id, publisher_id, platform)
		 VALUES ($1, $2, '', $3, '2022-02-25', $4, $5, $6, 'playstation')`,
		gameID, title, decimal.RequireFromString(price), stock, categoryID, publisherID)
	require.NoError(t, err)

	return gameID
}

func gameStock(t *testing.T, gameID string) int {
	t.Helper()
	var stock int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT stock FROM games WHERE id = $1`, gameID).Scan(&stock))
	return stock
}

// --- Tests ---

func TestCartLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService()
	userID := uuid.NewString()
	gameID := seedGame(t, "Elden Ring", "59.99", 10)

	// Empty view without persistence.
	view, err := svc.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, view.Order.ID)

	view, err = svc.AddItem(ctx, userID, gameID, 2)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	itemID := view.Lines[0].Item.ID
	assert.Equal(t, "119.98", view.Total.StringFixed(2))

	// Same game merges into one line.
	view, err = svc.AddItem(ctx, userID, gameID, 1)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 3, view.Lines[0].Item.Quantity)

	require.NoError(t, svc.UpdateItemQuantity(ctx, userID, itemID, 1))
	view, err = svc.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Lines[0].Item.Quantity)

	require.NoError(t, svc.RemoveItem(ctx, userID, itemID))
	view, err = svc.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)

	require.NoError(t, svc.ClearCart(ctx, userID))
	view, err = svc.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, view.Order.ID)
}

func TestCartIsolation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService()
	owner := uuid.NewString()
	stranger := uuid.NewString()
	gameID := seedGame(t, "Astro Bot", "59.99", 10)

	view, err := svc.AddItem(ctx, owner, gameID, 1)
	require.NoError(t, err)
	itemID := view.Lines[0].Item.ID

	err = svc.UpdateItemQuantity(ctx, stranger, itemID, 5)
	require.ErrorIs(t, err, order.ErrNotFound)

	err = svc.RemoveItem(ctx, stranger, itemID)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestOneCartPerUserEnforcedByStorage(t *testing.T) {
	ctx := context.Background()
	_, carts, _ := newService()
	userID := uuid.NewString()

	first := &order.Order{ID: uuid.NewString(), UserID: userID, OrderDate: time.Now(), Status: order.StatusCart}
	require.NoError(t, carts.CreateCart(ctx, first))

	second := &order.Order{ID: uuid.NewString(), UserID: userID, OrderDate: time.Now(), Status: order.StatusCart}
	require.Error(t, carts.CreateCart(ctx, second))
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	svc, _, orders := newService()
	userID := uuid.NewString()
	g1 := seedGame(t, "Elden Ring", "59.99", 10)
	g2 := seedGame(t, "Gran Turismo 7", "69.99", 5)

	_, err := svc.AddItem(ctx, userID, g1, 2)
	require.NoError(t, err)
	view, err := svc.AddItem(ctx, userID, g2, 1)
	require.NoError(t, err)
	cartID := view.Order.ID

	orderID, err := svc.Checkout(ctx, userID)
	require.NoError(t, err)
	assert.NotEqual(t, cartID, orderID)

	// Fresh order in status new with re-created items and snapshot prices.
	placed, err := orders.GetByID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusNew, placed.Status)
	require.Len(t, placed.Items, 2)
	assert.Equal(t, "189.97", placed.Total().StringFixed(2))
	for _, it := range placed.Items {
		assert.Equal(t, orderID, it.OrderID)
	}

	assert.Equal(t, 8, gameStock(t, g1))
	assert.Equal(t, 4, gameStock(t, g2))

	// Cart is gone; the user can start a new one.
	cview, err := svc.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, cview.Order.ID)
}

func TestCheckout_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService()
	userID := uuid.NewString()
	g1 := seedGame(t, "Elden Ring", "59.99", 10)
	g2 := seedGame(t, "Astro Bot", "59.99", 2)

	_, err := svc.AddItem(ctx, userID, g1, 5)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, userID, g2, 2)
	require.NoError(t, err)

	// Stock drops under the cart quantity before checkout commits.
	_, err = pool.Exec(ctx, `UPDATE games SET stock = 1 WHERE id = $1`, g2)
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, userID)
	var ise *order.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 1, ise.Available)

	// No partial decrement, cart intact.
	assert.Equal(t, 10, gameStock(t, g1))
	assert.Equal(t, 1, gameStock(t, g2))
	view, err := svc.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, view.Lines, 2)
}

func TestCheckout_ConcurrentSingleUnit(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService()
	gameID := seedGame(t, "Elden Ring Collector's Edition", "199.99", 1)

	u1 := uuid.NewString()
	u2 := uuid.NewString()
	_, err := svc.AddItem(ctx, u1, gameID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, u2, gameID, 1)
	require.NoError(t, err)

	results := make(chan error, 2)
	for _, userID := range []string{u1, u2} {
		go func(id string) {
			_, err := svc.Checkout(ctx, id)
			results <- err
		}(userID)
	}

	var succeeded, conflicted int
	for range 2 {
		err := <-results
		if err == nil {
			succeeded++
			continue
		}
		var ise *order.InsufficientStockError
		require.ErrorAs(t, err, &ise)
		conflicted++
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)
	assert.Equal(t, 0, gameStock(t, gameID))
}

func TestPriceSnapshotImmutableAfterCatalogUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _, orders := newService()
	userID := uuid.NewString()
	gameID := seedGame(t, "Cyberpunk 2077", "59.99", 10)

	_, err := svc.AddItem(ctx, userID, gameID, 1)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `UPDATE games SET price = 79.99 WHERE id = $1`, gameID)
	require.NoError(t, err)

	view, err := svc.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "59.99", view.Lines[0].Item.Price.StringFixed(2))

	orderID, err := svc.Checkout(ctx, userID)
	require.NoError(t, err)

	placed, err := orders.GetByID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, "59.99", placed.Items[0].Price.StringFixed(2))
}

func TestPlacedOrdersExcludeCarts(t *testing.T) {
	ctx := context.Background()
	svc, _, orders := newService()
	userID := uuid.NewString()
	gameID := seedGame(t, "Breath of the Wild", "49.99", 10)

	view, err := svc.AddItem(ctx, userID, gameID, 1)
	require.NoError(t, err)
	cartID := view.Order.ID

	listed, err := orders.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	// Cart rows are unreachable through the order repository.
	_, err = orders.GetByID(ctx, cartID)
	require.ErrorIs(t, err, order.ErrNotFound)
	err = orders.UpdateStatus(ctx, cartID, order.StatusNew)
	require.ErrorIs(t, err, order.ErrNotFound)

	orderID, err := svc.Checkout(ctx, userID)
	require.NoError(t, err)

	listed, err = orders.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, orderID, listed[0].ID)
	require.Len(t, listed[0].Items, 1)
}

func TestStatusWorkflow(t *testing.T) {
	ctx := context.Background()
	svc, _, orders := newService()
	userID := uuid.NewString()
	gameID := seedGame(t, "Mario Kart 8 Deluxe", "44.99", 10)

	orderID, err := svc.PlaceOrder(ctx, userID, []order.OrderLine{{GameID: gameID, Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, 9, gameStock(t, gameID))

	for _, status := range []order.Status{
		order.StatusPaymentReceived,
		order.StatusPaymentSucceeded,
		order.StatusInProgress,
		order.StatusSent,
	} {
		require.NoError(t, orders.UpdateStatus(ctx, orderID, status))
	}

	placed, err := orders.GetByID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusSent, placed.Status)
}

func TestListInStock(t *testing.T) {
	ctx := context.Background()
	catalogRepo := postgres.NewCatalogRepository(pool)

	stocked := seedGame(t, "Astro Bot", "59.99", 3)
	soldOut := seedGame(t, "Gran Turismo 7", "69.99", 0)

	contains := func(games []catalog.Game, id string) bool {
		for _, g := range games {
			if g.ID == id {
				return true
			}
		}
		return false
	}

	inStock, err := catalogRepo.ListInStock(ctx)
	require.NoError(t, err)
	assert.True(t, contains(inStock, stocked))
	assert.False(t, contains(inStock, soldOut))
	for _, g := range inStock {
		assert.Positive(t, g.Stock)
	}

	all, err := catalogRepo.List(ctx)
	require.NoError(t, err)
	assert.True(t, contains(all, stocked))
	assert.True(t, contains(all, soldOut))
}

func TestDeleteGameWithOrderHistory(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService()
	catalogRepo := postgres.NewCatalogRepository(pool)
	userID := uuid.NewString()

	gameID := seedGame(t, "Gran Turismo 7", "69.99", 10)
	_, err := svc.PlaceOrder(ctx, userID, []order.OrderLine{{GameID: gameID, Quantity: 1}})
	require.NoError(t, err)

	err = catalogRepo.DeleteGame(ctx, gameID)
	var ref *catalog.ReferencedError
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, gameID, ref.ID)

	// Without history the delete goes through.
	freshID := seedGame(t, "Unsold Game", "9.99", 1)
	require.NoError(t, catalogRepo.DeleteGame(ctx, freshID))
}
