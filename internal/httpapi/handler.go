// Package httpapi exposes the engine over HTTP with JSON bodies. It owns
// request decoding, identity resolution, and the mapping from domain errors
// to status codes; all business rules live in the domain packages.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pwojcik/gameshop/internal/domain/auth"
	"github.com/pwojcik/gameshop/internal/domain/catalog"
	"github.com/pwojcik/gameshop/internal/domain/order"
)

// Handler wires the chi router to the domain services.
type Handler struct {
	catalog catalog.AdminRepository
	orders  *order.Service
	apikeys auth.Repository
	pepper  []byte
}

// NewHandler constructs a Handler with the required domain dependencies.
// pepper is the HMAC secret used to hash incoming API keys.
func NewHandler(
	cat catalog.AdminRepository,
	orders *order.Service,
	apikeys auth.Repository,
	pepper []byte,
) *Handler {
	return &Handler{
		catalog: cat,
		orders:  orders,
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Routes builds the API router. Catalog reads are public; everything else
// requires an API key.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/games", h.listGames)
	r.Get("/games/{id}", h.getGame)
	r.Get("/categories", h.listCategories)
	r.Get("/publishers", h.listPublishers)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Get("/cart", h.getCart)
		r.Delete("/cart", h.clearCart)
		r.Post("/cart/items", h.addCartItem)
		r.Patch("/cart/items/{id}", h.updateCartItem)
		r.Delete("/cart/items/{id}", h.removeCartItem)
		r.Post("/checkout", h.checkout)

		r.Get("/orders", h.listOrders)
		r.Post("/orders", h.placeOrder)
		r.Get("/orders/{id}", h.getOrder)
		r.Patch("/orders/{id}", h.updateOrderStatus)
		r.Delete("/orders/{id}", h.deleteOrder)

		r.Post("/games", h.createGame)
		r.Put("/games/{id}", h.updateGame)
		r.Delete("/games/{id}", h.deleteGame)
		r.Post("/categories", h.createCategory)
		r.Put("/categories/{id}", h.updateCategory)
		r.Delete("/categories/{id}", h.deleteCategory)
		r.Post("/publishers", h.createPublisher)
		r.Put("/publishers/{id}", h.updatePublisher)
		r.Delete("/publishers/{id}", h.deletePublisher)
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
