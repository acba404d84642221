package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pwojcik/gameshop/internal/domain/catalog"
)

type gameResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ReleaseDate string  `json:"releaseDate"`
	Stock       int     `json:"stock"`
	CategoryID  string  `json:"categoryId"`
	PublisherID string  `json:"publisherId"`
	Platform    string  `json:"platform"`
}

func toGameResponse(g catalog.Game) gameResponse {
	return gameResponse{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		Price:       g.Price.InexactFloat64(),
		ReleaseDate: g.ReleaseDate.Format(time.DateOnly),
		Stock:       g.Stock,
		CategoryID:  g.CategoryID,
		PublisherID: g.PublisherID,
		Platform:    g.Platform.String(),
	}
}

func (h *Handler) listGames(w http.ResponseWriter, r *http.Request) {
	var (
		games []catalog.Game
		err   error
	)
	if r.URL.Query().Get("inStock") == "true" {
		games, err = h.catalog.ListInStock(r.Context())
	} else {
		games, err = h.catalog.List(r.Context())
	}
	if err != nil {
		mapDomainError(w, r, err)
		return
	}

	resp := make([]gameResponse, len(games))
	for i, g := range games {
		resp[i] = toGameResponse(g)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getGame(w http.ResponseWriter, r *http.Request) {
	g, err := h.catalog.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGameResponse(*g))
}

type gameRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ReleaseDate string          `json:"releaseDate"`
	Stock       int             `json:"stock"`
	CategoryID  string          `json:"categoryId"`
	PublisherID string          `json:"publisherId"`
	Platform    string          `json:"platform"`
}

func (req *gameRequest) toGame(id string) (*catalog.Game, error) {
	released, err := time.Parse(time.DateOnly, req.ReleaseDate)
	if err != nil {
		return nil, err
	}
	g := &catalog.Game{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		ReleaseDate: released,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		PublisherID: req.PublisherID,
		Platform:    catalog.Platform(req.Platform),
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (h *Handler) createGame(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req gameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	g, err := req.toGame(uuid.NewString())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.catalog.CreateGame(r.Context(), g); err != nil {
		mapDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGameResponse(*g))
}

func (h *Handler) updateGame(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req gameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	g, err := req.toGame(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.catalog.UpdateGame(r.Context(), g); err != nil {
		mapDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGameResponse(*g))
}

func (h *Handler) deleteGame(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	if err := h.catalog.DeleteGame(r.Context(), chi.URLParam(r, "id")); err != nil {
		mapDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type referenceResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type referenceRequest struct {
	Name string `json:"name"`
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		mapDomainError(w, r, err)
		return
	}
	resp := make([]referenceResponse, len(out))
	for i, c := range out {
		resp[i] = referenceResponse{ID: c.ID, Name: c.Name}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req referenceRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	c := &catalog.Category{ID: uuid.NewString(), Name: req.Name}
	if err := h.catalog.CreateCategory(r.Context(), c); err != nil {
		mapDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, referenceResponse{ID: c.ID, Name: c.Name})
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req referenceRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	c := &catalog.Category{ID: chi.URLParam(r, "id"), Name: req.Name}
	if err := h.catalog.UpdateCategory(r.Context(), c); err != nil {
		mapDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, referenceResponse{ID: c.ID, Name: c.Name})
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		mapDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPublishers(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.ListPublishers(r.Context())
	if err != nil {
		mapDomainError(w, r, err)
		return
	}
	resp := make([]referenceResponse, len(out))
	for i, p := range out {
		resp[i] = referenceResponse{ID: p.ID, Name: p.Name}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) createPublisher(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req referenceRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	p := &catalog.Publisher{ID: uuid.NewString(), Name: req.Name}
	if err := h.catalog.CreatePublisher(r.Context(), p); err != nil {
		mapDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, referenceResponse{ID: p.ID, Name: p.Name})
}

func (h *Handler) updatePublisher(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req referenceRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	p := &catalog.Publisher{ID: chi.URLParam(r, "id"), Name: req.Name}
	if err := h.catalog.UpdatePublisher(r.Context(), p); err != nil {
		mapDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, referenceResponse{ID: p.ID, Name: p.Name})
}

func (h *Handler) deletePublisher(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	if err := h.catalog.DeletePublisher(r.Context(), chi.URLParam(r, "id")); err != nil {
		mapDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
