package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pwojcik/gameshop/internal/domain/order"
)

type cartItemResponse struct {
	ID        string  `json:"id"`
	GameID    string  `json:"gameId"`
	Title     string  `json:"title"`
	Platform  string  `json:"platform"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	LineTotal float64 `json:"lineTotal"`
}

type cartResponse struct {
	ID    string             `json:"id,omitempty"`
	Items []cartItemResponse `json:"items"`
	Total float64            `json:"total"`
}

func toCartResponse(view *order.CartView) cartResponse {
	resp := cartResponse{
		ID:    view.Order.ID,
		Items: make([]cartItemResponse, 0, len(view.Lines)),
		Total: view.Total.InexactFloat64(),
	}
	for _, line := range view.Lines {
		resp.Items = append(resp.Items, cartItemResponse{
			ID:        line.Item.ID,
			GameID:    line.Item.GameID,
			Title:     line.Game.Title,
			Platform:  line.Game.Platform.String(),
			Quantity:  line.Item.Quantity,
			Price:     line.Item.Price.InexactFloat64(),
			LineTotal: line.LineTotal.InexactFloat64(),
		})
	}
	return resp
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.orders.GetCart(r.Context(), identity(r).UserID)
	if err != nil {
		mapDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

type addItemRequest struct {
	GameID   string `json:"gameId"`
	Quantity int    `json:"quantity"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.GameID == "" {
		writeError(w, http.StatusBadRequest, "gameId is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	view, err := h.orders.AddItem(r.Context(), identity(r).UserID, req.GameID, req.Quantity)
	if err != nil {
		mapDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	userID := identity(r).UserID
	if err := h.orders.UpdateItemQuantity(r.Context(), userID, chi.URLParam(r, "id"), req.Quantity); err != nil {
		mapDomainError(w, r, err)
		return
	}
	h.getCart(w, r)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	userID := identity(r).UserID
	if err := h.orders.RemoveItem(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		mapDomainError(w, r, err)
		return
	}
	h.getCart(w, r)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.ClearCart(r.Context(), identity(r).UserID); err != nil {
		mapDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type checkoutResponse struct {
	OrderID string `json:"orderId"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	orderID, err := h.orders.Checkout(r.Context(), identity(r).UserID)
	if err != nil {
		mapDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{OrderID: orderID})
}
