package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pwojcik/gameshop/internal/domain/order"
)

type orderItemResponse struct {
	ID       string  `json:"id"`
	GameID   string  `json:"gameId"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type orderResponse struct {
	ID        string              `json:"id"`
	UserID    string              `json:"userId"`
	OrderDate time.Time           `json:"orderDate"`
	Status    string              `json:"status"`
	Items     []orderItemResponse `json:"items"`
	Total     float64             `json:"total"`
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		OrderDate: o.OrderDate,
		Status:    o.Status.String(),
		Items:     make([]orderItemResponse, 0, len(o.Items)),
		Total:     o.Total().InexactFloat64(),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ID:       it.ID,
			GameID:   it.GameID,
			Quantity: it.Quantity,
			Price:    it.Price.InexactFloat64(),
		})
	}
	return resp
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	out, err := h.orders.ListOrders(r.Context(), identity(r))
	if err != nil {
		mapDomainError(w, r, err)
		return
	}
	resp := make([]orderResponse, 0, len(out))
	for i := range out {
		resp = append(resp, toOrderResponse(&out[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		mapDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type placeOrderRequest struct {
	Items []placeOrderLine `json:"items"`
}

type placeOrderLine struct {
	GameID   string `json:"gameId"`
	Quantity int    `json:"quantity"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	lines := make([]order.OrderLine, len(req.Items))
	for i, item := range req.Items {
		lines[i] = order.OrderLine{GameID: item.GameID, Quantity: item.Quantity}
	}

	orderID, err := h.orders.PlaceOrder(r.Context(), identity(r).UserID, lines)
	if err != nil {
		mapDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{OrderID: orderID})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	status := order.Status(req.Status)
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), identity(r), chi.URLParam(r, "id"), status); err != nil {
		mapDomainError(w, r, err)
		return
	}
	h.getOrder(w, r)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.DeleteOrder(r.Context(), identity(r), chi.URLParam(r, "id")); err != nil {
		mapDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
