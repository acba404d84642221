package httpapi

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/pwojcik/gameshop/internal/domain/catalog"
	"github.com/pwojcik/gameshop/internal/domain/order"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Code: code, Message: message})
}

// mapDomainError translates engine errors into HTTP responses. Anything not
// in the taxonomy is treated as a transient storage failure: logged, and
// surfaced as a 500 the caller may retry from scratch.
func mapDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		gnf *order.GameNotFoundError
		ise *order.InsufficientStockError
		ite *order.InvalidTransitionError
		ref *catalog.ReferencedError
	)

	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, catalog.ErrCategoryNotFound),
		errors.Is(err, catalog.ErrPublisherNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &gnf):
		writeError(w, http.StatusNotFound, gnf.Error())
	case errors.As(err, &ise):
		writeError(w, http.StatusConflict, ise.Error())
	case errors.Is(err, order.ErrEmptyCart):
		writeError(w, http.StatusUnprocessableEntity, order.ErrEmptyCart.Error())
	case errors.Is(err, order.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, order.ErrInvalidQuantity.Error())
	case errors.As(err, &ite):
		writeError(w, http.StatusUnprocessableEntity, ite.Error())
	case errors.As(err, &ref):
		writeError(w, http.StatusConflict, ref.Error())
	default:
		zctx.From(r.Context()).Error("storage failure", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "transient storage failure, retry the operation")
	}
}
