package stats

import (
	"net/http"
	"strconv"
	"strings"

	errors "github.com/frahmantamala/finance-dashboard/internal"
	"github.com/frahmantamala/finance-dashboard/internal/auth"
	"github.com/frahmantamala/finance-dashboard/internal/transaction"
	"github.com/frahmantamala/finance-dashboard/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// MonthlyCategory handles GET /api/stats/monthly-category?year=YYYY.
func (h *Handler) MonthlyCategory(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, errors.ErrInvalidToken)
		return
	}

	var year *int
	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			h.Logger.Info("MonthlyCategory: invalid year", "year", raw, "user_id", user.ID)
			h.HandleServiceError(w, errors.NewValidationFieldError("year", "year must be a four-digit number", errors.ErrCodeInvalidFilter))
			return
		}
		year = &y
	}

	groups, err := h.Service.MonthlyByCategory(r.Context(), user.ID, year)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	out := make([]MonthlyCategoryResponse, len(groups))
	for i, g := range groups {
		out[i] = g.ToResponse()
	}
	h.WriteJSON(w, http.StatusOK, out)
}

// Summary handles GET /api/stats/summary with the transaction listing filters.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, errors.ErrInvalidToken)
		return
	}

	filter, err := transaction.ParseFilter(r.URL.Query())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	summary, err := h.Service.Summary(r.Context(), user.ID, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, summary.ToResponse())
}
