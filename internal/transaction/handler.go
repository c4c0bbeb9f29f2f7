package transaction

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/finance-dashboard/internal"
	"github.com/frahmantamala/finance-dashboard/internal/auth"
	"github.com/frahmantamala/finance-dashboard/internal/plausibility"
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

type createResponse struct {
	Transaction        Response             `json:"transaction"`
	PlausibilityIssues []plausibility.Issue `json:"plausibility_issues"`
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, errors.ErrInvalidToken)
		return
	}

	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		h.Logger.Info("ListTransactions: invalid filter", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	txs, err := h.Service.List(r.Context(), user.ID, filter)
	if err != nil {
		h.Logger.Error("ListTransactions: failed to list", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponses(txs))
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, errors.ErrInvalidToken)
		return
	}

	var dto CreateTransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Warn("CreateTransaction: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.Create(r.Context(), user.ID, dto)
	if err != nil {
		h.Logger.Warn("CreateTransaction: service error", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, createResponse{
		Transaction:        result.Transaction.ToResponse(),
		PlausibilityIssues: result.Issues,
	})
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, errors.ErrInvalidToken)
		return
	}

	id, ok := h.transactionID(w, r)
	if !ok {
		return
	}

	var dto UpdateTransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Warn("UpdateTransaction: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.Service.Update(r.Context(), user.ID, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, updated.ToResponse())
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, errors.ErrInvalidToken)
		return
	}

	id, ok := h.transactionID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), user.ID, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) DeleteDuplicates(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, errors.ErrInvalidToken)
		return
	}

	deleted, err := h.Service.DeleteDuplicates(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// ExportTransactions streams the filtered listing as CSV, or as XLSX with
// ?format=xlsx.
func (h *Handler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, errors.ErrInvalidToken)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatXLSX {
		h.HandleServiceError(w, errors.NewValidationFieldError("format", "format must be csv or xlsx", errors.ErrCodeInvalidFilter))
		return
	}

	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	txs, err := h.Service.List(r.Context(), user.ID, filter)
	if err != nil {
		h.Logger.Error("ExportTransactions: failed to list", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	// Render into memory first so a failure can still produce a JSON error.
	var buf bytes.Buffer
	contentType := ContentTypeCSV
	if format == ExportFormatXLSX {
		contentType = ContentTypeXLSX
		err = WriteXLSX(&buf, txs)
	} else {
		err = WriteCSV(&buf, txs)
	}
	if err != nil {
		h.Logger.Error("ExportTransactions: failed to render", "error", err, "format", format)
		h.HandleServiceError(w, errors.NewInternalError("failed to render export", err))
		return
	}

	h.Logger.Info("ExportTransactions: exported", "user_id", user.ID, "rows", len(txs), "format", format)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.`+format+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (h *Handler) transactionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.Logger.Info("invalid transaction id", "id", raw)
		h.HandleServiceError(w, errors.ErrTransactionNotFound)
		return 0, false
	}
	return id, true
}
