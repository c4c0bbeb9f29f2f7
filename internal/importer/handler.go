package importer

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	errors "github.com/frahmantamala/finance-dashboard/internal"
	"github.com/frahmantamala/finance-dashboard/internal/auth"
	"github.com/frahmantamala/finance-dashboard/internal/transport"
)

const (
	FormFileField = "csvfile"

	// multipartOverhead leaves room for boundaries and the mapping fields.
	multipartOverhead = 64 << 10
	memoryLimit       = 4 << 20
)

type Handler struct {
	*transport.BaseHandler
	Service        ServiceAPI
	MaxUploadBytes int64
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = errors.DefaultMaxUploadBytes
	}
	return &Handler{
		BaseHandler:    baseHandler,
		Service:        service,
		MaxUploadBytes: maxUploadBytes,
	}
}

// ImportTransactions handles POST /api/transactions/import as multipart form
// with the file in csvfile and optional date_field, amount_field,
// description_field and category_field column names.
func (h *Handler) ImportTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, errors.ErrInvalidToken)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			h.Logger.Info("ImportTransactions: upload too large", "user_id", user.ID, "limit", h.MaxUploadBytes)
			h.HandleServiceError(w, h.tooLarge())
			return
		}
		h.Logger.Info("ImportTransactions: invalid multipart body", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, errors.NewValidationError("expected a multipart/form-data upload", errors.ErrCodeInvalidUpload))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(FormFileField)
	if err != nil {
		h.HandleServiceError(w, errors.NewValidationError("csvfile is required", errors.ErrCodeInvalidUpload))
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		h.Logger.Info("ImportTransactions: rejected file type", "filename", header.Filename, "user_id", user.ID)
		h.HandleServiceError(w, errors.NewValidationError("only .csv files are allowed", errors.ErrCodeInvalidUpload))
		return
	}
	if header.Size > h.MaxUploadBytes {
		h.HandleServiceError(w, h.tooLarge())
		return
	}

	mapping := Mapping{
		DateField:        r.FormValue("date_field"),
		AmountField:      r.FormValue("amount_field"),
		DescriptionField: r.FormValue("description_field"),
		CategoryField:    r.FormValue("category_field"),
	}

	result, err := h.Service.Import(r.Context(), user.ID, file, mapping)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) tooLarge() *errors.AppError {
	return errors.NewValidationError(fmt.Sprintf("the file exceeds the upload limit of %d bytes", h.MaxUploadBytes), errors.ErrCodeInvalidUpload)
}
