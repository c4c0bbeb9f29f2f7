package transaction

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/finance-dashboard/internal"
	"github.com/frahmantamala/finance-dashboard/internal/core/common/validation"
)

const (
	// amountIntegerDigits matches NUMERIC(14,2).
	amountIntegerDigits = 12
	categoryMaxLength   = 100
	merchantMaxLength   = 200
)

// CreateTransactionDTO represents the request payload for creating a transaction
type CreateTransactionDTO struct {
	Date        string           `json:"date"`
	Amount      *decimal.Decimal `json:"amount"`
	Currency    string           `json:"currency"`
	Description string           `json:"description"`
	Merchant    *string          `json:"merchant"`
	Category    *string          `json:"category"`
}

func (dto CreateTransactionDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("date", dto.Date).Required()
	v.Field("amount", dto.Amount).Required().MaxDigits(amountIntegerDigits)
	v.Field("description", dto.Description).Required().MaxLength(validation.DescriptionMax)
	v.Field("currency", strings.TrimSpace(dto.Currency)).CurrencyCode()
	v.Field("merchant", dto.Merchant).MaxLength(merchantMaxLength)
	v.Field("category", dto.Category).MaxLength(categoryMaxLength)
	if err := v.Validate(); err != nil {
		return err
	}
	if _, err := validation.ParseDate("date", dto.Date); err != nil {
		return err
	}
	return nil
}

// ToTransaction validates the payload and builds the entity for userID.
func (dto CreateTransactionDTO) ToTransaction(userID int64) (*Transaction, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	date, _ := validation.ParseDate("date", dto.Date)

	now := time.Now().UTC()
	t := &Transaction{
		UserID:      userID,
		Date:        date,
		Amount:      dto.Amount.Round(2),
		Currency:    normalizeCurrency(dto.Currency),
		Description: strings.TrimSpace(dto.Description),
		Merchant:    strings.TrimSpace(deref(dto.Merchant)),
		Category:    strings.TrimSpace(deref(dto.Category)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.Refingerprint()
	return t, nil
}

// UpdateTransactionDTO carries a partial update. A nil field is left as is;
// an empty category or merchant clears it.
type UpdateTransactionDTO struct {
	Date        *string          `json:"date"`
	Amount      *decimal.Decimal `json:"amount"`
	Currency    *string          `json:"currency"`
	Description *string          `json:"description"`
	Merchant    *string          `json:"merchant"`
	Category    *string          `json:"category"`
}

func (dto UpdateTransactionDTO) Validate() error {
	v := validation.NewValidator()
	if dto.Date != nil {
		v.Field("date", *dto.Date).Required()
	}
	if dto.Amount != nil {
		v.Field("amount", dto.Amount).MaxDigits(amountIntegerDigits)
	}
	if dto.Description != nil {
		v.Field("description", *dto.Description).Required().MaxLength(validation.DescriptionMax)
	}
	if dto.Currency != nil {
		v.Field("currency", strings.TrimSpace(*dto.Currency)).Required().CurrencyCode()
	}
	v.Field("merchant", dto.Merchant).MaxLength(merchantMaxLength)
	v.Field("category", dto.Category).MaxLength(categoryMaxLength)
	if err := v.Validate(); err != nil {
		return err
	}
	if dto.Date != nil {
		if _, err := validation.ParseDate("date", *dto.Date); err != nil {
			return err
		}
	}
	return nil
}

// Apply validates the update and writes it onto t.
func (dto UpdateTransactionDTO) Apply(t *Transaction) error {
	if err := dto.Validate(); err != nil {
		return err
	}
	if dto.Date != nil {
		t.Date, _ = validation.ParseDate("date", *dto.Date)
	}
	if dto.Amount != nil {
		t.Amount = dto.Amount.Round(2)
	}
	if dto.Currency != nil {
		t.Currency = normalizeCurrency(*dto.Currency)
	}
	if dto.Description != nil {
		t.Description = strings.TrimSpace(*dto.Description)
	}
	if dto.Merchant != nil {
		t.Merchant = strings.TrimSpace(*dto.Merchant)
	}
	if dto.Category != nil {
		t.Category = strings.TrimSpace(*dto.Category)
	}
	t.UpdatedAt = time.Now().UTC()
	t.Refingerprint()
	return nil
}

func normalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return DefaultCurrency
	}
	return c
}

// Filter narrows a listing. All set fields are AND-combined; bounds are inclusive.
type Filter struct {
	Query     string
	Category  string
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	FromDate  *time.Time
	ToDate    *time.Time
}

// ParseFilter reads the listing query parameters. Malformed values are a
// validation error rather than being ignored.
func ParseFilter(q url.Values) (Filter, error) {
	var (
		f    Filter
		errs []errors.ValidationError
	)

	f.Query = strings.TrimSpace(q.Get("q"))
	f.Category = strings.TrimSpace(q.Get("category"))

	for _, p := range []struct {
		name string
		dst  **decimal.Decimal
	}{{"min_amount", &f.MinAmount}, {"max_amount", &f.MaxAmount}} {
		raw := strings.TrimSpace(q.Get(p.name))
		if raw == "" {
			continue
		}
		d, err := validation.ParseAmount(p.name, raw)
		if err != nil {
			errs = append(errs, errors.ValidationError{Field: p.name, Message: err.Message, Code: string(errors.ErrCodeInvalidFilter)})
			continue
		}
		*p.dst = &d
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from_date", &f.FromDate}, {"to_date", &f.ToDate}} {
		raw := strings.TrimSpace(q.Get(p.name))
		if raw == "" {
			continue
		}
		d, err := validation.ParseDate(p.name, raw)
		if err != nil {
			errs = append(errs, errors.ValidationError{Field: p.name, Message: err.Message, Code: string(errors.ErrCodeInvalidFilter)})
			continue
		}
		*p.dst = &d
	}

	if len(errs) > 0 {
		return Filter{}, errors.NewValidationError("invalid filter", errors.ErrCodeInvalidFilter).
			WithDetails(errors.ValidationErrors{Errors: errs})
	}
	return f, nil
}

// YearFilter restricts a filter to one calendar year.
func YearFilter(year int) (Filter, error) {
	if year < 1900 || year > 9999 {
		return Filter{}, errors.NewValidationFieldError("year", fmt.Sprintf("year must be between 1900 and 9999, got %d", year), errors.ErrCodeInvalidFilter)
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return Filter{FromDate: &from, ToDate: &to}, nil
}
