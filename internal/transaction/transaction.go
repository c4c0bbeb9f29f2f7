package transaction

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/finance-dashboard/internal/core/common/validation"
	txDatamodel "github.com/frahmantamala/finance-dashboard/internal/core/datamodel/transaction"
)

const DefaultCurrency = "EUR"

// Transaction is a single booking. Positive amounts are income, negative
// amounts are expenses. Empty Category and Merchant mean "not set".
type Transaction struct {
	ID          int64
	UserID      int64
	Date        time.Time
	Amount      decimal.Decimal
	Currency    string
	Description string
	Merchant    string
	Category    string
	Fingerprint string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *Transaction) IsIncome() bool {
	return t.Amount.IsPositive()
}

func (t *Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// Refingerprint recomputes the duplicate key hash after a field change.
func (t *Transaction) Refingerprint() {
	t.Fingerprint = Fingerprint(t.Date, t.Amount, t.Description)
}

// NormalizeDescription trims and collapses inner runs of whitespace.
// Case is preserved.
func NormalizeDescription(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DuplicateKey is the canonical form two transactions share when they are
// considered the same booking: ISO date, amount without trailing zeros and the
// normalized description.
func DuplicateKey(date time.Time, amount decimal.Decimal, description string) string {
	return date.Format(validation.DateLayout) + "|" + amount.Round(2).String() + "|" + NormalizeDescription(description)
}

func Fingerprint(date time.Time, amount decimal.Decimal, description string) string {
	sum := sha256.Sum256([]byte(DuplicateKey(date, amount, description)))
	return hex.EncodeToString(sum[:])
}

// Response is the JSON view of a transaction. Amounts are emitted as JSON
// numbers with two decimals.
type Response struct {
	ID          int64       `json:"id"`
	Date        string      `json:"date"`
	Amount      json.Number `json:"amount"`
	Currency    string      `json:"currency"`
	Description string      `json:"description"`
	Merchant    *string     `json:"merchant"`
	Category    *string     `json:"category"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (t *Transaction) ToResponse() Response {
	return Response{
		ID:          t.ID,
		Date:        t.Date.Format(validation.DateLayout),
		Amount:      json.Number(t.Amount.StringFixed(2)),
		Currency:    t.Currency,
		Description: t.Description,
		Merchant:    optional(t.Merchant),
		Category:    optional(t.Category),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func ToResponses(txs []*Transaction) []Response {
	out := make([]Response, len(txs))
	for i, t := range txs {
		out[i] = t.ToResponse()
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ToDataModel(t *Transaction) *txDatamodel.Transaction {
	return &txDatamodel.Transaction{
		ID:          t.ID,
		UserID:      t.UserID,
		Date:        t.Date,
		Amount:      t.Amount,
		Currency:    t.Currency,
		Description: t.Description,
		Merchant:    optional(t.Merchant),
		Category:    optional(t.Category),
		Fingerprint: t.Fingerprint,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func FromDataModel(t *txDatamodel.Transaction) *Transaction {
	return &Transaction{
		ID:          t.ID,
		UserID:      t.UserID,
		Date:        calendarDate(t.Date),
		Amount:      t.Amount,
		Currency:    t.Currency,
		Description: t.Description,
		Merchant:    deref(t.Merchant),
		Category:    deref(t.Category),
		Fingerprint: t.Fingerprint,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*txDatamodel.Transaction) []*Transaction {
	result := make([]*Transaction, len(rows))
	for i, row := range rows {
		result[i] = FromDataModel(row)
	}
	return result
}

// calendarDate drops any time-of-day and zone the driver attached.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
