// Package stats derives read-only aggregates from a caller's transactions.
package stats

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/finance-dashboard/internal/transaction"
)

// UncategorizedLabel groups transactions without a category.
const UncategorizedLabel = "Uncategorized"

const monthLayout = "2006-01"

type MonthlyCategory struct {
	Month    string
	Category string
	Sum      decimal.Decimal
}

type MonthlyCategoryResponse struct {
	Month    string      `json:"month"`
	Category string      `json:"category"`
	Sum      json.Number `json:"sum"`
}

func (m MonthlyCategory) ToResponse() MonthlyCategoryResponse {
	return MonthlyCategoryResponse{
		Month:    m.Month,
		Category: m.Category,
		Sum:      json.Number(m.Sum.StringFixed(2)),
	}
}

type Summary struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Count   int
}

// Balance is income plus the (negative) expense total.
func (s Summary) Balance() decimal.Decimal {
	return s.Income.Add(s.Expense)
}

type SummaryResponse struct {
	Income  json.Number `json:"income"`
	Expense json.Number `json:"expense"`
	Balance json.Number `json:"balance"`
	Count   int         `json:"count"`
}

func (s Summary) ToResponse() SummaryResponse {
	return SummaryResponse{
		Income:  json.Number(s.Income.StringFixed(2)),
		Expense: json.Number(s.Expense.StringFixed(2)),
		Balance: json.Number(s.Balance().StringFixed(2)),
		Count:   s.Count,
	}
}

// MonthlyByCategory sums amounts per calendar month and category, ordered by
// month and then category.
func MonthlyByCategory(txs []*transaction.Transaction) []MonthlyCategory {
	type key struct{ month, category string }
	sums := make(map[key]decimal.Decimal)
	for _, t := range txs {
		category := t.Category
		if category == "" {
			category = UncategorizedLabel
		}
		k := key{month: t.Date.Format(monthLayout), category: category}
		sums[k] = sums[k].Add(t.Amount)
	}

	out := make([]MonthlyCategory, 0, len(sums))
	for k, sum := range sums {
		out = append(out, MonthlyCategory{Month: k.month, Category: k.category, Sum: sum})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Summarize splits the amounts into income (> 0) and expense (< 0). Zero
// amounts only count towards Count.
func Summarize(txs []*transaction.Transaction) Summary {
	s := Summary{Income: decimal.Zero, Expense: decimal.Zero, Count: len(txs)}
	for _, t := range txs {
		switch {
		case t.IsIncome():
			s.Income = s.Income.Add(t.Amount)
		case t.IsExpense():
			s.Expense = s.Expense.Add(t.Amount)
		}
	}
	return s
}
