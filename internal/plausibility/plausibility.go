// Package plausibility flags transactions that look like data-entry mistakes.
// Issues are advisory: they are returned alongside a created transaction and
// never block the write.
package plausibility

import (
	"time"

	"github.com/shopspring/decimal"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

const (
	RuleZeroAmount      = "zero_amount"
	RuleVeryLarge       = "very_large"
	RuleFutureDate      = "future_date"
	RuleMissingCategory = "missing_category"
)

type Issue struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Candidate is the subset of a transaction the rules look at.
type Candidate struct {
	Date     time.Time
	Amount   decimal.Decimal
	Category string
}

type Rule struct {
	ID          string
	Description string
	Severity    Severity
	Match       func(c Candidate, now time.Time) bool
}

type Config struct {
	LargeAmountThreshold decimal.Decimal
	FlagFutureDates      bool
	FlagMissingCategory  bool
}

type Checker struct {
	rules []Rule
	now   func() time.Time
}

func NewChecker(cfg Config) *Checker {
	threshold := cfg.LargeAmountThreshold
	if threshold.LessThanOrEqual(decimal.Zero) {
		threshold = decimal.NewFromInt(10000)
	}

	rules := []Rule{
		{
			ID:          RuleZeroAmount,
			Description: "Amount is zero",
			Severity:    SeverityWarning,
			Match: func(c Candidate, _ time.Time) bool {
				return c.Amount.IsZero()
			},
		},
		{
			ID:          RuleVeryLarge,
			Description: "Amount of " + threshold.StringFixed(2) + " or more",
			Severity:    SeverityWarning,
			Match: func(c Candidate, _ time.Time) bool {
				return c.Amount.Abs().GreaterThanOrEqual(threshold)
			},
		},
	}
	if cfg.FlagFutureDates {
		rules = append(rules, Rule{
			ID:          RuleFutureDate,
			Description: "Date lies in the future",
			Severity:    SeverityWarning,
			Match: func(c Candidate, now time.Time) bool {
				today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
				return c.Date.After(today)
			},
		})
	}
	if cfg.FlagMissingCategory {
		rules = append(rules, Rule{
			ID:          RuleMissingCategory,
			Description: "No category assigned",
			Severity:    SeverityInfo,
			Match: func(c Candidate, _ time.Time) bool {
				return c.Category == ""
			},
		})
	}

	return &Checker{rules: rules, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (c *Checker) WithClock(now func() time.Time) *Checker {
	c.now = now
	return c
}

// Check returns the issues in rule order, or an empty slice.
func (c *Checker) Check(candidate Candidate) []Issue {
	now := c.now()
	issues := make([]Issue, 0)
	for _, rule := range c.rules {
		if rule.Match(candidate, now) {
			issues = append(issues, Issue{
				ID:          rule.ID,
				Description: rule.Description,
				Severity:    rule.Severity,
			})
		}
	}
	return issues
}
