package plausibility_test

import (
	"testing"
	"time"

	"github.com/frahmantamala/finance-dashboard/internal/plausibility"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

func TestPlausibility(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Plausibility Suite")
}

var _ = Describe("Checker", func() {
	var (
		checker *plausibility.Checker
		today   time.Time
	)

	ids := func(issues []plausibility.Issue) []string {
		out := make([]string, 0, len(issues))
		for _, i := range issues {
			out = append(out, i.ID)
		}
		return out
	}

	BeforeEach(func() {
		today = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
		checker = plausibility.NewChecker(plausibility.Config{
			LargeAmountThreshold: decimal.NewFromInt(10000),
			FlagFutureDates:      true,
			FlagMissingCategory:  true,
		}).WithClock(func() time.Time { return today.Add(15 * time.Hour) })
	})

	It("reports nothing for an ordinary expense", func() {
		issues := checker.Check(plausibility.Candidate{
			Date:     today,
			Amount:   decimal.RequireFromString("-12.50"),
			Category: "Groceries",
		})
		Expect(issues).To(BeEmpty())
		Expect(issues).NotTo(BeNil())
	})

	It("flags zero amounts and missing categories", func() {
		issues := checker.Check(plausibility.Candidate{Date: today, Amount: decimal.Zero})
		Expect(ids(issues)).To(Equal([]string{plausibility.RuleZeroAmount, plausibility.RuleMissingCategory}))
		Expect(issues[1].Severity).To(Equal(plausibility.SeverityInfo))
	})

	It("flags large amounts in either direction, inclusive of the threshold", func() {
		Expect(ids(checker.Check(plausibility.Candidate{Date: today, Amount: decimal.NewFromInt(10000), Category: "x"}))).
			To(ConsistOf(plausibility.RuleVeryLarge))
		Expect(ids(checker.Check(plausibility.Candidate{Date: today, Amount: decimal.NewFromInt(-25000), Category: "x"}))).
			To(ConsistOf(plausibility.RuleVeryLarge))
		Expect(checker.Check(plausibility.Candidate{Date: today, Amount: decimal.RequireFromString("9999.99"), Category: "x"})).
			To(BeEmpty())
	})

	It("flags dates after today but not today itself", func() {
		Expect(ids(checker.Check(plausibility.Candidate{Date: today.AddDate(0, 0, 1), Amount: decimal.NewFromInt(5), Category: "x"}))).
			To(ConsistOf(plausibility.RuleFutureDate))
		Expect(checker.Check(plausibility.Candidate{Date: today, Amount: decimal.NewFromInt(5), Category: "x"})).
			To(BeEmpty())
	})

	It("honours disabled rules", func() {
		quiet := plausibility.NewChecker(plausibility.Config{})
		Expect(quiet.Check(plausibility.Candidate{Date: time.Now().AddDate(1, 0, 0), Amount: decimal.NewFromInt(1)})).To(BeEmpty())
	})
})
