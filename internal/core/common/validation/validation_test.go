package validation_test

import (
	"testing"

	errors "github.com/frahmantamala/finance-dashboard/internal"
	"github.com/frahmantamala/finance-dashboard/internal/core/common/validation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

func TestValidation(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Validation Suite")
}

var _ = Describe("ValidationBuilder", func() {
	It("collects one error per failing field", func() {
		v := validation.NewValidator()
		v.Field("description", "   ").Required().MaxLength(500)
		v.Field("currency", "EURO").CurrencyCode()

		appErr := v.Validate()
		Expect(appErr).NotTo(BeNil())
		Expect(appErr.Type).To(Equal(errors.ErrorTypeValidation))

		details, ok := appErr.Details.(errors.ValidationErrors)
		Expect(ok).To(BeTrue())
		Expect(details.Errors).To(HaveLen(2))
		Expect(details.Errors[0].Field).To(Equal("description"))
		Expect(details.Errors[1].Code).To(Equal(string(errors.ErrCodeInvalidCurrency)))
		Expect(appErr.GetDetailedMessage()).To(Equal("description is required; currency must be a 3-letter code"))
	})

	It("passes valid values", func() {
		amount := decimal.RequireFromString("-12.50")
		v := validation.NewValidator()
		v.Field("amount", &amount).Required().MaxDigits(12)
		v.Field("currency", "usd").CurrencyCode()
		Expect(v.Validate()).To(BeNil())
	})

	It("treats a nil amount as missing", func() {
		var amount *decimal.Decimal
		v := validation.NewValidator()
		v.Field("amount", amount).Required()
		Expect(v.Validate()).NotTo(BeNil())
	})

	It("rejects amounts with more than two decimals", func() {
		amount := decimal.RequireFromString("1.005")
		v := validation.NewValidator()
		v.Field("amount", &amount).MaxDigits(12)
		Expect(v.Validate()).NotTo(BeNil())
	})

	It("counts characters rather than bytes", func() {
		v := validation.NewValidator()
		v.Field("username", "äöü").MinLength(3)
		Expect(v.Validate()).To(BeNil())
	})
})

var _ = Describe("Credentials", func() {
	DescribeTable("ValidateCredentials",
		func(username, password string, valid bool) {
			err := validation.ValidateCredentials(username, password)
			if valid {
				Expect(err).To(BeNil())
			} else {
				Expect(err).NotTo(BeNil())
			}
		},
		Entry("valid", "alice", "secret1", true),
		Entry("short username", "al", "secret1", false),
		Entry("short password", "alice", "12345", false),
		Entry("empty", "", "", false),
	)
})

var _ = Describe("ParseDate", func() {
	It("parses ISO dates", func() {
		d, err := validation.ParseDate("from_date", "2024-03-01")
		Expect(err).To(BeNil())
		Expect(d.Format(validation.DateLayout)).To(Equal("2024-03-01"))
	})

	It("rejects other formats", func() {
		_, err := validation.ParseDate("from_date", "01.03.2024")
		Expect(err).NotTo(BeNil())
		Expect(err.GetDetailedMessage()).To(ContainSubstring("from_date"))
	})
})
