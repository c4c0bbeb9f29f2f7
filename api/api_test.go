package api_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/finance-dashboard/api"
)

func TestAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "API Suite")
}

var _ = Describe("OpenAPI document", func() {
	It("should parse and validate", func() {
		doc, err := api.Load(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Info.Title).To(Equal("Finance Dashboard API"))
	})

	It("should describe every served route", func() {
		doc, err := api.Load(context.Background())
		Expect(err).NotTo(HaveOccurred())

		routes := map[string][]string{
			"/api/health":                  {"GET"},
			"/api/auth/token":              {"POST"},
			"/api/auth/register":           {"POST"},
			"/api/auth/me":                 {"GET"},
			"/api/transactions":            {"GET", "POST"},
			"/api/transactions/{id}":       {"PATCH", "DELETE"},
			"/api/transactions/duplicates": {"DELETE"},
			"/api/transactions/export":     {"GET"},
			"/api/transactions/import":     {"POST"},
			"/api/categories":              {"GET"},
			"/api/stats/monthly-category":  {"GET"},
			"/api/stats/summary":           {"GET"},
			"/api/admin/users":             {"GET", "POST"},
			"/api/admin/users/{id}":        {"PATCH", "DELETE"},
		}
		for path, methods := range routes {
			item := doc.Paths.Find(path)
			Expect(item).NotTo(BeNil(), path)
			for _, method := range methods {
				Expect(item.GetOperation(method)).NotTo(BeNil(), method+" "+path)
			}
		}
	})
})
