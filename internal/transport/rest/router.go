package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/finance-dashboard/api"
	"github.com/frahmantamala/finance-dashboard/internal"
	"github.com/frahmantamala/finance-dashboard/internal/auth"
	"github.com/frahmantamala/finance-dashboard/internal/category"
	"github.com/frahmantamala/finance-dashboard/internal/importer"
	"github.com/frahmantamala/finance-dashboard/internal/stats"
	"github.com/frahmantamala/finance-dashboard/internal/transaction"
	"github.com/frahmantamala/finance-dashboard/internal/transport/middleware"
	"github.com/frahmantamala/finance-dashboard/internal/transport/swagger"
	"github.com/frahmantamala/finance-dashboard/internal/user"
)

const openAPIRoute = "/openapi.yml"

// Handlers groups the HTTP handlers mounted under /api. A nil handler leaves
// its routes unregistered.
type Handlers struct {
	Health      *HealthHandler
	Auth        *auth.Handler
	RBAC        *auth.RBACAuthorization
	Transaction *transaction.Handler
	Import      *importer.Handler
	Category    *category.Handler
	Stats       *stats.Handler
	User        *user.Handler
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, cfg internal.ServerConfig, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.CORS(cfg.Origins()))

	router.Get(openAPIRoute, openAPIHandler(cfg.OpenAPIPath))
	router.Handle("/swagger/*", swagger.Handler(openAPIRoute))

	router.Route("/api", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
		}

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/token", h.Auth.Token)
			ar.Post("/register", h.Auth.Register)
			ar.With(h.Auth.AuthMiddleware).Get("/me", h.Auth.Me)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Route("/transactions", func(tr chi.Router) {
				if h.Transaction != nil {
					tr.Get("/", h.Transaction.ListTransactions)
					tr.Post("/", h.Transaction.CreateTransaction)
					tr.Delete("/duplicates", h.Transaction.DeleteDuplicates)
					tr.Get("/export", h.Transaction.ExportTransactions)
					tr.Patch("/{id}", h.Transaction.UpdateTransaction)
					tr.Delete("/{id}", h.Transaction.DeleteTransaction)
				}
				if h.Import != nil {
					tr.Post("/import", h.Import.ImportTransactions)
				}
			})

			if h.Category != nil {
				pr.Get("/categories", h.Category.GetCategories)
			}

			if h.Stats != nil {
				pr.Route("/stats", func(sr chi.Router) {
					sr.Get("/monthly-category", h.Stats.MonthlyCategory)
					sr.Get("/summary", h.Stats.Summary)
				})
			}

			if h.User != nil && h.RBAC != nil {
				pr.Route("/admin/users", func(ur chi.Router) {
					ur.Use(h.RBAC.RequireAdmin())
					ur.Get("/", h.User.ListUsers)
					ur.Post("/", h.User.CreateUser)
					ur.Patch("/{id}", h.User.UpdateUser)
					ur.Delete("/{id}", h.User.DeleteUser)
				})
			}
		})
	})
}

// openAPIHandler serves the file at path when set, otherwise the embedded
// document.
func openAPIHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if path != "" {
			http.ServeFile(w, r, path)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.Document)
	}
}
