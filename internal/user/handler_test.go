package user_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	errors "github.com/frahmantamala/finance-dashboard/internal"
	"github.com/frahmantamala/finance-dashboard/internal/auth"
	txDatamodel "github.com/frahmantamala/finance-dashboard/internal/core/datamodel/transaction"
	userDatamodel "github.com/frahmantamala/finance-dashboard/internal/core/datamodel/user"
	"github.com/frahmantamala/finance-dashboard/internal/core/events"
	"github.com/frahmantamala/finance-dashboard/internal/transaction"
	txPostgres "github.com/frahmantamala/finance-dashboard/internal/transaction/postgres"
	"github.com/frahmantamala/finance-dashboard/internal/transport"
	"github.com/frahmantamala/finance-dashboard/internal/user"
	userPostgres "github.com/frahmantamala/finance-dashboard/internal/user/postgres"
)

func TestUser(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Suite")
}

var _ = Describe("Admin User Handler", func() {
	var (
		db     *gorm.DB
		router chi.Router
		admin  *userDatamodel.User
		alice  *userDatamodel.User
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&userDatamodel.User{}, &txDatamodel.Transaction{})).To(Succeed())

		bus := events.NewEventBus(slogger)
		txService := transaction.NewService(txPostgres.NewRepository(db), nil, nil, bus, slogger)
		transaction.NewEventHandler(txService, slogger).RegisterEventHandlers(bus)

		repo := userPostgres.NewRepository(db)
		service := user.NewService(repo, bus, bcrypt.MinCost, slogger)
		handler := user.NewHandler(transport.NewBaseHandler(slogger), service)

		admin = &userDatamodel.User{Username: "demo", PasswordHash: "x", IsActive: true, IsAdmin: true}
		alice = &userDatamodel.User{Username: "alice", PasswordHash: "x", IsActive: true}
		Expect(repo.Create(ctx, admin)).To(Succeed())
		Expect(repo.Create(ctx, alice)).To(Succeed())

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				principal := &auth.User{ID: admin.ID, Username: admin.Username, IsActive: true, IsAdmin: true}
				next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), principal)))
			})
		})
		router.Get("/api/admin/users", handler.ListUsers)
		router.Post("/api/admin/users", handler.CreateUser)
		router.Patch("/api/admin/users/{id}", handler.UpdateUser)
		router.Delete("/api/admin/users/{id}", handler.DeleteUser)
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	userPath := func(id int64) string {
		return "/api/admin/users/" + strconv.FormatInt(id, 10)
	}

	decodeError := func(w *httptest.ResponseRecorder) errors.Response {
		var resp errors.Response
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		return resp
	}

	It("should list users as a plain array without password hashes", func() {
		w := do(http.MethodGet, "/api/admin/users", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).NotTo(ContainSubstring("password"))

		var users []user.Response
		Expect(json.NewDecoder(w.Body).Decode(&users)).To(Succeed())
		Expect(users).To(HaveLen(2))
		Expect(users[0].Username).To(Equal("demo"))
		Expect(users[1].Username).To(Equal("alice"))
	})

	It("should create an active user by default", func() {
		w := do(http.MethodPost, "/api/admin/users", `{"username":"  bob ","password":"bob12345"}`)
		Expect(w.Code).To(Equal(http.StatusCreated))

		var created user.Response
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		Expect(created.Username).To(Equal("bob"))
		Expect(created.IsActive).To(BeTrue())
		Expect(created.IsAdmin).To(BeFalse())

		var stored userDatamodel.User
		Expect(db.First(&stored, created.ID).Error).To(Succeed())
		Expect(auth.VerifyPassword(stored.PasswordHash, "bob12345")).To(Succeed())
	})

	It("should reject a duplicate username", func() {
		w := do(http.MethodPost, "/api/admin/users", `{"username":"alice","password":"alice12345"}`)
		Expect(w.Code).To(Equal(http.StatusConflict))
		Expect(decodeError(w).Code).To(Equal(errors.ErrCodeUsernameTaken))
	})

	It("should deactivate another user", func() {
		w := do(http.MethodPatch, userPath(alice.ID), `{"is_active":false}`)
		Expect(w.Code).To(Equal(http.StatusOK))

		var stored userDatamodel.User
		Expect(db.First(&stored, alice.ID).Error).To(Succeed())
		Expect(stored.IsActive).To(BeFalse())
		Expect(stored.IsAdmin).To(BeFalse())
	})

	It("should refuse to demote or deactivate the caller", func() {
		for _, body := range []string{`{"is_admin":false}`, `{"is_active":false}`} {
			w := do(http.MethodPatch, userPath(admin.ID), body)
			Expect(w.Code).To(Equal(http.StatusForbidden))
			Expect(decodeError(w).Code).To(Equal(errors.ErrCodeCannotModifySelf))
		}
	})

	It("should let the caller change their own password", func() {
		w := do(http.MethodPatch, userPath(admin.ID), `{"password":"new-secret-1"}`)
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("should reject an empty patch", func() {
		w := do(http.MethodPatch, userPath(alice.ID), `{}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should refuse self-deletion", func() {
		w := do(http.MethodDelete, userPath(admin.ID), "")
		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(decodeError(w).Code).To(Equal(errors.ErrCodeCannotModifySelf))
	})

	It("should report unknown ids as not found", func() {
		Expect(do(http.MethodDelete, userPath(999), "").Code).To(Equal(http.StatusNotFound))
		Expect(do(http.MethodPatch, "/api/admin/users/abc", `{"is_admin":true}`).Code).To(Equal(http.StatusNotFound))
	})

	It("should delete the user together with their transactions", func() {
		rows := []*txDatamodel.Transaction{
			{UserID: alice.ID, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(-10), Currency: "EUR", Description: "a", Fingerprint: "fa"},
			{UserID: admin.ID, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(-20), Currency: "EUR", Description: "b", Fingerprint: "fb"},
		}
		Expect(db.Create(&rows).Error).To(Succeed())

		w := do(http.MethodDelete, userPath(alice.ID), "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"deleted":true}`))

		var users, aliceTxs, adminTxs int64
		Expect(db.Model(&userDatamodel.User{}).Where("id = ?", alice.ID).Count(&users).Error).To(Succeed())
		Expect(db.Model(&txDatamodel.Transaction{}).Where("user_id = ?", alice.ID).Count(&aliceTxs).Error).To(Succeed())
		Expect(db.Model(&txDatamodel.Transaction{}).Where("user_id = ?", admin.ID).Count(&adminTxs).Error).To(Succeed())
		Expect(users).To(BeZero())
		Expect(aliceTxs).To(BeZero())
		Expect(adminTxs).To(Equal(int64(1)))
	})
})
