package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	errors "github.com/frahmantamala/finance-dashboard/internal"
	userDatamodel "github.com/frahmantamala/finance-dashboard/internal/core/datamodel/user"
)

func TestAuthPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Repository Suite")
}

var _ = Describe("CreateUser", func() {
	var (
		db   *gorm.DB
		repo *Repository
		ctx  context.Context
	)

	newUser := func(name string) *userDatamodel.User {
		now := time.Now()
		return &userDatamodel.User{Username: name, PasswordHash: "x", IsActive: true, CreatedAt: now, UpdatedAt: now}
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&userDatamodel.User{})).To(Succeed())

		repo = &Repository{db: db}
		ctx = context.Background()
	})

	It("should report a taken username", func() {
		Expect(repo.Create(ctx, newUser("alice"))).To(Succeed())
		Expect(repo.Create(ctx, newUser("alice"))).To(MatchError(errors.ErrUsernameTaken))
	})

	It("should report a username taken between the check and the insert", func() {
		raced := false
		Expect(db.Callback().Create().Before("gorm:create").Register("test:concurrent_register", func(tx *gorm.DB) {
			if raced {
				return
			}
			raced = true
			now := time.Now()
			tx.Session(&gorm.Session{NewDB: true}).Exec(
				"INSERT INTO users (username, password_hash, is_active, is_admin, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
				"bob", "y", true, false, now, now)
		})).To(Succeed())

		Expect(repo.Create(ctx, newUser("bob"))).To(MatchError(errors.ErrUsernameTaken))
		Expect(raced).To(BeTrue())
	})
})

var _ = DescribeTable("isUniqueViolation",
	func(err error, want bool) {
		Expect(isUniqueViolation(err)).To(Equal(want))
	},
	Entry("translated by gorm", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true),
	Entry("raw postgres unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true),
	Entry("other postgres error", &pgconn.PgError{Code: "23503"}, false),
	Entry("unrelated", gorm.ErrInvalidData, false),
)
