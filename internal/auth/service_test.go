package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	errors "github.com/frahmantamala/finance-dashboard/internal"
	userDatamodel "github.com/frahmantamala/finance-dashboard/internal/core/datamodel/user"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

const testSecret = "test-secret-that-is-at-least-32-bytes!"

// Mock RepositoryAPI for testing
type mockUserRepository struct {
	byID   map[int64]*userDatamodel.User
	nextID int64
}

func newMockUserRepository() *mockUserRepository {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)
	return &mockUserRepository{
		byID: map[int64]*userDatamodel.User{
			1: {ID: 1, Username: "demo", PasswordHash: string(hash), IsActive: true},
			2: {ID: 2, Username: "admin", PasswordHash: string(hash), IsActive: true, IsAdmin: true},
			3: {ID: 3, Username: "sleepy", PasswordHash: string(hash), IsActive: false},
		},
		nextID: 4,
	}
}

func (m *mockUserRepository) GetByUsername(_ context.Context, username string) (*userDatamodel.User, error) {
	for _, u := range m.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, errors.ErrUserNotFound
}

func (m *mockUserRepository) GetByID(_ context.Context, id int64) (*userDatamodel.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, errors.ErrUserNotFound
}

func (m *mockUserRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	if _, err := m.GetByUsername(ctx, u.Username); err == nil {
		return errors.ErrUsernameTaken
	}
	u.ID = m.nextID
	m.nextID++
	m.byID[u.ID] = u
	return nil
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service  *Service
		mockRepo *mockUserRepository
		tokenGen *JWTTokenGenerator
		ctx      context.Context
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		mockRepo = newMockUserRepository()
		tokenGen = NewJWTTokenGenerator(testSecret, 60*time.Minute)
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = NewService(mockRepo, tokenGen, bcrypt.MinCost, lg)
	})

	ginkgo.Describe("Register", func() {
		ginkgo.It("should create an active non-admin account and return a bearer token", func() {
			// When
			tokens, err := service.Register(ctx, RegisterDTO{Username: "  newbie ", Password: "secret1"})

			// Then
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(tokens.TokenType).To(gomega.Equal("bearer"))

			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.Username).To(gomega.Equal("newbie"))

			uid, _ := claims.UserID()
			created := mockRepo.byID[uid]
			gomega.Expect(created.IsActive).To(gomega.BeTrue())
			gomega.Expect(created.IsAdmin).To(gomega.BeFalse())
			gomega.Expect(created.PasswordHash).ToNot(gomega.Equal("secret1"))
		})

		ginkgo.It("should reject a taken username with a conflict", func() {
			_, err := service.Register(ctx, RegisterDTO{Username: "demo", Password: "secret1"})
			gomega.Expect(err).To(gomega.MatchError(errors.ErrUsernameTaken))
		})

		ginkgo.It("should reject short passwords", func() {
			_, err := service.Register(ctx, RegisterDTO{Username: "newbie", Password: "123"})
			appErr, ok := errors.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.StatusCode).To(gomega.Equal(http.StatusBadRequest))
			gomega.Expect(appErr.GetDetailedMessage()).To(gomega.ContainSubstring("password"))
		})
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.Context("when credentials are valid", func() {
			ginkgo.It("should return a token whose subject is the user id", func() {
				// When
				tokens, err := service.Authenticate(ctx, LoginDTO{Username: "admin", Password: "correct_password"})

				// Then
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				claims, err := service.ValidateAccessToken(tokens.AccessToken)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(claims.Subject).To(gomega.Equal("2"))
				gomega.Expect(claims.ExpiresAt.Time).To(gomega.BeTemporally("~", time.Now().Add(60*time.Minute), 5*time.Second))
			})
		})

		ginkgo.Context("when credentials are invalid", func() {
			ginkgo.It("should return ErrInvalidCredentials for an unknown user", func() {
				_, err := service.Authenticate(ctx, LoginDTO{Username: "ghost", Password: "whatever"})
				gomega.Expect(err).To(gomega.MatchError(errors.ErrInvalidCredentials))
			})

			ginkgo.It("should return ErrInvalidCredentials for a wrong password", func() {
				_, err := service.Authenticate(ctx, LoginDTO{Username: "demo", Password: "wrong_password"})
				gomega.Expect(err).To(gomega.MatchError(errors.ErrInvalidCredentials))
			})

			ginkgo.It("should require both fields", func() {
				_, err := service.Authenticate(ctx, LoginDTO{Username: "demo"})
				appErr, ok := errors.IsAppError(err)
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(appErr.Type).To(gomega.Equal(errors.ErrorTypeValidation))
			})
		})

		ginkgo.It("should forbid inactive accounts once the password matches", func() {
			_, err := service.Authenticate(ctx, LoginDTO{Username: "sleepy", Password: "correct_password"})
			gomega.Expect(err).To(gomega.MatchError(errors.ErrUserInactive))

			_, err = service.Authenticate(ctx, LoginDTO{Username: "sleepy", Password: "nope_nope"})
			gomega.Expect(err).To(gomega.MatchError(errors.ErrInvalidCredentials))
		})
	})

	ginkgo.Describe("ValidateAccessToken", func() {
		ginkgo.It("should report expired tokens", func() {
			tokenGen.Now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
			token, err := tokenGen.GenerateAccessToken(1, "demo")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			tokenGen.Now = time.Now

			_, err = service.ValidateAccessToken(token)
			gomega.Expect(err).To(gomega.MatchError(errors.ErrTokenExpired))
		})

		ginkgo.It("should reject tokens signed with another secret", func() {
			other := NewJWTTokenGenerator("another-secret-that-is-32-bytes-long!!", time.Hour)
			token, _ := other.GenerateAccessToken(1, "demo")

			_, err := service.ValidateAccessToken(token)
			gomega.Expect(err).To(gomega.MatchError(errors.ErrInvalidToken))
		})

		ginkgo.It("should reject unsigned tokens", func() {
			claims := &Claims{Username: "demo", RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}}
			token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(token)
			gomega.Expect(err).To(gomega.MatchError(errors.ErrInvalidToken))
		})
	})

	ginkgo.Describe("GetPrincipal", func() {
		ginkgo.It("should treat a deleted account as an invalid token", func() {
			_, err := service.GetPrincipal(ctx, 99)
			gomega.Expect(err).To(gomega.MatchError(errors.ErrInvalidToken))
		})

		ginkgo.It("should forbid deactivated accounts", func() {
			_, err := service.GetPrincipal(ctx, 3)
			gomega.Expect(err).To(gomega.MatchError(errors.ErrUserInactive))
		})
	})

	ginkgo.Describe("Middleware", func() {
		var (
			handler *Handler
			rbac    *RBACAuthorization
			reached bool
			final   http.Handler
		)

		ginkgo.BeforeEach(func() {
			handler = NewHandler(service)
			rbac = NewRBACAuthorization(nil)
			reached = false
			final = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				u, ok := UserFromContext(r.Context())
				gomega.Expect(ok).To(gomega.BeTrue())
				w.Write([]byte(strconv.FormatInt(u.ID, 10)))
			})
		})

		request := func(token string) *http.Request {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			return req
		}

		ginkgo.It("should return 401 without a token", func() {
			w := httptest.NewRecorder()
			handler.AuthMiddleware(final).ServeHTTP(w, request(""))
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(reached).To(gomega.BeFalse())
		})

		ginkgo.It("should return 403 with no user data for non-admins", func() {
			token, _ := tokenGen.GenerateAccessToken(1, "demo")
			w := httptest.NewRecorder()
			handler.AuthMiddleware(rbac.RequireAdmin()(final)).ServeHTTP(w, request(token))

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(reached).To(gomega.BeFalse())
			gomega.Expect(w.Body.String()).To(gomega.ContainSubstring(`"detail"`))
			gomega.Expect(w.Body.String()).ToNot(gomega.ContainSubstring("username"))
		})

		ginkgo.It("should let admins through", func() {
			token, _ := tokenGen.GenerateAccessToken(2, "admin")
			w := httptest.NewRecorder()
			handler.AuthMiddleware(rbac.RequireAdmin()(final)).ServeHTTP(w, request(token))

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(w.Body.String()).To(gomega.Equal("2"))
		})
	})
})
