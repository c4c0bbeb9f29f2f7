package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	errors "github.com/frahmantamala/finance-dashboard/internal"
	userDatamodel "github.com/frahmantamala/finance-dashboard/internal/core/datamodel/user"
)

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (TokenResponse, error)
	Authenticate(ctx context.Context, dto LoginDTO) (TokenResponse, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	GetPrincipal(ctx context.Context, userID int64) (*User, error)
}

type RepositoryAPI interface {
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(userID int64, username string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type Service struct {
	repo           RepositoryAPI
	tokenGenerator TokenGeneratorAPI
	bcryptCost     int
	logger         *slog.Logger
	// dummyHash is compared against when the username is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash []byte
}

func NewService(repo RepositoryAPI, tokenGen TokenGeneratorAPI, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("unused-password"), bcryptCost)
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
		logger:         logger,
		dummyHash:      dummy,
	}
}

// Register creates an active, non-admin account and returns a token for it.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (TokenResponse, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return TokenResponse{}, err
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return TokenResponse{}, errors.NewInternalError("failed to hash password", err)
	}

	now := time.Now().UTC()
	u := &userDatamodel.User{
		Username:     dto.Username,
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if stderrors.Is(err, errors.ErrUsernameTaken) {
			s.logger.Info("registration rejected: username taken", "username", dto.Username)
			return TokenResponse{}, errors.ErrUsernameTaken
		}
		s.logger.Error("failed to create user", "error", err, "username", dto.Username)
		return TokenResponse{}, errors.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user registered", "user_id", u.ID, "username", u.Username)
	return s.issue(u)
}

// Authenticate checks the password grant. Inactive accounts are only reported
// once the password has matched.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (TokenResponse, error) {
	if err := dto.Validate(); err != nil {
		return TokenResponse{}, err
	}

	u, err := s.repo.GetByUsername(ctx, dto.Username)
	if err != nil {
		if !stderrors.Is(err, errors.ErrUserNotFound) {
			s.logger.Error("failed to load user for login", "error", err)
			return TokenResponse{}, errors.NewInternalError("failed to load user", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(dto.Password))
		return TokenResponse{}, errors.ErrInvalidCredentials
	}

	if err := VerifyPassword(u.PasswordHash, dto.Password); err != nil {
		s.logger.Info("login rejected: password mismatch", "user_id", u.ID)
		return TokenResponse{}, errors.ErrInvalidCredentials
	}

	if !u.IsActive {
		s.logger.Info("login rejected: inactive account", "user_id", u.ID)
		return TokenResponse{}, errors.ErrUserInactive
	}

	return s.issue(u)
}

func (s *Service) issue(u *userDatamodel.User) (TokenResponse, error) {
	token, err := s.tokenGenerator.GenerateAccessToken(u.ID, u.Username)
	if err != nil {
		return TokenResponse{}, errors.NewInternalError("failed to issue token", err)
	}
	return TokenResponse{AccessToken: token, TokenType: TokenTypeBearer}, nil
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString)
}

// GetPrincipal reloads the account behind a token. Deleted accounts make the
// token invalid; deactivated ones are forbidden.
func (s *Service) GetPrincipal(ctx context.Context, userID int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			return nil, errors.ErrInvalidToken
		}
		return nil, errors.NewInternalError("failed to load user", err)
	}
	if !u.IsActive {
		return nil, errors.ErrUserInactive
	}
	return &User{
		ID:       u.ID,
		Username: u.Username,
		IsActive: u.IsActive,
		IsAdmin:  u.IsAdmin,
	}, nil
}

// JWTTokenGenerator issues HS256 access tokens. There are no refresh tokens.
type JWTTokenGenerator struct {
	Secret         []byte
	AccessTokenTTL time.Duration
	Now            func() time.Time
}

func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		Secret:         []byte(secret),
		AccessTokenTTL: ttl,
		Now:            time.Now,
	}
}

func (j *JWTTokenGenerator) GenerateAccessToken(userID int64, username string) (string, error) {
	now := j.Now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.Secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return tokenString, nil
}

func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.Now),
	)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
