package postgres

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	errors "github.com/frahmantamala/finance-dashboard/internal"
	"github.com/frahmantamala/finance-dashboard/internal/auth"
	userDatamodel "github.com/frahmantamala/finance-dashboard/internal/core/datamodel/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) auth.RepositoryAPI {
	return &Repository{db: db}
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts u, reporting an existing username as ErrUsernameTaken.
func (r *Repository) Create(ctx context.Context, u *userDatamodel.User) error {
	return CreateUser(r.db.WithContext(ctx), u)
}

// CreateUser is shared with the admin user repository.
func CreateUser(db *gorm.DB, u *userDatamodel.User) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userDatamodel.User{}).Where("username = ?", u.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errors.ErrUsernameTaken
		}
		if err := tx.Create(u).Error; err != nil {
			if isUniqueViolation(err) {
				return errors.ErrUsernameTaken
			}
			return err
		}
		return nil
	})
}

// isUniqueViolation catches the registration that loses a race past the
// count check. gorm reports it as ErrDuplicatedKey when TranslateError is on;
// otherwise the raw postgres error carries SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == "23505"
}
