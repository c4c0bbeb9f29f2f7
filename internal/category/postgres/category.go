package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/finance-dashboard/internal/category"
)

const listInUseQuery = `
SELECT category AS name, COUNT(*) AS count
FROM transactions
WHERE user_id = ? AND category IS NOT NULL AND category <> ''
GROUP BY category
ORDER BY category`

type CategoryRepository struct {
	db *sqlx.DB
}

func NewCategoryRepository(db *sqlx.DB) category.RepositoryAPI {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) ListInUse(ctx context.Context, userID int64) ([]*category.Category, error) {
	categories := make([]*category.Category, 0)
	err := r.db.SelectContext(ctx, &categories, r.db.Rebind(listInUseQuery), userID)
	return categories, err
}
