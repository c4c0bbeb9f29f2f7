package postgres

import (
	"context"
	stderrors "errors"
	"strings"

	"gorm.io/gorm"

	errors "github.com/frahmantamala/finance-dashboard/internal"
	txDatamodel "github.com/frahmantamala/finance-dashboard/internal/core/datamodel/transaction"
	"github.com/frahmantamala/finance-dashboard/internal/transaction"
)

// fingerprintChunk keeps IN lists well below driver parameter limits.
const fingerprintChunk = 500

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) transaction.RepositoryAPI {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, t *txDatamodel.Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *Repository) CreateBatch(ctx context.Context, rows []*txDatamodel.Transaction) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, 200).Error
}

func (r *Repository) GetByID(ctx context.Context, userID, id int64) (*txDatamodel.Transaction, error) {
	var t txDatamodel.Transaction
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&t).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *Repository) Update(ctx context.Context, t *txDatamodel.Transaction) error {
	result := r.db.WithContext(ctx).Model(&txDatamodel.Transaction{}).
		Where("id = ? AND user_id = ?", t.ID, t.UserID).
		Updates(map[string]interface{}{
			"date":        t.Date,
			"amount":      t.Amount,
			"currency":    t.Currency,
			"description": t.Description,
			"merchant":    t.Merchant,
			"category":    t.Category,
			"fingerprint": t.Fingerprint,
			"updated_at":  t.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.ErrTransactionNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, userID, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&txDatamodel.Transaction{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.ErrTransactionNotFound
	}
	return nil
}

func (r *Repository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&txDatamodel.Transaction{})
	return result.RowsAffected, result.Error
}

func (r *Repository) DeleteByIDs(ctx context.Context, userID int64, ids []int64) (int64, error) {
	var total int64
	for start := 0; start < len(ids); start += fingerprintChunk {
		end := min(start+fingerprintChunk, len(ids))
		result := r.db.WithContext(ctx).
			Where("user_id = ? AND id IN ?", userID, ids[start:end]).
			Delete(&txDatamodel.Transaction{})
		if result.Error != nil {
			return total, result.Error
		}
		total += result.RowsAffected
	}
	return total, nil
}

func (r *Repository) List(ctx context.Context, userID int64, filter transaction.Filter) ([]*txDatamodel.Transaction, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)

	if filter.Query != "" {
		query = query.Where("LOWER(description) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(filter.Query))+"%")
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.MinAmount != nil {
		query = query.Where("amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("amount <= ?", *filter.MaxAmount)
	}
	if filter.FromDate != nil {
		query = query.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("date <= ?", *filter.ToDate)
	}

	var rows []*txDatamodel.Transaction
	err := query.Order("date DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

func (r *Repository) ListFingerprints(ctx context.Context, userID int64) ([]transaction.FingerprintRow, error) {
	var rows []transaction.FingerprintRow
	err := r.db.WithContext(ctx).Model(&txDatamodel.Transaction{}).
		Select("id", "fingerprint").
		Where("user_id = ?", userID).
		Order("id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) CountByFingerprints(ctx context.Context, userID int64, fingerprints []string) (map[string]int, error) {
	counts := make(map[string]int)
	for start := 0; start < len(fingerprints); start += fingerprintChunk {
		end := min(start+fingerprintChunk, len(fingerprints))

		var rows []struct {
			Fingerprint string
			Count       int
		}
		err := r.db.WithContext(ctx).Model(&txDatamodel.Transaction{}).
			Select("fingerprint, COUNT(*) AS count").
			Where("user_id = ? AND fingerprint IN ?", userID, fingerprints[start:end]).
			Group("fingerprint").
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			counts[row.Fingerprint] = row.Count
		}
	}
	return counts, nil
}

func (r *Repository) WithinTx(ctx context.Context, userID int64, fn func(repo transaction.RepositoryAPI) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", userID).Error; err != nil {
				return err
			}
		}
		return fn(&Repository{db: tx})
	})
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
