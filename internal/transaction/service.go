package transaction

import (
	"context"
	"fmt"
	"log/slog"

	txDatamodel "github.com/frahmantamala/finance-dashboard/internal/core/datamodel/transaction"
	"github.com/frahmantamala/finance-dashboard/internal/core/events"
	"github.com/frahmantamala/finance-dashboard/internal/plausibility"
)

// FingerprintRow is the projection used to find duplicate bookings.
type FingerprintRow struct {
	ID          int64
	Fingerprint string
}

// RepositoryAPI is scoped by user id on every call; rows of other accounts are
// never visible.
type RepositoryAPI interface {
	Create(ctx context.Context, t *txDatamodel.Transaction) error
	CreateBatch(ctx context.Context, rows []*txDatamodel.Transaction) error
	GetByID(ctx context.Context, userID, id int64) (*txDatamodel.Transaction, error)
	Update(ctx context.Context, t *txDatamodel.Transaction) error
	Delete(ctx context.Context, userID, id int64) error
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
	DeleteByIDs(ctx context.Context, userID int64, ids []int64) (int64, error)
	List(ctx context.Context, userID int64, filter Filter) ([]*txDatamodel.Transaction, error)
	ListFingerprints(ctx context.Context, userID int64) ([]FingerprintRow, error)
	// CountByFingerprints returns how many stored rows carry each fingerprint.
	// Fingerprints without rows are absent from the map.
	CountByFingerprints(ctx context.Context, userID int64, fingerprints []string) (map[string]int, error)
	// WithinTx runs fn in one database transaction holding the account's
	// advisory lock where the database supports it.
	WithinTx(ctx context.Context, userID int64, fn func(repo RepositoryAPI) error) error
}

type ServiceAPI interface {
	List(ctx context.Context, userID int64, filter Filter) ([]*Transaction, error)
	Create(ctx context.Context, userID int64, dto CreateTransactionDTO) (*CreateResult, error)
	Update(ctx context.Context, userID, id int64, dto UpdateTransactionDTO) (*Transaction, error)
	Delete(ctx context.Context, userID, id int64) error
	DeleteDuplicates(ctx context.Context, userID int64) (int64, error)
}

// AccountStore is the write path bulk writers such as the importer go through.
type AccountStore interface {
	WithinAccount(ctx context.Context, userID int64, fn func(repo RepositoryAPI) error) error
}

type CreateResult struct {
	Transaction *Transaction
	Issues      []plausibility.Issue
}

type Service struct {
	repo      RepositoryAPI
	locker    *AccountLocker
	checker   *plausibility.Checker
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, locker *AccountLocker, checker *plausibility.Checker, publisher events.Publisher, logger *slog.Logger) *Service {
	if locker == nil {
		locker = NewAccountLocker()
	}
	if checker == nil {
		checker = plausibility.NewChecker(plausibility.Config{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		locker:    locker,
		checker:   checker,
		publisher: publisher,
		logger:    logger,
	}
}

// WithinAccount holds the account lock and a database transaction while fn runs.
func (s *Service) WithinAccount(ctx context.Context, userID int64, fn func(repo RepositoryAPI) error) error {
	unlock := s.locker.Lock(userID)
	defer unlock()
	return s.repo.WithinTx(ctx, userID, fn)
}

func (s *Service) List(ctx context.Context, userID int64, filter Filter) ([]*Transaction, error) {
	rows, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		s.logger.Error("failed to list transactions", "error", err, "user_id", userID)
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return FromDataModelSlice(rows), nil
}

func (s *Service) Create(ctx context.Context, userID int64, dto CreateTransactionDTO) (*CreateResult, error) {
	t, err := dto.ToTransaction(userID)
	if err != nil {
		return nil, err
	}

	issues := s.checker.Check(plausibility.Candidate{Date: t.Date, Amount: t.Amount, Category: t.Category})

	row := ToDataModel(t)
	err = s.WithinAccount(ctx, userID, func(repo RepositoryAPI) error {
		return repo.Create(ctx, row)
	})
	if err != nil {
		s.logger.Error("failed to create transaction", "error", err, "user_id", userID)
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	created := FromDataModel(row)
	s.logger.Info("transaction created",
		"transaction_id", created.ID,
		"user_id", userID,
		"issues", len(issues))

	s.publish(ctx, events.NewTransactionCreatedEvent(created.ID, userID, created.Amount.StringFixed(2)))

	return &CreateResult{Transaction: created, Issues: issues}, nil
}

func (s *Service) Update(ctx context.Context, userID, id int64, dto UpdateTransactionDTO) (*Transaction, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var updated *Transaction
	err := s.WithinAccount(ctx, userID, func(repo RepositoryAPI) error {
		row, err := repo.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		t := FromDataModel(row)
		if err := dto.Apply(t); err != nil {
			return err
		}
		next := ToDataModel(t)
		if err := repo.Update(ctx, next); err != nil {
			return err
		}
		updated = FromDataModel(next)
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to update transaction", "error", err, "transaction_id", id, "user_id", userID)
		return nil, err
	}

	s.logger.Info("transaction updated", "transaction_id", id, "user_id", userID)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	err := s.WithinAccount(ctx, userID, func(repo RepositoryAPI) error {
		return repo.Delete(ctx, userID, id)
	})
	if err != nil {
		s.logger.Warn("failed to delete transaction", "error", err, "transaction_id", id, "user_id", userID)
		return err
	}
	s.logger.Info("transaction deleted", "transaction_id", id, "user_id", userID)
	return nil
}

// DeleteDuplicates keeps the lowest id of every fingerprint and removes the rest.
func (s *Service) DeleteDuplicates(ctx context.Context, userID int64) (int64, error) {
	var deleted int64
	err := s.WithinAccount(ctx, userID, func(repo RepositoryAPI) error {
		rows, err := repo.ListFingerprints(ctx, userID)
		if err != nil {
			return err
		}
		ids := RedundantIDs(rows)
		if len(ids) == 0 {
			return nil
		}
		deleted, err = repo.DeleteByIDs(ctx, userID, ids)
		return err
	})
	if err != nil {
		s.logger.Error("failed to delete duplicate transactions", "error", err, "user_id", userID)
		return 0, fmt.Errorf("delete duplicates: %w", err)
	}
	s.logger.Info("duplicate transactions deleted", "user_id", userID, "deleted", deleted)
	return deleted, nil
}

// DeleteAllForUser removes every transaction of a deleted account.
func (s *Service) DeleteAllForUser(ctx context.Context, userID int64) (int64, error) {
	var deleted int64
	err := s.WithinAccount(ctx, userID, func(repo RepositoryAPI) error {
		var err error
		deleted, err = repo.DeleteByUser(ctx, userID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete transactions of user %d: %w", userID, err)
	}
	return deleted, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

// RedundantIDs returns every id that is not the lowest of its fingerprint.
func RedundantIDs(rows []FingerprintRow) []int64 {
	keep := make(map[string]int64, len(rows))
	for _, r := range rows {
		if cur, ok := keep[r.Fingerprint]; !ok || r.ID < cur {
			keep[r.Fingerprint] = r.ID
		}
	}
	var ids []int64
	for _, r := range rows {
		if keep[r.Fingerprint] != r.ID {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
