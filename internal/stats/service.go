package stats

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/finance-dashboard/internal/transaction"
)

// TransactionLister is the read side of the transaction store.
type TransactionLister interface {
	List(ctx context.Context, userID int64, filter transaction.Filter) ([]*transaction.Transaction, error)
}

type ServiceAPI interface {
	MonthlyByCategory(ctx context.Context, userID int64, year *int) ([]MonthlyCategory, error)
	Summary(ctx context.Context, userID int64, filter transaction.Filter) (Summary, error)
}

type Service struct {
	transactions TransactionLister
	logger       *slog.Logger
}

func NewService(transactions TransactionLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{transactions: transactions, logger: logger}
}

// MonthlyByCategory aggregates every transaction of the user, or only those
// dated in year when it is set.
func (s *Service) MonthlyByCategory(ctx context.Context, userID int64, year *int) ([]MonthlyCategory, error) {
	filter := transaction.Filter{}
	if year != nil {
		var err error
		if filter, err = transaction.YearFilter(*year); err != nil {
			return nil, err
		}
	}

	txs, err := s.transactions.List(ctx, userID, filter)
	if err != nil {
		s.logger.Error("failed to load transactions for aggregation", "error", err, "user_id", userID)
		return nil, err
	}

	result := MonthlyByCategory(txs)
	s.logger.Debug("monthly category aggregate computed", "user_id", userID, "groups", len(result))
	return result, nil
}

func (s *Service) Summary(ctx context.Context, userID int64, filter transaction.Filter) (Summary, error) {
	txs, err := s.transactions.List(ctx, userID, filter)
	if err != nil {
		s.logger.Error("failed to load transactions for summary", "error", err, "user_id", userID)
		return Summary{}, err
	}
	return Summarize(txs), nil
}
