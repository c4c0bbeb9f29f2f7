package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/frahmantamala/finance-dashboard/internal"
	txDatamodel "github.com/frahmantamala/finance-dashboard/internal/core/datamodel/transaction"
	"github.com/frahmantamala/finance-dashboard/internal/core/events"
	"github.com/frahmantamala/finance-dashboard/internal/transaction"
)

type ServiceAPI interface {
	Import(ctx context.Context, userID int64, r io.Reader, mapping Mapping) (*Result, error)
}

// Result is the import summary returned to the client.
type Result struct {
	Imported          int      `json:"imported"`
	SkippedDuplicates int      `json:"skipped_duplicates"`
	SkippedInvalid    int      `json:"skipped_invalid"`
	Errors            []string `json:"errors"`
}

type Service struct {
	store     transaction.AccountStore
	publisher events.Publisher
	maxErrors int
	logger    *slog.Logger
}

func NewService(store transaction.AccountStore, publisher events.Publisher, cfg internal.ImportConfig, logger *slog.Logger) *Service {
	maxErrors := cfg.MaxRowErrors
	if maxErrors <= 0 {
		maxErrors = internal.DefaultMaxRowErrors
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		publisher: publisher,
		maxErrors: maxErrors,
		logger:    logger,
	}
}

// Import parses the upload and stores every row that is not already present.
// Reconciliation and insert share one database transaction under the account
// lock, so resubmitting the same file concurrently imports it at most once.
func (s *Service) Import(ctx context.Context, userID int64, r io.Reader, mapping Mapping) (*Result, error) {
	parsed, err := Parse(r, mapping, s.maxErrors)
	if err != nil {
		s.logger.Info("import rejected", "user_id", userID, "error", err)
		return nil, err
	}

	candidates := ToTransactions(userID, parsed.Rows, time.Now().UTC())

	result := &Result{
		SkippedInvalid: parsed.Invalid,
		Errors:         parsed.Errors,
	}

	err = s.store.WithinAccount(ctx, userID, func(repo transaction.RepositoryAPI) error {
		existing, err := repo.CountByFingerprints(ctx, userID, uniqueFingerprints(candidates))
		if err != nil {
			return err
		}

		fresh, duplicates := Reconcile(candidates, existing)
		if err := repo.CreateBatch(ctx, fresh); err != nil {
			return err
		}

		result.Imported = len(fresh)
		result.SkippedDuplicates = duplicates
		return nil
	})
	if err != nil {
		s.logger.Error("import failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("import transactions: %w", err)
	}

	s.logger.Info("transactions imported",
		"user_id", userID,
		"imported", result.Imported,
		"skipped_duplicates", result.SkippedDuplicates,
		"skipped_invalid", result.SkippedInvalid)

	if s.publisher != nil {
		event := events.NewTransactionsImportedEvent(userID, result.Imported, result.SkippedDuplicates, result.SkippedInvalid)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
		}
	}

	return result, nil
}

// ToTransactions turns parsed rows into storable entities in file order.
func ToTransactions(userID int64, rows []Row, now time.Time) []*transaction.Transaction {
	out := make([]*transaction.Transaction, len(rows))
	for i, row := range rows {
		t := &transaction.Transaction{
			UserID:      userID,
			Date:        row.Date,
			Amount:      row.Amount,
			Currency:    transaction.DefaultCurrency,
			Description: row.Description,
			Category:    row.Category,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		t.Refingerprint()
		out[i] = t
	}
	return out
}

// Reconcile applies the multiset rule: for a key held F times by the file and
// E times by the store, the last max(0, F-E) rows of the file are fresh and
// min(F, E) are duplicates. File order is preserved.
func Reconcile(candidates []*transaction.Transaction, existing map[string]int) ([]*txDatamodel.Transaction, int) {
	seen := make(map[string]int, len(candidates))
	fresh := make([]*txDatamodel.Transaction, 0, len(candidates))
	duplicates := 0
	for _, t := range candidates {
		seen[t.Fingerprint]++
		if seen[t.Fingerprint] <= existing[t.Fingerprint] {
			duplicates++
			continue
		}
		fresh = append(fresh, transaction.ToDataModel(t))
	}
	return fresh, duplicates
}

func uniqueFingerprints(txs []*transaction.Transaction) []string {
	seen := make(map[string]struct{}, len(txs))
	out := make([]string, 0, len(txs))
	for _, t := range txs {
		if _, ok := seen[t.Fingerprint]; ok {
			continue
		}
		seen[t.Fingerprint] = struct{}{}
		out = append(out, t.Fingerprint)
	}
	return out
}
