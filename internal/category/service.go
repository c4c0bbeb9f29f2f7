package category

import (
	"context"
	"log/slog"

	errors "github.com/frahmantamala/finance-dashboard/internal"
)

// RepositoryAPI reads labels from the caller's transactions.
type RepositoryAPI interface {
	ListInUse(ctx context.Context, userID int64) ([]*Category, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// GetCategories returns the user's distinct non-empty labels in name order,
// each with the number of transactions carrying it.
func (s *Service) GetCategories(ctx context.Context, userID int64) ([]CategoryResponse, error) {
	categories, err := s.repo.ListInUse(ctx, userID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list categories", err)
	}

	out := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		out[i] = c.ToResponse()
	}
	s.logger.DebugContext(ctx, "CategoryService: listed", "user_id", userID, "count", len(out))
	return out, nil
}
