// Package query implements the read side of the risk service.
package query

import (
	"context"

	"github.com/UmangBid/SagaPay/components/risk/internal/adapters/postgres/review"
)

// UseCase aggregates the repositories needed for risk reads.
type UseCase struct {
	ReviewRepo review.Repository
}

// ListPendingReviews returns the manual review queue, oldest first.
func (uc *UseCase) ListPendingReviews(ctx context.Context, limit int) ([]review.Review, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return uc.ReviewRepo.ListByStatus(ctx, review.StatusPending, limit)
}
