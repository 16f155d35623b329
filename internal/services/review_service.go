package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/zeloura/api/internal/models"
	"github.com/zeloura/api/internal/store"
)

// ReviewService is the shopper-facing entry point: submitting reviews,
// listing approved reviews, rating summaries, helpful votes and reports.
type ReviewService struct {
	store     *store.Store
	summaries *store.SummaryCache
	logger    *slog.Logger
}

func NewReviewService(reviewStore *store.Store, summaries *store.SummaryCache, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		store:     reviewStore,
		summaries: summaries,
		logger:    logger,
	}
}

// Submit validates and persists a new review. The review enters moderation
// as pending and stays invisible to shoppers until approved.
func (rs *ReviewService) Submit(ctx context.Context, review *models.Review) error {
	if err := rs.store.Submit(ctx, review); err != nil {
		rs.logger.Error("Failed to submit review",
			"product_id", review.ProductID,
			"user_id", review.UserID,
			"error", err,
		)
		return err
	}

	return nil
}

// ListForProduct returns the approved reviews for a product with the
// requested ordering and filter applied.
func (rs *ReviewService) ListForProduct(productId string, sortBy store.SortOption, filterBy store.FilterOption) ([]models.Review, error) {
	if strings.TrimSpace(productId) == "" {
		return nil, fmt.Errorf("product ID cannot be empty")
	}

	return rs.store.ReviewsForProduct(productId, sortBy, filterBy), nil
}

// Summary returns the per-product rating aggregate, read through the Redis
// cache when one is configured. A cache failure falls back to the pure
// computation so the product page never breaks on Redis being down.
func (rs *ReviewService) Summary(ctx context.Context, productId string) (store.ReviewSummary, error) {
	if strings.TrimSpace(productId) == "" {
		return store.ReviewSummary{}, fmt.Errorf("product ID cannot be empty")
	}

	if rs.summaries != nil {
		cached, err := rs.summaries.Get(ctx, productId)
		if err != nil {
			rs.logger.Warn("Summary cache read failed", "product_id", productId, "error", err)
		} else if cached != nil {
			return *cached, nil
		}
	}

	summary := rs.store.Summary(productId)

	if rs.summaries != nil {
		if err := rs.summaries.Set(ctx, summary); err != nil {
			rs.logger.Warn("Summary cache write failed", "product_id", productId, "error", err)
		}
	}

	return summary, nil
}

// MarkHelpful records one helpful vote. The counter only ever increases.
func (rs *ReviewService) MarkHelpful(ctx context.Context, reviewId string) error {
	id, err := primitive.ObjectIDFromHex(reviewId)
	if err != nil {
		return fmt.Errorf("invalid review ID format")
	}

	if err := rs.store.MarkHelpful(ctx, id); err != nil {
		rs.logger.Error("Failed to mark review helpful", "review_id", reviewId, "error", err)
		return err
	}

	return nil
}

// Report appends a shopper flag to a review. The flag list is append-only
// and reporting does not change the review's status.
func (rs *ReviewService) Report(ctx context.Context, reviewId, reason, reportedBy string) error {
	id, err := primitive.ObjectIDFromHex(reviewId)
	if err != nil {
		return fmt.Errorf("invalid review ID format")
	}

	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("report reason cannot be empty")
	}
	if strings.TrimSpace(reportedBy) == "" {
		return fmt.Errorf("reporter is required")
	}

	flag := models.ReviewFlag{
		Reason:     strings.TrimSpace(reason),
		ReportedBy: reportedBy,
		CreatedAt:  time.Now(),
	}

	if err := rs.store.AddFlag(ctx, id, flag); err != nil {
		rs.logger.Error("Failed to report review", "review_id", reviewId, "error", err)
		return err
	}

	return nil
}
