package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/zeloura/api/internal/models"
	"github.com/zeloura/api/internal/store"
)

// ErrNotAuthorized is returned when a principal lacks the permission an
// admin operation requires. It is detected before any remote call.
var ErrNotAuthorized = errors.New("not authorized for this action")

var moderationActions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "zeloura_moderation_actions_total",
		Help: "Moderation decisions by action and outcome.",
	},
	[]string{"action", "outcome"},
)

// ModerationService owns the admin side of the review subsystem: the
// moderation queue, status transitions, admin replies and dashboard stats.
type ModerationService struct {
	store     *store.Store
	admins    models.AdminRepo
	summaries *store.SummaryCache
	logger    *slog.Logger
}

func NewModerationService(reviewStore *store.Store, admins models.AdminRepo, summaries *store.SummaryCache, logger *slog.Logger) *ModerationService {
	return &ModerationService{
		store:     reviewStore,
		admins:    admins,
		summaries: summaries,
		logger:    logger,
	}
}

// ResolveAdmin loads the admin principal for an authenticated subject and
// touches its last-login timestamp.
func (ms *ModerationService) ResolveAdmin(ctx context.Context, adminId string) (*models.AdminUser, error) {
	admin, err := ms.admins.GetAdminByID(ctx, adminId)
	if err != nil {
		return nil, err
	}

	if err := ms.admins.TouchLastLogin(ctx, adminId); err != nil {
		ms.logger.Warn("Failed to touch admin last login", "admin_id", adminId, "error", err)
	}

	return admin, nil
}

// Queue returns the moderation queue: pending and flagged reviews by
// default, or exactly the requested status.
func (ms *ModerationService) Queue(statusFilter string) ([]models.Review, error) {
	switch models.ReviewStatus(statusFilter) {
	case "", models.ReviewStatusPending, models.ReviewStatusApproved,
		models.ReviewStatusRejected, models.ReviewStatusFlagged:
	default:
		return nil, fmt.Errorf("unknown review status: %q", statusFilter)
	}

	return ms.store.ReviewsForModeration(models.ReviewStatus(statusFilter)), nil
}

// Stats aggregates all reviews for the admin dashboard.
func (ms *ModerationService) Stats() store.ReviewStats {
	return ms.store.Stats()
}

// Moderate applies an admin decision to a review. The admin must hold the
// moderate grant on reviews; re-applying the same action is legal and
// leaves the status unchanged. A concurrent decision by another admin
// surfaces as models.ErrVersionConflict instead of being silently lost.
func (ms *ModerationService) Moderate(ctx context.Context, admin *models.AdminUser, reviewId string, action models.ModerationAction, note string) (models.Review, error) {
	if !admin.HasPermission(models.ResourceReviews, models.ActionModerate) {
		ms.logger.Warn("Moderation denied",
			"admin_id", admin.ID,
			"role", admin.Role,
			"review_id", reviewId,
		)
		moderationActions.WithLabelValues(string(action), "denied").Inc()
		return models.Review{}, ErrNotAuthorized
	}

	id, err := primitive.ObjectIDFromHex(reviewId)
	if err != nil {
		return models.Review{}, fmt.Errorf("invalid review ID format")
	}

	review, err := ms.store.Moderate(ctx, id, action, admin.ID, note)
	if err != nil {
		ms.logger.Error("Moderation failed",
			"admin_id", admin.ID,
			"review_id", reviewId,
			"action", action,
			"error", err,
		)
		moderationActions.WithLabelValues(string(action), "error").Inc()
		return models.Review{}, err
	}

	moderationActions.WithLabelValues(string(action), "ok").Inc()

	// The approved set for this product may have changed; drop the cached
	// summary so the next read recomputes it.
	ms.invalidateSummary(ctx, review.ProductID)

	return review, nil
}

// Reply appends a staff reply to a review. Replies are allowed at any point
// after creation, regardless of moderation status, and are append-only.
func (ms *ModerationService) Reply(ctx context.Context, admin *models.AdminUser, reviewId, message string) (*models.AdminReply, error) {
	if !admin.HasPermission(models.ResourceReviews, models.ActionWrite) {
		ms.logger.Warn("Reply denied",
			"admin_id", admin.ID,
			"role", admin.Role,
			"review_id", reviewId,
		)
		return nil, ErrNotAuthorized
	}

	id, err := primitive.ObjectIDFromHex(reviewId)
	if err != nil {
		return nil, fmt.Errorf("invalid review ID format")
	}

	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("reply message cannot be empty")
	}

	reply := models.AdminReply{
		ID:        uuid.New().String(),
		AdminID:   admin.ID,
		AdminName: admin.Name,
		AdminRole: string(admin.Role),
		Message:   strings.TrimSpace(message),
		CreatedAt: time.Now(),
	}

	if err := ms.store.AddReply(ctx, id, reply); err != nil {
		ms.logger.Error("Failed to append admin reply",
			"admin_id", admin.ID,
			"review_id", reviewId,
			"error", err,
		)
		return nil, err
	}

	return &reply, nil
}

func (ms *ModerationService) invalidateSummary(ctx context.Context, productId string) {
	if ms.summaries == nil {
		return
	}
	if err := ms.summaries.Invalidate(ctx, productId); err != nil {
		ms.logger.Warn("Summary cache invalidation failed", "product_id", productId, "error", err)
	}
}
