package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/zeloura/api/internal/models"
)

// SortOption orders an approved-review listing.
type SortOption string

const (
	SortNewest  SortOption = "newest"
	SortOldest  SortOption = "oldest"
	SortHighest SortOption = "highest"
	SortLowest  SortOption = "lowest"
	SortHelpful SortOption = "helpful"
)

// FilterOption narrows an approved-review listing.
type FilterOption string

const (
	FilterAll      FilterOption = "all"
	FilterVerified FilterOption = "verified"
	FilterPhotos   FilterOption = "photos"
	// "5".."1" select an exact star rating.
)

// Store holds the locally cached review set, kept current by the reviews
// collection subscription, and provides read projections plus mutation
// entry points. The remote collection stays the source of truth; the cache
// is a read-through mirror refreshed asynchronously.
//
// All cache mutations funnel through a single apply goroutine plus the
// post-success branches of the mutation methods, with an RWMutex guarding
// concurrent access.
type Store struct {
	repo   models.ReviewsRepo
	logger *slog.Logger

	mu      sync.RWMutex
	reviews map[primitive.ObjectID]models.Review

	events chan models.ReviewEvent
}

func New(repo models.ReviewsRepo, logger *slog.Logger) *Store {
	return &Store{
		repo:    repo,
		logger:  logger,
		reviews: make(map[primitive.ObjectID]models.Review),
		events:  make(chan models.ReviewEvent, 64),
	}
}

// Start loads the initial snapshot and begins consuming the change
// subscription. It returns once the snapshot is applied; the subscription
// runs until ctx is cancelled.
func (s *Store) Start(ctx context.Context) error {
	snapshot, err := s.repo.ListReviews(ctx)
	if err != nil {
		return fmt.Errorf("failed to load review snapshot: %w", err)
	}

	s.mu.Lock()
	for _, r := range snapshot {
		s.reviews[r.ID] = *r
	}
	s.mu.Unlock()

	s.logger.Info("Review store snapshot loaded", "count", len(snapshot))

	go s.applyLoop(ctx)
	go s.watch(ctx)

	return nil
}

func (s *Store) watch(ctx context.Context) {
	err := s.repo.WatchReviews(ctx, func(ev models.ReviewEvent) {
		select {
		case s.events <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		s.logger.Error("Review subscription terminated", "error", err)
	}
}

func (s *Store) applyLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			s.apply(ev)
		}
	}
}

func (s *Store) apply(ev models.ReviewEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case models.ReviewEventUpsert:
		if ev.Review != nil {
			s.reviews[ev.ReviewID] = *ev.Review
		}
	case models.ReviewEventDelete:
		delete(s.reviews, ev.ReviewID)
	}
}

// Get returns the cached review with the given id.
func (s *Store) Get(reviewId primitive.ObjectID) (models.Review, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[reviewId]
	return r, ok
}

// ReviewsForProduct lists the shopper-facing reviews for a product. Only
// approved reviews are ever included, whatever sort or filter applies.
func (s *Store) ReviewsForProduct(productId string, sortBy SortOption, filterBy FilterOption) []models.Review {
	s.mu.RLock()
	var out []models.Review
	for _, r := range s.reviews {
		if r.ProductID != productId || !r.Visible() {
			continue
		}
		if !matchesFilter(r, filterBy) {
			continue
		}
		out = append(out, r)
	}
	s.mu.RUnlock()

	applySort(out, sortBy)
	return out
}

// ReviewsForModeration returns the moderation queue: pending and flagged
// reviews when no status filter is given, or exactly the given status.
func (s *Store) ReviewsForModeration(statusFilter models.ReviewStatus) []models.Review {
	s.mu.RLock()
	var out []models.Review
	for _, r := range s.reviews {
		if statusFilter != "" {
			if r.Status == statusFilter {
				out = append(out, r)
			}
			continue
		}
		if r.Status == models.ReviewStatusPending || r.Status == models.ReviewStatusFlagged {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	applySort(out, SortNewest)
	return out
}

// Stats aggregates across all cached reviews regardless of status. Used by
// the admin dashboard, distinct from the per-product Summary.
func (s *Store) Stats() ReviewStats {
	return Tally(s.snapshot())
}

// Summary computes the per-product rating aggregate from approved reviews.
func (s *Store) Summary(productId string) ReviewSummary {
	return Summarize(s.snapshot(), productId)
}

func (s *Store) snapshot() []models.Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Review, 0, len(s.reviews))
	for _, r := range s.reviews {
		out = append(out, r)
	}
	return out
}

// Submit validates and persists a new pending review. Nothing is applied
// locally: the review reaches the cache through the next subscription push,
// so a persistence failure needs no rollback.
func (s *Store) Submit(ctx context.Context, review *models.Review) error {
	review.Sanitize()
	if err := review.ValidateDraft(); err != nil {
		return err
	}
	return s.repo.InsertReview(ctx, review)
}

// MarkHelpful increments the helpful counter remotely, then optimistically
// in the cache. The remote increment is commutative, so the optimistic
// local bump cannot overshoot what the next snapshot will report.
func (s *Store) MarkHelpful(ctx context.Context, reviewId primitive.ObjectID) error {
	if err := s.repo.IncrementHelpful(ctx, reviewId); err != nil {
		return err
	}

	s.mu.Lock()
	if r, ok := s.reviews[reviewId]; ok {
		r.HelpfulCount++
		s.reviews[reviewId] = r
	}
	s.mu.Unlock()

	return nil
}

// Moderate transitions a review's status. The remote update is issued
// first; the cache is only touched after confirmed success, so a failed
// call leaves local state unchanged until the next subscription snapshot
// heals any divergence. The cached version token makes a concurrent
// moderation by another admin surface as models.ErrVersionConflict.
func (s *Store) Moderate(ctx context.Context, reviewId primitive.ObjectID, action models.ModerationAction, moderatorId, note string) (models.Review, error) {
	target, err := action.TargetStatus()
	if err != nil {
		return models.Review{}, err
	}

	cached, ok := s.Get(reviewId)
	if !ok {
		return models.Review{}, models.ErrReviewNotFound
	}

	updated, err := s.repo.UpdateStatus(ctx, reviewId, target, moderatorId, note, cached.Version)
	if err != nil {
		return models.Review{}, err
	}

	s.mu.Lock()
	s.reviews[reviewId] = *updated
	s.mu.Unlock()

	return *updated, nil
}

// AddReply appends an admin reply remotely, then mirrors the append into
// the cache. Existing replies are never reordered or removed.
func (s *Store) AddReply(ctx context.Context, reviewId primitive.ObjectID, reply models.AdminReply) error {
	if err := s.repo.PushReply(ctx, reviewId, reply); err != nil {
		return err
	}

	s.mu.Lock()
	if r, ok := s.reviews[reviewId]; ok {
		r.AdminReplies = append(r.AdminReplies, reply)
		s.reviews[reviewId] = r
	}
	s.mu.Unlock()

	return nil
}

// AddFlag appends a shopper report to the review's flag list. Reporting
// never changes the review's status; that stays an admin moderation action.
func (s *Store) AddFlag(ctx context.Context, reviewId primitive.ObjectID, flag models.ReviewFlag) error {
	if err := s.repo.PushFlag(ctx, reviewId, flag); err != nil {
		return err
	}

	s.mu.Lock()
	if r, ok := s.reviews[reviewId]; ok {
		r.Flags = append(r.Flags, flag)
		s.reviews[reviewId] = r
	}
	s.mu.Unlock()

	return nil
}

func matchesFilter(r models.Review, filterBy FilterOption) bool {
	switch filterBy {
	case "", FilterAll:
		return true
	case FilterVerified:
		return r.IsVerifiedPurchase
	case FilterPhotos:
		return len(r.Images) > 0
	default:
		if star, err := strconv.Atoi(string(filterBy)); err == nil {
			return r.Rating == star
		}
		return true
	}
}

func applySort(reviews []models.Review, sortBy SortOption) {
	less := func(a, b models.Review) bool {
		return a.CreatedAt.After(b.CreatedAt)
	}

	switch sortBy {
	case SortOldest:
		less = func(a, b models.Review) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortHighest:
		less = func(a, b models.Review) bool {
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
	case SortLowest:
		less = func(a, b models.Review) bool {
			if a.Rating != b.Rating {
				return a.Rating < b.Rating
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
	case SortHelpful:
		less = func(a, b models.Review) bool {
			if a.HelpfulCount != b.HelpfulCount {
				return a.HelpfulCount > b.HelpfulCount
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
	}

	sort.SliceStable(reviews, func(i, j int) bool { return less(reviews[i], reviews[j]) })
}
