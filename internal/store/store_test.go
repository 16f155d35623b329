package store

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/zeloura/api/internal/models"
)

// fakeReviewsRepo is an in-memory stand-in for the Mongo repository with
// the same version-check and append semantics.
type fakeReviewsRepo struct {
	mu      sync.Mutex
	reviews map[primitive.ObjectID]*models.Review

	insertErr error
	incErr    error
	statusErr error
	replyErr  error
	flagErr   error

	inserted []*models.Review
}

func newFakeReviewsRepo() *fakeReviewsRepo {
	return &fakeReviewsRepo{reviews: make(map[primitive.ObjectID]*models.Review)}
}

func (f *fakeReviewsRepo) InsertReview(ctx context.Context, review *models.Review) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := review.BeforeCreate(); err != nil {
		return err
	}
	clone := *review
	f.reviews[review.ID] = &clone
	f.inserted = append(f.inserted, &clone)
	return nil
}

func (f *fakeReviewsRepo) ListReviews(ctx context.Context) ([]*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Review
	for _, r := range f.reviews {
		clone := *r
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeReviewsRepo) IncrementHelpful(ctx context.Context, reviewId primitive.ObjectID) error {
	if f.incErr != nil {
		return f.incErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reviews[reviewId]
	if !ok {
		return models.ErrReviewNotFound
	}
	r.HelpfulCount++
	return nil
}

func (f *fakeReviewsRepo) UpdateStatus(ctx context.Context, reviewId primitive.ObjectID, status models.ReviewStatus, moderatorId, note string, expectedVersion int64) (*models.Review, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reviews[reviewId]
	if !ok {
		return nil, models.ErrReviewNotFound
	}
	if r.Version != expectedVersion {
		return nil, models.ErrVersionConflict
	}
	now := time.Now()
	r.Status = status
	r.ModeratedBy = moderatorId
	r.ModeratedAt = &now
	if note != "" {
		r.ModerationNote = note
	}
	r.Version++
	clone := *r
	return &clone, nil
}

func (f *fakeReviewsRepo) PushReply(ctx context.Context, reviewId primitive.ObjectID, reply models.AdminReply) error {
	if f.replyErr != nil {
		return f.replyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reviews[reviewId]
	if !ok {
		return models.ErrReviewNotFound
	}
	r.AdminReplies = append(r.AdminReplies, reply)
	return nil
}

func (f *fakeReviewsRepo) PushFlag(ctx context.Context, reviewId primitive.ObjectID, flag models.ReviewFlag) error {
	if f.flagErr != nil {
		return f.flagErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reviews[reviewId]
	if !ok {
		return models.ErrReviewNotFound
	}
	r.Flags = append(r.Flags, flag)
	return nil
}

func (f *fakeReviewsRepo) WatchReviews(ctx context.Context, handler func(models.ReviewEvent)) error {
	<-ctx.Done()
	return nil
}

func newTestStore(t *testing.T) (*Store, *fakeReviewsRepo) {
	t.Helper()
	repo := newFakeReviewsRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(repo, logger), repo
}

// seed puts a review into both the fake remote collection and the local
// cache, as if it had arrived through the subscription.
func seed(s *Store, repo *fakeReviewsRepo, r models.Review) models.Review {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	clone := r
	repo.mu.Lock()
	repo.reviews[r.ID] = &clone
	repo.mu.Unlock()
	s.apply(models.ReviewEvent{Type: models.ReviewEventUpsert, ReviewID: r.ID, Review: &r})
	return r
}

func TestReviewsForProduct_ApprovedOnly(t *testing.T) {
	s, repo := newTestStore(t)

	approved := seed(s, repo, models.Review{ProductID: "P1", Rating: 5, Status: models.ReviewStatusApproved})
	seed(s, repo, models.Review{ProductID: "P1", Rating: 4, Status: models.ReviewStatusPending})
	seed(s, repo, models.Review{ProductID: "P1", Rating: 3, Status: models.ReviewStatusRejected})
	seed(s, repo, models.Review{ProductID: "P1", Rating: 2, Status: models.ReviewStatusFlagged})
	seed(s, repo, models.Review{ProductID: "P2", Rating: 1, Status: models.ReviewStatusApproved})

	got := s.ReviewsForProduct("P1", SortNewest, FilterAll)

	require.Len(t, got, 1)
	assert.Equal(t, approved.ID, got[0].ID)
}

func TestReviewsForProduct_SortOrders(t *testing.T) {
	s, repo := newTestStore(t)
	now := time.Now()

	oldLow := seed(s, repo, models.Review{ProductID: "P1", Rating: 2, HelpfulCount: 9,
		Status: models.ReviewStatusApproved, CreatedAt: now.Add(-2 * time.Hour)})
	newHigh := seed(s, repo, models.Review{ProductID: "P1", Rating: 5, HelpfulCount: 1,
		Status: models.ReviewStatusApproved, CreatedAt: now.Add(-1 * time.Hour)})
	newest := seed(s, repo, models.Review{ProductID: "P1", Rating: 4, HelpfulCount: 4,
		Status: models.ReviewStatusApproved, CreatedAt: now})

	byNewest := s.ReviewsForProduct("P1", SortNewest, FilterAll)
	require.Len(t, byNewest, 3)
	assert.Equal(t, newest.ID, byNewest[0].ID)
	assert.Equal(t, oldLow.ID, byNewest[2].ID)

	byOldest := s.ReviewsForProduct("P1", SortOldest, FilterAll)
	assert.Equal(t, oldLow.ID, byOldest[0].ID)

	byHighest := s.ReviewsForProduct("P1", SortHighest, FilterAll)
	assert.Equal(t, newHigh.ID, byHighest[0].ID)

	byLowest := s.ReviewsForProduct("P1", SortLowest, FilterAll)
	assert.Equal(t, oldLow.ID, byLowest[0].ID)

	byHelpful := s.ReviewsForProduct("P1", SortHelpful, FilterAll)
	assert.Equal(t, oldLow.ID, byHelpful[0].ID)
}

func TestReviewsForProduct_Filters(t *testing.T) {
	s, repo := newTestStore(t)

	verified := seed(s, repo, models.Review{ProductID: "P1", Rating: 5,
		IsVerifiedPurchase: true, Status: models.ReviewStatusApproved})
	withPhotos := seed(s, repo, models.Review{ProductID: "P1", Rating: 3,
		Images: []string{"https://img.example.com/ring.jpg"}, Status: models.ReviewStatusApproved})
	plain := seed(s, repo, models.Review{ProductID: "P1", Rating: 3, Status: models.ReviewStatusApproved})

	got := s.ReviewsForProduct("P1", SortNewest, FilterVerified)
	require.Len(t, got, 1)
	assert.Equal(t, verified.ID, got[0].ID)

	got = s.ReviewsForProduct("P1", SortNewest, FilterPhotos)
	require.Len(t, got, 1)
	assert.Equal(t, withPhotos.ID, got[0].ID)

	got = s.ReviewsForProduct("P1", SortNewest, FilterOption("3"))
	require.Len(t, got, 2)
	_ = plain

	got = s.ReviewsForProduct("P1", SortNewest, FilterOption("1"))
	assert.Empty(t, got)
}

func TestReviewsForModeration(t *testing.T) {
	s, repo := newTestStore(t)

	pending := seed(s, repo, models.Review{ProductID: "P1", Rating: 4, Status: models.ReviewStatusPending})
	flagged := seed(s, repo, models.Review{ProductID: "P1", Rating: 1, Status: models.ReviewStatusFlagged})
	seed(s, repo, models.Review{ProductID: "P1", Rating: 5, Status: models.ReviewStatusApproved})
	seed(s, repo, models.Review{ProductID: "P1", Rating: 2, Status: models.ReviewStatusRejected})

	queue := s.ReviewsForModeration("")
	require.Len(t, queue, 2)
	ids := []primitive.ObjectID{queue[0].ID, queue[1].ID}
	assert.Contains(t, ids, pending.ID)
	assert.Contains(t, ids, flagged.ID)

	onlyFlagged := s.ReviewsForModeration(models.ReviewStatusFlagged)
	require.Len(t, onlyFlagged, 1)
	assert.Equal(t, flagged.ID, onlyFlagged[0].ID)
}

func TestStart_LoadsSnapshot(t *testing.T) {
	repo := newFakeReviewsRepo()
	id := primitive.NewObjectID()
	repo.reviews[id] = &models.Review{
		ID:        id,
		ProductID: "P1",
		Rating:    5,
		Status:    models.ReviewStatusApproved,
		CreatedAt: time.Now(),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(repo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))

	got := s.ReviewsForProduct("P1", SortNewest, FilterAll)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
}

func TestApply_DeleteRemovesReview(t *testing.T) {
	s, repo := newTestStore(t)
	r := seed(s, repo, models.Review{ProductID: "P1", Rating: 5, Status: models.ReviewStatusApproved})

	s.apply(models.ReviewEvent{Type: models.ReviewEventDelete, ReviewID: r.ID})

	assert.Empty(t, s.ReviewsForProduct("P1", SortNewest, FilterAll))
}

func TestSubmit_DoesNotApplyLocally(t *testing.T) {
	s, repo := newTestStore(t)

	review := models.Review{
		ProductID: "P1",
		UserID:    "u1",
		Rating:    5,
		Title:     "Beautiful ring",
		Comment:   "Exceeded all of my expectations.",
	}
	require.NoError(t, s.Submit(context.Background(), &review))

	require.Len(t, repo.inserted, 1)
	assert.Equal(t, models.ReviewStatusPending, repo.inserted[0].Status)

	// The cache only learns about the review from the next push.
	assert.Empty(t, s.ReviewsForModeration(""))
}

func TestSubmit_InvalidRatingNeverReachesRepo(t *testing.T) {
	s, repo := newTestStore(t)

	for _, rating := range []int{0, 6} {
		review := models.Review{
			ProductID: "P1",
			UserID:    "u1",
			Rating:    rating,
			Title:     "A title",
			Comment:   "Long enough comment here.",
		}
		err := s.Submit(context.Background(), &review)
		assert.Error(t, err)
	}

	assert.Empty(t, repo.inserted)
}

func TestSubmit_CommentLengthBoundary(t *testing.T) {
	s, repo := newTestStore(t)

	short := models.Review{
		ProductID: "P1", UserID: "u1", Rating: 5,
		Title: "A title", Comment: "123456789", // 9 chars
	}
	assert.Error(t, s.Submit(context.Background(), &short))
	assert.Empty(t, repo.inserted)

	exact := models.Review{
		ProductID: "P1", UserID: "u1", Rating: 5,
		Title: "A title", Comment: "1234567890", // 10 chars
	}
	assert.NoError(t, s.Submit(context.Background(), &exact))
	assert.Len(t, repo.inserted, 1)
}

func TestMarkHelpful_Monotonic(t *testing.T) {
	s, repo := newTestStore(t)
	r := seed(s, repo, models.Review{ProductID: "P1", Rating: 5,
		HelpfulCount: 2, Status: models.ReviewStatusApproved})

	require.NoError(t, s.MarkHelpful(context.Background(), r.ID))
	require.NoError(t, s.MarkHelpful(context.Background(), r.ID))

	cached, ok := s.Get(r.ID)
	require.True(t, ok)
	assert.Equal(t, 4, cached.HelpfulCount)

	repo.mu.Lock()
	assert.Equal(t, 4, repo.reviews[r.ID].HelpfulCount)
	repo.mu.Unlock()
}

func TestMarkHelpful_RemoteFailureLeavesCacheUnchanged(t *testing.T) {
	s, repo := newTestStore(t)
	r := seed(s, repo, models.Review{ProductID: "P1", Rating: 5,
		HelpfulCount: 2, Status: models.ReviewStatusApproved})

	repo.incErr = context.DeadlineExceeded
	assert.Error(t, s.MarkHelpful(context.Background(), r.ID))

	cached, _ := s.Get(r.ID)
	assert.Equal(t, 2, cached.HelpfulCount)
}

func TestModerate_ApproveMakesVisible(t *testing.T) {
	s, repo := newTestStore(t)
	r := seed(s, repo, models.Review{ProductID: "P1", Rating: 5, Status: models.ReviewStatusPending})

	updated, err := s.Moderate(context.Background(), r.ID, models.ModerationActionApprove, "admin-1", "looks genuine")
	require.NoError(t, err)

	assert.Equal(t, models.ReviewStatusApproved, updated.Status)
	assert.Equal(t, "admin-1", updated.ModeratedBy)
	assert.NotNil(t, updated.ModeratedAt)
	assert.Equal(t, "looks genuine", updated.ModerationNote)

	got := s.ReviewsForProduct("P1", SortNewest, FilterAll)
	require.Len(t, got, 1)
	assert.Equal(t, r.ID, got[0].ID)
}

func TestModerate_RejectHidesReview(t *testing.T) {
	s, repo := newTestStore(t)
	r := seed(s, repo, models.Review{ProductID: "P1", Rating: 5, Status: models.ReviewStatusApproved})

	_, err := s.Moderate(context.Background(), r.ID, models.ModerationActionReject, "admin-1", "")
	require.NoError(t, err)

	assert.Empty(t, s.ReviewsForProduct("P1", SortNewest, FilterAll))
}

func TestModerate_IdempotentApprove(t *testing.T) {
	s, repo := newTestStore(t)
	r := seed(s, repo, models.Review{ProductID: "P1", Rating: 5, Status: models.ReviewStatusPending})

	first, err := s.Moderate(context.Background(), r.ID, models.ModerationActionApprove, "admin-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusApproved, first.Status)

	// Re-approving is legal and keeps the review approved.
	second, err := s.Moderate(context.Background(), r.ID, models.ModerationActionApprove, "admin-2", "")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusApproved, second.Status)
}

func TestModerate_RetargetRejectedReview(t *testing.T) {
	s, repo := newTestStore(t)
	r := seed(s, repo, models.Review{ProductID: "P1", Rating: 5, Status: models.ReviewStatusPending})

	_, err := s.Moderate(context.Background(), r.ID, models.ModerationActionReject, "admin-1", "")
	require.NoError(t, err)

	updated, err := s.Moderate(context.Background(), r.ID, models.ModerationActionApprove, "admin-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusApproved, updated.Status)
}

func TestModerate_ConcurrentDecisionConflicts(t *testing.T) {
	s, repo := newTestStore(t)
	r := seed(s, repo, models.Review{ProductID: "P1", Rating: 5, Status: models.ReviewStatusPending})

	// Another admin's decision landed remotely but the push has not
	// reached this cache yet.
	repo.mu.Lock()
	repo.reviews[r.ID].Version = 1
	repo.reviews[r.ID].Status = models.ReviewStatusRejected
	repo.mu.Unlock()

	_, err := s.Moderate(context.Background(), r.ID, models.ModerationActionApprove, "admin-1", "")
	assert.ErrorIs(t, err, models.ErrVersionConflict)

	// Local state stays untouched until the next snapshot heals it.
	cached, _ := s.Get(r.ID)
	assert.Equal(t, models.ReviewStatusPending, cached.Status)
}

func TestModerate_UnknownReview(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Moderate(context.Background(), primitive.NewObjectID(), models.ModerationActionApprove, "admin-1", "")
	assert.ErrorIs(t, err, models.ErrReviewNotFound)
}

func TestModerate_RemoteFailureLeavesCacheUnchanged(t *testing.T) {
	s, repo := newTestStore(t)
	r := seed(s, repo, models.Review{ProductID: "P1", Rating: 5, Status: models.ReviewStatusPending})

	repo.statusErr = context.DeadlineExceeded
	_, err := s.Moderate(context.Background(), r.ID, models.ModerationActionApprove, "admin-1", "")
	assert.Error(t, err)

	cached, _ := s.Get(r.ID)
	assert.Equal(t, models.ReviewStatusPending, cached.Status)
}

func TestAddReply_AppendOnly(t *testing.T) {
	s, repo := newTestStore(t)
	r := seed(s, repo, models.Review{ProductID: "P1", Rating: 5, Status: models.ReviewStatusRejected})

	first := models.AdminReply{ID: "r1", AdminID: "a1", Message: "Thanks for the feedback", CreatedAt: time.Now()}
	second := models.AdminReply{ID: "r2", AdminID: "a2", Message: "Following up", CreatedAt: time.Now()}

	require.NoError(t, s.AddReply(context.Background(), r.ID, first))
	require.NoError(t, s.AddReply(context.Background(), r.ID, second))

	cached, _ := s.Get(r.ID)
	require.Len(t, cached.AdminReplies, 2)
	assert.Equal(t, "r1", cached.AdminReplies[0].ID)
	assert.Equal(t, "r2", cached.AdminReplies[1].ID)
}

func TestAddFlag_DoesNotChangeStatus(t *testing.T) {
	s, repo := newTestStore(t)
	r := seed(s, repo, models.Review{ProductID: "P1", Rating: 5, Status: models.ReviewStatusApproved})

	flag := models.ReviewFlag{Reason: "spam", ReportedBy: "u9", CreatedAt: time.Now()}
	require.NoError(t, s.AddFlag(context.Background(), r.ID, flag))

	cached, _ := s.Get(r.ID)
	require.Len(t, cached.Flags, 1)
	assert.Equal(t, "spam", cached.Flags[0].Reason)
	assert.Equal(t, models.ReviewStatusApproved, cached.Status)
}

func TestStats_AggregatesAllStatuses(t *testing.T) {
	s, repo := newTestStore(t)

	seed(s, repo, models.Review{ProductID: "P1", Rating: 5, Status: models.ReviewStatusApproved})
	seed(s, repo, models.Review{ProductID: "P1", Rating: 4, Status: models.ReviewStatusApproved})
	seed(s, repo, models.Review{ProductID: "P2", Rating: 3, Status: models.ReviewStatusPending})
	seed(s, repo, models.Review{ProductID: "P2", Rating: 1, Status: models.ReviewStatusFlagged})

	stats := s.Stats()

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Approved)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Flagged)
	assert.Equal(t, 50, stats.ApprovalRate)
}

func TestSummary_UsesCacheContents(t *testing.T) {
	s, repo := newTestStore(t)

	seed(s, repo, models.Review{ProductID: "P1", Rating: 5, Status: models.ReviewStatusApproved})
	seed(s, repo, models.Review{ProductID: "P1", Rating: 3, Status: models.ReviewStatusApproved})
	seed(s, repo, models.Review{ProductID: "P1", Rating: 1, Status: models.ReviewStatusPending})

	summary := s.Summary("P1")

	assert.Equal(t, 2, summary.TotalReviews)
	assert.Equal(t, 4.0, summary.AverageRating)
	assert.Equal(t, map[int]int{5: 1, 4: 0, 3: 1, 2: 0, 1: 0}, summary.RatingDistribution)
}
