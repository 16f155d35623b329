package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/zeloura/api/internal/models"
	"github.com/zeloura/api/internal/store"
)

// memReviewsRepo is an in-memory reviews repository for service tests.
type memReviewsRepo struct {
	mu      sync.Mutex
	reviews map[primitive.ObjectID]*models.Review

	insertErr error
}

func newMemReviewsRepo() *memReviewsRepo {
	return &memReviewsRepo{reviews: make(map[primitive.ObjectID]*models.Review)}
}

func (m *memReviewsRepo) add(r models.Review) models.Review {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := r
	m.reviews[r.ID] = &clone
	return r
}

func (m *memReviewsRepo) InsertReview(ctx context.Context, review *models.Review) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if err := review.BeforeCreate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *review
	m.reviews[review.ID] = &clone
	return nil
}

func (m *memReviewsRepo) ListReviews(ctx context.Context) ([]*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Review
	for _, r := range m.reviews {
		clone := *r
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memReviewsRepo) IncrementHelpful(ctx context.Context, reviewId primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[reviewId]
	if !ok {
		return models.ErrReviewNotFound
	}
	r.HelpfulCount++
	return nil
}

func (m *memReviewsRepo) UpdateStatus(ctx context.Context, reviewId primitive.ObjectID, status models.ReviewStatus, moderatorId, note string, expectedVersion int64) (*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[reviewId]
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

func (m *memReviewsRepo) PushReply(ctx context.Context, reviewId primitive.ObjectID, reply models.AdminReply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[reviewId]
	if !ok {
		return models.ErrReviewNotFound
	}
	r.AdminReplies = append(r.AdminReplies, reply)
	return nil
}

func (m *memReviewsRepo) PushFlag(ctx context.Context, reviewId primitive.ObjectID, flag models.ReviewFlag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[reviewId]
	if !ok {
		return models.ErrReviewNotFound
	}
	r.Flags = append(r.Flags, flag)
	return nil
}

func (m *memReviewsRepo) WatchReviews(ctx context.Context, handler func(models.ReviewEvent)) error {
	<-ctx.Done()
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startedStore builds a review store over repo and loads its snapshot.
func startedStore(t *testing.T, repo *memReviewsRepo) *store.Store {
	t.Helper()
	s := store.New(repo, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, s.Start(ctx))
	return s
}

func testSummaryCache(t *testing.T) (*store.SummaryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return store.NewSummaryCache(client, 15*time.Minute), mr
}

func TestReviewServiceSubmit_RejectsInvalidDraft(t *testing.T) {
	repo := newMemReviewsRepo()
	rs := NewReviewService(startedStore(t, repo), nil, testLogger())

	review := models.Review{
		ProductID: "P1",
		UserID:    "u1",
		Rating:    0,
		Title:     "A title",
		Comment:   "Long enough comment here.",
	}
	err := rs.Submit(context.Background(), &review)
	assert.Error(t, err)

	repo.mu.Lock()
	assert.Empty(t, repo.reviews)
	repo.mu.Unlock()
}

func TestReviewServiceSubmit_PersistsPendingReview(t *testing.T) {
	repo := newMemReviewsRepo()
	rs := NewReviewService(startedStore(t, repo), nil, testLogger())

	review := models.Review{
		ProductID: "P1",
		UserID:    "u1",
		Rating:    5,
		Title:     "Gorgeous necklace",
		Comment:   "The craftsmanship is excellent.",
	}
	require.NoError(t, rs.Submit(context.Background(), &review))

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.reviews, 1)
	for _, r := range repo.reviews {
		assert.Equal(t, models.ReviewStatusPending, r.Status)
	}
}

func TestReviewServiceListForProduct_RequiresProductID(t *testing.T) {
	rs := NewReviewService(startedStore(t, newMemReviewsRepo()), nil, testLogger())

	_, err := rs.ListForProduct("  ", store.SortNewest, store.FilterAll)
	assert.Error(t, err)
}

func TestReviewServiceSummary_ReadThroughCache(t *testing.T) {
	repo := newMemReviewsRepo()
	repo.add(models.Review{ProductID: "P1", Rating: 5, Status: models.ReviewStatusApproved})
	repo.add(models.Review{ProductID: "P1", Rating: 3, Status: models.ReviewStatusApproved})

	cache, mr := testSummaryCache(t)
	rs := NewReviewService(startedStore(t, repo), cache, testLogger())

	ctx := context.Background()
	first, err := rs.Summary(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 4.0, first.AverageRating)
	assert.Equal(t, 2, first.TotalReviews)

	// The computed summary was written through to Redis.
	require.True(t, mr.Exists("review_summary:P1"))

	// A second read is served from the cache even though it is stale.
	cached, err := cache.Get(ctx, "P1")
	require.NoError(t, err)
	require.NotNil(t, cached)

	second, err := rs.Summary(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, *cached, second)
}

func TestReviewServiceSummary_SurvivesRedisOutage(t *testing.T) {
	repo := newMemReviewsRepo()
	repo.add(models.Review{ProductID: "P1", Rating: 4, Status: models.ReviewStatusApproved})

	cache, mr := testSummaryCache(t)
	rs := NewReviewService(startedStore(t, repo), cache, testLogger())

	mr.Close()

	summary, err := rs.Summary(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalReviews)
	assert.Equal(t, 4.0, summary.AverageRating)
}

func TestReviewServiceMarkHelpful_RejectsMalformedID(t *testing.T) {
	rs := NewReviewService(startedStore(t, newMemReviewsRepo()), nil, testLogger())

	err := rs.MarkHelpful(context.Background(), "not-an-object-id")
	assert.Error(t, err)
}

func TestReviewServiceReport_AppendsFlagWithoutStatusChange(t *testing.T) {
	repo := newMemReviewsRepo()
	seeded := repo.add(models.Review{ProductID: "P1", Rating: 5, Status: models.ReviewStatusApproved})

	rs := NewReviewService(startedStore(t, repo), nil, testLogger())

	err := rs.Report(context.Background(), seeded.ID.Hex(), "offensive language", "u9")
	require.NoError(t, err)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	stored := repo.reviews[seeded.ID]
	require.Len(t, stored.Flags, 1)
	assert.Equal(t, "offensive language", stored.Flags[0].Reason)
	assert.Equal(t, "u9", stored.Flags[0].ReportedBy)
	assert.Equal(t, models.ReviewStatusApproved, stored.Status)
}

func TestReviewServiceReport_RequiresReason(t *testing.T) {
	repo := newMemReviewsRepo()
	seeded := repo.add(models.Review{ProductID: "P1", Rating: 5, Status: models.ReviewStatusApproved})

	rs := NewReviewService(startedStore(t, repo), nil, testLogger())

	err := rs.Report(context.Background(), seeded.ID.Hex(), "   ", "u9")
	assert.Error(t, err)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Empty(t, repo.reviews[seeded.ID].Flags)
}
