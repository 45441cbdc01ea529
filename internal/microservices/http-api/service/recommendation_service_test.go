package service

import (
	"context"
	"errors"
	"testing"

	"theshelf/internal/microservices/http-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userU = "11111111-1111-1111-1111-111111111111"

// newRecommendationFixture: book 1 is U's favorite, books 2 and 3 feel like it,
// book 4 feels nothing like it, books 10..12 are popular.
func newRecommendationFixture(t *testing.T) *fakeStore {
	t.Helper()
	store := newFakeStore()
	for _, id := range []int64{1, 2, 3, 4, 10, 11, 12} {
		store.addBook(id, "book")
	}
	store.setFingerprint(reliableFingerprint(1, 5, 5, 5, 2, 2, 2, 2, 2))
	store.setFingerprint(reliableFingerprint(2, 4, 5, 5, 2, 2, 2, 2, 2))
	store.setFingerprint(reliableFingerprint(3, 3, 5, 4, 2, 2, 2, 2, 2))
	store.setFingerprint(reliableFingerprint(4, 2, 1, 1, 5, 5, 5, 5, 5))
	store.setFingerprint(reliableFingerprint(10, 30, 3, 3, 5, 5, 5, 5, 5))
	store.setFingerprint(reliableFingerprint(11, 20, 3, 3, 5, 5, 5, 5, 5))
	store.setFingerprint(reliableFingerprint(12, 8, 5, 5, 5, 5, 5, 5, 5)) // too few ratings to be popular

	require.NoError(t, store.Create(context.Background(), &models.Rating{
		UserID: userU, BookID: 1, Pace: ptr(5), EmotionalImpact: ptr(4),
	}))
	return store
}

func newRecommender(store *fakeStore, sim SimilarityService) RecommendationService {
	if sim == nil {
		sim = NewSimilarityService(store, store, DefaultSimilarityConfig(), nil)
	}
	return NewRecommendationService(store, store, sim, DefaultRecommendConfig(), nil)
}

func recIDs(recs []Recommendation) []int64 {
	ids := make([]int64, len(recs))
	for i, r := range recs {
		ids[i] = r.Book.ID
	}
	return ids
}

func TestRecommend_FavoritesBeforePopular(t *testing.T) {
	store := newRecommendationFixture(t)
	store.addUserBook(userU, 1, models.StatusFinished)

	recs, err := newRecommender(store, nil).Recommend(context.Background(), userU, 5, true)

	require.NoError(t, err)
	require.NotEmpty(t, recs)
	assert.Equal(t, ReasonSimilarFeel, recs[0].Reason)
	assert.Equal(t, ScoreSimilarFeel, recs[0].Score)

	seenPopular := false
	for _, r := range recs {
		if r.Score == ScorePopular {
			seenPopular = true
			continue
		}
		assert.False(t, seenPopular, "personalized pick after a popularity pick")
	}
	assert.Equal(t, int64(2), recs[0].Book.ID)
}

func TestRecommend_NoDuplicatesAndLimit(t *testing.T) {
	store := newRecommendationFixture(t)

	for limit := 1; limit <= 8; limit++ {
		recs, err := newRecommender(store, nil).Recommend(context.Background(), userU, limit, true)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(recs), limit)

		seen := map[int64]bool{}
		for _, r := range recs {
			assert.False(t, seen[r.Book.ID], "duplicate book %d", r.Book.ID)
			seen[r.Book.ID] = true
		}
	}
}

func TestRecommend_ExclusionFlag(t *testing.T) {
	store := newRecommendationFixture(t)
	store.addUserBook(userU, 2, models.StatusWantToRead)
	store.addUserBook(userU, 3, models.StatusFinished)
	store.addUserBook(userU, 10, models.StatusDNF)

	t.Run("whole library excluded", func(t *testing.T) {
		recs, err := newRecommender(store, nil).Recommend(context.Background(), userU, 10, true)
		require.NoError(t, err)
		ids := recIDs(recs)
		assert.NotContains(t, ids, int64(2))
		assert.NotContains(t, ids, int64(3))
		assert.NotContains(t, ids, int64(10))
	})

	t.Run("only closed books excluded", func(t *testing.T) {
		recs, err := newRecommender(store, nil).Recommend(context.Background(), userU, 10, false)
		require.NoError(t, err)
		ids := recIDs(recs)
		assert.Contains(t, ids, int64(2), "want_to_read stays eligible")
		assert.NotContains(t, ids, int64(3))
		assert.NotContains(t, ids, int64(10))
	})
}

func TestRecommend_PopularityOnlyWithoutFavorites(t *testing.T) {
	store := newRecommendationFixture(t)

	recs, err := newRecommender(store, nil).Recommend(context.Background(), "someone-else", 5, true)

	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11}, recIDs(recs))
	assert.Equal(t, "highly rated (4.4/5.0)", recs[0].Reason)
	assert.Equal(t, ScorePopular, recs[0].Score)
}

func TestRecommend_ZeroLimit(t *testing.T) {
	store := newRecommendationFixture(t)

	recs, err := newRecommender(store, nil).Recommend(context.Background(), userU, 0, true)

	assert.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRecommend_LibraryFailure(t *testing.T) {
	store := newRecommendationFixture(t)
	store.failLibrary = errors.New("db down")

	_, err := newRecommender(store, nil).Recommend(context.Background(), userU, 5, true)
	assert.Error(t, err)
}

func TestRecommend_RatingHistoryFailureFallsBack(t *testing.T) {
	store := newRecommendationFixture(t)
	store.failRatings = errors.New("timeout")

	recs, err := newRecommender(store, nil).Recommend(context.Background(), userU, 5, true)

	require.NoError(t, err)
	for _, r := range recs {
		assert.Equal(t, ScorePopular, r.Score)
	}
	assert.NotEmpty(t, recs)
}

func TestRecommend_PopularFailure(t *testing.T) {
	store := newRecommendationFixture(t)
	store.failPopular = errors.New("db down")

	t.Run("with personalized picks", func(t *testing.T) {
		recs, err := newRecommender(store, nil).Recommend(context.Background(), userU, 10, true)
		require.NoError(t, err)
		assert.NotEmpty(t, recs)
	})

	t.Run("nothing collected", func(t *testing.T) {
		_, err := newRecommender(store, nil).Recommend(context.Background(), "someone-else", 10, true)
		assert.Error(t, err)
	})
}

// stubSimilarity records the anchors it was asked about.
type stubSimilarity struct {
	anchors  []int64
	excludes [][]int64
	hits     map[int64][]ScoredBook
	fail     map[int64]error
}

func (s *stubSimilarity) FindSimilarByEmbedding(ctx context.Context, bookID int64, limit int, excludeIDs []int64) ([]ScoredBook, error) {
	return nil, nil
}

func (s *stubSimilarity) FindSimilarByFingerprint(ctx context.Context, bookID int64, limit int, excludeIDs []int64) ([]ScoredBook, error) {
	s.anchors = append(s.anchors, bookID)
	s.excludes = append(s.excludes, append([]int64(nil), excludeIDs...))
	if err := s.fail[bookID]; err != nil {
		return nil, err
	}
	return s.hits[bookID], nil
}

func TestRecommend_UsesThreeMostRecentFavorites(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	for id := int64(1); id <= 6; id++ {
		store.addBook(id, "book")
	}
	// rated in order 1..5, book 3 is not a favorite
	for _, r := range []models.Rating{
		{UserID: userU, BookID: 1, Pace: ptr(5)},
		{UserID: userU, BookID: 2, Pace: ptr(4)},
		{UserID: userU, BookID: 3, Pace: ptr(2)},
		{UserID: userU, BookID: 4, Pace: ptr(5)},
		{UserID: userU, BookID: 5, Pace: ptr(5)},
	} {
		r := r
		require.NoError(t, store.Create(ctx, &r))
	}

	book6 := models.Book{ID: 6}
	sim := &stubSimilarity{
		hits: map[int64][]ScoredBook{
			5: {{Book: book6, Score: 0.99}},
			4: {{Book: book6, Score: 0.98}},
		},
		fail: map[int64]error{2: errors.New("boom")},
	}

	recs, err := newRecommender(store, sim).Recommend(ctx, userU, 5, true)

	require.NoError(t, err)
	assert.Equal(t, []int64{5, 4, 2}, sim.anchors)
	assert.Contains(t, sim.excludes[1], int64(6), "earlier picks fold into the exclusion set")
	assert.Equal(t, []int64{6}, recIDs(recs))
}
