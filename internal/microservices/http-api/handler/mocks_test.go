package handler_test

import (
	"context"

	"theshelf/internal/microservices/http-api/models"
	"theshelf/internal/microservices/http-api/repository"
	"theshelf/internal/microservices/http-api/service"
	"theshelf/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

const testUserID = "11111111-1111-1111-1111-111111111111"

func mockAuthMiddleware(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set("userID", userID)
		}
		c.Next()
	}
}

type MockRatingService struct {
	mock.Mock
}

func (m *MockRatingService) CreateOrUpdateRating(ctx context.Context, userID string, bookID int64, input service.RatingInput) (*models.Rating, error) {
	args := m.Called(ctx, userID, bookID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rating), args.Error(1)
}

func (m *MockRatingService) DeleteRating(ctx context.Context, userID string, bookID int64) error {
	args := m.Called(ctx, userID, bookID)
	return args.Error(0)
}

func (m *MockRatingService) GetUserRating(ctx context.Context, userID string, bookID int64) (*models.Rating, error) {
	args := m.Called(ctx, userID, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rating), args.Error(1)
}

type MockFingerprintService struct {
	mock.Mock
}

func (m *MockFingerprintService) Get(ctx context.Context, bookID int64) (*models.Fingerprint, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Fingerprint), args.Error(1)
}

func (m *MockFingerprintService) Recompute(ctx context.Context, bookID int64) (*models.Fingerprint, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Fingerprint), args.Error(1)
}

func (m *MockFingerprintService) RecomputeWith(ctx context.Context, tx repository.RatingRepository, bookID int64) (*models.Fingerprint, error) {
	args := m.Called(ctx, tx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Fingerprint), args.Error(1)
}

func (m *MockFingerprintService) OnRatingChanged(ctx context.Context, bookID int64) error {
	args := m.Called(ctx, bookID)
	return args.Error(0)
}

func (m *MockFingerprintService) ChartData(ctx context.Context, bookID int64, userID string) (*service.ChartData, error) {
	args := m.Called(ctx, bookID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChartData), args.Error(1)
}

type MockSimilarityService struct {
	mock.Mock
}

func (m *MockSimilarityService) FindSimilarByEmbedding(ctx context.Context, bookID int64, limit int, excludeIDs []int64) ([]service.ScoredBook, error) {
	args := m.Called(ctx, bookID, limit, excludeIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.ScoredBook), args.Error(1)
}

func (m *MockSimilarityService) FindSimilarByFingerprint(ctx context.Context, bookID int64, limit int, excludeIDs []int64) ([]service.ScoredBook, error) {
	args := m.Called(ctx, bookID, limit, excludeIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.ScoredBook), args.Error(1)
}

type MockBookEmbeddingService struct {
	mock.Mock
}

func (m *MockBookEmbeddingService) Refresh(ctx context.Context, bookID int64) (*service.EmbeddingResult, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EmbeddingResult), args.Error(1)
}

func (m *MockBookEmbeddingService) Backfill(ctx context.Context, workers, batchSize int) (worker.Stats, error) {
	args := m.Called(ctx, workers, batchSize)
	return args.Get(0).(worker.Stats), args.Error(1)
}

type MockRecommendationService struct {
	mock.Mock
}

func (m *MockRecommendationService) Recommend(ctx context.Context, userID string, limit int, excludeAlreadyInLibrary bool) ([]service.Recommendation, error) {
	args := m.Called(ctx, userID, limit, excludeAlreadyInLibrary)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.Recommendation), args.Error(1)
}

type MockMoodService struct {
	mock.Mock
}

func (m *MockMoodService) ListMoods() []service.MoodInfo {
	args := m.Called()
	return args.Get(0).([]service.MoodInfo)
}

func (m *MockMoodService) ByMood(ctx context.Context, mood string, limit int) ([]models.Book, error) {
	args := m.Called(ctx, mood, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Book), args.Error(1)
}
