package handler

import (
	"net/http"

	"theshelf/internal/microservices/http-api/dto"
	"theshelf/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

const (
	defaultSimilarLimit = 10
	maxSimilarLimit     = 50
)

type BookHandler struct {
	fingerprints service.FingerprintService
	similarity   service.SimilarityService
	embeddings   service.BookEmbeddingService
}

func NewBookHandler(fingerprints service.FingerprintService, similarity service.SimilarityService, embeddings service.BookEmbeddingService) *BookHandler {
	return &BookHandler{
		fingerprints: fingerprints,
		similarity:   similarity,
		embeddings:   embeddings,
	}
}

// RegisterRoutes registers the public book routes. chart-data reads the
// caller's own rating when optionalAuth identifies one.
func (h *BookHandler) RegisterRoutes(rg *gin.RouterGroup, optionalAuth gin.HandlerFunc) {
	books := rg.Group("/books/:book_id")
	{
		books.GET("/fingerprint", h.GetFingerprint)
		books.GET("/chart-data", optionalAuth, h.GetChartData)
		books.GET("/similar", h.GetSimilar)
	}
}

// RegisterProtectedRoutes registers routes that need an authenticated caller
func (h *BookHandler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/books/:book_id/embedding", h.RefreshEmbedding)
}

// GetFingerprint GET /api/books/:book_id/fingerprint
func (h *BookHandler) GetFingerprint(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}

	fp, err := h.fingerprints.Get(c.Request.Context(), bookID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FingerprintFromModel(fp))
}

// GetChartData GET /api/books/:book_id/chart-data
func (h *BookHandler) GetChartData(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}

	data, err := h.fingerprints.ChartData(c.Request.Context(), bookID, c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ChartDataFromService(data))
}

// GetSimilar GET /api/books/:book_id/similar?by=fingerprint|embedding&limit=10&exclude=1,2
func (h *BookHandler) GetSimilar(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}
	limit, ok := parseLimit(c, defaultSimilarLimit, maxSimilarLimit)
	if !ok {
		return
	}
	exclude, err := parseIDList(c.Query("exclude"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exclude must be a comma separated list of book IDs"})
		return
	}

	strategy := c.DefaultQuery("by", "fingerprint")
	var hits []service.ScoredBook
	switch strategy {
	case "fingerprint":
		hits, err = h.similarity.FindSimilarByFingerprint(c.Request.Context(), bookID, limit, exclude)
	case "embedding":
		hits, err = h.similarity.FindSimilarByEmbedding(c.Request.Context(), bookID, limit, exclude)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "by must be fingerprint or embedding"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSimilarBooksResponse(bookID, strategy, hits))
}

// RefreshEmbedding POST /api/books/:book_id/embedding
func (h *BookHandler) RefreshEmbedding(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}

	res, err := h.embeddings.Refresh(c.Request.Context(), bookID)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if !res.Embedded {
		status = http.StatusAccepted
	}
	c.JSON(status, dto.EmbeddingFromResult(res))
}
