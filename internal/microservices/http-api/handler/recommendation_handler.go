package handler

import (
	"net/http"
	"strconv"

	"theshelf/internal/microservices/http-api/dto"
	"theshelf/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

const (
	defaultRecommendationLimit = 10
	maxRecommendationLimit     = 50
)

type RecommendationHandler struct {
	recommendations service.RecommendationService
}

func NewRecommendationHandler(recommendations service.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recommendations: recommendations}
}

// RegisterRoutes registers recommendation routes, the group must be authenticated
func (h *RecommendationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/recommendations", h.List)
}

// List GET /api/recommendations?limit=10&exclude_read=true
func (h *RecommendationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	limit, ok := parseLimit(c, defaultRecommendationLimit, maxRecommendationLimit)
	if !ok {
		return
	}
	excludeRead, err := strconv.ParseBool(c.DefaultQuery("exclude_read", "true"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exclude_read must be a boolean"})
		return
	}

	recs, err := h.recommendations.Recommend(c.Request.Context(), userID, limit, excludeRead)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRecommendationsResponse(recs))
}
