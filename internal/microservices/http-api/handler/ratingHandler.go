package handler

import (
	"net/http"

	"theshelf/internal/microservices/http-api/dto"
	"theshelf/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type RatingHandler struct {
	ratingService service.RatingService
}

func NewRatingHandler(ratingService service.RatingService) *RatingHandler {
	return &RatingHandler{
		ratingService: ratingService,
	}
}

// RegisterRoutes registers rating routes, the group must be authenticated
func (h *RatingHandler) RegisterRoutes(router *gin.RouterGroup) {
	ratings := router.Group("/ratings")
	{
		ratings.POST("", h.CreateOrUpdate)
		ratings.GET("/:book_id", h.GetUserRating)
		ratings.DELETE("/:book_id", h.Delete)
	}
}

// CreateOrUpdate creates or updates the caller's rating of a book
// POST /api/ratings
func (h *RatingHandler) CreateOrUpdate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.CreateRatingDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rating, err := h.ratingService.CreateOrUpdateRating(c.Request.Context(), userID, req.BookID, req.Input())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromModelToRatingResponse(rating))
}

// GetUserRating retrieves the caller's rating of a book
// GET /api/ratings/:book_id
func (h *RatingHandler) GetUserRating(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	rating, err := h.ratingService.GetUserRating(c.Request.Context(), userID, bookID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromModelToRatingResponse(rating))
}

// Delete removes the caller's rating of a book
// DELETE /api/ratings/:book_id
func (h *RatingHandler) Delete(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.ratingService.DeleteRating(c.Request.Context(), userID, bookID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Rating deleted successfully"})
}
