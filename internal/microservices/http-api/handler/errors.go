package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"theshelf/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, service.ErrBookNotFound), errors.Is(err, service.ErrRatingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnknownMood),
		errors.Is(err, service.ErrEmptyRating),
		errors.Is(err, service.ErrInvalidDimension):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrFingerprintRecompute):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rating could not be saved, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parseBookID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("book_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book ID"})
		return 0, false
	}
	return id, true
}

// parseLimit reads ?limit=, falling back to def and capping at max.
func parseLimit(c *gin.Context, def, max int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > max {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and " + strconv.Itoa(max)})
		return 0, false
	}
	return limit, true
}

// parseIDList parses "1,2,3".
func parseIDList(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return "", false
	}
	return userID, true
}
