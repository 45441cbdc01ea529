package handler

import (
	"net/http"

	"theshelf/internal/microservices/http-api/dto"
	"theshelf/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

const (
	defaultMoodLimit = 10
	maxMoodLimit     = 50
)

type MoodHandler struct {
	moods service.MoodService
}

func NewMoodHandler(moods service.MoodService) *MoodHandler {
	return &MoodHandler{moods: moods}
}

func (h *MoodHandler) RegisterRoutes(rg *gin.RouterGroup) {
	moods := rg.Group("/moods")
	{
		moods.GET("", h.List)
		moods.GET("/:mood/books", h.Books)
	}
}

// List GET /api/moods
func (h *MoodHandler) List(c *gin.Context) {
	infos := h.moods.ListMoods()
	out := make([]dto.MoodResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, dto.MoodFromInfo(info))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// Books GET /api/moods/:mood/books?limit=10
func (h *MoodHandler) Books(c *gin.Context) {
	limit, ok := parseLimit(c, defaultMoodLimit, maxMoodLimit)
	if !ok {
		return
	}

	books, err := h.moods.ByMood(c.Request.Context(), c.Param("mood"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	mood, _ := service.ParseMood(c.Param("mood"))
	c.JSON(http.StatusOK, dto.MoodBooksResponse{Mood: string(mood), Data: dto.BooksFromModels(books)})
}
