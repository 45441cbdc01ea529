package dto

import "theshelf/internal/microservices/http-api/models"

type GenreResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func GenreFromModel(g models.Genre) GenreResponse {
	return GenreResponse{
		ID:   g.ID,
		Name: g.Name,
	}
}
