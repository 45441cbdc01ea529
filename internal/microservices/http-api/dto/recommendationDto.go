package dto

import (
	"strconv"

	"theshelf/internal/microservices/http-api/service"
)

type RecommendationResponse struct {
	Book   BookResponse `json:"book"`
	Reason string       `json:"reason"`
	Score  float64      `json:"score"`
}

type RecommendationsResponse struct {
	Data  []RecommendationResponse `json:"data"`
	Count int                      `json:"count"`
}

func NewRecommendationsResponse(recs []service.Recommendation) RecommendationsResponse {
	data := make([]RecommendationResponse, 0, len(recs))
	for _, r := range recs {
		data = append(data, RecommendationResponse{
			Book:   BookFromModel(r.Book),
			Reason: r.Reason,
			Score:  r.Score,
		})
	}
	return RecommendationsResponse{Data: data, Count: len(data)}
}

// MoodResponse describes a supported mood and its filter
type MoodResponse struct {
	Mood        string   `json:"mood"`
	Description string   `json:"description"`
	Filters     []string `json:"filters"`
}

func MoodFromInfo(info service.MoodInfo) MoodResponse {
	filters := make([]string, 0, len(info.Bounds))
	for _, b := range info.Bounds {
		if b.Min != nil {
			filters = append(filters, b.Dimension.Column()+" >= "+formatBound(*b.Min))
		}
		if b.Max != nil {
			filters = append(filters, b.Dimension.Column()+" <= "+formatBound(*b.Max))
		}
	}
	return MoodResponse{Mood: string(info.Mood), Description: info.Description, Filters: filters}
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

type MoodBooksResponse struct {
	Mood string         `json:"mood"`
	Data []BookResponse `json:"data"`
}
