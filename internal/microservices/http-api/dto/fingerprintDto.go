package dto

import (
	"time"

	"theshelf/internal/microservices/http-api/models"
	"theshelf/internal/microservices/http-api/service"
)

// FingerprintResponse is the public view of a book's aggregate rating.
// A book nobody rated reads as zero ratings and null averages.
type FingerprintResponse struct {
	BookID                  int64      `json:"book_id"`
	AvgPace                 *float64   `json:"avg_pace"`
	AvgEmotionalImpact      *float64   `json:"avg_emotional_impact"`
	AvgComplexity           *float64   `json:"avg_complexity"`
	AvgCharacterDevelopment *float64   `json:"avg_character_development"`
	AvgPlotQuality          *float64   `json:"avg_plot_quality"`
	AvgProseStyle           *float64   `json:"avg_prose_style"`
	AvgOriginality          *float64   `json:"avg_originality"`
	StarEquivalent          *float64   `json:"star_equivalent"`
	TotalRatingCount        int        `json:"total_rating_count"`
	HasRatings              bool       `json:"has_ratings"`
	UpdatedAt               *time.Time `json:"updated_at,omitempty"`
}

func FingerprintFromModel(fp *models.Fingerprint) FingerprintResponse {
	resp := FingerprintResponse{
		BookID:                  fp.BookID,
		AvgPace:                 fp.AvgPace,
		AvgEmotionalImpact:      fp.AvgEmotionalImpact,
		AvgComplexity:           fp.AvgComplexity,
		AvgCharacterDevelopment: fp.AvgCharacterDevelopment,
		AvgPlotQuality:          fp.AvgPlotQuality,
		AvgProseStyle:           fp.AvgProseStyle,
		AvgOriginality:          fp.AvgOriginality,
		StarEquivalent:          fp.StarEquivalent,
		TotalRatingCount:        fp.TotalRatingCount,
		HasRatings:              fp.HasRatings(),
	}
	if !fp.UpdatedAt.IsZero() {
		t := fp.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

// ChartPoint is one axis of a radar chart
type ChartPoint struct {
	Dimension string  `json:"dimension"`
	Value     float64 `json:"value"`
}

type ChartDataResponse struct {
	BookID     int64        `json:"book_id"`
	Source     string       `json:"source"`
	Dimensions []ChartPoint `json:"dimensions"`
}

// ChartDataFromService labels every axis; a missing value plots as 0.
func ChartDataFromService(d *service.ChartData) ChartDataResponse {
	points := make([]ChartPoint, 0, models.NumDimensions)
	for _, dim := range models.Dimensions {
		var v float64
		if p := d.Values[dim]; p != nil {
			v = Round(*p, 2)
		}
		points = append(points, ChartPoint{Dimension: dim.Label(), Value: v})
	}
	return ChartDataResponse{BookID: d.BookID, Source: d.Source, Dimensions: points}
}
