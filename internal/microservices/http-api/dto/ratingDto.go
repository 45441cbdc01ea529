package dto

import (
	"encoding/json"
	"math"
	"time"

	"theshelf/internal/microservices/http-api/models"
	"theshelf/internal/microservices/http-api/service"
)

// CreateRatingDTO for creating or updating a rating. On update an omitted
// dimension keeps its stored value and an explicit null clears it.
type CreateRatingDTO struct {
	BookID               int64 `json:"book_id" binding:"required,min=1"`
	Pace                 *int  `json:"pace" binding:"omitempty,min=1,max=5"`
	EmotionalImpact      *int  `json:"emotional_impact" binding:"omitempty,min=1,max=5"`
	Complexity           *int  `json:"complexity" binding:"omitempty,min=1,max=5"`
	CharacterDevelopment *int  `json:"character_development" binding:"omitempty,min=1,max=5"`
	PlotQuality          *int  `json:"plot_quality" binding:"omitempty,min=1,max=5"`
	ProseStyle           *int  `json:"prose_style" binding:"omitempty,min=1,max=5"`
	Originality          *int  `json:"originality" binding:"omitempty,min=1,max=5"`

	sent [models.NumDimensions]bool
}

// UnmarshalJSON records which dimension keys were present in the body.
func (d *CreateRatingDTO) UnmarshalJSON(data []byte) error {
	type plain CreateRatingDTO
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}

	*d = CreateRatingDTO(p)
	for _, dim := range models.Dimensions {
		_, d.sent[dim] = keys[dim.String()]
	}
	return nil
}

// Values returns the dimensions in vector order.
func (d CreateRatingDTO) Values() service.RatingValues {
	return service.RatingValues{
		d.Pace,
		d.EmotionalImpact,
		d.Complexity,
		d.CharacterDevelopment,
		d.PlotQuality,
		d.ProseStyle,
		d.Originality,
	}
}

// Input pairs the values with the keys the client sent. A non-null value
// always counts as sent.
func (d CreateRatingDTO) Input() service.RatingInput {
	in := service.NewRatingInput(d.Values())
	for dim, sent := range d.sent {
		in.Sent[dim] = in.Sent[dim] || sent
	}
	return in
}

// RatingResponse for returning the caller's own rating
type RatingResponse struct {
	ID                   int64     `json:"id"`
	BookID               int64     `json:"book_id"`
	Pace                 *int      `json:"pace"`
	EmotionalImpact      *int      `json:"emotional_impact"`
	Complexity           *int      `json:"complexity"`
	CharacterDevelopment *int      `json:"character_development"`
	PlotQuality          *int      `json:"plot_quality"`
	ProseStyle           *int      `json:"prose_style"`
	Originality          *int      `json:"originality"`
	StarEquivalent       *float64  `json:"star_equivalent"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// FromModelToRatingResponse converts a Rating model to RatingResponse DTO
func FromModelToRatingResponse(rating *models.Rating) *RatingResponse {
	return &RatingResponse{
		ID:                   rating.ID,
		BookID:               rating.BookID,
		Pace:                 rating.Pace,
		EmotionalImpact:      rating.EmotionalImpact,
		Complexity:           rating.Complexity,
		CharacterDevelopment: rating.CharacterDevelopment,
		PlotQuality:          rating.PlotQuality,
		ProseStyle:           rating.ProseStyle,
		Originality:          rating.Originality,
		StarEquivalent:       RoundPtr(rating.StarEquivalent(), 2),
		CreatedAt:            rating.CreatedAt,
		UpdatedAt:            rating.UpdatedAt,
	}
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func RoundPtr(v *float64, decimals int) *float64 {
	if v == nil {
		return nil
	}
	r := Round(*v, decimals)
	return &r
}
