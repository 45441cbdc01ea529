package models

import (
	"time"

	"theshelf/internal/vectormath"
)

// Rating is one user's 7-dimensional opinion of one book. Every dimension is
// optional (nil = not rated on this axis) and, when set, lies in [1,5].
type Rating struct {
	ID     int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID string `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:uq_user_book_rating"`
	BookID int64  `json:"book_id" gorm:"not null;uniqueIndex:uq_user_book_rating;index"`

	Pace                 *int `json:"pace" gorm:"type:smallint;check:pace IS NULL OR (pace >= 1 AND pace <= 5)"`
	EmotionalImpact      *int `json:"emotional_impact" gorm:"type:smallint;check:emotional_impact IS NULL OR (emotional_impact >= 1 AND emotional_impact <= 5)"`
	Complexity           *int `json:"complexity" gorm:"type:smallint;check:complexity IS NULL OR (complexity >= 1 AND complexity <= 5)"`
	CharacterDevelopment *int `json:"character_development" gorm:"type:smallint;check:character_development IS NULL OR (character_development >= 1 AND character_development <= 5)"`
	PlotQuality          *int `json:"plot_quality" gorm:"type:smallint;check:plot_quality IS NULL OR (plot_quality >= 1 AND plot_quality <= 5)"`
	ProseStyle           *int `json:"prose_style" gorm:"type:smallint;check:prose_style IS NULL OR (prose_style >= 1 AND prose_style <= 5)"`
	Originality          *int `json:"originality" gorm:"type:smallint;check:originality IS NULL OR (originality >= 1 AND originality <= 5)"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Associations
	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
	Book *Book `json:"-" gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE;"`
}

func (Rating) TableName() string {
	return "ratings"
}

// Values returns the dimensions in vector order.
func (r *Rating) Values() [NumDimensions]*int {
	return [NumDimensions]*int{
		r.Pace,
		r.EmotionalImpact,
		r.Complexity,
		r.CharacterDevelopment,
		r.PlotQuality,
		r.ProseStyle,
		r.Originality,
	}
}

// Value returns a single dimension.
func (r *Rating) Value(d Dimension) *int {
	if !d.valid() {
		return nil
	}
	return r.Values()[d]
}

// SetValue replaces a single dimension.
func (r *Rating) SetValue(d Dimension, v *int) {
	switch d {
	case DimPace:
		r.Pace = v
	case DimEmotionalImpact:
		r.EmotionalImpact = v
	case DimComplexity:
		r.Complexity = v
	case DimCharacterDevelopment:
		r.CharacterDevelopment = v
	case DimPlotQuality:
		r.PlotQuality = v
	case DimProseStyle:
		r.ProseStyle = v
	case DimOriginality:
		r.Originality = v
	}
}

// HasAnyDimension reports whether at least one dimension is set.
func (r *Rating) HasAnyDimension() bool {
	for _, v := range r.Values() {
		if v != nil {
			return true
		}
	}
	return false
}

// StarEquivalent is the arithmetic mean of the set dimensions, nil when none is set.
func (r *Rating) StarEquivalent() *float64 {
	sum, n := 0, 0
	for _, v := range r.Values() {
		if v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := float64(sum) / float64(n)
	return &avg
}

// Vector projects the rating onto a dense vector, unset dimensions take fill.
func (r *Rating) Vector(fill float64) []float64 {
	values := r.Values()
	opt := make([]*float64, NumDimensions)
	for i, v := range values {
		if v != nil {
			f := float64(*v)
			opt[i] = &f
		}
	}
	return vectormath.FillNeutral(opt, fill)
}
