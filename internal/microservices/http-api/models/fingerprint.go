package models

import (
	"time"

	"theshelf/internal/vectormath"
)

// Fingerprint is the per-book aggregate over every current Rating of the book.
// It is a derived cache: always rebuilt from the live ratings, never patched.
type Fingerprint struct {
	BookID int64 `json:"book_id" gorm:"primaryKey;autoIncrement:false"`

	AvgPace                 *float64 `json:"avg_pace"`
	AvgEmotionalImpact      *float64 `json:"avg_emotional_impact"`
	AvgComplexity           *float64 `json:"avg_complexity"`
	AvgCharacterDevelopment *float64 `json:"avg_character_development"`
	AvgPlotQuality          *float64 `json:"avg_plot_quality"`
	AvgProseStyle           *float64 `json:"avg_prose_style"`
	AvgOriginality          *float64 `json:"avg_originality"`

	StarEquivalent   *float64  `json:"star_equivalent"`
	TotalRatingCount int       `json:"total_rating_count" gorm:"not null;index"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`

	Book *Book `json:"-" gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE;"`
}

func (Fingerprint) TableName() string {
	return "book_fingerprints"
}

// EmptyFingerprint is what readers see for a book nobody has rated.
func EmptyFingerprint(bookID int64) *Fingerprint {
	return &Fingerprint{BookID: bookID}
}

// Averages returns the per-dimension averages in vector order.
func (f *Fingerprint) Averages() [NumDimensions]*float64 {
	return [NumDimensions]*float64{
		f.AvgPace,
		f.AvgEmotionalImpact,
		f.AvgComplexity,
		f.AvgCharacterDevelopment,
		f.AvgPlotQuality,
		f.AvgProseStyle,
		f.AvgOriginality,
	}
}

// Average returns the average of a single dimension.
func (f *Fingerprint) Average(d Dimension) *float64 {
	if !d.valid() {
		return nil
	}
	return f.Averages()[d]
}

// SetAverage replaces the average of a single dimension.
func (f *Fingerprint) SetAverage(d Dimension, v *float64) {
	switch d {
	case DimPace:
		f.AvgPace = v
	case DimEmotionalImpact:
		f.AvgEmotionalImpact = v
	case DimComplexity:
		f.AvgComplexity = v
	case DimCharacterDevelopment:
		f.AvgCharacterDevelopment = v
	case DimPlotQuality:
		f.AvgPlotQuality = v
	case DimProseStyle:
		f.AvgProseStyle = v
	case DimOriginality:
		f.AvgOriginality = v
	}
}

// HasRatings is false for both a missing row and a row with zero ratings.
func (f *Fingerprint) HasRatings() bool {
	return f != nil && f.TotalRatingCount > 0
}

// IsReliable reports whether enough ratings back the fingerprint for similarity use.
func (f *Fingerprint) IsReliable(floor int) bool {
	return f != nil && f.TotalRatingCount >= floor
}

// Vector projects the fingerprint onto a dense vector, missing averages take fill.
func (f *Fingerprint) Vector(fill float64) []float64 {
	avgs := f.Averages()
	return vectormath.FillNeutral(avgs[:], fill)
}

// SameAggregate compares the aggregate values, ignoring UpdatedAt.
func (f *Fingerprint) SameAggregate(o *Fingerprint) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.BookID != o.BookID || f.TotalRatingCount != o.TotalRatingCount {
		return false
	}
	if !sameFloat(f.StarEquivalent, o.StarEquivalent) {
		return false
	}
	a, b := f.Averages(), o.Averages()
	for i := range a {
		if !sameFloat(a[i], b[i]) {
			return false
		}
	}
	return true
}

func sameFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// DimensionBound is a range predicate over one fingerprint average.
// A nil Min or Max leaves that side open. A missing average never matches.
type DimensionBound struct {
	Dimension Dimension
	Min       *float64
	Max       *float64
}

// AtLeast builds the predicate avg(d) >= v.
func AtLeast(d Dimension, v float64) DimensionBound {
	return DimensionBound{Dimension: d, Min: &v}
}

// AtMost builds the predicate avg(d) <= v.
func AtMost(d Dimension, v float64) DimensionBound {
	return DimensionBound{Dimension: d, Max: &v}
}

// Matches evaluates the bound against a fingerprint.
func (b DimensionBound) Matches(f *Fingerprint) bool {
	if f == nil {
		return false
	}
	avg := f.Average(b.Dimension)
	if avg == nil {
		return false
	}
	if b.Min != nil && *avg < *b.Min {
		return false
	}
	if b.Max != nil && *avg > *b.Max {
		return false
	}
	return true
}
