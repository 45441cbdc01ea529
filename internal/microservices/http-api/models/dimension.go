package models

// Dimension identifies one axis of the 7-dimensional "feel" rating.
type Dimension int

const (
	DimPace Dimension = iota
	DimEmotionalImpact
	DimComplexity
	DimCharacterDevelopment
	DimPlotQuality
	DimProseStyle
	DimOriginality
)

// NumDimensions is the length of every rating and fingerprint vector.
const NumDimensions = 7

// Dimensions lists every dimension in vector order.
var Dimensions = [NumDimensions]Dimension{
	DimPace,
	DimEmotionalImpact,
	DimComplexity,
	DimCharacterDevelopment,
	DimPlotQuality,
	DimProseStyle,
	DimOriginality,
}

var dimensionNames = [NumDimensions]string{
	"pace",
	"emotional_impact",
	"complexity",
	"character_development",
	"plot_quality",
	"prose_style",
	"originality",
}

// chart labels
var dimensionLabels = [NumDimensions]string{
	"Pace",
	"Emotion",
	"Complexity",
	"Character",
	"Plot",
	"Prose",
	"Originality",
}

func (d Dimension) valid() bool {
	return d >= 0 && int(d) < NumDimensions
}

// String returns the rating column name, e.g. "emotional_impact".
func (d Dimension) String() string {
	if !d.valid() {
		return "unknown"
	}
	return dimensionNames[d]
}

// Column returns the fingerprint column holding the dimension's average.
func (d Dimension) Column() string {
	return "avg_" + d.String()
}

// Label is the short display name used by radar charts.
func (d Dimension) Label() string {
	if !d.valid() {
		return "Unknown"
	}
	return dimensionLabels[d]
}
