package service

import "errors"

var (
	ErrBookNotFound   = errors.New("book not found")
	ErrRatingNotFound = errors.New("rating not found")

	// ErrEmptyRating rejects a rating that sets none of the seven dimensions.
	ErrEmptyRating = errors.New("rating must set at least one dimension")
	// ErrInvalidDimension rejects a dimension value outside [1,5].
	ErrInvalidDimension = errors.New("rating dimensions must be between 1 and 5")

	// ErrFingerprintRecompute is retryable: the rating write was rolled back.
	ErrFingerprintRecompute = errors.New("fingerprint recompute failed")

	ErrUnknownMood = errors.New("unknown mood")
)
