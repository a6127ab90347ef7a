// Package schema validates payloads exchanged with the analysis backend.
package schema

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"speech-sentiment-service/internal/models"
)

var (
	ErrNilResult       = errors.New("analysis result is missing")
	ErrScoreOutOfRange = errors.New("sentiment score out of range [-1, 1]")
	ErrEmptyKeyword    = errors.New("keyword is empty")
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// ValidateResult checks that a decoded result honors the wire contract.
// A missing keywords list is accepted and normalized to empty by Normalize.
func (v *Validator) ValidateResult(r *models.AnalysisResult) error {
	if r == nil {
		return ErrNilResult
	}
	if math.IsNaN(r.SentimentScore) || r.SentimentScore < -1 || r.SentimentScore > 1 {
		return fmt.Errorf("%w: %v", ErrScoreOutOfRange, r.SentimentScore)
	}
	for i, kw := range r.Keywords {
		if kw == "" {
			return fmt.Errorf("%w: index %d", ErrEmptyKeyword, i)
		}
	}
	log.Debug().
		Float64("sentimentScore", r.SentimentScore).
		Int("keywords", len(r.Keywords)).
		Msg("analysis result validated")
	return nil
}

// Normalize fills optional fields with their zero-length defaults.
func (v *Validator) Normalize(r *models.AnalysisResult) {
	if r != nil && r.Keywords == nil {
		r.Keywords = []string{}
	}
}
