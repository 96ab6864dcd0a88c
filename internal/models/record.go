// Package models defines the core domain entities for snackboard.
// These models represent validated survey responses, derived per-snack
// statistics, per-person taste profiles, and dataset snapshots.
//
// Terminology:
//   - Record: one validated survey response, holding a person, a snack,
//     and one score per rating category.
//   - Affinity: a person's aggregate score for a snack (mean across
//     categories, then across repeated ratings of the same snack).
package models

import (
	"errors"
	"fmt"
	"math"
)

// RatingRecord is a single cleaned survey response. Every category in the
// configured category set must carry a finite numeric score; rows that
// cannot satisfy this are dropped during cleaning, never repaired.
type RatingRecord struct {
	Person  string             `json:"person"`
	SnackID string             `json:"snack_id"`
	Scores  map[string]float64 `json:"scores"`
}

// Validate checks the record against the ordered category set.
func (r *RatingRecord) Validate(categories []string) error {
	if r.Person == "" {
		return errors.New("person must not be empty")
	}
	if r.SnackID == "" {
		return errors.New("snack ID must not be empty")
	}
	if len(categories) == 0 {
		return errors.New("category set must not be empty")
	}
	for _, cat := range categories {
		score, ok := r.Scores[cat]
		if !ok {
			return fmt.Errorf("missing score for category %q", cat)
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return fmt.Errorf("score for category %q must be finite", cat)
		}
	}
	return nil
}

// CategoryMean returns the mean of this record's scores over the given
// ordered category set. Callers must Validate first; unknown categories
// contribute zero.
func (r *RatingRecord) CategoryMean(categories []string) float64 {
	if len(categories) == 0 {
		return 0
	}
	var sum float64
	for _, cat := range categories {
		sum += r.Scores[cat]
	}
	return sum / float64(len(categories))
}
