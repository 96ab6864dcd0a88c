// Package report composes the engine outputs into presentation-ready
// structures: the overview line, the snack leaderboard with display
// labels, the per-person match table, and the rounded distance matrix.
// Everything here is derived display state; the full-precision values live
// in the engines.
package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/snackclub/snackboard/internal/models"
	"github.com/snackclub/snackboard/internal/ratings"
	"github.com/snackclub/snackboard/internal/similarity"
	"github.com/snackclub/snackboard/internal/stats"
)

// Overview summarizes the cleaned dataset.
type Overview struct {
	RatingCount int       `json:"rating_count"`
	PeopleCount int       `json:"people_count"`
	SnackCount  int       `json:"snack_count"`
	DroppedRows int       `json:"dropped_rows"`
	FetchedAt   time.Time `json:"fetched_at"`
	GeneratedAt time.Time `json:"generated_at"`
}

// SnackRow is one leaderboard entry.
type SnackRow struct {
	SnackID          string             `json:"snack_id"`
	Label            string             `json:"label"`
	RatingCount      int                `json:"rating_count"`
	CategoryAverages map[string]float64 `json:"category_averages"`
	CombinedAverage  float64            `json:"combined_average"`
	BestCategory     string             `json:"best_category"`
}

// PersonMatches is one row of the taste-similarity table: a person's most
// and least similar fellow raters, with scores rounded for display.
type PersonMatches struct {
	Person             string  `json:"person"`
	MostSimilar        string  `json:"most_similar"`
	SimilarityScore    float64 `json:"similarity_score"`
	LeastSimilar       string  `json:"least_similar"`
	DissimilarityScore float64 `json:"dissimilarity_score"`
}

// MatrixView is the distance matrix rounded for display. Diagonal cells
// are nil: self-distance is undefined, not zero.
type MatrixView struct {
	People []string     `json:"people"`
	Cells  [][]*float64 `json:"cells"`
}

// Report is a full dashboard payload for one dataset snapshot.
type Report struct {
	Overview   Overview                        `json:"overview"`
	Categories []string                        `json:"categories"`
	Snacks     []SnackRow                      `json:"snacks"`
	Profiles   map[string]models.PersonProfile `json:"profiles"`
	Matches    []PersonMatches                 `json:"matches,omitempty"`
	Matrix     *MatrixView                     `json:"matrix,omitempty"`

	// SimilarityAvailable is false when fewer than 2 distinct people rated;
	// Matches and Matrix are absent in that case.
	SimilarityAvailable bool `json:"similarity_available"`
}

// Build derives a full report from a cleaned store. The names lookup is
// cosmetic; a nil or incomplete map falls back to raw snack IDs.
func Build(store *ratings.Store, names map[string]string, fetchedAt time.Time) (*Report, error) {
	categories := store.Categories()
	records := store.Records()

	rep := &Report{
		Overview: Overview{
			RatingCount: store.Len(),
			PeopleCount: len(store.People()),
			SnackCount:  len(store.Snacks()),
			DroppedRows: store.Dropped(),
			FetchedAt:   fetchedAt,
			GeneratedAt: time.Now(),
		},
		Categories: categories,
	}

	for _, summary := range stats.Summarize(records, categories) {
		rep.Snacks = append(rep.Snacks, SnackRow{
			SnackID:          summary.SnackID,
			Label:            SnackLabel(summary.SnackID, names),
			RatingCount:      summary.RatingCount,
			CategoryAverages: summary.CategoryAverages,
			CombinedAverage:  summary.CombinedAverage,
			BestCategory:     summary.BestCategory(categories),
		})
	}

	rep.Profiles = similarity.BuildProfiles(records, categories, nil)

	matrix, err := similarity.NewMatrix(rep.Profiles)
	if err != nil {
		if errors.Is(err, similarity.ErrInsufficientData) {
			return rep, nil
		}
		return nil, fmt.Errorf("failed to build distance matrix: %w", err)
	}

	rep.SimilarityAvailable = true
	rep.Matrix = roundMatrix(matrix)

	for _, person := range matrix.People {
		nearest, err := matrix.Nearest(person)
		if err != nil {
			return nil, fmt.Errorf("nearest query for %s: %w", person, err)
		}
		farthest, err := matrix.Farthest(person)
		if err != nil {
			return nil, fmt.Errorf("farthest query for %s: %w", person, err)
		}
		rep.Matches = append(rep.Matches, PersonMatches{
			Person:             person,
			MostSimilar:        nearest.Other,
			SimilarityScore:    stats.Round2(nearest.Score),
			LeastSimilar:       farthest.Other,
			DissimilarityScore: stats.Round2(farthest.Score),
		})
	}

	return rep, nil
}

// SnackLabel renders "Display Name (id)" when a lookup entry exists, and
// the raw id otherwise.
func SnackLabel(snackID string, names map[string]string) string {
	if name, ok := names[snackID]; ok && name != "" {
		return fmt.Sprintf("%s (%s)", name, snackID)
	}
	return snackID
}

// MatchesFor returns the match row for one person, if present.
func (r *Report) MatchesFor(person string) (PersonMatches, bool) {
	for _, m := range r.Matches {
		if m.Person == person {
			return m, true
		}
	}
	return PersonMatches{}, false
}

// SnackFor returns the leaderboard row for one snack ID, if present.
func (r *Report) SnackFor(snackID string) (SnackRow, bool) {
	for _, s := range r.Snacks {
		if s.SnackID == snackID {
			return s, true
		}
	}
	return SnackRow{}, false
}

func roundMatrix(m *similarity.Matrix) *MatrixView {
	view := &MatrixView{People: m.People, Cells: make([][]*float64, len(m.People))}
	for i := range m.People {
		view.Cells[i] = make([]*float64, len(m.People))
		for j := range m.People {
			if i == j {
				continue // nil: self-distance undefined
			}
			v := stats.Round2(m.D[i][j])
			view.Cells[i][j] = &v
		}
	}
	return view
}
