// Package stats computes per-snack descriptive statistics from cleaned
// rating records.
//
// Every record counts individually: repeated ratings of the same snack by
// the same person are not de-duplicated. The combined average weights each
// category equally (mean of the per-category means, not a mean over raw
// scores) and is computed from the unrounded category means, then rounded
// once; rounding each category first and averaging the rounded values can
// give a different result.
package stats

import (
	"math"
	"sort"

	"github.com/snackclub/snackboard/internal/models"
)

// Summarize groups records by snack ID and returns one summary per snack,
// ordered by combined average descending. Ties keep first-appearance order
// of the snack IDs in the input (stable sort). An empty record set yields
// an empty slice, not an error.
func Summarize(records []models.RatingRecord, categories []string) []models.SnackSummary {
	groups := make(map[string][]models.RatingRecord)
	var order []string
	for _, r := range records {
		if _, seen := groups[r.SnackID]; !seen {
			order = append(order, r.SnackID)
		}
		groups[r.SnackID] = append(groups[r.SnackID], r)
	}

	summaries := make([]models.SnackSummary, 0, len(order))
	for _, snackID := range order {
		summaries = append(summaries, summarizeSnack(snackID, groups[snackID], categories))
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CombinedAverage > summaries[j].CombinedAverage
	})

	return summaries
}

// summarizeSnack computes the per-category means and the combined average
// for one snack's records. A single rating is a valid group (mean of one
// value is that value).
func summarizeSnack(snackID string, group []models.RatingRecord, categories []string) models.SnackSummary {
	averages := make(map[string]float64, len(categories))
	var combined float64
	for _, cat := range categories {
		var sum float64
		for _, r := range group {
			sum += r.Scores[cat]
		}
		mean := sum / float64(len(group))
		combined += mean
		averages[cat] = Round2(mean)
	}
	if len(categories) > 0 {
		combined /= float64(len(categories))
	}

	return models.SnackSummary{
		SnackID:          snackID,
		RatingCount:      len(group),
		CategoryAverages: averages,
		CombinedAverage:  Round2(combined),
	}
}

// Round2 rounds to 2 decimal places, half away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
