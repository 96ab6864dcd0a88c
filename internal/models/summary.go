package models

// SnackSummary holds the derived statistics for one snack. It is recomputed
// in full on every aggregation pass, never updated incrementally.
//
// CategoryAverages and CombinedAverage are rounded to 2 decimals for
// display. The combined average is computed from the unrounded category
// means and rounded once, so it is not necessarily the mean of the rounded
// CategoryAverages values.
type SnackSummary struct {
	SnackID          string             `json:"snack_id"`
	RatingCount      int                `json:"rating_count"`
	CategoryAverages map[string]float64 `json:"category_averages"`
	CombinedAverage  float64            `json:"combined_average"`
}

// BestCategory returns the category with the highest average for this
// snack. Ties go to the category listed first in the ordered set.
func (s *SnackSummary) BestCategory(categories []string) string {
	best := ""
	bestAvg := 0.0
	for _, cat := range categories {
		avg, ok := s.CategoryAverages[cat]
		if !ok {
			continue
		}
		if best == "" || avg > bestAvg {
			best = cat
			bestAvg = avg
		}
	}
	return best
}
