package models

// PersonProfile is one person's taste profile: their affinity for every
// snack in the dataset. Affinity for a snack the person actually rated is
// the mean across categories and across repeated ratings; snacks they never
// rated carry an imputed fallback value so profiles are comparable over the
// full snack grid.
type PersonProfile struct {
	Person      string             `json:"person"`
	Affinity    map[string]float64 `json:"affinity"`
	RatingCount int                `json:"rating_count"` // raw ratings this person submitted
}

// Match is the result of a nearest or farthest taste query: the other
// person and the normalized Manhattan distance to them. Lower means more
// similar taste.
type Match struct {
	Other string  `json:"other"`
	Score float64 `json:"score"`
}
