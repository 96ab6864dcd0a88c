// Package similarity builds per-person taste profiles and a pairwise
// distance matrix over them.
//
// A person's affinity for a snack is the mean of their per-record category
// means for that snack. Pairs the person never rated are filled in with a
// single scalar from the configured Imputer (default: the global mean of
// every individual category score), so every profile spans the full snack
// grid. The distance between two people is the Manhattan distance between
// their affinity vectors divided by the total distinct snack count, an
// average per-snack disagreement that stays comparable across people who
// rated different numbers of snacks.
//
// Self-distance is undefined: the diagonal is stored as NaN and is never a
// candidate in Nearest/Farthest queries. Ties in those queries resolve to
// the alphabetically first person, since people are ordered by name and
// only a strict improvement replaces the current best.
package similarity

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/snackclub/snackboard/internal/models"
)

// ErrInsufficientData is returned when fewer than 2 distinct people exist
// in the record set. A degenerate one-person matrix is never computed.
var ErrInsufficientData = errors.New("need at least 2 distinct people")

// ErrUnknownPerson is returned when a query names a person absent from the
// matrix.
var ErrUnknownPerson = errors.New("unknown person")

// Imputer produces the scalar fallback affinity for (person, snack) pairs
// with no ratings. The global-mean rule is a modeling choice with real
// impact on sparse data, so it is swappable rather than hard-coded.
type Imputer func(records []models.RatingRecord, categories []string) float64

// GlobalMean returns the mean of every individual category score across
// the entire record set. Returns 0 for an empty set.
func GlobalMean(records []models.RatingRecord, categories []string) float64 {
	var sum float64
	var n int
	for _, r := range records {
		for _, cat := range categories {
			sum += r.Scores[cat]
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// BuildProfiles computes one profile per distinct person, with affinity
// entries for every distinct snack in the record set. Missing pairs carry
// the imputed fallback. A nil imputer means GlobalMean.
func BuildProfiles(records []models.RatingRecord, categories []string, impute Imputer) map[string]models.PersonProfile {
	if impute == nil {
		impute = GlobalMean
	}

	type pairKey struct{ person, snack string }
	sums := make(map[pairKey]float64)
	counts := make(map[pairKey]int)
	ratingCounts := make(map[string]int)
	snacks := make(map[string]bool)

	for _, r := range records {
		k := pairKey{r.Person, r.SnackID}
		sums[k] += r.CategoryMean(categories)
		counts[k]++
		ratingCounts[r.Person]++
		snacks[r.SnackID] = true
	}

	fallback := impute(records, categories)

	profiles := make(map[string]models.PersonProfile, len(ratingCounts))
	for person, count := range ratingCounts {
		affinity := make(map[string]float64, len(snacks))
		for snack := range snacks {
			k := pairKey{person, snack}
			if n := counts[k]; n > 0 {
				affinity[snack] = sums[k] / float64(n)
			} else {
				affinity[snack] = fallback
			}
		}
		profiles[person] = models.PersonProfile{
			Person:      person,
			Affinity:    affinity,
			RatingCount: count,
		}
	}

	return profiles
}

// Matrix is the symmetric pairwise distance matrix over a set of profiles.
// People are ordered alphabetically; D[i][j] is the normalized Manhattan
// distance between person i and person j, and D[i][i] is NaN.
type Matrix struct {
	People []string
	D      [][]float64

	index map[string]int
}

// NewMatrix computes the distance matrix for the given profiles. Fails
// with ErrInsufficientData when fewer than 2 people are present.
func NewMatrix(profiles map[string]models.PersonProfile) (*Matrix, error) {
	if len(profiles) < 2 {
		return nil, fmt.Errorf("%w: have %d", ErrInsufficientData, len(profiles))
	}

	people := make([]string, 0, len(profiles))
	for person := range profiles {
		people = append(people, person)
	}
	sort.Strings(people)

	index := make(map[string]int, len(people))
	for i, person := range people {
		index[person] = i
	}

	d := make([][]float64, len(people))
	for i := range d {
		d[i] = make([]float64, len(people))
		d[i][i] = math.NaN()
	}

	for i := 0; i < len(people); i++ {
		for j := i + 1; j < len(people); j++ {
			dist := distance(profiles[people[i]].Affinity, profiles[people[j]].Affinity)
			d[i][j] = dist
			d[j][i] = dist
		}
	}

	return &Matrix{People: people, D: d, index: index}, nil
}

// distance is the Manhattan distance over the union of snack IDs, divided
// by the vector length. Profiles from BuildProfiles share the same key
// set; keys present in only one vector (foreign profiles) still count
// toward the length.
func distance(a, b map[string]float64) float64 {
	union := make(map[string]bool, len(a))
	for snack := range a {
		union[snack] = true
	}
	for snack := range b {
		union[snack] = true
	}
	if len(union) == 0 {
		return 0
	}

	var sum float64
	for snack := range union {
		sum += math.Abs(a[snack] - b[snack])
	}
	return sum / float64(len(union))
}

// Distance returns the distance between two distinct people.
func (m *Matrix) Distance(a, b string) (float64, error) {
	i, ok := m.index[a]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPerson, a)
	}
	j, ok := m.index[b]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPerson, b)
	}
	if i == j {
		return 0, errors.New("self-distance is undefined")
	}
	return m.D[i][j], nil
}

// Nearest returns the person with the smallest distance to the queried
// person, never the person themselves. A zero distance (identical
// profiles) is a valid match.
func (m *Matrix) Nearest(person string) (models.Match, error) {
	return m.scan(person, func(candidate, best float64) bool { return candidate < best })
}

// Farthest returns the person with the largest distance to the queried
// person.
func (m *Matrix) Farthest(person string) (models.Match, error) {
	return m.scan(person, func(candidate, best float64) bool { return candidate > best })
}

// scan walks the queried person's row in alphabetical order and keeps the
// first strict improvement, so ties resolve to the earliest name.
func (m *Matrix) scan(person string, better func(candidate, best float64) bool) (models.Match, error) {
	i, ok := m.index[person]
	if !ok {
		return models.Match{}, fmt.Errorf("%w: %s", ErrUnknownPerson, person)
	}

	match := models.Match{}
	found := false
	for j, other := range m.People {
		if j == i {
			continue
		}
		dist := m.D[i][j]
		if !found || better(dist, match.Score) {
			match = models.Match{Other: other, Score: dist}
			found = true
		}
	}
	if !found {
		return models.Match{}, ErrInsufficientData
	}
	return match, nil
}
