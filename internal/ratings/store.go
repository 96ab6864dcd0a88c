// Package ratings turns raw spreadsheet rows into a cleaned set of rating
// records. Cleaning is all-or-nothing per row: a row missing its person,
// its snack ID, or any rating-category value (including values that fail
// numeric coercion) is dropped entirely, never partially accepted.
package ratings

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/snackclub/snackboard/internal/models"
)

// Category binds a rating category name to its source column header.
type Category struct {
	Name   string
	Column string
}

// Schema maps the logical roles of the ratings sheet to column headers.
// Category order defines both the averaging axes and the display order.
type Schema struct {
	PersonColumn string
	SnackColumn  string
	Categories   []Category
}

// CategoryNames returns the ordered category names of the schema.
func (s Schema) CategoryNames() []string {
	names := make([]string, len(s.Categories))
	for i, cat := range s.Categories {
		names[i] = cat.Name
	}
	return names
}

// Store holds the cleaned records for one dataset snapshot. It is a pure
// value produced by Clean; it holds no I/O and no caching.
type Store struct {
	records    []models.RatingRecord
	categories []string
	dropped    int
}

// Clean filters raw rows against the schema and returns the resulting
// store. Input row order is preserved for the records that survive.
func Clean(rows []map[string]string, schema Schema) *Store {
	store := &Store{categories: schema.CategoryNames()}

	for _, row := range rows {
		record, ok := cleanRow(row, schema)
		if !ok {
			store.dropped++
			continue
		}
		store.records = append(store.records, record)
	}

	return store
}

// FromRecords wraps already-cleaned records (for example a persisted
// snapshot) in a Store without re-cleaning them.
func FromRecords(records []models.RatingRecord, categories []string) *Store {
	return &Store{records: records, categories: categories}
}

// cleanRow validates a single raw row. The second return value is false
// when the row must be excluded.
func cleanRow(row map[string]string, schema Schema) (models.RatingRecord, bool) {
	person := strings.TrimSpace(row[schema.PersonColumn])
	snackID := strings.TrimSpace(row[schema.SnackColumn])
	if person == "" || snackID == "" {
		return models.RatingRecord{}, false
	}

	scores := make(map[string]float64, len(schema.Categories))
	for _, cat := range schema.Categories {
		score, ok := parseScore(row[cat.Column])
		if !ok {
			return models.RatingRecord{}, false
		}
		scores[cat.Name] = score
	}

	return models.RatingRecord{Person: person, SnackID: snackID, Scores: scores}, true
}

// parseScore coerces a raw cell value to a finite float64. Non-coercible
// values are treated as missing.
func parseScore(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, false
	}
	return score, true
}

// Records returns the cleaned records in input order.
func (s *Store) Records() []models.RatingRecord {
	return s.records
}

// Categories returns the ordered category names.
func (s *Store) Categories() []string {
	return s.categories
}

// Len returns the number of cleaned records.
func (s *Store) Len() int {
	return len(s.records)
}

// Dropped returns the number of rows excluded during cleaning.
func (s *Store) Dropped() int {
	return s.dropped
}

// People returns the distinct person names, sorted alphabetically.
func (s *Store) People() []string {
	return s.distinct(func(r models.RatingRecord) string { return r.Person })
}

// Snacks returns the distinct snack IDs, sorted alphabetically.
func (s *Store) Snacks() []string {
	return s.distinct(func(r models.RatingRecord) string { return r.SnackID })
}

func (s *Store) distinct(key func(models.RatingRecord) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range s.records {
		k := key(r)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
