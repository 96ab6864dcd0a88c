package similarity

import (
	"errors"
	"math"
	"testing"

	"github.com/snackclub/snackboard/internal/models"
)

var twoCategories = []string{"Flavour", "Texture"}

func record(person, snack string, flavour, texture float64) models.RatingRecord {
	return models.RatingRecord{
		Person:  person,
		SnackID: snack,
		Scores:  map[string]float64{"Flavour": flavour, "Texture": texture},
	}
}

func TestGlobalMean(t *testing.T) {
	records := []models.RatingRecord{
		record("Alice", "S1", 5, 3),
		record("Bob", "S2", 1, 3),
	}

	// (5 + 3 + 1 + 3) / 4
	if got := GlobalMean(records, twoCategories); got != 3.0 {
		t.Errorf("Expected global mean 3.0, got %v", got)
	}
}

func TestGlobalMean_EmptyRecords(t *testing.T) {
	if got := GlobalMean(nil, twoCategories); got != 0 {
		t.Errorf("Expected 0 for empty records, got %v", got)
	}
}

func TestBuildProfiles(t *testing.T) {
	records := []models.RatingRecord{
		record("Alice", "S1", 5, 5),
		record("Bob", "S1", 1, 1),
	}

	profiles := BuildProfiles(records, twoCategories, nil)

	if len(profiles) != 2 {
		t.Fatalf("Expected 2 profiles, got %d", len(profiles))
	}
	if got := profiles["Alice"].Affinity["S1"]; got != 5.0 {
		t.Errorf("Expected Alice affinity 5.0, got %v", got)
	}
	if got := profiles["Bob"].Affinity["S1"]; got != 1.0 {
		t.Errorf("Expected Bob affinity 1.0, got %v", got)
	}
	if profiles["Alice"].RatingCount != 1 {
		t.Errorf("Expected rating count 1, got %d", profiles["Alice"].RatingCount)
	}
}

// Repeated ratings of the same (person, snack) pair average their
// per-record category means.
func TestBuildProfiles_RepeatedRatings(t *testing.T) {
	records := []models.RatingRecord{
		record("Alice", "S1", 4, 2), // per-record mean 3
		record("Alice", "S1", 5, 5), // per-record mean 5
	}

	profiles := BuildProfiles(records, twoCategories, nil)

	if got := profiles["Alice"].Affinity["S1"]; got != 4.0 {
		t.Errorf("Expected affinity 4.0 (mean of 3 and 5), got %v", got)
	}
	if profiles["Alice"].RatingCount != 2 {
		t.Errorf("Expected rating count 2, got %d", profiles["Alice"].RatingCount)
	}
}

func TestBuildProfiles_ImputesMissingPairs(t *testing.T) {
	records := []models.RatingRecord{
		record("Alice", "S1", 5, 5),
		record("Bob", "S2", 1, 1),
	}

	profiles := BuildProfiles(records, twoCategories, nil)

	// Global mean = (5+5+1+1)/4 = 3.0; Alice never rated S2.
	if got := profiles["Alice"].Affinity["S2"]; got != 3.0 {
		t.Errorf("Expected imputed affinity 3.0, got %v", got)
	}
	if got := profiles["Bob"].Affinity["S1"]; got != 3.0 {
		t.Errorf("Expected imputed affinity 3.0, got %v", got)
	}
}

func TestBuildProfiles_CustomImputer(t *testing.T) {
	records := []models.RatingRecord{
		record("Alice", "S1", 5, 5),
		record("Bob", "S2", 1, 1),
	}

	zero := func([]models.RatingRecord, []string) float64 { return 0 }
	profiles := BuildProfiles(records, twoCategories, zero)

	if got := profiles["Alice"].Affinity["S2"]; got != 0 {
		t.Errorf("Expected custom-imputed affinity 0, got %v", got)
	}
}

// End-to-end example: one snack, opposite ratings, distance |5-1|/1 = 4.
func TestMatrix_SingleSnackDistance(t *testing.T) {
	records := []models.RatingRecord{
		record("A", "S1", 5, 5),
		record("B", "S1", 1, 1),
	}

	m, err := NewMatrix(BuildProfiles(records, twoCategories, nil))
	if err != nil {
		t.Fatalf("NewMatrix failed: %v", err)
	}

	dist, err := m.Distance("A", "B")
	if err != nil {
		t.Fatalf("Distance failed: %v", err)
	}
	if dist != 4.0 {
		t.Errorf("Expected distance 4.0, got %v", dist)
	}

	nearest, err := m.Nearest("A")
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if nearest.Other != "B" || nearest.Score != 4.0 {
		t.Errorf("Unexpected nearest match: %+v", nearest)
	}
}

func TestMatrix_Symmetric(t *testing.T) {
	records := []models.RatingRecord{
		record("Alice", "S1", 5, 4),
		record("Bob", "S1", 2, 1),
		record("Bob", "S2", 3, 3),
		record("Carol", "S2", 5, 5),
	}

	m, err := NewMatrix(BuildProfiles(records, twoCategories, nil))
	if err != nil {
		t.Fatalf("NewMatrix failed: %v", err)
	}

	for i := range m.People {
		for j := range m.People {
			if i == j {
				if !math.IsNaN(m.D[i][j]) {
					t.Errorf("Diagonal D[%d][%d] should be NaN, got %v", i, j, m.D[i][j])
				}
				continue
			}
			if m.D[i][j] != m.D[j][i] {
				t.Errorf("Matrix not symmetric at (%d,%d): %v vs %v", i, j, m.D[i][j], m.D[j][i])
			}
		}
	}
}

// Distance divides by the total distinct snack count, not just snacks both
// people rated.
func TestMatrix_NormalizedByVectorLength(t *testing.T) {
	records := []models.RatingRecord{
		record("A", "S1", 5, 5),
		record("A", "S2", 5, 5),
		record("B", "S1", 1, 1),
		record("B", "S2", 1, 1),
	}

	m, err := NewMatrix(BuildProfiles(records, twoCategories, nil))
	if err != nil {
		t.Fatalf("NewMatrix failed: %v", err)
	}

	// |5-1| + |5-1| = 8, over 2 snacks = 4.
	dist, err := m.Distance("A", "B")
	if err != nil {
		t.Fatalf("Distance failed: %v", err)
	}
	if dist != 4.0 {
		t.Errorf("Expected distance 4.0, got %v", dist)
	}
}

func TestMatrix_IdenticalProfilesAreValidNearest(t *testing.T) {
	records := []models.RatingRecord{
		record("Alice", "S1", 4, 4),
		record("Twin", "S1", 4, 4),
		record("Other", "S1", 1, 1),
	}

	m, err := NewMatrix(BuildProfiles(records, twoCategories, nil))
	if err != nil {
		t.Fatalf("NewMatrix failed: %v", err)
	}

	nearest, err := m.Nearest("Alice")
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if nearest.Other != "Twin" {
		t.Errorf("Expected Twin as nearest, got %s", nearest.Other)
	}
	if nearest.Score != 0 {
		t.Errorf("Expected exact zero distance, got %v", nearest.Score)
	}
}

func TestMatrix_NeverReturnsSelf(t *testing.T) {
	records := []models.RatingRecord{
		record("Alice", "S1", 4, 4),
		record("Bob", "S1", 4, 4),
	}

	m, err := NewMatrix(BuildProfiles(records, twoCategories, nil))
	if err != nil {
		t.Fatalf("NewMatrix failed: %v", err)
	}

	for _, person := range m.People {
		nearest, err := m.Nearest(person)
		if err != nil {
			t.Fatalf("Nearest(%s) failed: %v", person, err)
		}
		if nearest.Other == person {
			t.Errorf("Nearest(%s) returned self", person)
		}
		farthest, err := m.Farthest(person)
		if err != nil {
			t.Fatalf("Farthest(%s) failed: %v", person, err)
		}
		if farthest.Other == person {
			t.Errorf("Farthest(%s) returned self", person)
		}
	}
}

// Equidistant candidates resolve to the alphabetically first name.
func TestMatrix_TieBreakAlphabetical(t *testing.T) {
	records := []models.RatingRecord{
		record("Anchor", "S1", 3, 3),
		record("Zed", "S1", 5, 5), // distance 2 from Anchor
		record("Mia", "S1", 1, 1), // distance 2 from Anchor
	}

	m, err := NewMatrix(BuildProfiles(records, twoCategories, nil))
	if err != nil {
		t.Fatalf("NewMatrix failed: %v", err)
	}

	nearest, err := m.Nearest("Anchor")
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if nearest.Other != "Mia" {
		t.Errorf("Expected tie to resolve to Mia, got %s", nearest.Other)
	}

	farthest, err := m.Farthest("Anchor")
	if err != nil {
		t.Fatalf("Farthest failed: %v", err)
	}
	if farthest.Other != "Mia" {
		t.Errorf("Expected tie to resolve to Mia, got %s", farthest.Other)
	}
}

func TestMatrix_InsufficientData(t *testing.T) {
	records := []models.RatingRecord{
		record("Loner", "S1", 5, 5),
		record("Loner", "S2", 3, 3),
	}

	_, err := NewMatrix(BuildProfiles(records, twoCategories, nil))
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}

	_, err = NewMatrix(nil)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData for empty profiles, got %v", err)
	}
}

func TestMatrix_UnknownPerson(t *testing.T) {
	records := []models.RatingRecord{
		record("Alice", "S1", 5, 5),
		record("Bob", "S1", 1, 1),
	}

	m, err := NewMatrix(BuildProfiles(records, twoCategories, nil))
	if err != nil {
		t.Fatalf("NewMatrix failed: %v", err)
	}

	if _, err := m.Nearest("Stranger"); !errors.Is(err, ErrUnknownPerson) {
		t.Errorf("Expected ErrUnknownPerson, got %v", err)
	}
	if _, err := m.Distance("Alice", "Stranger"); !errors.Is(err, ErrUnknownPerson) {
		t.Errorf("Expected ErrUnknownPerson, got %v", err)
	}
}
