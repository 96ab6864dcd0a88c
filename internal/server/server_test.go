package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/snackclub/snackboard/internal/ratings"
	"github.com/snackclub/snackboard/internal/report"
)

func testReport(t *testing.T) *report.Report {
	t.Helper()
	schema := ratings.Schema{
		PersonColumn: "Name",
		SnackColumn:  "Snack ID",
		Categories: []ratings.Category{
			{Name: "Flavour", Column: "Flavour"},
			{Name: "Texture", Column: "Texture"},
		},
	}
	rows := []map[string]string{
		{"Name": "Alice", "Snack ID": "S1", "Flavour": "5", "Texture": "5"},
		{"Name": "Bob", "Snack ID": "S1", "Flavour": "1", "Texture": "1"},
	}
	rep, err := report.Build(ratings.Clean(rows, schema), map[string]string{"S1": "Choc Wonder"}, time.Now())
	if err != nil {
		t.Fatalf("failed to build test report: %v", err)
	}
	return rep
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := New(nil)

	w := doRequest(t, s, http.MethodGet, "/health")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestEndpoints_NoDatasetYet(t *testing.T) {
	s := New(nil)

	for _, path := range []string{"/api/overview", "/api/snacks", "/api/matrix", "/api/people"} {
		w := doRequest(t, s, http.MethodGet, path)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s: expected 503 before first publish, got %d", path, w.Code)
		}
	}
}

func TestGetOverview(t *testing.T) {
	s := New(nil)
	s.SetReport(testReport(t))

	w := doRequest(t, s, http.MethodGet, "/api/overview")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var overview report.Overview
	if err := json.Unmarshal(w.Body.Bytes(), &overview); err != nil {
		t.Fatalf("Failed to decode overview: %v", err)
	}
	if overview.RatingCount != 2 || overview.PeopleCount != 2 || overview.SnackCount != 1 {
		t.Errorf("Unexpected overview: %+v", overview)
	}
}

func TestGetSnacks(t *testing.T) {
	s := New(nil)
	s.SetReport(testReport(t))

	w := doRequest(t, s, http.MethodGet, "/api/snacks")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		Categories []string          `json:"categories"`
		Snacks     []report.SnackRow `json:"snacks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode snacks: %v", err)
	}
	if len(body.Snacks) != 1 {
		t.Fatalf("Expected 1 snack, got %d", len(body.Snacks))
	}
	if body.Snacks[0].Label != "Choc Wonder (S1)" {
		t.Errorf("Unexpected label: %q", body.Snacks[0].Label)
	}
	if body.Categories[0] != "Flavour" {
		t.Errorf("Category order lost: %v", body.Categories)
	}
}

func TestGetSnack_NotFound(t *testing.T) {
	s := New(nil)
	s.SetReport(testReport(t))

	w := doRequest(t, s, http.MethodGet, "/api/snacks/unknown")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestGetMatches(t *testing.T) {
	s := New(nil)
	s.SetReport(testReport(t))

	w := doRequest(t, s, http.MethodGet, "/api/people/Alice/matches")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var matches report.PersonMatches
	if err := json.Unmarshal(w.Body.Bytes(), &matches); err != nil {
		t.Fatalf("Failed to decode matches: %v", err)
	}
	if matches.MostSimilar != "Bob" || matches.SimilarityScore != 4.0 {
		t.Errorf("Unexpected matches: %+v", matches)
	}
}

func TestGetMatches_InsufficientData(t *testing.T) {
	schema := ratings.Schema{
		PersonColumn: "Name",
		SnackColumn:  "Snack ID",
		Categories:   []ratings.Category{{Name: "Flavour", Column: "Flavour"}},
	}
	rows := []map[string]string{
		{"Name": "Loner", "Snack ID": "S1", "Flavour": "5"},
	}
	rep, err := report.Build(ratings.Clean(rows, schema), nil, time.Now())
	if err != nil {
		t.Fatalf("failed to build report: %v", err)
	}

	s := New(nil)
	s.SetReport(rep)

	w := doRequest(t, s, http.MethodGet, "/api/people/Loner/matches")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for insufficient data, got %d", w.Code)
	}
}

func TestGetMatrix(t *testing.T) {
	s := New(nil)
	s.SetReport(testReport(t))

	w := doRequest(t, s, http.MethodGet, "/api/matrix")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var matrix report.MatrixView
	if err := json.Unmarshal(w.Body.Bytes(), &matrix); err != nil {
		t.Fatalf("Failed to decode matrix: %v", err)
	}
	if len(matrix.People) != 2 {
		t.Fatalf("Expected 2 people, got %d", len(matrix.People))
	}
	if matrix.Cells[0][0] != nil {
		t.Error("Diagonal should serialize as null")
	}
	if matrix.Cells[0][1] == nil || *matrix.Cells[0][1] != 4.0 {
		t.Errorf("Unexpected off-diagonal cell: %v", matrix.Cells[0][1])
	}
}

func TestPostRefresh(t *testing.T) {
	rep := testReport(t)
	calls := 0
	s := New(func(ctx context.Context) (*report.Report, error) {
		calls++
		return rep, nil
	})

	w := doRequest(t, s, http.MethodPost, "/api/refresh")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if calls != 1 {
		t.Errorf("Expected 1 refresh call, got %d", calls)
	}
	if s.Report() != rep {
		t.Error("Refresh did not publish the new report")
	}
}

func TestPostRefresh_Failure(t *testing.T) {
	s := New(func(ctx context.Context) (*report.Report, error) {
		return nil, errors.New("sheet unreachable")
	})

	w := doRequest(t, s, http.MethodPost, "/api/refresh")
	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d", w.Code)
	}
	if s.Report() != nil {
		t.Error("Failed refresh must not publish a report")
	}
}

func TestPostRefresh_NotConfigured(t *testing.T) {
	s := New(nil)

	w := doRequest(t, s, http.MethodPost, "/api/refresh")
	if w.Code != http.StatusNotImplemented {
		t.Errorf("Expected 501, got %d", w.Code)
	}
}
