// Package server exposes the latest dashboard report over a JSON HTTP
// API. The server never computes anything itself: the refresh loop (or a
// POST /api/refresh) hands it a fresh report and handlers serve whatever
// report is current.
package server

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/snackclub/snackboard/internal/logger"
	"github.com/snackclub/snackboard/internal/report"
)

// RefreshFunc re-runs the fetch-and-compute cycle and returns the new report.
type RefreshFunc func(ctx context.Context) (*report.Report, error)

// Server serves the current report.
type Server struct {
	router  *gin.Engine
	refresh RefreshFunc

	mu     sync.RWMutex
	latest *report.Report
}

// New creates a server. refresh may be nil, in which case POST
// /api/refresh is rejected.
func New(refresh RefreshFunc) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{router: router, refresh: refresh}

	router.GET("/health", s.health)
	api := router.Group("/api")
	{
		api.GET("/overview", s.getOverview)
		api.GET("/snacks", s.getSnacks)
		api.GET("/snacks/:id", s.getSnack)
		api.GET("/people", s.getPeople)
		api.GET("/people/:name", s.getPerson)
		api.GET("/people/:name/matches", s.getMatches)
		api.GET("/matrix", s.getMatrix)
		api.POST("/refresh", s.postRefresh)
	}

	return s
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetReport publishes a new report; subsequent requests see it.
func (s *Server) SetReport(rep *report.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = rep
}

// Report returns the current report, or nil before the first publish.
func (s *Server) Report() *report.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// current fetches the latest report or writes a 503 when no dataset has
// been loaded yet.
func (s *Server) current(c *gin.Context) (*report.Report, bool) {
	rep := s.Report()
	if rep == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no dataset loaded yet"})
		return nil, false
	}
	return rep, true
}

func (s *Server) getOverview(c *gin.Context) {
	rep, ok := s.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rep.Overview)
}

func (s *Server) getSnacks(c *gin.Context) {
	rep, ok := s.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"categories": rep.Categories,
		"snacks":     rep.Snacks,
	})
}

func (s *Server) getSnack(c *gin.Context) {
	rep, ok := s.current(c)
	if !ok {
		return
	}
	row, ok := rep.SnackFor(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "snack not found"})
		return
	}
	c.JSON(http.StatusOK, row)
}

func (s *Server) getPeople(c *gin.Context) {
	rep, ok := s.current(c)
	if !ok {
		return
	}
	people := make([]string, 0, len(rep.Profiles))
	for person := range rep.Profiles {
		people = append(people, person)
	}
	// Profiles is a map; sort for a stable response.
	sort.Strings(people)
	c.JSON(http.StatusOK, gin.H{"people": people})
}

func (s *Server) getPerson(c *gin.Context) {
	rep, ok := s.current(c)
	if !ok {
		return
	}
	profile, ok := rep.Profiles[c.Param("name")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "person not found"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) getMatches(c *gin.Context) {
	rep, ok := s.current(c)
	if !ok {
		return
	}
	if !rep.SimilarityAvailable {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "need at least 2 people to calculate taste similarity"})
		return
	}
	matches, ok := rep.MatchesFor(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "person not found"})
		return
	}
	c.JSON(http.StatusOK, matches)
}

func (s *Server) getMatrix(c *gin.Context) {
	rep, ok := s.current(c)
	if !ok {
		return
	}
	if !rep.SimilarityAvailable {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "need at least 2 people to calculate taste similarity"})
		return
	}
	c.JSON(http.StatusOK, rep.Matrix)
}

func (s *Server) postRefresh(c *gin.Context) {
	if s.refresh == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "refresh not available"})
		return
	}

	rep, err := s.refresh(c.Request.Context())
	if err != nil {
		logger.Error("Manual refresh failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "refresh failed"})
		return
	}
	s.SetReport(rep)
	c.JSON(http.StatusOK, rep.Overview)
}
