// Package server exposes the source registry over HTTP
package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/alvarorichard/Gomanga/internal/scraper"
	"github.com/alvarorichard/Gomanga/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const shutdownTimeout = 10 * time.Second

// allSources is the source name that fans a search out to every source
const allSources = "all"

// reserved query keys that are never forwarded as search filters
var reservedParams = []string{"source", "q", "page"}

// Server serves the HTTP API
type Server struct {
	registry *scraper.Registry
	router   *gin.Engine
}

// New builds the router around a ready registry
func New(registry *scraper.Registry) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{registry: registry, router: gin.New()}
	s.router.Use(requestID(), logRequests(), recoverJSON())
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.GET("/health", s.health)
	r.GET("/debug/stats", s.stats)

	r.GET("/sources", s.sources)
	r.GET("/sources/:name/filters", s.filters)

	titles := r.Group("/titles")
	titles.GET("/popular", s.popular)
	titles.GET("/latest", s.latest)
	titles.GET("/search", s.search)
	titles.GET("/:title_id", s.detail)

	r.GET("/units/*unit_id", s.unit)
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		util.Info("HTTP server listening", "addr", addr, "sources", len(s.registry.Sources()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	util.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Wrap(srv.Shutdown(shutdownCtx), "http shutdown")
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sources": len(s.registry.Sources())})
}

func (s *Server) stats(c *gin.Context) {
	perf := s.registry.Perf()
	c.JSON(http.StatusOK, gin.H{
		"uptime":     perf.Uptime().Round(time.Second).String(),
		"operations": perf.Snapshot(),
	})
}

func (s *Server) sources(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.Sources())
}

func (s *Server) filters(c *gin.Context) {
	groups, err := s.registry.Filters(c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (s *Server) popular(c *gin.Context) {
	s.list(c, s.registry.Popular)
}

func (s *Server) latest(c *gin.Context) {
	s.list(c, s.registry.Latest)
}

func (s *Server) list(c *gin.Context, fetch func(context.Context, string, int) ([]models.Title, error)) {
	source, page, ok := s.sourceAndPage(c)
	if !ok {
		return
	}
	titles, err := fetch(c.Request.Context(), source, page)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Summaries(titles))
}

// sourceSearch is one entry of a search across every source
type sourceSearch struct {
	Source string           `json:"source"`
	Titles []models.Summary `json:"titles"`
	Error  string           `json:"error,omitempty"`
}

func (s *Server) search(c *gin.Context) {
	query := c.Query("q")

	if strings.EqualFold(c.Query("source"), allSources) {
		results := s.registry.SearchAll(c.Request.Context(), query)
		c.JSON(http.StatusOK, lo.Map(results, func(r scraper.SourceResults, _ int) sourceSearch {
			out := sourceSearch{Source: r.Source, Titles: models.Summaries(r.Titles)}
			if r.Err != nil {
				out.Error = r.Err.Error()
			}
			return out
		}))
		return
	}

	source, page, ok := s.sourceAndPage(c)
	if !ok {
		return
	}
	titles, err := s.registry.Search(c.Request.Context(), source, query, page, searchFilters(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Summaries(titles))
}

// searchFilters forwards every non-reserved query key, repeated keys included
func searchFilters(c *gin.Context) models.Filters {
	filters := models.Filters{}
	for key, values := range c.Request.URL.Query() {
		if !lo.Contains(reservedParams, key) {
			filters[key] = values
		}
	}
	return filters
}

func (s *Server) detail(c *gin.Context) {
	source, ok := s.source(c)
	if !ok {
		return
	}
	title, err := s.registry.Detail(c.Request.Context(), source, lo.CoalesceOrEmpty(c.Query("id"), c.Param("title_id")))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, title.Get())
}

// unit accepts ids containing slashes through the wildcard, or any id through ?id=
func (s *Server) unit(c *gin.Context) {
	source, ok := s.source(c)
	if !ok {
		return
	}
	id := lo.CoalesceOrEmpty(c.Query("id"), strings.TrimPrefix(c.Param("unit_id"), "/"))
	unit, err := s.registry.Unit(c.Request.Context(), source, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, unit.Get())
}

func (s *Server) source(c *gin.Context) (string, bool) {
	source := strings.TrimSpace(c.Query("source"))
	if source == "" {
		s.fail(c, errors.Wrap(scraper.ErrInvalidArgument, "source is required"))
		return "", false
	}
	return source, true
}

func (s *Server) sourceAndPage(c *gin.Context) (string, int, bool) {
	source, ok := s.source(c)
	if !ok {
		return "", 0, false
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		s.fail(c, errors.Wrapf(scraper.ErrInvalidArgument, "page %q is not a number", c.Query("page")))
		return "", 0, false
	}
	return source, page, true
}

// fail maps registry errors onto status codes
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, scraper.ErrSourceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, scraper.ErrInvalidArgument):
		status = http.StatusBadRequest
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error":      err.Error(),
		"request_id": c.GetString(requestIDKey),
	})
}
