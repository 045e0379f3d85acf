package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"mygovpulse/internal/config"
	"mygovpulse/internal/usecase"
)

// Server exposes the dashboard-facing HTTP interface.
type Server struct {
	cfg    config.Config
	orch   *usecase.Orchestrator
	logger *slog.Logger
}

// NewServer wires the orchestrator behind the serving routes.
func NewServer(cfg config.Config, orch *usecase.Orchestrator, logger *slog.Logger) *Server {
	return &Server{cfg: cfg, orch: orch, logger: logger}
}

// Router builds the gin engine with all dashboard routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/live-comments", s.liveComments)
	r.GET("/api/refresh-now", s.refreshNow)
	r.POST("/api/refresh-now", s.refreshNow)
	r.GET("/api/sources", s.sources)
	r.GET("/api/health", s.health)

	return r
}

// liveComments triggers a refresh when the source is stale and returns
// the current snapshot without waiting for the refresh to finish.
func (s *Server) liveComments(c *gin.Context) {
	sourceID := c.DefaultQuery("source", "site1")
	if _, ok := s.cfg.SourceByID(sourceID); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown source: %s", sourceID)})
		return
	}

	s.orch.Trigger(sourceID, false)

	snapshot, _ := s.orch.Snapshot(sourceID)
	c.JSON(http.StatusOK, snapshot)
}

// refreshNow forces a refresh attempt and reports whether one started.
func (s *Server) refreshNow(c *gin.Context) {
	sourceID := c.DefaultQuery("source", "site1")
	if _, ok := s.cfg.SourceByID(sourceID); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown source: %s", sourceID)})
		return
	}

	started := s.orch.Trigger(sourceID, true)
	c.JSON(http.StatusOK, gin.H{"ok": true, "started": started, "source": sourceID})
}

func (s *Server) sources(c *gin.Context) {
	type sourceInfo struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	}

	infos := make([]sourceInfo, 0, len(s.cfg.Sources))
	for _, src := range s.cfg.Sources {
		infos = append(infos, sourceInfo{ID: src.ID, Name: src.Name, URL: src.URL})
	}

	c.JSON(http.StatusOK, gin.H{
		"sources":                  infos,
		"refresh_interval_seconds": s.cfg.Refresh.IntervalSeconds,
		"max_pages_per_scrape":     s.cfg.Refresh.MaxPages,
		"gemini_enabled":           s.cfg.Gemini.Enabled(),
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "service": "mygovpulse"})
}
