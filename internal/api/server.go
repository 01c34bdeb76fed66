// Package api serves the read-only status endpoints.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"perptrader/internal/journal"
	"perptrader/internal/market"
	"perptrader/internal/monitor"
	"perptrader/pkg/exchanges/backpack"
)

// MarketCatalogue lists the venue's tradeable markets.
type MarketCatalogue interface {
	GetMarkets(ctx context.Context) ([]backpack.Market, error)
}

// Meta describes the running configuration exposed on /api/status.
type Meta struct {
	Venues  []string `json:"venues"`
	Symbols []string `json:"symbols"`
	Version string   `json:"version"`
}

// Server wires the status endpoints. Everything it serves is read-only;
// trading control stays with the per-venue loops.
type Server struct {
	Router  *gin.Engine
	Metrics *monitor.Metrics
	Journal *journal.Journal
	Feed    *market.Feed
	Markets MarketCatalogue
	Meta    Meta
}

func NewServer(metrics *monitor.Metrics, j *journal.Journal, feed *market.Feed, markets MarketCatalogue, meta Meta) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		Router:  r,
		Metrics: metrics,
		Journal: j,
		Feed:    feed,
		Markets: markets,
		Meta:    meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)

	api := s.Router.Group("/api")
	{
		api.GET("/status", s.getStatus)
		api.GET("/cycles", s.getCycles)
		api.GET("/prices", s.getPrices)
		api.GET("/markets", s.getMarkets)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getStatus(c *gin.Context) {
	venues, uptime := s.Metrics.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"meta":           s.Meta,
		"uptime_seconds": int64(uptime.Seconds()),
		"venues":         venues,
	})
}

func (s *Server) getCycles(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	cycles, err := s.Journal.RecentCycles(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if cycles == nil {
		cycles = []journal.CycleRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"cycles": cycles})
}

func (s *Server) getPrices(c *gin.Context) {
	if s.Feed == nil {
		c.JSON(http.StatusOK, gin.H{"prices": map[string]market.Tick{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prices": s.Feed.Snapshot()})
}

func (s *Server) getMarkets(c *gin.Context) {
	if s.Markets == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "market catalogue not configured"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	markets, err := s.Markets.GetMarkets(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"markets": markets})
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
