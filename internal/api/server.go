package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/claimspilot/pkg/models"
)

// Runner executes one agent cycle; the orchestrator implements it, and the
// handler tests substitute a stub.
type Runner interface {
	Run(ctx context.Context, triggerSource string) (*models.RunSummary, error)
}

// RunHistory records and lists completed runs
type RunHistory interface {
	InsertRunSummary(ctx context.Context, summary *models.RunSummary) error
	ListRecentRuns(ctx context.Context, limit int) ([]*models.RunSummary, error)
}

// Server represents the API server
type Server struct {
	echo    *echo.Echo
	port    int
	secret  string
	runner  Runner
	history RunHistory
}

// NewServer creates a new API server
func NewServer(port int, secret string, runner Runner, history RunHistory) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo:    e,
		port:    port,
		secret:  secret,
		runner:  runner,
		history: history,
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	v1 := s.echo.Group("/api/v1")

	v1.POST("/agent/run", s.triggerAgentRun)
	v1.GET("/agent/runs/recent", s.getRecentRuns)
}

// Start begins the API server and blocks until interrupted
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}

// Echo exposes the router for handler tests
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
