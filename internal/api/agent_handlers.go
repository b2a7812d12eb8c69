package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// SecretHeader carries the shared trigger secret
const SecretHeader = "X-Agent-Secret"

// triggerAgentRun runs one agent cycle. The external scheduler calls this on
// its cadence; authorization happens before any side effect, and the request
// carries no other input.
func (s *Server) triggerAgentRun(c echo.Context) error {
	if !s.authorized(c) {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "unauthorized",
		})
	}

	summary, err := s.runner.Run(c.Request().Context(), "http_trigger")
	if err != nil {
		log.Error().Err(err).Msg("agent run failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	if s.history != nil {
		if err := s.history.InsertRunSummary(c.Request().Context(), summary); err != nil {
			// History is best effort; the run itself succeeded
			log.Error().Err(err).Str("run_id", summary.RunID).Msg("failed to record run summary")
		}
	}

	return c.JSON(http.StatusOK, summary)
}

// getRecentRuns returns the latest run summaries for the dashboard
func (s *Server) getRecentRuns(c echo.Context) error {
	if !s.authorized(c) {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "unauthorized",
		})
	}

	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	if s.history == nil {
		return c.JSON(http.StatusOK, []interface{}{})
	}

	runs, err := s.history.ListRecentRuns(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, runs)
}

// authorized compares the shared secret in constant time
func (s *Server) authorized(c echo.Context) bool {
	if s.secret == "" {
		return false
	}
	provided := c.Request().Header.Get(SecretHeader)
	return subtle.ConstantTimeCompare([]byte(provided), []byte(s.secret)) == 1
}
