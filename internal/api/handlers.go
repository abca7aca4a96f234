package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/venke07/conductor/internal/orchestrator"
	"github.com/venke07/conductor/internal/state"
	"go.uber.org/zap"
)

func (s *Server) handleAgents(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Registry().Agents())
}

func (s *Server) handleCapabilities(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Registry().Capabilities())
}

type textRequest struct {
	Text            string   `json:"text"`
	AvailableAgents []string `json:"availableAgents"`
}

func bindText(c echo.Context) (textRequest, error) {
	var req textRequest
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" {
		return req, echo.NewHTTPError(http.StatusBadRequest, "text field is required")
	}
	return req, nil
}

func (s *Server) handleClassify(c echo.Context) error {
	req, err := bindText(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.engine.Classify(req.Text))
}

func (s *Server) handlePlan(c echo.Context) error {
	req, err := bindText(c)
	if err != nil {
		return err
	}
	plan, err := s.engine.PlanTask(req.Text, req.AvailableAgents)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plan)
}

func (s *Server) handleSequential(c echo.Context) error {
	var req orchestrator.WorkflowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := s.engine.RunWorkflow(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleParallel(c echo.Context) error {
	var req orchestrator.ParallelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := s.engine.RunParallel(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleAutonomous(c echo.Context) error {
	var req orchestrator.AutonomousRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := s.engine.RunAutonomous(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// handleGetSession returns the session as JSON, or as YAML with
// ?format=yaml.
func (s *Server) handleGetSession(c echo.Context) error {
	sc, err := s.engine.Session(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if c.QueryParam("format") == "yaml" {
		data, err := state.Snapshot(sc)
		if err != nil {
			return err
		}
		return c.Blob(http.StatusOK, "application/yaml", data)
	}
	return c.JSON(http.StatusOK, sc)
}

func (s *Server) handleClearSession(c echo.Context) error {
	id := c.Param("id")
	if err := s.engine.ClearSession(c.Request().Context(), id); err != nil {
		return err
	}
	s.logger.Debug("session cleared", zap.String("session_id", id))
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleTools(c echo.Context) error {
	if s.tools == nil {
		return echo.NewHTTPError(http.StatusNotFound, "tools are disabled")
	}
	return c.JSON(http.StatusOK, s.tools.Registry().Tools())
}

func (s *Server) handleExecuteTools(c echo.Context) error {
	if s.tools == nil {
		return echo.NewHTTPError(http.StatusNotFound, "tools are disabled")
	}
	req, err := bindText(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.tools.Execute(c.Request().Context(), req.Text))
}

func (s *Server) handleListRuns(c echo.Context) error {
	if s.runs == nil {
		return echo.NewHTTPError(http.StatusNotFound, "run archive is disabled")
	}
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	runs, err := s.runs.ListRuns(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, runs)
}

func (s *Server) handleGetRun(c echo.Context) error {
	if s.runs == nil {
		return echo.NewHTTPError(http.StatusNotFound, "run archive is disabled")
	}
	run, err := s.runs.GetRun(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, run)
}
