package api

import (
	"context"
	"fmt"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"
	"github.com/venke07/conductor/internal/orchestrator"
	"go.uber.org/zap"
)

// StreamRequest is the first and only client message on
// /v1/workflows/stream.
type StreamRequest struct {
	Mode            orchestrator.Mode `json:"mode"`
	SessionID       string            `json:"sessionId"`
	Prompt          string            `json:"prompt"`
	Agents          []string          `json:"agents"`
	AvailableAgents []string          `json:"availableAgents"`
}

// StreamMessage is sent by the server: one "event" per step event, then a
// final "result" or "error".
type StreamMessage struct {
	Type   string                  `json:"type"`
	Event  *orchestrator.StepEvent `json:"event,omitempty"`
	Result *orchestrator.Result    `json:"result,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

func (s *Server) handleStream(c echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return nil
	}
	defer conn.CloseNow()

	ctx := c.Request().Context()
	var req StreamRequest
	if err := wsjson.Read(ctx, conn, &req); err != nil {
		conn.Close(websocket.StatusUnsupportedData, "expected a JSON workflow request")
		return nil
	}

	observer := func(ev orchestrator.StepEvent) {
		if err := wsjson.Write(ctx, conn, StreamMessage{Type: "event", Event: &ev}); err != nil {
			s.logger.Debug("dropping stream event", zap.Error(err))
		}
	}

	res, err := s.runStream(ctx, req, observer)
	if err != nil {
		_ = wsjson.Write(ctx, conn, StreamMessage{Type: "error", Error: err.Error()})
		conn.Close(websocket.StatusNormalClosure, "")
		return nil
	}
	if err := wsjson.Write(ctx, conn, StreamMessage{Type: "result", Result: res}); err != nil {
		return nil
	}
	conn.Close(websocket.StatusNormalClosure, "")
	return nil
}

func (s *Server) runStream(ctx context.Context, req StreamRequest, obs orchestrator.Observer) (*orchestrator.Result, error) {
	switch req.Mode {
	case orchestrator.ModeSequential, "":
		return s.engine.RunWorkflow(ctx, orchestrator.WorkflowRequest{
			SessionID: req.SessionID, Prompt: req.Prompt, AgentIDs: req.Agents, Observer: obs,
		})
	case orchestrator.ModeParallel:
		return s.engine.RunParallel(ctx, orchestrator.ParallelRequest{
			SessionID: req.SessionID, Prompt: req.Prompt, AgentIDs: req.Agents, Observer: obs,
		})
	case orchestrator.ModeAutonomous:
		return s.engine.RunAutonomous(ctx, orchestrator.AutonomousRequest{
			SessionID: req.SessionID, Prompt: req.Prompt, AvailableAgents: req.AvailableAgents, Observer: obs,
		})
	default:
		return nil, fmt.Errorf("unknown mode %q", req.Mode)
	}
}
