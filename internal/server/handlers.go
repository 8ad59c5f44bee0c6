package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PipeOpsHQ/agent-kickoff/flow"
	"github.com/PipeOpsHQ/agent-kickoff/workflow"
)

// KickoffResponse is the body of a successful run.
type KickoffResponse struct {
	AgentID string `json:"agent_id"`
	Message string `json:"message"`
}

type AppInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

func (s *Server) handleRoot(c *gin.Context) {
	writeJSON(c, http.StatusOK, AppInfo{Title: AppTitle, Description: AppDescription, Version: s.cfg.Version})
}

func (s *Server) handleHealth(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleKickoff(c *gin.Context) {
	s.runFlow(c, flow.DefaultName)
}

func (s *Server) handleKickoffFlow(c *gin.Context) {
	s.runFlow(c, c.Param("flow"))
}

func (s *Server) handleFlows(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"flows": flow.All()})
}

func (s *Server) handleFlow(c *gin.Context) {
	def, err := flow.Lookup(c.Param("flow"))
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	writeJSON(c, http.StatusOK, def)
}

func (s *Server) runFlow(c *gin.Context, name string) {
	def, err := flow.Lookup(name)
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	opts := []workflow.Option{
		workflow.WithStepTimeout(s.cfg.StepTimeout),
		workflow.WithSink(s.sink),
	}
	runner, err := def.NewRunner(s.provider, append(opts, s.runOpts...)...)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	if err := runner.Run(c.Request.Context()); err != nil {
		s.logger.Warn("kickoff failed", "flow", name, "run_id", runner.State().ID(), "error", err)
		writeError(c, statusFor(err), err)
		return
	}
	state := runner.State()
	writeJSON(c, http.StatusOK, KickoffResponse{AgentID: state.ID(), Message: state.Message()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, flow.ErrNotFound):
		return http.StatusNotFound
	case workflow.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

func writeError(c *gin.Context, status int, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	writeJSON(c, status, gin.H{"error": msg})
}
