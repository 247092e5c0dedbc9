package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jroosing/hydrahost/internal/api/models"
	"github.com/jroosing/hydrahost/internal/errs"
	"github.com/jroosing/hydrahost/internal/metrics"
	"github.com/jroosing/hydrahost/internal/server"
)

// metricsSource is implemented by servers built on server.Runtime.
type metricsSource interface {
	Metrics() *metrics.ServerMetrics
}

func describe(s server.Server) models.ServerResponse {
	resp := models.ServerResponse{
		Name:       s.Name(),
		Kind:       s.Kind(),
		State:      s.State().String(),
		Healthy:    s.State() == server.StateRunning,
		Statistics: s.Statistics().Snapshot(),
	}
	if ms, ok := s.(metricsSource); ok {
		if m := ms.Metrics(); m != nil {
			resp.Counters = m.Snapshot().Custom
		}
	}
	return resp
}

func (h *Handler) lookup(c *gin.Context) (server.Server, bool) {
	name := c.Param("name")
	if h.servers != nil {
		if s, ok := h.servers.Server(name); ok {
			return s, true
		}
	}
	c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "server not found: " + name})
	return nil, false
}

// ListServers godoc
// @Summary List servers
// @Description Returns every configured server with its state and statistics
// @Tags servers
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} models.ServersResponse
// @Router /servers [get]
func (h *Handler) ListServers(c *gin.Context) {
	resp := models.ServersResponse{Servers: []models.ServerResponse{}}
	if h.servers != nil {
		for _, s := range h.servers.Servers() {
			resp.Servers = append(resp.Servers, describe(s))
		}
	}
	resp.Count = len(resp.Servers)
	c.JSON(http.StatusOK, resp)
}

// GetServer godoc
// @Summary Get a server
// @Description Returns one server's state and statistics
// @Tags servers
// @Produce json
// @Security ApiKeyAuth
// @Param name path string true "Server name"
// @Success 200 {object} models.ServerResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /servers/{name} [get]
func (h *Handler) GetServer(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, describe(s))
}

// ServerHealth godoc
// @Summary Server health
// @Description Reports whether a server is running
// @Tags servers
// @Produce json
// @Security ApiKeyAuth
// @Param name path string true "Server name"
// @Success 200 {object} models.ServerHealthResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ServerHealthResponse
// @Router /servers/{name}/health [get]
func (h *Handler) ServerHealth(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	healthy := s.CheckHealth(c.Request.Context())
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, models.ServerHealthResponse{Name: s.Name(), Healthy: healthy, State: s.State().String()})
}

// StartServer godoc
// @Summary Start a server
// @Description Starts a stopped server
// @Tags servers
// @Produce json
// @Security ApiKeyAuth
// @Param name path string true "Server name"
// @Success 200 {object} models.ServerActionResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse "Server is not stopped"
// @Failure 500 {object} models.ErrorResponse
// @Router /servers/{name}/start [post]
func (h *Handler) StartServer(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	ctx, cancel := h.actionContext(c.Request.Context())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		h.actionFailed(c, s, "start", err)
		return
	}
	c.JSON(http.StatusOK, models.ServerActionResponse{Name: s.Name(), State: s.State().String(), Message: "server started"})
}

// StopServer godoc
// @Summary Stop a server
// @Description Stops a running server. Stopping a server that is not running is a no-op.
// @Tags servers
// @Produce json
// @Security ApiKeyAuth
// @Param name path string true "Server name"
// @Success 200 {object} models.ServerActionResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /servers/{name}/stop [post]
func (h *Handler) StopServer(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	ctx, cancel := h.actionContext(c.Request.Context())
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		h.actionFailed(c, s, "stop", err)
		return
	}
	c.JSON(http.StatusOK, models.ServerActionResponse{Name: s.Name(), State: s.State().String(), Message: "server stopped"})
}

// ResetServer godoc
// @Summary Reset a failed server
// @Description Moves a server in the error state back to stopped so it can be started again
// @Tags servers
// @Produce json
// @Security ApiKeyAuth
// @Param name path string true "Server name"
// @Success 200 {object} models.ServerActionResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse "Server is not in the error state"
// @Failure 501 {object} models.ErrorResponse
// @Router /servers/{name}/reset [post]
func (h *Handler) ResetServer(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	r, ok := s.(Resetter)
	if !ok {
		c.JSON(http.StatusNotImplemented, models.ErrorResponse{Error: "server cannot be reset: " + s.Name()})
		return
	}
	if err := r.Reset(); err != nil {
		h.actionFailed(c, s, "reset", err)
		return
	}
	c.JSON(http.StatusOK, models.ServerActionResponse{Name: s.Name(), State: s.State().String(), Message: "server reset"})
}

func (h *Handler) actionFailed(c *gin.Context, s server.Server, action string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, errs.ErrInvalidState) {
		status = http.StatusConflict
	} else {
		h.logger.Error("server action failed", "server", s.Name(), "action", action, "err", err)
	}
	c.JSON(status, models.ErrorResponse{Error: err.Error()})
}
