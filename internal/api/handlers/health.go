package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/jroosing/hydrahost/internal/api/models"
	"github.com/jroosing/hydrahost/internal/server"
)

const bytesPerMB = 1024 * 1024

// Health godoc
// @Summary Health check
// @Description Returns API health status
// @Tags system
// @Produce json
// @Success 200 {object} models.StatusResponse
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

// Stats godoc
// @Summary Host statistics
// @Description Returns runtime, system and process statistics and a summary of every server
// @Tags system
// @Produce json
// @Success 200 {object} models.ServerStatsResponse
// @Security ApiKeyAuth
// @Router /stats [get]
func (h *Handler) Stats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(h.startTime)
	resp := models.ServerStatsResponse{
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		StartTime:     h.startTime,
		GoRoutines:    runtime.NumGoroutine(),
		MemoryAllocMB: float64(m.Alloc) / bytesPerMB,
		NumCPU:        runtime.NumCPU(),
		System:        h.systemStats(c.Request.Context()),
		Process:       h.processStats(c.Request.Context()),
		Servers:       []models.ServerResponse{},
	}

	if h.servers != nil {
		for _, s := range h.servers.Servers() {
			sr := describe(s)
			resp.Servers = append(resp.Servers, sr)
			resp.Totals.Servers++
			if s.State() == server.StateRunning {
				resp.Totals.Running++
			}
			resp.Totals.ActiveConnections += sr.Statistics.ActiveConnections
			resp.Totals.TotalConnections += sr.Statistics.TotalConnections
			resp.Totals.TotalRequests += sr.Statistics.TotalRequests
			resp.Totals.TotalErrors += sr.Statistics.TotalErrors
		}
	}

	c.JSON(http.StatusOK, resp)
}

// systemStats gathers machine figures. Any figure the platform cannot
// provide is left zero.
func (h *Handler) systemStats(ctx context.Context) *models.SystemStats {
	out := &models.SystemStats{}
	if info, err := host.InfoWithContext(ctx); err == nil {
		out.Hostname = info.Hostname
		out.OS = info.OS
		out.Platform = info.Platform
		out.PlatformVersion = info.PlatformVersion
	} else {
		h.logger.Debug("host info unavailable", "err", err)
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		out.Load1, out.Load5, out.Load15 = avg.Load1, avg.Load5, avg.Load15
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		out.MemoryTotalMB = float64(vm.Total) / bytesPerMB
		out.MemoryUsedPct = vm.UsedPercent
	}
	return out
}

func (h *Handler) processStats(ctx context.Context) *models.ProcessStats {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		h.logger.Debug("process stats unavailable", "err", err)
		return nil
	}
	out := &models.ProcessStats{PID: p.Pid}
	if mi, err := p.MemoryInfoWithContext(ctx); err == nil {
		out.RSSMB = float64(mi.RSS) / bytesPerMB
	}
	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		out.CPUPercent = cpu
	}
	if n, err := p.NumThreadsWithContext(ctx); err == nil {
		out.Threads = n
	}
	return out
}
