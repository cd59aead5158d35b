// Package diagnostics exposes a read-only HTTP admin surface over a
// running device.Memory: a decoded register snapshot and command
// counters, plus host process metrics. It is explicitly not part of
// the wire protocol (spec.md §1: "the core only assumes ordered,
// reliable delivery on a single connection" over the register
// protocol's own socket) — this is a second, independent listener
// a test harness or operator can poll without touching the protocol
// socket or its single-client invariant.
package diagnostics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"regctl/internal/device"
)

// Server wraps a gin engine bound to one device.Memory.
type Server struct {
	mem    *device.Memory
	engine *gin.Engine
	start  time.Time
}

// New builds a diagnostics server for mem. gin runs in release mode:
// this is an internal operator surface, not a user-facing app.
func New(mem *device.Memory) *Server {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery())

	s := &Server{mem: mem, engine: e, start: time.Now()}
	e.GET("/status", s.handleStatus)
	e.GET("/stats", s.handleStats)
	e.GET("/healthz", s.handleHealth)
	return s
}

// ListenAndServe binds addr and serves until the process exits; it
// offers no shutdown of its own. Errors propagate like any net/http
// ListenAndServe.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.engine)
}

func (s *Server) handleStatus(c *gin.Context) {
	snap := s.mem.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"connected_device": snap.ConnectedDevice,
		"power_state":      snap.PowerState,
		"error_state":      snap.ErrorState,
		"sensor_a_reading": snap.SensorAReading,
		"sensor_b_reading": snap.SensorBReading,
		"led":              snap.LED,
		"fan":              snap.Fan,
		"heater":           snap.Heater,
		"doors":            snap.Doors,
		"uptime_seconds":   time.Since(s.start).Seconds(),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	stats := s.mem.Stats()
	body := gin.H{
		"reads":  stats.Reads,
		"writes": stats.Writes,
		"errors": stats.Errors,
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		body["host_mem_used_percent"] = vm.UsedPercent
	}
	if proc, err := process.NewProcess(int32(currentPID())); err == nil {
		if rss, err := proc.MemoryInfo(); err == nil {
			body["process_rss_bytes"] = rss.RSS
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
