package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/cardtable/cards-client/internal/connection"
	"github.com/cardtable/cards-client/internal/constants"
	"github.com/cardtable/cards-client/internal/metrics"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the status of a specific component
type ComponentStatus struct {
	Name    string                 `json:"name"`
	Status  HealthStatus           `json:"status"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthResponse represents the complete health check response
type HealthResponse struct {
	Status     HealthStatus           `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Version    string                 `json:"version"`
	Uptime     string                 `json:"uptime"`
	Connection string                 `json:"connection"`
	Components []*ComponentStatus     `json:"components"`
	Summary    map[string]interface{} `json:"summary"`
}

// StatusSource reports the connection status; *connection.Manager
// satisfies it.
type StatusSource interface {
	GetStatus() connection.Status
}

// Traffic thresholds
const (
	dropRatioWarning  = 0.10
	dropRatioCritical = 0.50
)

// Checker reports on the client's connection, traffic and process.
type Checker struct {
	conn      StatusSource
	logger    *zap.Logger
	startTime time.Time
	version   string
}

// NewChecker creates a checker for conn.
func NewChecker(conn StatusSource, logger *zap.Logger, version string) *Checker {
	return &Checker{
		conn:      conn,
		logger:    logger.Named("health"),
		startTime: time.Now(),
		version:   version,
	}
}

// Check collects every component status.
func (h *Checker) Check(ctx context.Context) *HealthResponse {
	started := time.Now()
	st := h.conn.GetStatus()

	components := []*ComponentStatus{
		h.checkConnection(st),
		h.checkTraffic(),
		h.checkMemory(),
		h.checkSystemResources(),
	}

	return &HealthResponse{
		Status:     overallStatus(components),
		Timestamp:  time.Now(),
		Version:    h.version,
		Uptime:     formatUptime(time.Since(h.startTime)),
		Connection: st.Kind.String(),
		Components: components,
		Summary: map[string]interface{}{
			"total_components":     len(components),
			"healthy_components":   countByStatus(components, StatusHealthy),
			"degraded_components":  countByStatus(components, StatusDegraded),
			"unhealthy_components": countByStatus(components, StatusUnhealthy),
			"check_duration_ms":    time.Since(started).Milliseconds(),
		},
	}
}

func (h *Checker) checkConnection(st connection.Status) *ComponentStatus {
	status := &ComponentStatus{
		Name:    "connection",
		Details: map[string]interface{}{"state": st.Kind.String()},
	}
	if st.Kind != connection.Idle {
		status.Details["game_id"] = st.Identity.GameID
		status.Details["player_id"] = st.Identity.PlayerID
	}
	status.Details["subscribers"] = metrics.GetSubscriberCount()

	switch st.Kind {
	case connection.Live:
		status.Status = StatusHealthy
		status.Message = fmt.Sprintf("Connected to %s", st.Identity)
	case connection.Pending:
		status.Status = StatusDegraded
		status.Message = fmt.Sprintf("Handshake in progress for %s", st.Identity)
	default:
		status.Status = StatusHealthy
		status.Message = "No game session"
	}
	return status
}

func (h *Checker) checkTraffic() *ComponentStatus {
	received := metrics.GetFramesReceivedCount()
	sent := metrics.GetFramesSentCount()
	dropped := metrics.GetFramesDroppedCount()

	status := &ComponentStatus{
		Name: "traffic",
		Details: map[string]interface{}{
			"frames_received":   received,
			"frames_sent":       sent,
			"frames_dropped":    dropped,
			"decode_errors":     metrics.GetDecodeErrorCount(),
			"errors":            metrics.GetErrorCount(),
			"frames_per_second": metrics.GetFramesPerSecond(),
		},
	}

	var ratio float64
	if total := sent + dropped; total > 0 {
		ratio = float64(dropped) / float64(total)
	}
	status.Details["drop_ratio"] = ratio

	switch {
	case ratio > dropRatioCritical:
		status.Status = StatusUnhealthy
		status.Message = fmt.Sprintf("Most outbound frames dropped: %.0f%%", ratio*100)
	case ratio > dropRatioWarning:
		status.Status = StatusDegraded
		status.Message = fmt.Sprintf("Outbound frames dropped: %.0f%%", ratio*100)
	default:
		status.Status = StatusHealthy
		status.Message = fmt.Sprintf("%d frames in, %d out", received, sent)
	}
	return status
}

// checkMemory checks memory usage
func (h *Checker) checkMemory() *ComponentStatus {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	allocMB := float64(m.Alloc) / 1024 / 1024
	status := &ComponentStatus{
		Name: "memory",
		Details: map[string]interface{}{
			"alloc_mb": allocMB,
			"sys_mb":   float64(m.Sys) / 1024 / 1024,
			"num_gc":   m.NumGC,
		},
	}

	// a client holds one socket and a bounded history
	const (
		memoryWarningMB  = 128
		memoryCriticalMB = 512
	)

	switch {
	case allocMB > memoryCriticalMB:
		status.Status = StatusUnhealthy
		status.Message = fmt.Sprintf("High memory usage: %.1f MB", allocMB)
	case allocMB > memoryWarningMB:
		status.Status = StatusDegraded
		status.Message = fmt.Sprintf("Elevated memory usage: %.1f MB", allocMB)
	default:
		status.Status = StatusHealthy
		status.Message = fmt.Sprintf("Memory usage normal: %.1f MB", allocMB)
	}
	return status
}

func (h *Checker) checkSystemResources() *ComponentStatus {
	goroutines := runtime.NumGoroutine()
	status := &ComponentStatus{
		Name: "system",
		Details: map[string]interface{}{
			"goroutines": goroutines,
			"cpus":       runtime.NumCPU(),
		},
	}

	const goroutineWarning = 200

	if goroutines > goroutineWarning {
		status.Status = StatusDegraded
		status.Message = fmt.Sprintf("Elevated goroutine count: %d", goroutines)
	} else {
		status.Status = StatusHealthy
		status.Message = fmt.Sprintf("System resources normal: %d goroutines", goroutines)
	}
	return status
}

func overallStatus(components []*ComponentStatus) HealthStatus {
	result := StatusHealthy
	for _, comp := range components {
		switch comp.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			result = StatusDegraded
		}
	}
	return result
}

func countByStatus(components []*ComponentStatus, status HealthStatus) int {
	count := 0
	for _, comp := range components {
		if comp.Status == status {
			count++
		}
	}
	return count
}

// formatUptime formats uptime duration as a human-readable string
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// ServeHTTP answers health probes. With ?ready=1 the answer is 200 only
// while a game session is live.
func (h *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.HealthCheckTimeout*time.Second)
	defer cancel()

	resp := h.Check(ctx)

	statusCode := http.StatusOK
	switch {
	case resp.Status == StatusUnhealthy:
		statusCode = http.StatusServiceUnavailable
	case r.URL.Query().Get("ready") == "1" && resp.Connection != connection.Live.String():
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
		return
	}

	h.logger.Debug("Health check completed",
		zap.String("status", string(resp.Status)),
		zap.Int("status_code", statusCode),
		zap.String("connection", resp.Connection))
}
