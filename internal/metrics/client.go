package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Connection state values exported by the ConnectionState gauge.
const (
	StateIdle    = 0
	StatePending = 1
	StateLive    = 2
)

// Reasons an outbound frame is dropped.
const (
	DropNotLive     = "not_live"
	DropRateLimited = "rate_limited"
	DropWriteFailed = "write_failed"
)

// Join workflow outcomes.
const (
	OutcomeRedirected   = "redirected"
	OutcomeHTTPFailed   = "http_failed"
	OutcomeSocketFailed = "socket_failed"
)

// SlidingWindow keeps the timestamps of recent events for rate calculations
type SlidingWindow struct {
	mu      sync.Mutex
	events  []time.Time
	window  time.Duration
	maxSize int
}

// NewSlidingWindow creates a new sliding window
func NewSlidingWindow(window time.Duration, maxSize int) *SlidingWindow {
	return &SlidingWindow{
		events:  make([]time.Time, 0, maxSize),
		window:  window,
		maxSize: maxSize,
	}
}

// Add records an event at ts
func (sw *SlidingWindow) Add(ts time.Time) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.events = append(sw.events, ts)
	sw.trim(ts)
	if len(sw.events) > sw.maxSize {
		sw.events = sw.events[len(sw.events)-sw.maxSize:]
	}
}

// Rate returns the events per second observed within the window ending now
func (sw *SlidingWindow) Rate(now time.Time) float64 {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.trim(now)
	if len(sw.events) == 0 {
		return 0
	}
	return float64(len(sw.events)) / sw.window.Seconds()
}

func (sw *SlidingWindow) trim(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for i < len(sw.events) && sw.events[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		sw.events = sw.events[i:]
	}
}

var frameWindow = NewSlidingWindow(60*time.Second, 10000)

// Counters mirrored outside prometheus so the health report can read them
var (
	framesReceivedCount int64
	framesSentCount     int64
	framesDroppedCount  int64
	decodeErrorCount    int64
	subscriberCount     int64
	errorCount          int64
	connectionState     int64
)

var (
	// Connection metrics
	ConnectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cards_client_connection_state",
		Help: "Current connection state (0 idle, 1 pending, 2 live)",
	})

	ConnectionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cards_client_connections_opened_total",
		Help: "The total number of sockets that completed their handshake",
	})

	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cards_client_subscribers",
		Help: "The number of listeners registered with the connection manager",
	})

	Broadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cards_client_broadcasts_total",
		Help: "The total number of events broadcast to subscribers by event kind",
	}, []string{"event"})

	// Frame metrics
	FramesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cards_client_frames_received_total",
		Help: "The total number of frames received",
	})

	FramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cards_client_frames_sent_total",
		Help: "The total number of frames written to the socket",
	})

	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cards_client_frames_dropped_total",
		Help: "The total number of outbound frames dropped by reason",
	}, []string{"reason"}) // "not_live", "rate_limited", "write_failed"

	DecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cards_client_decode_errors_total",
		Help: "The total number of received frames that were not valid JSON",
	})

	// Join metrics
	JoinOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cards_client_join_outcomes_total",
		Help: "The total number of finished join workflows by outcome",
	}, []string{"outcome"}) // "redirected", "http_failed", "socket_failed"

	JoinHTTPDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cards_client_join_http_duration_seconds",
		Help:    "Duration of the HTTP join call in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 6), // 10ms .. ~10s
	})

	// Error metrics
	ErrorsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cards_client_errors_total",
		Help: "The total number of classified errors by type",
	}, []string{"type"})
)

// RegisterMetrics pre-creates the labelled series so they show up at zero
func RegisterMetrics() {
	for _, event := range []string{"connecting", "connected", "closed", "failed_to_connect", "error_occurred", "received", "received_error"} {
		Broadcasts.WithLabelValues(event)
	}
	for _, reason := range []string{DropNotLive, DropRateLimited, DropWriteFailed} {
		FramesDropped.WithLabelValues(reason)
	}
	for _, outcome := range []string{OutcomeRedirected, OutcomeHTTPFailed, OutcomeSocketFailed} {
		JoinOutcomes.WithLabelValues(outcome)
	}
	for _, errType := range []string{"validation", "protocol", "network", "timeout", "upstream", "sequencing", "internal"} {
		ErrorsCount.WithLabelValues(errType)
	}
}

// SetConnectionState updates the state gauge and its mirror
func SetConnectionState(state int) {
	ConnectionState.Set(float64(state))
	atomic.StoreInt64(&connectionState, int64(state))
}

// GetConnectionState returns the last state recorded with SetConnectionState
func GetConnectionState() int {
	return int(atomic.LoadInt64(&connectionState))
}

// IncrementConnectionsOpened counts a completed handshake
func IncrementConnectionsOpened() {
	ConnectionsOpened.Inc()
}

// IncrementFramesReceived counts an inbound frame
func IncrementFramesReceived() {
	FramesReceived.Inc()
	atomic.AddInt64(&framesReceivedCount, 1)
	frameWindow.Add(time.Now())
}

// GetFramesReceivedCount returns the inbound frames seen since start
func GetFramesReceivedCount() int64 {
	return atomic.LoadInt64(&framesReceivedCount)
}

// IncrementFramesSent counts an outbound frame
func IncrementFramesSent() {
	FramesSent.Inc()
	atomic.AddInt64(&framesSentCount, 1)
}

// GetFramesSentCount returns the outbound frames written since start
func GetFramesSentCount() int64 {
	return atomic.LoadInt64(&framesSentCount)
}

// IncrementFramesDropped counts an outbound frame that never reached the socket
func IncrementFramesDropped(reason string) {
	FramesDropped.WithLabelValues(reason).Inc()
	atomic.AddInt64(&framesDroppedCount, 1)
}

// GetFramesDroppedCount returns the dropped outbound frames since start
func GetFramesDroppedCount() int64 {
	return atomic.LoadInt64(&framesDroppedCount)
}

// IncrementDecodeErrors counts an inbound frame that was not valid JSON
func IncrementDecodeErrors() {
	DecodeErrors.Inc()
	atomic.AddInt64(&decodeErrorCount, 1)
}

// GetDecodeErrorCount returns the undecodable frames since start
func GetDecodeErrorCount() int64 {
	return atomic.LoadInt64(&decodeErrorCount)
}

// IncrementBroadcasts counts one event dispatched to every subscriber
func IncrementBroadcasts(event string) {
	Broadcasts.WithLabelValues(event).Inc()
}

// SetSubscribers updates the registered listener gauge
func SetSubscribers(n int) {
	Subscribers.Set(float64(n))
	atomic.StoreInt64(&subscriberCount, int64(n))
}

// GetSubscriberCount returns the listeners currently registered
func GetSubscriberCount() int64 {
	return atomic.LoadInt64(&subscriberCount)
}

// IncrementJoinOutcome counts a finished join workflow
func IncrementJoinOutcome(outcome string) {
	JoinOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveJoinHTTPDuration records how long the join call took
func ObserveJoinHTTPDuration(d time.Duration) {
	JoinHTTPDuration.Observe(d.Seconds())
}

// IncrementErrorCount increments the error counter
func IncrementErrorCount(errType string) {
	ErrorsCount.WithLabelValues(errType).Inc()
	atomic.AddInt64(&errorCount, 1)
}

// GetErrorCount returns the current error count
func GetErrorCount() int64 {
	return atomic.LoadInt64(&errorCount)
}

// GetFramesPerSecond calculates inbound frames per second over the last minute
func GetFramesPerSecond() float64 {
	return frameWindow.Rate(time.Now())
}
