package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSlidingWindowRate(t *testing.T) {
	sw := NewSlidingWindow(10*time.Second, 100)
	now := time.Now()

	sw.Add(now.Add(-30 * time.Second)) // outside the window
	for i := 0; i < 5; i++ {
		sw.Add(now)
	}

	if got := sw.Rate(now); got != 0.5 {
		t.Errorf("Rate() = %v, want 0.5", got)
	}
	if got := sw.Rate(now.Add(time.Minute)); got != 0 {
		t.Errorf("Rate() after window = %v, want 0", got)
	}
}

func TestSlidingWindowMaxSize(t *testing.T) {
	sw := NewSlidingWindow(time.Minute, 3)
	now := time.Now()
	for i := 0; i < 10; i++ {
		sw.Add(now)
	}
	if got := sw.Rate(now); got != 3.0/60 {
		t.Errorf("Rate() = %v, want %v", got, 3.0/60)
	}
}

func TestMirrorCounters(t *testing.T) {
	before := GetFramesDroppedCount()
	IncrementFramesDropped("not_live")
	if got := GetFramesDroppedCount(); got != before+1 {
		t.Errorf("dropped = %d, want %d", got, before+1)
	}

	SetConnectionState(StateLive)
	if GetConnectionState() != StateLive {
		t.Errorf("state = %d, want %d", GetConnectionState(), StateLive)
	}
	SetConnectionState(StateIdle)
}

func TestServerRoutes(t *testing.T) {
	RegisterMetrics()
	IncrementFramesSent()

	health := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	srv := httptest.NewServer(NewServer(0, health, zap.NewNop()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "cards_client_frames_sent_total") {
		t.Error("expected frames_sent counter in /metrics output")
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("/healthz body = %q", body)
	}
}
