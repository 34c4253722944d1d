package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cardtable/cards-client/internal/connection"
	"github.com/cardtable/cards-client/internal/domain"
	"go.uber.org/zap"
)

type fixedStatus connection.Status

func (s fixedStatus) GetStatus() connection.Status { return connection.Status(s) }

var live = fixedStatus{Kind: connection.Live, Identity: domain.ConnectionIdentity{GameID: "g", PlayerID: "p"}}

func TestCheckReportsConnection(t *testing.T) {
	h := NewChecker(live, zap.NewNop(), "test")
	resp := h.Check(context.Background())

	if resp.Connection != "live" || resp.Version != "test" {
		t.Errorf("resp = %+v", resp)
	}
	var conn *ComponentStatus
	for _, c := range resp.Components {
		if c.Name == "connection" {
			conn = c
		}
	}
	if conn == nil || conn.Status != StatusHealthy || conn.Details["game_id"] != "g" {
		t.Errorf("connection component = %+v", conn)
	}
}

func TestServeHTTP(t *testing.T) {
	tests := []struct {
		name   string
		source fixedStatus
		query  string
		want   int
	}{
		{"live liveness", live, "", http.StatusOK},
		{"live readiness", live, "?ready=1", http.StatusOK},
		{"idle liveness", fixedStatus{}, "", http.StatusOK},
		{"idle readiness", fixedStatus{}, "?ready=1", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewChecker(tt.source, zap.NewNop(), "test")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz"+tt.query, nil))

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			var body HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("body is not JSON: %v", err)
			}
			if len(body.Components) != 4 {
				t.Errorf("components = %d, want 4", len(body.Components))
			}
		})
	}
}

func TestServeHTTPRejectsPost(t *testing.T) {
	h := NewChecker(live, zap.NewNop(), "test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestFormatUptime(t *testing.T) {
	tests := map[time.Duration]string{
		42 * time.Second:                     "42s",
		3*time.Minute + 5*time.Second:        "3m 5s",
		2*time.Hour + 1*time.Minute:          "2h 1m 0s",
		50*time.Hour + 30*time.Second:        "2d 2h 0m 30s",
	}
	for d, want := range tests {
		if got := formatUptime(d); got != want {
			t.Errorf("formatUptime(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestOverallStatus(t *testing.T) {
	comps := []*ComponentStatus{{Status: StatusHealthy}, {Status: StatusDegraded}}
	if got := overallStatus(comps); got != StatusDegraded {
		t.Errorf("overallStatus = %s", got)
	}
	comps = append(comps, &ComponentStatus{Status: StatusUnhealthy})
	if got := overallStatus(comps); got != StatusUnhealthy {
		t.Errorf("overallStatus = %s", got)
	}
}
