package application

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cardtable/cards-client/internal/config"
	"github.com/cardtable/cards-client/internal/connection"
	"github.com/cardtable/cards-client/internal/domain"
	"github.com/cardtable/cards-client/internal/join"
	"github.com/gorilla/websocket"
)

// newGameServer answers the join call and upgrades the socket route.
func newGameServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("playerId") {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"r1","playerId":"p1","gameId":"g1","status":"CREATED",` +
			`"createdOn":"now","createdBy":"Toto","minPlayers":2,"maxPlayers":4,"public":true,"players":["Toto"]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, origin string) *config.Config {
	t.Helper()
	cfg, err := config.Load("", nil)
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	cfg.Server.Origin = origin + "/"
	cfg.Join.SettleDelay = 10 * time.Millisecond
	return cfg
}

type navigations struct {
	mu    sync.Mutex
	calls []string
	done  chan struct{}
}

func (n *navigations) PlayGame(gameID, playerID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, gameID+"/"+playerID)
	close(n.done)
}

func TestClientJoinsGame(t *testing.T) {
	srv := newGameServer(t)
	client, err := New(context.Background(), testConfig(t, srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Shutdown()

	nav := &navigations{done: make(chan struct{})}
	wf := client.Join("g1", "Toto", nav)
	defer wf.Close()

	select {
	case <-nav.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("no navigation, step = %s", wf.Step().Name())
	}
	if _, ok := wf.Step().(join.Redirecting); !ok {
		t.Errorf("step = %#v", wf.Step())
	}
	want := connection.Status{Kind: connection.Live, Identity: domain.ConnectionIdentity{GameID: "g1", PlayerID: "p1"}}
	if st := client.Manager.GetStatus(); st != want {
		t.Errorf("status = %v, want %v", st, want)
	}
	if nav.calls[0] != "g1/p1" {
		t.Errorf("navigations = %v", nav.calls)
	}
}

func TestNewRejectsBadOrigin(t *testing.T) {
	cfg := testConfig(t, "http://localhost:1")
	cfg.Server.Origin = "not a url"
	if _, err := New(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "game server") {
		t.Errorf("New() error = %v", err)
	}
}

func TestBuildRequiresComponents(t *testing.T) {
	b := NewClientBuilder(context.Background(), testConfig(t, "http://localhost:1"))
	if _, err := b.Build(); err == nil {
		t.Error("Build() without components should fail")
	}
}
