package watcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gateway-fm/txforge/internal/metrics"
)

func TestDeriveWSURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:8545", "ws://localhost:8545"},
		{"https://rpc.example.com", "wss://rpc.example.com"},
		{"ws://already-ws:8546", "ws://already-ws:8546"},
	}
	for _, tt := range tests {
		if got := DeriveWSURL(tt.in); got != tt.want {
			t.Errorf("DeriveWSURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewRequiresEndpoint(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for missing endpoint")
	}
	w, err := New(Config{RPCURL: "http://localhost:8545"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if w.wsURL != "ws://localhost:8545" {
		t.Errorf("wsURL = %q, want derived ws URL", w.wsURL)
	}
}

// fakeHeadServer upgrades connections, acknowledges the subscription, and
// pushes a fixed sequence of newHeads notifications.
func fakeHeadServer(t *testing.T, heads []map[string]string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		var sub map[string]interface{}
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		if sub["method"] != "eth_subscribe" {
			t.Errorf("method = %v, want eth_subscribe", sub["method"])
		}
		if err := conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0", "id": 1, "result": "0xabcd",
		}); err != nil {
			return
		}

		for _, head := range heads {
			msg := map[string]interface{}{
				"jsonrpc": "2.0",
				"method":  "eth_subscription",
				"params":  map[string]interface{}{"result": head},
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		time.Sleep(100 * time.Millisecond)
	}))
}

func TestRunUpdatesMetrics(t *testing.T) {
	srv := fakeHeadServer(t, []map[string]string{
		{"number": "0x10", "gasUsed": "0x5208"},
		{"number": "0x11", "gasUsed": "0xa410"},
	})
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	w, err := New(Config{
		WSURL:   "ws" + strings.TrimPrefix(srv.URL, "http"),
		Metrics: m,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := testutil.ToFloat64(m.BlockHeight); got != 0x11 {
		t.Errorf("BlockHeight = %v, want 17", got)
	}
	if got := testutil.ToFloat64(m.BlockGasUsed); got != 0xa410 {
		t.Errorf("BlockGasUsed = %v, want 42000", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	// Server holds the connection open without sending heads.
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var sub map[string]interface{}
		conn.ReadJSON(&sub)
		conn.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": "0x1"})
		conn.ReadMessage() // block until client goes away
	}))
	defer srv.Close()

	w, err := New(Config{WSURL: "ws" + strings.TrimPrefix(srv.URL, "http")})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}
