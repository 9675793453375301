package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func startHub(t *testing.T) (*Hub, *httptest.Server, context.CancelFunc) {
	t.Helper()
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("user"))
	}))
	stop := func() {
		cancel()
		<-done
		srv.Close()
	}
	return hub, srv, stop
}

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func waitClients(t *testing.T, hub *Hub, user string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Clients(user) == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHubDeliversToOwnerOnly(t *testing.T) {
	defer goleak.VerifyNone(t)
	hub, srv, stop := startHub(t)
	defer stop()

	alice := dial(t, srv, "alice")
	defer alice.Close()
	bob := dial(t, srv, "bob")
	defer bob.Close()
	waitClients(t, hub, "alice", 1)
	waitClients(t, hub, "bob", 1)

	hub.Notify("alice", "batches_changed")

	var ev Event
	alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, alice.ReadJSON(&ev))
	assert.Equal(t, "batches_changed", ev.Type)
	assert.False(t, ev.At.IsZero())

	bob.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err, "bob must not receive alice's events")
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	defer goleak.VerifyNone(t)
	hub, srv, stop := startHub(t)
	defer stop()

	conn := dial(t, srv, "alice")
	waitClients(t, hub, "alice", 1)
	conn.Close()
	waitClients(t, hub, "alice", 0)

	// no receivers left, must not block
	hub.Notify("alice", "configs_changed")
}

func TestHubShutdownClosesClients(t *testing.T) {
	defer goleak.VerifyNone(t)
	hub, srv, stop := startHub(t)

	conn := dial(t, srv, "alice")
	defer conn.Close()
	waitClients(t, hub, "alice", 1)

	stop()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	waitClients(t, hub, "alice", 0)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "512.0 MB", formatBytes(512*1024*1024))
	assert.Equal(t, "2.0 GB", formatBytes(2*1024*1024*1024))
	assert.Equal(t, "1d 2h 3m", formatUptime(86400+2*3600+3*60))
	assert.Equal(t, "5m", formatUptime(300))
}
