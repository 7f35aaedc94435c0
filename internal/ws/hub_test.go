package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestServer(hub *Hub) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
		c := NewClient(hub, conn, r.URL.Query().Get("identity"), r.URL.Query().Get("sid"))
		c.Start(ctx, cancel)
		hub.Register(c)
	}))
}

func dial(t *testing.T, srv *httptest.Server, identity, sid string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?identity=" + identity + "&sid=" + sid
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHub_NotifyRecordsChanged(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/airdroptracker/internal/logger.initWorker.func1"))

	hub := NewHub(0)
	hub.now = func() time.Time { return time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC) }
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := newTestServer(hub)
	defer srv.Close()

	origin := dial(t, srv, "alice", "s1")
	defer origin.Close()
	otherTab := dial(t, srv, "alice", "s2")
	defer otherTab.Close()
	stranger := dial(t, srv, "bob", "s3")
	defer stranger.Close()

	assert.Eventually(t, func() bool {
		return hub.Connections("alice") == 2 && hub.Connections("bob") == 1
	}, 2*time.Second, 5*time.Millisecond)

	hub.NotifyRecordsChanged("alice", "s1")

	require.NoError(t, otherTab.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := otherTab.ReadMessage()
	require.NoError(t, err)
	var msg struct {
		Type    EventType `json:"type"`
		Payload struct {
			At string `json:"at"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, EventRecordsChanged, msg.Type)
	assert.Equal(t, "2026-04-10T12:00:00Z", msg.Payload.At)

	for _, conn := range []*websocket.Conn{origin, stranger} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
		_, _, err := conn.ReadMessage()
		assert.Error(t, err, "origin session and other identities get nothing")
	}

	cancel()
	select {
	case <-hub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	assert.Zero(t, hub.Connections("alice"))
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/airdroptracker/internal/logger.initWorker.func1"))

	hub := NewHub(0)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := newTestServer(hub)
	defer srv.Close()

	conn := dial(t, srv, "alice", "s1")
	assert.Eventually(t, func() bool { return hub.Connections("alice") == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connections("alice") == 0 }, 2*time.Second, 5*time.Millisecond)

	// рассылка без соединений - no-op
	hub.NotifyRecordsChanged("alice", "")
	cancel()
	<-hub.Done()
}

func TestHub_ConnectionLimit(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/airdroptracker/internal/logger.initWorker.func1"))

	hub := NewHub(1)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := newTestServer(hub)
	defer srv.Close()

	first := dial(t, srv, "alice", "s1")
	defer first.Close()
	assert.Eventually(t, func() bool { return hub.Connections("alice") == 1 }, 2*time.Second, 5*time.Millisecond)

	second := dial(t, srv, "alice", "s2")
	defer second.Close()
	require.NoError(t, second.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := second.ReadMessage()
	assert.Error(t, err, "over-limit connection is closed by the server")
	assert.Equal(t, 1, hub.Connections("alice"))

	cancel()
	<-hub.Done()
}

func TestHub_DisconnectSessionClosesOnlyThatSession(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/airdroptracker/internal/logger.initWorker.func1"))

	hub := NewHub(0)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := newTestServer(hub)
	defer srv.Close()

	loggedOut := dial(t, srv, "alice", "s1")
	defer loggedOut.Close()
	otherTab := dial(t, srv, "alice", "s2")
	defer otherTab.Close()
	assert.Eventually(t, func() bool { return hub.Connections("alice") == 2 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, hub.DisconnectSession("alice", "s1"))
	assert.Equal(t, 1, hub.Connections("alice"))
	assert.Zero(t, hub.DisconnectSession("alice", "s1"))

	require.NoError(t, loggedOut.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := loggedOut.ReadMessage()
	assert.Error(t, err, "logged out socket is closed by the server")

	hub.NotifyRecordsChanged("alice", "")
	require.NoError(t, otherTab.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = otherTab.ReadMessage()
	assert.NoError(t, err)

	cancel()
	<-hub.Done()
}
