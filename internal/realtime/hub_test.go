package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToSubscribedProfile(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(r.URL.Query().Get("profile"), []string{StreamNotifications}, StreamsForRole("client"), w, r)
	}))
	t.Cleanup(server.Close)

	alice := dial(t, server, "alice")
	bob := dial(t, server, "bob")

	require.Eventually(t, func() bool { return hub.Subscribers(StreamNotifications) == 2 }, time.Second, 10*time.Millisecond)

	hub.BroadcastToProfile(StreamNotifications, "alice", Message{Event: "notification.created", Data: map[string]string{"title": "Quote ready"}})

	var got Message
	require.NoError(t, alice.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, alice.ReadJSON(&got))
	require.Equal(t, StreamNotifications, got.Stream)
	require.Equal(t, "notification.created", got.Event)

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	require.Error(t, bob.ReadJSON(&got))
}

func TestHubRejectsStreamsOutsideRole(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve("carol", []string{StreamNotifications, StreamAdmin}, StreamsForRole("client"), w, r)
	}))
	t.Cleanup(server.Close)

	dial(t, server, "carol")

	require.Eventually(t, func() bool { return hub.Subscribers(StreamNotifications) == 1 }, time.Second, 10*time.Millisecond)
	require.Zero(t, hub.Subscribers(StreamAdmin))
}

func TestHubControlMessages(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve("dan", nil, StreamsForRole("admin"), w, r)
	}))
	t.Cleanup(server.Close)

	conn := dial(t, server, "dan")
	require.NoError(t, conn.WriteJSON(controlMessage{Action: "subscribe", Streams: []string{"ADMIN"}}))
	require.Eventually(t, func() bool { return hub.Subscribers(StreamAdmin) == 1 }, time.Second, 10*time.Millisecond)

	hub.BroadcastStream(StreamAdmin, Message{Event: "application.received"})
	var got Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, "application.received", got.Event)

	require.NoError(t, conn.WriteJSON(controlMessage{Action: "unsubscribe", Streams: []string{StreamAdmin}}))
	require.Eventually(t, func() bool { return hub.Subscribers(StreamAdmin) == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubUnregistersOnClose(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve("erin", []string{StreamProjects}, nil, w, r)
	}))
	t.Cleanup(server.Close)

	conn := dial(t, server, "erin")
	require.Eventually(t, func() bool { return hub.Subscribers(StreamProjects) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Subscribers(StreamProjects) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestCheckOrigin(t *testing.T) {
	hub := NewHub("https://app.example.com/")

	cases := []struct {
		origin string
		host   string
		want   bool
	}{
		{origin: "", host: "api.example.com", want: true},
		{origin: "https://app.example.com", host: "api.example.com", want: true},
		{origin: "https://api.example.com", host: "api.example.com:8080", want: true},
		{origin: "http://localhost:3000", host: "api.example.com", want: true},
		{origin: "https://evil.example.net", host: "api.example.com", want: false},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.Host = tc.host
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		require.Equal(t, tc.want, hub.checkOrigin(req), tc.origin)
	}
}

func dial(t *testing.T, server *httptest.Server, profile string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?profile=" + profile
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
