package realtime

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mdnaeem95/halaltech/pkg/logger"
	"github.com/mdnaeem95/halaltech/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10

	defaultBufferSize = 64
)

// Message represents a JSON payload delivered to realtime subscribers.
type Message struct {
	Stream string         `json:"stream"`
	Event  string         `json:"event"`
	Data   any            `json:"data,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

type controlMessage struct {
	Action  string   `json:"action"`
	Streams []string `json:"streams"`
}

// Hub fans out events to websocket connections grouped by stream and profile.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[string]map[string]map[*connection]struct{}
	upgrader      websocket.Upgrader
	origins       map[string]struct{}
	log           *zap.Logger
	connections   atomic.Int64
}

// NewHub constructs a realtime hub. Cross-origin upgrades are accepted only
// from the listed origins, same-host requests and loopback hosts.
func NewHub(allowedOrigins ...string) *Hub {
	h := &Hub{
		subscriptions: make(map[string]map[string]map[*connection]struct{}),
		origins:       make(map[string]struct{}, len(allowedOrigins)),
		log:           logger.WithModule("realtime"),
	}
	for _, origin := range allowedOrigins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			h.origins[strings.ToLower(origin)] = struct{}{}
		}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	if _, ok := h.origins["*"]; ok {
		return true
	}
	if _, ok := h.origins[strings.ToLower(strings.TrimRight(origin, "/"))]; ok {
		return true
	}
	originHost := hostWithoutPort(origin)
	return originHost == hostWithoutPort(r.Host) || isLoopback(originHost)
}

// Serve upgrades the HTTP connection and subscribes the profile to streams.
// A nil allowed set permits every stream. Serve blocks until the socket closes.
func (h *Hub) Serve(profileID string, streams []string, allowed map[string]struct{}, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newConnection(h, conn, profileID, allowed)
	h.subscribe(client, streams)
	h.connections.Add(1)
	metrics.RealtimeConnections.Inc()

	go client.writeLoop()
	client.readLoop()
}

// BroadcastToProfile delivers a message to every connection the profile has open on a stream.
func (h *Hub) BroadcastToProfile(stream, profileID string, message Message) {
	if h == nil {
		return
	}
	stream = normalizeStream(stream)
	if stream == "" || profileID == "" {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := h.subscriptions[stream][profileID]
	if len(targets) == 0 {
		return
	}

	message.Stream = stream
	for client := range targets {
		h.enqueue(client, message)
	}
}

// BroadcastToProfiles delivers a message to each listed profile on the stream.
func (h *Hub) BroadcastToProfiles(stream string, profileIDs []string, message Message) {
	seen := make(map[string]struct{}, len(profileIDs))
	for _, id := range profileIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		h.BroadcastToProfile(stream, id, message)
	}
}

// BroadcastStream delivers a message to every subscriber of the stream.
func (h *Hub) BroadcastStream(stream string, message Message) {
	if h == nil {
		return
	}
	stream = normalizeStream(stream)
	if stream == "" {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	message.Stream = stream
	for _, clients := range h.subscriptions[stream] {
		for client := range clients {
			h.enqueue(client, message)
		}
	}
}

// ActiveConnections reports the number of open websocket connections.
func (h *Hub) ActiveConnections() int64 {
	if h == nil {
		return 0
	}
	return h.connections.Load()
}

// Subscribers reports how many connections are listening on a stream.
func (h *Hub) Subscribers(stream string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.subscriptions[normalizeStream(stream)] {
		total += len(clients)
	}
	return total
}

func (h *Hub) subscribe(client *connection, streams []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, stream := range uniqueStreams(streams) {
		if !client.isAllowed(stream) {
			h.log.Debug("ignoring unauthorized stream", zap.String("stream", stream), zap.String("profile_id", client.profileID))
			continue
		}
		if _, exists := client.streams[stream]; exists {
			continue
		}

		if h.subscriptions[stream] == nil {
			h.subscriptions[stream] = make(map[string]map[*connection]struct{})
		}
		if h.subscriptions[stream][client.profileID] == nil {
			h.subscriptions[stream][client.profileID] = make(map[*connection]struct{})
		}

		client.streams[stream] = struct{}{}
		h.subscriptions[stream][client.profileID][client] = struct{}{}
	}
}

func (h *Hub) unsubscribe(client *connection, streams []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, stream := range uniqueStreams(streams) {
		h.removeSubscriptionLocked(client, stream)
	}
}

func (h *Hub) unregister(client *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for stream := range client.streams {
		h.removeSubscriptionLocked(client, stream)
	}
}

func (h *Hub) removeSubscriptionLocked(client *connection, stream string) {
	delete(client.streams, stream)

	clientsByProfile, ok := h.subscriptions[stream]
	if !ok {
		return
	}

	profileClients := clientsByProfile[client.profileID]
	delete(profileClients, client)
	if len(profileClients) == 0 {
		delete(clientsByProfile, client.profileID)
	}
	if len(clientsByProfile) == 0 {
		delete(h.subscriptions, stream)
	}
}

// enqueue never blocks the broadcaster; a full buffer drops the slow client.
func (h *Hub) enqueue(client *connection, message Message) {
	if client.closed.Load() {
		return
	}
	select {
	case client.send <- message:
	default:
		h.log.Warn("dropping slow realtime client", zap.String("profile_id", client.profileID))
		go client.close()
	}
}

// reply sends a direct response to one connection. Holding the read lock
// keeps the send channel open until the message is queued.
func (h *Hub) reply(client *connection, message Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.enqueue(client, message)
}

type connection struct {
	hub       *Hub
	socket    *websocket.Conn
	profileID string
	streams   map[string]struct{}
	allowed   map[string]struct{}
	send      chan Message
	once      sync.Once
	closed    atomic.Bool
}

func newConnection(hub *Hub, conn *websocket.Conn, profileID string, allowed map[string]struct{}) *connection {
	return &connection{
		hub:       hub,
		socket:    conn,
		profileID: profileID,
		streams:   make(map[string]struct{}),
		allowed:   allowed,
		send:      make(chan Message, defaultBufferSize),
	}
}

func (c *connection) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("unexpected websocket close", zap.String("profile_id", c.profileID), zap.Error(err))
			}
			return
		}
		if len(payload) == 0 {
			continue
		}

		var ctrl controlMessage
		if err := json.Unmarshal(payload, &ctrl); err != nil {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(ctrl.Action)) {
		case "subscribe":
			c.hub.subscribe(c, ctrl.Streams)
		case "unsubscribe":
			c.hub.unsubscribe(c, ctrl.Streams)
		case "ping":
			c.hub.reply(c, Message{Event: "pong"})
		}
	}
}

func (c *connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) close() {
	c.once.Do(func() {
		c.closed.Store(true)
		c.hub.unregister(c)
		close(c.send)
		_ = c.socket.Close()
		c.hub.connections.Add(-1)
		metrics.RealtimeConnections.Dec()
	})
}

func (c *connection) isAllowed(stream string) bool {
	if c.allowed == nil {
		return true
	}
	_, ok := c.allowed[stream]
	return ok
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	if strings.Contains(host, "://") {
		if parsed, err := url.Parse(host); err == nil {
			host = parsed.Host
		}
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}

func normalizeStream(stream string) string {
	return strings.ToLower(strings.TrimSpace(stream))
}

func uniqueStreams(streams []string) []string {
	unique := make(map[string]struct{}, len(streams))
	var result []string
	for _, stream := range streams {
		if stream = normalizeStream(stream); stream != "" {
			if _, exists := unique[stream]; !exists {
				unique[stream] = struct{}{}
				result = append(result, stream)
			}
		}
	}
	return result
}
