package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dronelink/dronelinkd/internal/command"
	"github.com/dronelink/dronelinkd/internal/config"
	"github.com/dronelink/dronelinkd/internal/session"
)

// Event types.
const (
	EventReady         = "ready"
	EventHeartbeat     = "heartbeat"
	EventSessionOpened = "sessionOpened"
	EventSessionClosed = "sessionClosed"
	EventComponent     = "component"
	EventCommand       = "command"
)

// Event is one server-sent event.
type Event struct {
	ID      int64                  `json:"id,omitempty"`
	Type    string                 `json:"type"`
	Data    map[string]interface{} `json:"data"`
	Session string                 `json:"session,omitempty"`

	at time.Time
}

// Snapshot returns the data of the ready event sent to every new client.
type Snapshot func() map[string]interface{}

// Client is one SSE connection. A client with a Session filter only receives
// that session's events plus global ones. LastID is the last delivered event.
type Client struct {
	ID      string
	Writer  http.ResponseWriter
	Context context.Context
	Cancel  context.CancelFunc
	LastID  int64
	Session string
	Events  chan Event
	mu      sync.Mutex // Writer
}

// Hub fans session, component and command events out to SSE clients and keeps
// a replay buffer for Last-Event-ID resume.
//
// Lock order: h.mu, then EventBuffer.mu, then Client.mu.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	nextID  int64
	buffer  *EventBuffer

	config   *config.TimingConfig
	snapshot Snapshot
	logger   *slog.Logger

	heartbeatTicker *time.Ticker
	stopHeartbeat   chan struct{}

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var (
	_ session.ComponentObserver = (*Hub)(nil)
	_ session.Reporter          = (*Hub)(nil)
)

// NewHub creates a hub. snapshot may be nil.
func NewHub(timingConfig *config.TimingConfig, snapshot Snapshot, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:  make(map[string]*Client),
		buffer:   NewEventBuffer(timingConfig.EventBufferSize, timingConfig.EventBufferRetention),
		config:   timingConfig,
		snapshot: snapshot,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Subscribe streams events to w until ctx ends or the hub stops. The optional
// "session" query parameter filters events; Last-Event-ID replays buffered
// events newer than it.
func (h *Hub) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	select {
	case <-h.done:
		return fmt.Errorf("telemetry hub stopped")
	default:
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientCtx, cancel := context.WithCancel(ctx)

	lastEventID := int64(0)
	if lastIDStr := r.Header.Get("Last-Event-ID"); lastIDStr != "" {
		if id, err := strconv.ParseInt(lastIDStr, 10, 64); err == nil {
			lastEventID = id
		}
	}

	client := &Client{
		ID:      uuid.NewString(),
		Writer:  w,
		Context: clientCtx,
		Cancel:  cancel,
		LastID:  lastEventID,
		Session: r.URL.Query().Get("session"),
		Events:  make(chan Event, 100),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	if h.heartbeatTicker == nil {
		h.startHeartbeat()
	}
	h.mu.Unlock()

	if err := h.sendReadyEvent(client); err != nil {
		h.unregisterClient(client.ID)
		return fmt.Errorf("failed to send ready event: %w", err)
	}

	if lastEventID > 0 {
		if err := h.replayEvents(client, lastEventID); err != nil {
			h.unregisterClient(client.ID)
			return fmt.Errorf("failed to replay events: %w", err)
		}
	}

	h.logger.Debug("Telemetry client subscribed", "client", client.ID, "session", client.Session)
	h.handleClient(client)
	return nil
}

// Publish assigns the next event ID, buffers the event and hands it to every
// matching client. Slow clients drop events.
func (h *Hub) Publish(event Event) {
	select {
	case <-h.done:
		return
	default:
	}

	h.mu.Lock()
	h.nextID++
	event.ID = h.nextID
	event.at = time.Now()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	if event.Type != EventHeartbeat {
		h.buffer.AddEvent(event)
	}

	for _, client := range clients {
		if !client.wants(event) {
			continue
		}
		select {
		case <-client.Context.Done():
			continue
		case <-h.done:
			return
		case client.Events <- event:
		case <-time.After(100 * time.Millisecond):
			h.logger.Warn("Dropping telemetry event for slow client", "client", client.ID, "event", event.ID)
		}
	}
}

func (c *Client) wants(event Event) bool {
	return c.Session == "" || event.Session == "" || event.Session == c.Session
}

// SessionOpened publishes a sessionOpened event.
func (h *Hub) SessionOpened(s *session.Session) {
	h.Publish(Event{
		Type:    EventSessionOpened,
		Session: s.ID(),
		Data: map[string]interface{}{
			"sessionId": s.ID(),
			"model":     s.Model(),
			"opened":    s.Opened().UTC().Format(time.RFC3339Nano),
		},
	})
}

// SessionClosed publishes a sessionClosed event.
func (h *Hub) SessionClosed(s *session.Session) {
	h.Publish(Event{
		Type:    EventSessionClosed,
		Session: s.ID(),
		Data:    map[string]interface{}{"sessionId": s.ID()},
	})
}

// ComponentConnected publishes a component event.
func (h *Hub) ComponentConnected(s *session.Session, key session.ComponentKey, index uint) {
	h.publishComponent(s, key, index, true)
}

// ComponentDisconnected publishes a component event.
func (h *Hub) ComponentDisconnected(s *session.Session, key session.ComponentKey, index uint) {
	h.publishComponent(s, key, index, false)
}

func (h *Hub) publishComponent(s *session.Session, key session.ComponentKey, index uint, connected bool) {
	h.Publish(Event{
		Type:    EventComponent,
		Session: s.ID(),
		Data: map[string]interface{}{
			"sessionId": s.ID(),
			"component": string(key),
			"index":     index,
			"connected": connected,
		},
	})
}

// CommandFinished publishes a command event.
func (h *Hub) CommandFinished(_ context.Context, r session.CommandReport) {
	data := map[string]interface{}{
		"sessionId": r.SessionID,
		"commandId": r.CommandID,
		"kind":      string(r.Kind),
		"channel":   r.Channel,
		"rejected":  r.Rejected,
		"code":      command.Code(r.Err),
		"latencyMs": r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		data["error"] = r.Err.Error()
	}
	h.Publish(Event{Type: EventCommand, Session: r.SessionID, Data: data})
}

func (h *Hub) sendReadyEvent(client *Client) error {
	data := map[string]interface{}{}
	if h.snapshot != nil {
		data = h.snapshot()
	}
	return h.sendEventToClient(client, Event{Type: EventReady, Data: data})
}

func (h *Hub) replayEvents(client *Client, lastEventID int64) error {
	for _, event := range h.buffer.GetEventsAfter(lastEventID) {
		if !client.wants(event) {
			continue
		}
		if err := h.sendEventToClient(client, event); err != nil {
			return err
		}
		client.LastID = event.ID
	}
	return nil
}

func (h *Hub) sendEventToClient(client *Client, event Event) error {
	client.mu.Lock()
	defer client.mu.Unlock()

	if event.ID > 0 {
		if _, err := fmt.Fprintf(client.Writer, "id: %d\n", event.ID); err != nil {
			return fmt.Errorf("failed to write event ID: %w", err)
		}
	}
	if _, err := fmt.Fprintf(client.Writer, "event: %s\n", event.Type); err != nil {
		return fmt.Errorf("failed to write event type: %w", err)
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	if _, err := fmt.Fprintf(client.Writer, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write event data: %w", err)
	}

	if flusher, ok := client.Writer.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

func (h *Hub) handleClient(client *Client) {
	defer h.unregisterClient(client.ID)

	for {
		select {
		case <-client.Context.Done():
			return
		case <-h.done:
			return
		case event := <-client.Events:
			// Already delivered by replay.
			if event.Type != EventHeartbeat && event.ID <= client.LastID {
				continue
			}
			if err := h.sendEventToClient(client, event); err != nil {
				h.logger.Debug("Telemetry client write failed", "client", client.ID, "error", err)
				return
			}
			client.LastID = event.ID
		}
	}
}

func (h *Hub) unregisterClient(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, exists := h.clients[clientID]
	if !exists {
		return
	}
	client.Cancel()
	delete(h.clients, clientID)

	if len(h.clients) == 0 {
		h.stopHeartbeatLocked()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// startHeartbeat starts the heartbeat ticker. Caller must hold h.mu.
func (h *Hub) startHeartbeat() {
	interval := h.config.HeartbeatInterval + h.config.HeartbeatJitter/2
	if interval <= 0 {
		return
	}

	h.heartbeatTicker = time.NewTicker(interval)
	h.stopHeartbeat = make(chan struct{})
	ticker, stop := h.heartbeatTicker, h.stopHeartbeat

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-ticker.C:
				h.Publish(Event{
					Type: EventHeartbeat,
					Data: map[string]interface{}{"ts": time.Now().UTC().Format(time.RFC3339)},
				})
			case <-stop:
				return
			case <-h.done:
				return
			}
		}
	}()
}

// stopHeartbeatLocked stops the heartbeat ticker. Caller must hold h.mu.
func (h *Hub) stopHeartbeatLocked() {
	if h.heartbeatTicker != nil {
		h.heartbeatTicker.Stop()
		h.heartbeatTicker = nil
	}
	if h.stopHeartbeat != nil {
		close(h.stopHeartbeat)
		h.stopHeartbeat = nil
	}
}

// Stop disconnects every client and stops the heartbeat. It is safe to call
// more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		for _, client := range h.clients {
			client.Cancel()
		}
		h.stopHeartbeatLocked()
		h.mu.Unlock()

		h.wg.Wait()
	})
}

// EventBuffer is a bounded replay buffer. Events older than the retention are
// not replayed.
type EventBuffer struct {
	mu        sync.RWMutex
	events    []Event
	capacity  int
	retention time.Duration
	now       func() time.Time
}

// NewEventBuffer creates a buffer holding at most capacity events. A zero
// retention keeps events until they are pushed out.
func NewEventBuffer(capacity int, retention time.Duration) *EventBuffer {
	return &EventBuffer{
		events:    make([]Event, 0, capacity),
		capacity:  capacity,
		retention: retention,
		now:       time.Now,
	}
}

// AddEvent appends event, evicting the oldest when full.
func (b *EventBuffer) AddEvent(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.capacity <= 0 {
		return
	}
	if event.at.IsZero() {
		event.at = b.now()
	}
	b.events = append(b.events, event)
	if len(b.events) > b.capacity {
		b.events = b.events[len(b.events)-b.capacity:]
	}
}

// GetEventsAfter returns retained events with an ID above lastID.
func (b *EventBuffer) GetEventsAfter(lastID int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var cutoff time.Time
	if b.retention > 0 {
		cutoff = b.now().Add(-b.retention)
	}

	var result []Event
	for _, event := range b.events {
		if event.ID > lastID && !event.at.Before(cutoff) {
			result = append(result, event)
		}
	}
	return result
}

// Size returns the number of buffered events.
func (b *EventBuffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}
