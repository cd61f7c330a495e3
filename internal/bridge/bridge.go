package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dronelink/dronelinkd/internal/adapter"
	"github.com/dronelink/dronelinkd/internal/auth"
	"github.com/dronelink/dronelinkd/internal/command"
	"github.com/dronelink/dronelinkd/internal/config"
	"github.com/dronelink/dronelinkd/internal/session"
)

// Topic suffixes below the configured prefix.
const (
	TopicProduct       = "transport/product"
	TopicComponent     = "transport/component"
	TopicFlyZone       = "transport/flyZone"
	TopicActivation    = "transport/activation"
	TopicCommand       = "command"
	TopicSession       = "session"
	TopicStatus        = "status"
	TopicCommandResult = "command/result"
)

// Subject is the audit identity of commands received over MQTT.
const Subject = "mqtt"

// inboxSize bounds the inbound messages waiting for the worker.
const inboxSize = 256

// ProductFactory builds the product announced by a connect notification.
type ProductFactory func(model string) (adapter.Product, error)

// ProductEvent is the payload of TopicProduct.
type ProductEvent struct {
	Event string `json:"event"` // "connected" or "disconnected"
	Model string `json:"model,omitempty"`
}

// ComponentEvent is the payload of TopicComponent.
type ComponentEvent struct {
	Component session.ComponentKey `json:"component"`
	Index     uint                 `json:"index"`
	Connected bool                 `json:"connected"`
}

// AdvisoryEvent is the payload of TopicFlyZone and TopicActivation.
type AdvisoryEvent struct {
	State string `json:"state"`
}

// SessionEvent is published retained on TopicSession.
type SessionEvent struct {
	State     string    `json:"state"` // "open" or "closed"
	SessionID string    `json:"sessionId,omitempty"`
	Model     string    `json:"model,omitempty"`
	At        time.Time `json:"at"`
}

// CommandResult is published on TopicCommandResult for every finished command.
type CommandResult struct {
	SessionID string `json:"sessionId"`
	CommandID string `json:"commandId"`
	Kind      string `json:"kind"`
	Channel   uint   `json:"channel"`
	Rejected  bool   `json:"rejected"`
	Code      string `json:"code"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
}

// Bridge maps transport notifications received over MQTT onto the session
// manager and publishes session lifecycle, status messages and command results.
type Bridge struct {
	client  Client
	factory ProductFactory
	prefix  string
	qos     byte
	logger  *slog.Logger
	manager *session.Manager

	inbox    chan inbound
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// inbound is one received message, or a flush marker when done is set.
type inbound struct {
	handler Handler
	topic   string
	payload []byte
	done    chan struct{}
}

var (
	_ session.ComponentObserver = (*Bridge)(nil)
	_ session.Reporter          = (*Bridge)(nil)
)

// New creates a bridge. It does nothing until Start.
func New(client Client, factory ProductFactory, cfg config.MQTTConfig, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		client:  client,
		factory: factory,
		prefix:  strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:     cfg.QoS,
		logger:  logger.With("component", "bridge"),
		inbox:   make(chan inbound, inboxSize),
		quit:    make(chan struct{}),
	}
}

// Topic returns the full topic for suffix.
func (b *Bridge) Topic(suffix string) string {
	return joinTopic(b.prefix, suffix)
}

// WillTopic is the session topic for cfg, used as the connection's will.
func WillTopic(cfg config.MQTTConfig) string {
	return joinTopic(strings.TrimSuffix(cfg.TopicPrefix, "/"), TopicSession)
}

func joinTopic(prefix, suffix string) string {
	if prefix == "" {
		return suffix
	}
	return prefix + "/" + suffix
}

// ClosedPayload is the retained session payload used as the connection's will.
func ClosedPayload() []byte {
	data, _ := json.Marshal(SessionEvent{State: "closed"})
	return data
}

// Start subscribes to the inbound topics and registers with m. Messages are
// applied one at a time, in arrival order, by a single worker.
func (b *Bridge) Start(m *session.Manager) error {
	b.manager = m
	b.wg.Add(1)
	go b.run()

	handlers := map[string]Handler{
		TopicProduct:    b.handleProduct,
		TopicComponent:  b.handleComponent,
		TopicFlyZone:    b.handleFlyZone,
		TopicActivation: b.handleActivation,
		TopicCommand:    b.handleCommand,
	}
	for _, suffix := range []string{TopicProduct, TopicComponent, TopicFlyZone, TopicActivation, TopicCommand} {
		if err := b.client.Subscribe(b.Topic(suffix), b.qos, b.enqueue(handlers[suffix])); err != nil {
			b.stopWorker()
			return fmt.Errorf("subscribe %s: %w", b.Topic(suffix), err)
		}
	}
	m.Add(b)
	if m.Session() == nil {
		b.publish(TopicSession, true, SessionEvent{State: "closed", At: time.Now().UTC()})
		b.publishStatus()
	}
	return nil
}

// Stop unregisters from the manager, disconnects and stops the worker.
// Messages still queued are dropped.
func (b *Bridge) Stop() {
	if b.manager != nil {
		b.manager.Remove(b)
	}
	b.client.Disconnect()
	b.stopWorker()
}

func (b *Bridge) stopWorker() {
	b.stopOnce.Do(func() { close(b.quit) })
	b.wg.Wait()
}

// enqueue wraps handler so the client's delivery goroutine only queues the
// message. It never blocks: a full inbox drops the message.
func (b *Bridge) enqueue(handler Handler) Handler {
	return func(topic string, payload []byte) {
		select {
		case <-b.quit:
			return
		default:
		}
		select {
		case b.inbox <- inbound{handler: handler, topic: topic, payload: payload}:
		default:
			b.logger.Error("Inbound queue full, dropping message", "topic", topic)
		}
	}
}

func (b *Bridge) run() {
	defer b.wg.Done()
	for {
		select {
		case <-b.quit:
			return
		case msg := <-b.inbox:
			if msg.done != nil {
				close(msg.done)
				continue
			}
			msg.handler(msg.topic, msg.payload)
		}
	}
}

// flush waits until every message queued before the call has been handled.
func (b *Bridge) flush() {
	done := make(chan struct{})
	select {
	case b.inbox <- inbound{done: done}:
	case <-b.quit:
		return
	}
	select {
	case <-done:
	case <-b.quit:
	}
}

func (b *Bridge) handleProduct(topic string, payload []byte) {
	var ev ProductEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		b.logger.Warn("Invalid product event", "topic", topic, "error", err)
		return
	}

	switch ev.Event {
	case "connected":
		product, err := b.factory(ev.Model)
		if err != nil {
			b.logger.Error("Cannot create connected product", "model", ev.Model, "error", err)
			return
		}
		b.manager.ProductConnected(product)
	case "disconnected":
		b.manager.ProductDisconnected()
	default:
		b.logger.Warn("Unknown product event", "event", ev.Event)
	}
}

func (b *Bridge) handleComponent(topic string, payload []byte) {
	var ev ComponentEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		b.logger.Warn("Invalid component event", "topic", topic, "error", err)
		return
	}
	if ev.Connected {
		b.manager.ComponentConnected(ev.Component, ev.Index)
	} else {
		b.manager.ComponentDisconnected(ev.Component, ev.Index)
	}
	b.publishStatus()
}

func (b *Bridge) handleFlyZone(topic string, payload []byte) {
	var ev AdvisoryEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		b.logger.Warn("Invalid fly zone event", "topic", topic, "error", err)
		return
	}
	state := session.FlyZoneState(ev.State)
	if !state.Valid() {
		b.logger.Warn("Unknown fly zone state", "state", ev.State)
		return
	}
	b.manager.UpdateFlyZoneState(state)
	b.publishStatus()
}

func (b *Bridge) handleActivation(topic string, payload []byte) {
	var ev AdvisoryEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		b.logger.Warn("Invalid activation event", "topic", topic, "error", err)
		return
	}
	state := session.ActivationState(ev.State)
	if !state.Valid() {
		b.logger.Warn("Unknown activation state", "state", ev.State)
		return
	}
	b.manager.UpdateActivationState(state)
	b.publishStatus()
}

// handleCommand submits a command to the open session. Its outcome arrives on
// TopicCommandResult through CommandFinished.
func (b *Bridge) handleCommand(topic string, payload []byte) {
	cmd, err := command.Decode(payload)
	if err != nil {
		b.logger.Warn("Invalid command", "topic", topic, "error", err)
		b.publishResult(CommandResult{Rejected: true, Code: command.Code(err), Error: err.Error()})
		return
	}

	meta := cmd.Metadata()
	s := b.manager.Session()
	if s == nil {
		b.publishResult(CommandResult{
			CommandID: meta.ID,
			Kind:      string(cmd.Kind()),
			Channel:   meta.Channel,
			Rejected:  true,
			Code:      command.Code(session.ErrNoSession),
			Error:     session.ErrNoSession.Error(),
		})
		return
	}

	ctx := auth.WithClaims(context.Background(), &auth.Claims{Subject: Subject})
	if err := s.Execute(ctx, cmd, nil); err != nil {
		b.logger.Debug("Command rejected", "command", meta.ID, "error", err)
	}
}

func (b *Bridge) SessionOpened(s *session.Session) {
	b.publish(TopicSession, true, SessionEvent{
		State:     "open",
		SessionID: s.ID(),
		Model:     s.Model(),
		At:        s.Opened().UTC(),
	})
	b.publishStatus()
}

func (b *Bridge) SessionClosed(s *session.Session) {
	b.publish(TopicSession, true, SessionEvent{State: "closed", SessionID: s.ID(), At: time.Now().UTC()})
	b.publishStatus()
}

func (b *Bridge) ComponentConnected(*session.Session, session.ComponentKey, uint)    {}
func (b *Bridge) ComponentDisconnected(*session.Session, session.ComponentKey, uint) {}

// CommandFinished publishes the outcome of every command, whatever its origin.
func (b *Bridge) CommandFinished(_ context.Context, r session.CommandReport) {
	result := CommandResult{
		SessionID: r.SessionID,
		CommandID: r.CommandID,
		Kind:      string(r.Kind),
		Channel:   r.Channel,
		Rejected:  r.Rejected,
		Code:      command.Code(r.Err),
		LatencyMs: r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		result.Error = r.Err.Error()
	}
	b.publishResult(result)
}

func (b *Bridge) publishResult(r CommandResult) {
	b.publish(TopicCommandResult, false, r)
}

func (b *Bridge) publishStatus() {
	if b.manager == nil {
		return
	}
	b.publish(TopicStatus, true, b.manager.StatusMessages())
}

func (b *Bridge) publish(suffix string, retained bool, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("Failed to marshal MQTT payload", "topic", suffix, "error", err)
		return
	}
	if err := b.client.Publish(b.Topic(suffix), b.qos, retained, data); err != nil {
		b.logger.Warn("MQTT publish failed", "topic", b.Topic(suffix), "error", err)
	}
}
