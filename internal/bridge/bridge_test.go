package bridge

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dronelink/dronelinkd/internal/adapter"
	"github.com/dronelink/dronelinkd/internal/adapter/fake"
	"github.com/dronelink/dronelinkd/internal/config"
	"github.com/dronelink/dronelinkd/internal/session"
)

type published struct {
	topic    string
	retained bool
	payload  []byte
}

// mockClient records subscriptions and publications.
type mockClient struct {
	mu           sync.Mutex
	handlers     map[string]Handler
	published    []published
	subscribeErr error
	disconnected bool

	// settle runs after every delivery.
	settle func()
}

func newMockClient() *mockClient {
	return &mockClient{handlers: make(map[string]Handler)}
}

func (c *mockClient) Subscribe(topic string, qos byte, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribeErr != nil {
		return c.subscribeErr
	}
	c.handlers[topic] = handler
	return nil
}

func (c *mockClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{topic, retained, payload})
	return nil
}

func (c *mockClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

// deliver simulates an inbound message.
func (c *mockClient) deliver(t *testing.T, topic, payload string) {
	t.Helper()
	c.mu.Lock()
	handler, ok := c.handlers[topic]
	c.mu.Unlock()
	if !ok {
		t.Fatalf("No subscription for %s", topic)
	}
	handler(topic, []byte(payload))
	if c.settle != nil {
		c.settle()
	}
}

// deliverRaw queues a message without waiting for it to be handled.
func (c *mockClient) deliverRaw(t *testing.T, topic, payload string) {
	t.Helper()
	c.mu.Lock()
	handler, ok := c.handlers[topic]
	c.mu.Unlock()
	if !ok {
		t.Fatalf("No subscription for %s", topic)
	}
	handler(topic, []byte(payload))
}

// last returns the latest payload published on topic.
func (c *mockClient) last(topic string) (published, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.published) - 1; i >= 0; i-- {
		if c.published[i].topic == topic {
			return c.published[i], true
		}
	}
	return published{}, false
}

type handheld struct{}

func (handheld) Model() string { return "Handheld" }

func simFactory(model string) (adapter.Product, error) {
	switch model {
	case "":
		return nil, errors.New("model required")
	case "Handheld":
		return handheld{}, nil
	}
	return fake.NewDrone(model), nil
}

func setup(t *testing.T) (*Bridge, *mockClient, *session.Manager) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := newMockClient()
	b := New(client, simFactory, config.MQTTConfig{TopicPrefix: "drone/", QoS: 1}, logger)
	client.settle = b.flush
	t.Cleanup(b.Stop)

	timing := config.LoadTimingBaseline()
	timing.StateRefreshInterval = 0
	m := session.NewManager(session.Options{Timing: timing, Logger: logger, Reporter: b})
	t.Cleanup(m.Close)

	if err := b.Start(m); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	return b, client, m
}

func decode[T any](t *testing.T, p published) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(p.payload, &v); err != nil {
		t.Fatalf("Invalid payload on %s: %v", p.topic, err)
	}
	return v
}

func TestStartSubscribesAndPublishesInitialState(t *testing.T) {
	_, client, _ := setup(t)

	for _, topic := range []string{
		"drone/transport/product",
		"drone/transport/component",
		"drone/transport/flyZone",
		"drone/transport/activation",
		"drone/command",
	} {
		if _, ok := client.handlers[topic]; !ok {
			t.Errorf("Expected subscription to %s", topic)
		}
	}

	p, ok := client.last("drone/session")
	if !ok || !p.retained {
		t.Fatalf("Expected retained session payload, got %+v", p)
	}
	if ev := decode[SessionEvent](t, p); ev.State != "closed" {
		t.Errorf("Expected closed session, got %s", ev.State)
	}
	if status, ok := client.last("drone/status"); !ok || string(status.payload) != "[]" {
		t.Errorf("Expected empty status list, got %s", status.payload)
	}
}

func TestStartSubscribeFailure(t *testing.T) {
	client := newMockClient()
	client.subscribeErr = errors.New("not authorized")
	b := New(client, simFactory, config.MQTTConfig{}, nil)

	if err := b.Start(session.NewManager(session.Options{})); err == nil {
		t.Error("Expected Start() to fail")
	}
}

func TestProductLifecycle(t *testing.T) {
	_, client, m := setup(t)

	client.deliver(t, "drone/transport/product", `{"event":"connected","model":"Mavic"}`)
	s := m.Session()
	if s == nil {
		t.Fatal("Expected a session after connect")
	}
	ev := decode[SessionEvent](t, mustLast(t, client, "drone/session"))
	if ev.State != "open" || ev.SessionID != s.ID() || ev.Model != "Mavic" {
		t.Errorf("Unexpected session event: %+v", ev)
	}

	client.deliver(t, "drone/transport/product", `{"event":"disconnected"}`)
	if m.Session() != nil {
		t.Error("Expected no session after disconnect")
	}
	if ev := decode[SessionEvent](t, mustLast(t, client, "drone/session")); ev.State != "closed" || ev.SessionID != s.ID() {
		t.Errorf("Unexpected session event: %+v", ev)
	}
}

func TestProductIgnored(t *testing.T) {
	_, client, m := setup(t)

	for _, payload := range []string{
		`{"event":"connected","model":"Handheld"}`,
		`{"event":"connected"}`,
		`{"event":"rebooted"}`,
		`not json`,
	} {
		client.deliver(t, "drone/transport/product", payload)
		if m.Session() != nil {
			t.Errorf("%s: expected no session", payload)
		}
	}
}

func TestComponentForwarding(t *testing.T) {
	_, client, m := setup(t)
	client.deliver(t, "drone/transport/product", `{"event":"connected","model":"Mavic"}`)

	client.deliver(t, "drone/transport/component", `{"component":"camera","index":0,"connected":false}`)
	if _, ok := m.Session().State().Value.Cameras[0]; ok {
		t.Error("Expected camera snapshot to be dropped")
	}

	client.deliver(t, "drone/transport/component", `{"component":"camera","index":0,"connected":true}`)
	if _, ok := m.Session().State().Value.Cameras[0]; !ok {
		t.Error("Expected camera snapshot after reconnect")
	}
}

func TestAdvisories(t *testing.T) {
	_, client, m := setup(t)

	client.deliver(t, "drone/transport/flyZone", `{"state":"inRestrictedZone"}`)
	client.deliver(t, "drone/transport/activation", `{"state":"loginRequired"}`)
	client.deliver(t, "drone/transport/flyZone", `{"state":"nearAirport"}`)

	if zone, ok := m.FlyZoneState(); !ok || zone.Value != session.FlyZoneInRestrictedZone {
		t.Errorf("Expected restricted zone to be kept, got %+v", zone)
	}

	status := decode[[]session.Message](t, mustLast(t, client, "drone/status"))
	if len(status) != 2 || status[0].Title != "Restricted zone" || status[1].Title != "Login required" {
		t.Errorf("Unexpected status messages: %+v", status)
	}
}

func TestCommandOverMQTT(t *testing.T) {
	_, client, _ := setup(t)
	client.deliver(t, "drone/transport/product", `{"event":"connected","model":"Mavic"}`)

	client.deliver(t, "drone/command", `{"type":"exposureMode","id":"c1","channel":0,"value":"manual"}`)

	var result CommandResult
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p, ok := client.last("drone/command/result"); ok {
			result = decode[CommandResult](t, p)
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if result.CommandID != "c1" || result.Code != "SUCCESS" || result.Rejected {
		t.Errorf("Unexpected command result: %+v", result)
	}
}

func TestCommandRejections(t *testing.T) {
	_, client, _ := setup(t)

	tests := []struct {
		payload string
		code    string
	}{
		{`{"type":"exposureMode","id":"c1","value":"manual"}`, "UNAVAILABLE"},
		{`{"type":"teleport"}`, "UNKNOWN_KIND"},
		{`{"type":`, "INVALID_RANGE"},
	}

	for _, tt := range tests {
		client.deliver(t, "drone/command", tt.payload)
		result := decode[CommandResult](t, mustLast(t, client, "drone/command/result"))
		if !result.Rejected || result.Code != tt.code {
			t.Errorf("%s: expected rejected %s, got %+v", tt.payload, tt.code, result)
		}
	}
}

func TestTransportEventsApplyInOrder(t *testing.T) {
	b, client, m := setup(t)

	for i := 0; i < 20; i++ {
		client.deliverRaw(t, "drone/transport/product", `{"event":"connected","model":"Mavic"}`)
		client.deliverRaw(t, "drone/transport/product", `{"event":"disconnected"}`)
	}
	b.flush()

	if m.Session() != nil {
		t.Error("Expected the last disconnect to leave no session")
	}

	var opened, closed int
	client.mu.Lock()
	for _, p := range client.published {
		if p.topic != "drone/session" {
			continue
		}
		var ev SessionEvent
		if err := json.Unmarshal(p.payload, &ev); err != nil {
			t.Fatalf("Invalid session payload: %v", err)
		}
		switch {
		case ev.State == "open":
			opened++
		case ev.SessionID != "":
			closed++
		}
	}
	client.mu.Unlock()
	if opened != 20 || closed != 20 {
		t.Errorf("Expected 20 opened and 20 closed, got %d and %d", opened, closed)
	}
}

func TestStop(t *testing.T) {
	b, client, m := setup(t)
	b.Stop()

	if !client.disconnected {
		t.Error("Expected client to disconnect")
	}

	before := len(client.published)
	m.ProductConnected(fake.NewDrone("Mavic"))
	if len(client.published) != before {
		t.Error("Expected no publications after Stop")
	}

	m.ProductDisconnected()
	client.deliverRaw(t, "drone/transport/product", `{"event":"connected","model":"Mavic"}`)
	b.Stop()
	if m.Session() != nil {
		t.Error("Expected messages after Stop to be dropped")
	}
}

func TestTopicWithoutPrefix(t *testing.T) {
	b := New(newMockClient(), simFactory, config.MQTTConfig{}, nil)
	if got := b.Topic(TopicStatus); got != "status" {
		t.Errorf("Expected 'status', got %s", got)
	}
	if ev := string(ClosedPayload()); ev == "" {
		t.Error("Expected closed payload")
	}
	if got := WillTopic(config.MQTTConfig{TopicPrefix: "fleet/"}); got != "fleet/session" {
		t.Errorf("Expected 'fleet/session', got %s", got)
	}
}

func mustLast(t *testing.T, client *mockClient, topic string) published {
	t.Helper()
	p, ok := client.last(topic)
	if !ok {
		t.Fatalf("Nothing published on %s", topic)
	}
	return p
}
