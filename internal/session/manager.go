package session

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/dronelink/dronelinkd/internal/adapter"
)

// Observer receives session lifecycle events. Callbacks run synchronously on
// the goroutine that reported the transport event. Observers are identified by
// value, so use pointer types; an observer whose type is not comparable can be
// added but never removed.
type Observer interface {
	SessionOpened(s *Session)
	SessionClosed(s *Session)
}

// ComponentObserver is an Observer that also wants component changes of the
// open session.
type ComponentObserver interface {
	Observer
	ComponentConnected(s *Session, key ComponentKey, index uint)
	ComponentDisconnected(s *Session, key ComponentKey, index uint)
}

// Manager owns at most one open session and the advisory state reported by the
// transport.
type Manager struct {
	opts   Options
	logger *slog.Logger

	// transition serializes connect and disconnect so the slot holds at most
	// one live session and every opened session is closed exactly once.
	transition sync.Mutex

	mu         sync.RWMutex
	session    *Session
	observers  []Observer
	flyZone    *adapter.Dated[FlyZoneState]
	activation *adapter.Dated[ActivationState]
}

// NewManager creates a manager that opens sessions with opts.
func NewManager(opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		opts:   opts,
		logger: opts.Logger,
	}
}

// Session returns the open session, or nil.
func (m *Manager) Session() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Add registers o. When a session is already open o immediately receives
// SessionOpened for it. Adding an observer twice has no effect.
func (m *Manager) Add(o Observer) {
	m.mu.Lock()
	for _, existing := range m.observers {
		if sameObserver(existing, o) {
			m.mu.Unlock()
			return
		}
	}
	m.observers = append(m.observers, o)
	current := m.session
	m.mu.Unlock()

	if current != nil {
		o.SessionOpened(current)
	}
}

// Remove unregisters o.
func (m *Manager) Remove(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.observers {
		if sameObserver(existing, o) {
			m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
			return
		}
	}
}

// ProductConnected opens a session when p supports flight control. A session
// that is still open is closed first. It returns the new session, or nil when p
// is not a drone.
func (m *Manager) ProductConnected(p adapter.Product) *Session {
	drone, ok := p.(adapter.DroneAdapter)
	if !ok {
		m.logger.Info("Ignoring connected product without flight control", "model", p.Model())
		return nil
	}

	m.transition.Lock()
	defer m.transition.Unlock()

	if previous := m.take(); previous != nil {
		m.logger.Warn("Product connected while a session is open, closing it", "session", previous.ID())
		m.close(previous)
	}

	s := Open(drone, m.opts)
	m.mu.Lock()
	m.session = s
	observers := m.snapshot()
	m.mu.Unlock()

	for _, o := range observers {
		o.SessionOpened(s)
	}
	return s
}

// ProductDisconnected closes the open session, if any.
func (m *Manager) ProductDisconnected() {
	m.transition.Lock()
	defer m.transition.Unlock()
	if s := m.take(); s != nil {
		m.close(s)
	}
}

// ComponentConnected forwards a component connection to the open session.
func (m *Manager) ComponentConnected(key ComponentKey, index uint) {
	s := m.Session()
	if s == nil {
		return
	}
	s.ComponentConnected(key, index)
	for _, o := range m.observersSnapshot() {
		if co, ok := o.(ComponentObserver); ok {
			co.ComponentConnected(s, key, index)
		}
	}
}

// ComponentDisconnected forwards a component disconnection to the open session.
func (m *Manager) ComponentDisconnected(key ComponentKey, index uint) {
	s := m.Session()
	if s == nil {
		return
	}
	s.ComponentDisconnected(key, index)
	for _, o := range m.observersSnapshot() {
		if co, ok := o.(ComponentObserver); ok {
			co.ComponentDisconnected(s, key, index)
		}
	}
}

// UpdateFlyZoneState replaces the airspace advisory.
func (m *Manager) UpdateFlyZoneState(state FlyZoneState) {
	dated := adapter.NewDated(state)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flyZone = &dated
}

// UpdateActivationState replaces the activation advisory.
func (m *Manager) UpdateActivationState(state ActivationState) {
	dated := adapter.NewDated(state)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activation = &dated
}

// FlyZoneState returns the latest airspace advisory.
func (m *Manager) FlyZoneState() (adapter.Dated[FlyZoneState], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.flyZone == nil {
		return adapter.Dated[FlyZoneState]{}, false
	}
	return *m.flyZone, true
}

// ActivationState returns the latest activation advisory.
func (m *Manager) ActivationState() (adapter.Dated[ActivationState], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.activation == nil {
		return adapter.Dated[ActivationState]{}, false
	}
	return *m.activation, true
}

// StatusMessages returns the airspace message, then the activation message,
// then the session's messages. Absent sources contribute nothing.
func (m *Manager) StatusMessages() []Message {
	m.mu.RLock()
	flyZone, activation, s := m.flyZone, m.activation, m.session
	m.mu.RUnlock()

	messages := []Message{}
	if flyZone != nil {
		if msg, ok := flyZone.Value.Message(); ok {
			messages = append(messages, msg)
		}
	}
	if activation != nil {
		if msg, ok := activation.Value.Message(); ok {
			messages = append(messages, msg)
		}
	}
	if s != nil {
		messages = append(messages, s.State().Value.StatusMessages...)
	}
	return messages
}

// Close closes the open session as a disconnect would.
func (m *Manager) Close() {
	m.ProductDisconnected()
}

// take detaches the open session so only one caller can close it.
func (m *Manager) take() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session
	m.session = nil
	return s
}

func (m *Manager) close(s *Session) {
	if err := s.Close(); err != nil {
		m.logger.Warn("Closing drone failed", "session", s.ID(), "error", err)
	}
	for _, o := range m.observersSnapshot() {
		o.SessionClosed(s)
	}
}

func (m *Manager) observersSnapshot() []Observer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot()
}

// snapshot copies the observer list. Caller must hold m.mu.
func (m *Manager) snapshot() []Observer {
	return append([]Observer(nil), m.observers...)
}

// sameObserver compares observers without panicking on non-comparable types.
func sameObserver(a, b Observer) bool {
	t := reflect.TypeOf(a)
	if t != reflect.TypeOf(b) || !t.Comparable() {
		return false
	}
	return a == b
}
