package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dronelink/dronelinkd/internal/adapter"
	"github.com/dronelink/dronelinkd/internal/command"
	"github.com/dronelink/dronelinkd/internal/config"
)

const tracerName = "github.com/dronelink/dronelinkd/internal/session"

// ErrNoSession is returned when an operation needs an open session and there is none.
var ErrNoSession = fmt.Errorf("%w: no open session", adapter.ErrUnavailable)

// ComponentKey names the kind of unit in component connect notifications.
type ComponentKey string

const (
	ComponentCamera           ComponentKey = "camera"
	ComponentGimbal           ComponentKey = "gimbal"
	ComponentRemoteController ComponentKey = "remoteController"
	ComponentFlightController ComponentKey = "flightController"
)

// Options configures sessions.
type Options struct {
	Timing   *config.TimingConfig
	Logger   *slog.Logger
	Reporter Reporter
	Tracer   trace.Tracer

	// PollRecorder observes verification polling of every session.
	PollRecorder command.PollRecorder

	// Vendor selects the token table used to normalize adapter errors.
	Vendor string
}

func (o Options) withDefaults() Options {
	if o.Timing == nil {
		o.Timing = config.LoadTimingBaseline()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Reporter == nil {
		o.Reporter = Reporters(nil)
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer(tracerName)
	}
	if o.Vendor == "" {
		o.Vendor = "generic"
	}
	return o
}

// State is a session snapshot.
type State struct {
	ID               string                                        `json:"id"`
	Model            string                                        `json:"model"`
	Opened           time.Time                                     `json:"opened"`
	Cameras          map[uint]adapter.Dated[adapter.CameraState]   `json:"cameras"`
	Gimbals          map[uint]adapter.Dated[adapter.GimbalState]   `json:"gimbals"`
	RemoteController *adapter.Dated[adapter.RemoteControllerState] `json:"remoteController,omitempty"`
	FlightController *adapter.Dated[adapter.FlightControllerState] `json:"flightController,omitempty"`
	MostRecentFile   *adapter.Dated[adapter.CameraFile]            `json:"mostRecentFile,omitempty"`
	StatusMessages   []Message                                     `json:"statusMessages"`
}

// Session owns one connected drone. It is the command.Target its commands run
// against and keeps the latest snapshot of every unit.
type Session struct {
	id     string
	opened time.Time
	drone  adapter.DroneAdapter
	engine *command.Engine
	opts   Options
	logger *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup

	cameras *channelCache[adapter.CameraAdapter]
	gimbals *channelCache[adapter.GimbalAdapter]

	mu               sync.RWMutex
	cameraStates     map[uint]adapter.Dated[adapter.CameraState]
	gimbalStates     map[uint]adapter.Dated[adapter.GimbalState]
	remoteController *adapter.Dated[adapter.RemoteControllerState]
	flightController *adapter.Dated[adapter.FlightControllerState]
	mostRecentFile   *adapter.Dated[adapter.CameraFile]
	hooked           map[uint]bool
}

// Open starts a session for drone. Cameras that push state are hooked to the
// session cache, and a refresh loop runs when Timing.StateRefreshInterval > 0.
func Open(drone adapter.DroneAdapter, opts Options) *Session {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		id:           uuid.NewString(),
		opened:       time.Now(),
		drone:        drone,
		opts:         opts,
		ctx:          ctx,
		cancel:       cancel,
		cameras:      newChannelCache(drone.Camera),
		gimbals:      newChannelCache(drone.Gimbal),
		cameraStates: make(map[uint]adapter.Dated[adapter.CameraState]),
		gimbalStates: make(map[uint]adapter.Dated[adapter.GimbalState]),
		hooked:       make(map[uint]bool),
	}
	s.logger = opts.Logger.With("session", s.id)
	s.engine = command.NewEngine(opts.Timing, s.logger)
	s.engine.SetPollRecorder(opts.PollRecorder)

	for _, cam := range drone.Cameras() {
		s.hookCamera(cam)
	}

	if interval := opts.Timing.StateRefreshInterval; interval > 0 {
		s.wg.Add(1)
		go s.refreshLoop(interval)
	}

	s.logger.Info("Session opened", "model", drone.Model())
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Opened() time.Time { return s.opened }

func (s *Session) Model() string { return s.drone.Model() }

// Camera returns the cached camera handle for channel.
func (s *Session) Camera(channel uint) (adapter.CameraAdapter, bool) {
	return s.cameras.get(channel)
}

// Gimbal returns the cached gimbal handle for channel.
func (s *Session) Gimbal(channel uint) (adapter.GimbalAdapter, bool) {
	return s.gimbals.get(channel)
}

func (s *Session) FlightController() (adapter.FlightControllerAdapter, bool) {
	return s.drone.FlightController()
}

// CameraState returns the latest snapshot for the camera at channel, fetching
// one synchronously when none has been received yet.
func (s *Session) CameraState(channel uint) (adapter.Dated[adapter.CameraState], bool) {
	s.mu.RLock()
	state, ok := s.cameraStates[channel]
	s.mu.RUnlock()
	if ok {
		return state, true
	}
	if err := s.refreshCamera(s.ctx, channel); err != nil {
		s.logger.Warn("Camera state unavailable", "channel", channel, "error", err)
		return adapter.Dated[adapter.CameraState]{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok = s.cameraStates[channel]
	return state, ok
}

// Valid reports whether the session is still open.
func (s *Session) Valid() bool { return !s.closed.Load() }

// UpdateCameraState replaces the cached camera snapshot. Updates after Close
// are dropped.
func (s *Session) UpdateCameraState(channel uint, state adapter.CameraState) {
	if !s.Valid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameraStates[channel] = adapter.NewDated(state)
}

// UpdateGimbalState replaces the cached gimbal snapshot.
func (s *Session) UpdateGimbalState(channel uint, state adapter.GimbalState) {
	if !s.Valid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gimbalStates[channel] = adapter.NewDated(state)
}

// UpdateRemoteControllerState replaces the cached remote controller snapshot.
func (s *Session) UpdateRemoteControllerState(state adapter.RemoteControllerState) {
	if !s.Valid() {
		return
	}
	dated := adapter.NewDated(state)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remoteController = &dated
}

// UpdateFlightControllerState replaces the cached flight controller snapshot.
func (s *Session) UpdateFlightControllerState(state adapter.FlightControllerState) {
	if !s.Valid() {
		return
	}
	dated := adapter.NewDated(state)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flightController = &dated
}

// UpdateMostRecentFile records a newly generated media file.
func (s *Session) UpdateMostRecentFile(file adapter.CameraFile) {
	if !s.Valid() {
		return
	}
	dated := adapter.NewDated(file)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mostRecentFile = &dated
}

// Execute submits cmd. A non-nil return is an immediate rejection and done is
// not called; otherwise done is called exactly once with the outcome. Errors
// from the adapter are normalized before they are reported.
func (s *Session) Execute(ctx context.Context, cmd command.Command, done command.Finished) error {
	if cmd == nil {
		return command.ErrUnhandled
	}
	if !s.Valid() {
		return command.ErrSessionClosed
	}

	meta := cmd.Metadata()
	ctx, span := s.opts.Tracer.Start(ctx, "command."+string(cmd.Kind()),
		trace.WithAttributes(
			attribute.String("session.id", s.id),
			attribute.String("command.id", meta.ID),
			attribute.String("command.kind", string(cmd.Kind())),
			attribute.Int("command.channel", int(meta.Channel)),
		))
	started := time.Now()

	// Execution outlives the caller's context and ends with the session.
	runCtx := trace.ContextWithSpan(s.ctx, span)
	err := s.engine.Execute(runCtx, cmd, s, func(err error) {
		err = s.normalize(err)
		s.finish(ctx, span, cmd, started, false, err)
		if done != nil {
			done(err)
		}
	})
	if err != nil {
		err = s.normalize(err)
		s.finish(ctx, span, cmd, started, true, err)
		return err
	}
	s.logger.Debug("Command started", "command", meta.ID, "kind", cmd.Kind(), "channel", meta.Channel)
	return nil
}

// Run executes cmd and waits for its outcome or for ctx to end. A command
// abandoned by ctx keeps running until its own outcome.
func (s *Session) Run(ctx context.Context, cmd command.Command) error {
	result := make(chan error, 1)
	if err := s.Execute(ctx, cmd, func(err error) { result <- err }); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) finish(ctx context.Context, span trace.Span, cmd command.Command, started time.Time, rejected bool, err error) {
	meta := cmd.Metadata()
	duration := time.Since(started)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, adapter.Code(err))
		s.logger.Warn("Command failed",
			"command", meta.ID, "kind", cmd.Kind(), "channel", meta.Channel,
			"rejected", rejected, "duration", duration, "error", err)
	} else {
		span.SetStatus(codes.Ok, "")
		s.logger.Info("Command succeeded",
			"command", meta.ID, "kind", cmd.Kind(), "channel", meta.Channel, "duration", duration)
	}
	span.End()

	s.opts.Reporter.CommandFinished(ctx, CommandReport{
		SessionID: s.id,
		CommandID: meta.ID,
		Kind:      cmd.Kind(),
		Channel:   meta.Channel,
		Started:   started,
		Duration:  duration,
		Rejected:  rejected,
		Err:       err,
	})
}

// normalize maps vendor errors onto the normalized codes. Engine outcomes that
// are not device errors pass through unchanged.
func (s *Session) normalize(err error) error {
	if err == nil || errors.Is(err, command.ErrUnhandled) || errors.Is(err, command.ErrNoFileProduced) {
		return err
	}
	return adapter.NormalizeVendorErrorWithVendor(err, nil, s.opts.Vendor)
}

// ComponentConnected primes the handle cache for the unit and refreshes its
// snapshot.
func (s *Session) ComponentConnected(key ComponentKey, index uint) {
	if !s.Valid() {
		return
	}
	s.logger.Info("Component connected", "component", key, "index", index)

	var err error
	switch key {
	case ComponentCamera:
		if cam, ok := s.Camera(index); ok {
			s.hookCamera(cam)
		}
		err = s.refreshCamera(s.ctx, index)
	case ComponentGimbal:
		err = s.refreshGimbal(s.ctx, index)
	case ComponentRemoteController:
		err = s.refreshRemoteController(s.ctx, index)
	case ComponentFlightController:
		err = s.refreshFlightController(s.ctx)
	default:
		s.logger.Debug("Ignoring unknown component", "component", key)
		return
	}
	if err != nil {
		s.logger.Warn("Component refresh failed", "component", key, "index", index, "error", err)
	}
}

// hookCamera subscribes to the camera's pushed snapshots, once per channel.
func (s *Session) hookCamera(cam adapter.CameraAdapter) {
	pusher, ok := cam.(adapter.CameraStatePusher)
	if !ok {
		return
	}
	s.mu.Lock()
	if s.hooked[cam.Index()] {
		s.mu.Unlock()
		return
	}
	s.hooked[cam.Index()] = true
	s.mu.Unlock()
	pusher.OnCameraState(s.UpdateCameraState)
}

// ComponentDisconnected drops the unit's cached snapshot. Its handle stays cached.
func (s *Session) ComponentDisconnected(key ComponentKey, index uint) {
	s.logger.Info("Component disconnected", "component", key, "index", index)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch key {
	case ComponentCamera:
		delete(s.cameraStates, index)
	case ComponentGimbal:
		delete(s.gimbalStates, index)
	case ComponentRemoteController:
		s.remoteController = nil
	case ComponentFlightController:
		s.flightController = nil
	}
}

// Close cancels in-flight verification and releases the drone. It is safe to
// call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.wg.Wait()
		s.closeErr = s.drone.Close()
		s.logger.Info("Session closed", "duration", time.Since(s.opened))
	})
	return s.closeErr
}

// State returns a snapshot of every cached unit with derived status messages.
func (s *Session) State() adapter.Dated[State] {
	s.mu.RLock()
	state := State{
		ID:               s.id,
		Model:            s.drone.Model(),
		Opened:           s.opened,
		Cameras:          make(map[uint]adapter.Dated[adapter.CameraState], len(s.cameraStates)),
		Gimbals:          make(map[uint]adapter.Dated[adapter.GimbalState], len(s.gimbalStates)),
		RemoteController: s.remoteController,
		FlightController: s.flightController,
		MostRecentFile:   s.mostRecentFile,
	}
	for ch, v := range s.cameraStates {
		state.Cameras[ch] = v
	}
	for ch, v := range s.gimbalStates {
		state.Gimbals[ch] = v
	}
	s.mu.RUnlock()

	state.StatusMessages = statusMessages(state)
	return adapter.NewDated(state)
}

func statusMessages(state State) []Message {
	messages := []Message{}

	channels := make([]uint, 0, len(state.Cameras))
	for ch := range state.Cameras {
		channels = append(channels, ch)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })
	for _, ch := range channels {
		if !state.Cameras[ch].Value.IsSDCardInserted() {
			messages = append(messages, Message{
				Title:   "SD card missing",
				Details: fmt.Sprintf("Insert an SD card in camera %d.", ch),
				Level:   MessageWarning,
			})
		}
	}

	if fc := state.FlightController; fc != nil {
		switch {
		case fc.Value.IsGoingHome:
			messages = append(messages, Message{Title: "Returning home", Level: MessageInfo})
		case fc.Value.IsLanding:
			messages = append(messages, Message{Title: "Landing", Level: MessageInfo})
		}
	}
	return messages
}

func (s *Session) refreshLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(s.ctx)
		}
	}
}

// Refresh pulls a fresh snapshot from every known unit. Failures are logged and
// leave the previous snapshot in place.
func (s *Session) Refresh(ctx context.Context) {
	for _, cam := range s.drone.Cameras() {
		if err := s.refreshCamera(ctx, cam.Index()); err != nil {
			s.logger.Debug("Camera refresh failed", "channel", cam.Index(), "error", err)
		}
	}
	for _, ch := range s.gimbals.channels() {
		if err := s.refreshGimbal(ctx, ch); err != nil {
			s.logger.Debug("Gimbal refresh failed", "channel", ch, "error", err)
		}
	}
	if err := s.refreshRemoteController(ctx, 0); err != nil {
		s.logger.Debug("Remote controller refresh failed", "error", err)
	}
	if err := s.refreshFlightController(ctx); err != nil {
		s.logger.Debug("Flight controller refresh failed", "error", err)
	}
}

func (s *Session) refreshCamera(ctx context.Context, channel uint) error {
	cam, ok := s.Camera(channel)
	if !ok {
		return fmt.Errorf("%w: no camera at channel %d", adapter.ErrUnavailable, channel)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timing.CommandTimeout)
	defer cancel()

	state, err := cam.State(ctx)
	if err != nil {
		return err
	}
	s.UpdateCameraState(channel, state)

	file, ok, err := cam.MostRecentFile(ctx)
	if err != nil {
		return err
	}
	if ok && s.isNewFile(file) {
		s.UpdateMostRecentFile(file)
	}
	return nil
}

func (s *Session) isNewFile(file adapter.CameraFile) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mostRecentFile == nil || s.mostRecentFile.Value != file
}

func (s *Session) refreshGimbal(ctx context.Context, channel uint) error {
	gimbal, ok := s.Gimbal(channel)
	if !ok {
		return fmt.Errorf("%w: no gimbal at channel %d", adapter.ErrUnavailable, channel)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timing.CommandTimeout)
	defer cancel()

	state, err := gimbal.State(ctx)
	if err != nil {
		return err
	}
	s.UpdateGimbalState(channel, state)
	return nil
}

func (s *Session) refreshRemoteController(ctx context.Context, channel uint) error {
	rc, ok := s.drone.RemoteController(channel)
	if !ok {
		return fmt.Errorf("%w: no remote controller at channel %d", adapter.ErrUnavailable, channel)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timing.CommandTimeout)
	defer cancel()

	state, err := rc.State(ctx)
	if err != nil {
		return err
	}
	s.UpdateRemoteControllerState(state)
	return nil
}

func (s *Session) refreshFlightController(ctx context.Context) error {
	fc, ok := s.drone.FlightController()
	if !ok {
		return fmt.Errorf("%w: no flight controller", adapter.ErrUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timing.CommandTimeout)
	defer cancel()

	state, err := fc.State(ctx)
	if err != nil {
		return err
	}
	s.UpdateFlightControllerState(state)
	return nil
}
