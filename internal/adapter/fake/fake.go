// Package fake provides an in-process simulated drone for tests and simulate mode.
package fake

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/dronelink/dronelinkd/internal/adapter"
)

// Drone implements adapter.DroneAdapter with scriptable cameras and gimbals.
type Drone struct {
	mu      sync.Mutex
	model   string
	cameras map[uint]*Camera
	gimbals map[uint]*Gimbal
	rc      *RemoteController
	fc      *FlightController
	closed  int
}

// Option configures a Drone.
type Option func(*Drone)

// WithCameras replaces the default single camera with n cameras on channels 0..n-1.
func WithCameras(n int) Option {
	return func(d *Drone) {
		d.cameras = make(map[uint]*Camera, n)
		for i := 0; i < n; i++ {
			d.cameras[uint(i)] = NewCamera(uint(i))
		}
	}
}

// WithGimbals replaces the default single gimbal with n gimbals on channels 0..n-1.
func WithGimbals(n int) Option {
	return func(d *Drone) {
		d.gimbals = make(map[uint]*Gimbal, n)
		for i := 0; i < n; i++ {
			d.gimbals[uint(i)] = NewGimbal(uint(i))
		}
	}
}

// NewDrone creates a simulated drone with one camera, one gimbal, a remote
// controller and a flight controller.
func NewDrone(model string, opts ...Option) *Drone {
	d := &Drone{
		model:   model,
		cameras: map[uint]*Camera{0: NewCamera(0)},
		gimbals: map[uint]*Gimbal{0: NewGimbal(0)},
		rc:      &RemoteController{},
		fc:      &FlightController{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Drone) Model() string { return d.model }

// Cameras returns the cameras ordered by channel.
func (d *Drone) Cameras() []adapter.CameraAdapter {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]adapter.CameraAdapter, 0, len(d.cameras))
	for i := uint(0); len(out) < len(d.cameras); i++ {
		if c, ok := d.cameras[i]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (d *Drone) Camera(channel uint) (adapter.CameraAdapter, bool) {
	c, ok := d.FakeCamera(channel)
	if !ok {
		return nil, false
	}
	return c, true
}

// AddCamera attaches a new camera on channel, as when a unit connects after
// the drone. An existing camera on channel is returned unchanged.
func (d *Drone) AddCamera(channel uint) *Camera {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.cameras[channel]; ok {
		return c
	}
	c := NewCamera(channel)
	d.cameras[channel] = c
	return c
}

// FakeCamera returns the concrete camera so tests can script it.
func (d *Drone) FakeCamera(channel uint) (*Camera, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.cameras[channel]
	return c, ok
}

func (d *Drone) Gimbal(channel uint) (adapter.GimbalAdapter, bool) {
	g, ok := d.FakeGimbal(channel)
	if !ok {
		return nil, false
	}
	return g, true
}

// FakeGimbal returns the concrete gimbal so tests can script it.
func (d *Drone) FakeGimbal(channel uint) (*Gimbal, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.gimbals[channel]
	return g, ok
}

func (d *Drone) RemoteController(channel uint) (adapter.RemoteControllerAdapter, bool) {
	if channel != 0 {
		return nil, false
	}
	return d.rc, true
}

func (d *Drone) FlightController() (adapter.FlightControllerAdapter, bool) {
	return d.fc, true
}

// FakeFlightController returns the concrete flight controller.
func (d *Drone) FakeFlightController() *FlightController { return d.fc }

// Close records the call; it never fails.
func (d *Drone) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

// CloseCount reports how many times Close was called.
func (d *Drone) CloseCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

var defaultVideoFormat = adapter.VideoResolutionFrameRate{
	Resolution:  "3840x2160",
	FrameRate:   "30",
	FieldOfView: "default",
}

// Camera is a simulated camera. Every exported scripting method is safe for
// concurrent use with the adapter methods.
type Camera struct {
	mu sync.Mutex

	index      uint
	flatMode   bool
	props      map[string]any
	state      adapter.CameraState
	busyScript []bool
	file       *adapter.CameraFile
	fileSeq    int

	// FileDelay is how long after StartShootPhoto the photo file appears. A negative
	// value means no file is ever produced.
	FileDelay time.Duration

	readErrs   map[string]error
	writeErrs  map[string]error
	actionErrs map[string]error
	writes     map[string]int
	actions    map[string]int
	stateReads int

	onState func(channel uint, state adapter.CameraState)
}

// NewCamera creates a camera in photo mode with an inserted SD card.
func NewCamera(index uint) *Camera {
	c := &Camera{
		index: index,
		props: map[string]any{
			adapter.PropertyAEBCount.Name():                     adapter.AEBCount3,
			adapter.PropertyAperture.Name():                     adapter.Aperture("f/2.8"),
			adapter.PropertyAELock.Name():                       false,
			adapter.PropertyAutoLockGimbal.Name():               false,
			adapter.PropertyColor.Name():                        adapter.CameraColorNone,
			adapter.PropertyContrast.Name():                     0,
			adapter.PropertyExposureCompensation.Name():         adapter.ExposureCompensationZero,
			adapter.PropertyExposureMode.Name():                 adapter.ExposureModeProgram,
			adapter.PropertyFileIndexMode.Name():                adapter.FileIndexModeSequence,
			adapter.PropertyFlatMode.Name():                     adapter.FlatModePhotoSingle,
			adapter.PropertyFocusMode.Name():                    adapter.FocusModeAuto,
			adapter.PropertyFocusRingUpperBound.Name():          uint(1000),
			adapter.PropertyISO.Name():                          adapter.ISO("100"),
			adapter.PropertyMechanicalShutter.Name():            false,
			adapter.PropertyMeteringMode.Name():                 adapter.MeteringModeCenter,
			adapter.PropertyMode.Name():                         adapter.CameraModePhoto,
			adapter.PropertyPhotoAspectRatio.Name():             adapter.PhotoAspectRatio4x3,
			adapter.PropertyPhotoFileFormat.Name():              adapter.PhotoFileFormatJPEG,
			adapter.PropertyPhotoTimeInterval.Name():            adapter.PhotoTimeIntervalSettings{CaptureCount: 255, IntervalSeconds: 2},
			adapter.PropertySaturation.Name():                   0,
			adapter.PropertySharpness.Name():                    0,
			adapter.PropertyShootPhotoMode.Name():               adapter.ShootPhotoModeSingle,
			adapter.PropertyShutterSpeed.Name():                 adapter.ShutterSpeed("1/500"),
			adapter.PropertyStorageLocation.Name():              adapter.StorageLocationSDCard,
			adapter.PropertyVideoCaption.Name():                 false,
			adapter.PropertyVideoFileCompressionStandard.Name(): adapter.VideoFileCompressionH264,
			adapter.PropertyVideoFileFormat.Name():              adapter.VideoFileFormatMP4,
			adapter.PropertyVideoResolutionFrameRate.Name():     defaultVideoFormat,
			adapter.PropertyVideoStandard.Name():                adapter.VideoStandardNTSC,
			adapter.PropertyWhiteBalance.Name():                 adapter.WhiteBalance{Preset: adapter.WhiteBalanceAuto},
		},
		state: adapter.CameraState{
			Mode:    adapter.CameraModePhoto,
			Storage: &adapter.StorageState{Inserted: true, RemainingBytes: 32 << 30},
			Exposure: &adapter.ExposureSettings{
				Aperture:             "f/2.8",
				ShutterSpeed:         "1/500",
				ISO:                  "100",
				ExposureCompensation: adapter.ExposureCompensationZero,
			},
			LensInformation: "24mm f/2.8",
		},
		FileDelay:  50 * time.Millisecond,
		readErrs:   map[string]error{},
		writeErrs:  map[string]error{},
		actionErrs: map[string]error{},
		writes:     map[string]int{},
		actions:    map[string]int{},
	}
	return c
}

func (c *Camera) Index() uint { return c.index }

func (c *Camera) Model() string { return fmt.Sprintf("Sim Camera %d", c.index) }

func (c *Camera) IsFlatModeSupported() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flatMode
}

// Get returns the current value of a property.
func (c *Camera) Get(ctx context.Context, name string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readErrs[name]; err != nil {
		return nil, err
	}
	v, ok := c.props[name]
	if !ok {
		return nil, fmt.Errorf("%w: camera has no property %s", adapter.ErrInvalidState, name)
	}
	return v, nil
}

// Set writes a property. The value must have the same type as the current value.
func (c *Camera) Set(ctx context.Context, name string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	if err := c.writeErrs[name]; err != nil {
		c.mu.Unlock()
		return err
	}
	current, ok := c.props[name]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: camera has no property %s", adapter.ErrInvalidState, name)
	}
	if reflect.TypeOf(current) != reflect.TypeOf(value) {
		c.mu.Unlock()
		return fmt.Errorf("%w: property %s takes %T, got %T", adapter.ErrInvalidRange, name, current, value)
	}
	c.props[name] = value
	c.writes[name]++
	c.applyLocked(name, value)
	state, hook := c.state, c.onState
	c.mu.Unlock()

	if hook != nil {
		hook(c.index, state)
	}
	return nil
}

// applyLocked mirrors property writes into the reported state.
func (c *Camera) applyLocked(name string, value any) {
	exposure := *c.state.Exposure
	switch name {
	case adapter.PropertyMode.Name():
		c.state.Mode = value.(adapter.CameraMode)
	case adapter.PropertyFlatMode.Name():
		switch value.(adapter.FlatMode) {
		case adapter.FlatModeVideoNormal, adapter.FlatModeVideoHDR, adapter.FlatModeSlowMotion:
			c.state.Mode = adapter.CameraModeVideo
		default:
			c.state.Mode = adapter.CameraModePhoto
		}
	case adapter.PropertyAperture.Name():
		exposure.Aperture = value.(adapter.Aperture)
	case adapter.PropertyShutterSpeed.Name():
		exposure.ShutterSpeed = value.(adapter.ShutterSpeed)
	case adapter.PropertyISO.Name():
		exposure.ISO = value.(adapter.ISO)
	case adapter.PropertyExposureCompensation.Name():
		exposure.ExposureCompensation = value.(adapter.ExposureCompensation)
	default:
		return
	}
	c.state.Exposure = &exposure
}

// State returns the current snapshot. While a busy script is queued each call
// consumes one entry for the IsBusy flag.
func (c *Camera) State(ctx context.Context) (adapter.CameraState, error) {
	if err := ctx.Err(); err != nil {
		return adapter.CameraState{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateReads++
	if err := c.readErrs["state"]; err != nil {
		return adapter.CameraState{}, err
	}
	state := c.state
	if len(c.busyScript) > 0 {
		state.IsBusy = c.busyScript[0]
		c.busyScript = c.busyScript[1:]
	}
	return state, nil
}

// MostRecentFile returns the newest generated file.
func (c *Camera) MostRecentFile(ctx context.Context) (adapter.CameraFile, bool, error) {
	if err := ctx.Err(); err != nil {
		return adapter.CameraFile{}, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readErrs["file"]; err != nil {
		return adapter.CameraFile{}, false, err
	}
	if c.file == nil {
		return adapter.CameraFile{}, false, nil
	}
	return *c.file, true, nil
}

func (c *Camera) StartShootPhoto(ctx context.Context) error {
	if err := c.action(ctx, "startShootPhoto"); err != nil {
		return err
	}
	c.mu.Lock()
	interval := c.props[adapter.PropertyShootPhotoMode.Name()] == adapter.ShootPhotoModeInterval ||
		(c.flatMode && c.props[adapter.PropertyFlatMode.Name()] == adapter.FlatModePhotoInterval)
	if interval {
		c.state.IsCapturingPhotoInterval = true
	}
	delay := c.FileDelay
	c.mu.Unlock()

	if delay >= 0 {
		time.AfterFunc(delay, func() { c.AddFile(time.Now()) })
	}
	c.push()
	return nil
}

func (c *Camera) StopShootPhoto(ctx context.Context) error {
	if err := c.action(ctx, "stopShootPhoto"); err != nil {
		return err
	}
	c.mu.Lock()
	c.state.IsCapturingPhotoInterval = false
	c.mu.Unlock()
	c.push()
	return nil
}

func (c *Camera) StartRecordVideo(ctx context.Context) error {
	if err := c.action(ctx, "startRecordVideo"); err != nil {
		return err
	}
	c.mu.Lock()
	c.state.IsCapturingVideo = true
	c.mu.Unlock()
	c.push()
	return nil
}

func (c *Camera) StopRecordVideo(ctx context.Context) error {
	if err := c.action(ctx, "stopRecordVideo"); err != nil {
		return err
	}
	c.mu.Lock()
	c.state.IsCapturingVideo = false
	c.mu.Unlock()
	c.AddFile(time.Now())
	c.push()
	return nil
}

func (c *Camera) SetFocusTarget(ctx context.Context, target adapter.Point) error {
	if target.X < 0 || target.X > 1 || target.Y < 0 || target.Y > 1 {
		return fmt.Errorf("%w: focus target %+v", adapter.ErrInvalidRange, target)
	}
	return c.action(ctx, "setFocusTarget")
}

func (c *Camera) SetSpotMeteringTarget(ctx context.Context, row, column uint8) error {
	if row > 7 || column > 11 {
		return fmt.Errorf("%w: metering cell %d,%d", adapter.ErrInvalidRange, row, column)
	}
	return c.action(ctx, "setSpotMeteringTarget")
}

func (c *Camera) SetFocusRingValue(ctx context.Context, value uint) error {
	c.mu.Lock()
	bound := c.props[adapter.PropertyFocusRingUpperBound.Name()].(uint)
	c.mu.Unlock()
	if value > bound {
		return fmt.Errorf("%w: focus ring %d above %d", adapter.ErrInvalidRange, value, bound)
	}
	return c.action(ctx, "setFocusRingValue")
}

func (c *Camera) action(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.actionErrs[name]; err != nil {
		return err
	}
	c.actions[name]++
	return nil
}

func (c *Camera) push() {
	c.mu.Lock()
	state, hook := c.state, c.onState
	c.mu.Unlock()
	if hook != nil {
		hook(c.index, state)
	}
}

// Helper methods for testing

// SetFlatModeSupported switches the camera between the flat and split mode models.
func (c *Camera) SetFlatModeSupported(supported bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flatMode = supported
}

// SetBusyScript queues IsBusy values returned by successive State calls.
func (c *Camera) SetBusyScript(busy ...bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busyScript = append([]bool(nil), busy...)
}

// SetState replaces the reported snapshot and fires the push hook.
func (c *Camera) SetState(state adapter.CameraState) {
	c.mu.Lock()
	c.state = state
	if c.state.Exposure == nil {
		c.state.Exposure = &adapter.ExposureSettings{ExposureCompensation: adapter.ExposureCompensationZero}
	}
	c.mu.Unlock()
	c.push()
}

// SetProperty stores a property value without counting it as a write.
func (c *Camera) SetProperty(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.props[name] = value
	c.applyLocked(name, value)
}

// FailRead makes reads of name fail with err. "state" and "file" target State and
// MostRecentFile. A nil err clears the failure.
func (c *Camera) FailRead(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readErrs[name] = err
}

// FailWrite makes writes of name fail with err. A nil err clears the failure.
func (c *Camera) FailWrite(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErrs[name] = err
}

// FailAction makes the named action (e.g. "startShootPhoto") fail with err.
func (c *Camera) FailAction(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actionErrs[name] = err
}

// Writes reports how many successful writes name has received.
func (c *Camera) Writes(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes[name]
}

// TotalWrites reports the number of successful property writes.
func (c *Camera) TotalWrites() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, w := range c.writes {
		n += w
	}
	return n
}

// Actions reports how many times the named action succeeded.
func (c *Camera) Actions(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.actions[name]
}

// StateReads reports how many times State was called.
func (c *Camera) StateReads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateReads
}

// AddFile records a new most recent file created at created.
func (c *Camera) AddFile(created time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fileSeq++
	c.file = &adapter.CameraFile{
		Channel: c.index,
		Name:    fmt.Sprintf("DJI_%04d.JPG", c.fileSeq),
		Size:    4 << 20,
		Created: created,
	}
}

// OnCameraState installs a hook called with every new snapshot.
func (c *Camera) OnCameraState(hook func(channel uint, state adapter.CameraState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = hook
}

// Gimbal is a simulated gimbal.
type Gimbal struct {
	mu        sync.Mutex
	index     uint
	state     adapter.GimbalState
	writes    int
	resets    int
	writeErr  error
	actionErr error
}

// NewGimbal creates a level gimbal in yaw-follow mode.
func NewGimbal(index uint) *Gimbal {
	return &Gimbal{index: index, state: adapter.GimbalState{Mode: adapter.GimbalModeYawFollow}}
}

func (g *Gimbal) Index() uint { return g.index }

func (g *Gimbal) Get(ctx context.Context, name string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if name != adapter.PropertyGimbalMode.Name() {
		return nil, fmt.Errorf("%w: gimbal has no property %s", adapter.ErrInvalidState, name)
	}
	return g.state.Mode, nil
}

func (g *Gimbal) Set(ctx context.Context, name string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.writeErr != nil {
		return g.writeErr
	}
	if name != adapter.PropertyGimbalMode.Name() {
		return fmt.Errorf("%w: gimbal has no property %s", adapter.ErrInvalidState, name)
	}
	mode, ok := value.(adapter.GimbalMode)
	if !ok {
		return fmt.Errorf("%w: gimbal mode takes GimbalMode, got %T", adapter.ErrInvalidRange, value)
	}
	g.state.Mode = mode
	g.writes++
	return nil
}

func (g *Gimbal) State(ctx context.Context) (adapter.GimbalState, error) {
	if err := ctx.Err(); err != nil {
		return adapter.GimbalState{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state, nil
}

func (g *Gimbal) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.actionErr != nil {
		return g.actionErr
	}
	g.state.Attitude = adapter.Attitude{}
	g.resets++
	return nil
}

func (g *Gimbal) FineTuneRoll(ctx context.Context, degrees float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.actionErr != nil {
		return g.actionErr
	}
	g.state.Attitude.Roll += degrees
	return nil
}

// Writes reports successful mode writes.
func (g *Gimbal) Writes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.writes
}

// Resets reports successful resets.
func (g *Gimbal) Resets() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resets
}

// FailWrite makes mode writes fail with err.
func (g *Gimbal) FailWrite(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writeErr = err
}

// FailAction makes Reset and FineTuneRoll fail with err.
func (g *Gimbal) FailAction(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.actionErr = err
}

// RemoteController is a simulated remote controller with centred sticks.
type RemoteController struct{}

func (r *RemoteController) State(ctx context.Context) (adapter.RemoteControllerState, error) {
	if err := ctx.Err(); err != nil {
		return adapter.RemoteControllerState{}, err
	}
	return adapter.RemoteControllerState{
		PauseButton: adapter.ButtonState{Present: true},
		C1Button:    adapter.ButtonState{Present: true},
		C2Button:    adapter.ButtonState{Present: true},
	}, nil
}

// FlightController is a simulated flight controller.
type FlightController struct {
	mu    sync.Mutex
	state adapter.FlightControllerState
	err   error
}

func (f *FlightController) State(ctx context.Context) (adapter.FlightControllerState, error) {
	if err := ctx.Err(); err != nil {
		return adapter.FlightControllerState{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, nil
}

func (f *FlightController) StartGoHome(ctx context.Context) error {
	return f.transition(ctx, func(s *adapter.FlightControllerState) { s.IsGoingHome = true })
}

func (f *FlightController) StartLanding(ctx context.Context) error {
	return f.transition(ctx, func(s *adapter.FlightControllerState) { s.IsLanding = true })
}

func (f *FlightController) transition(ctx context.Context, apply func(*adapter.FlightControllerState)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if !f.state.IsFlying {
		return fmt.Errorf("%w: aircraft is not flying", adapter.ErrInvalidState)
	}
	apply(&f.state)
	return nil
}

// SetFlying marks the aircraft airborne or landed.
func (f *FlightController) SetFlying(flying bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.IsFlying = flying
	if !flying {
		f.state.IsGoingHome = false
		f.state.IsLanding = false
	}
}

// Fail makes go-home and landing fail with err.
func (f *FlightController) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

var (
	_ adapter.DroneAdapter            = (*Drone)(nil)
	_ adapter.CameraAdapter           = (*Camera)(nil)
	_ adapter.CameraStatePusher       = (*Camera)(nil)
	_ adapter.GimbalAdapter           = (*Gimbal)(nil)
	_ adapter.RemoteControllerAdapter = (*RemoteController)(nil)
	_ adapter.FlightControllerAdapter = (*FlightController)(nil)
)
