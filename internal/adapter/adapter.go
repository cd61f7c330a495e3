package adapter

import (
	"context"
	"time"
)

// Dated pairs a value with the time it was observed.
type Dated[T any] struct {
	Value T         `json:"value"`
	Date  time.Time `json:"date"`
}

// NewDated stamps value with the current time.
func NewDated[T any](value T) Dated[T] {
	return Dated[T]{Value: value, Date: time.Now()}
}

// Product is anything the transport layer reports as connected.
type Product interface {
	// Model returns the product's display name.
	Model() string
}

// DroneAdapter is a product that supports flight control. Lookups return false when
// no unit exists at the requested channel.
type DroneAdapter interface {
	Product

	Cameras() []CameraAdapter
	Camera(channel uint) (CameraAdapter, bool)
	Gimbal(channel uint) (GimbalAdapter, bool)
	RemoteController(channel uint) (RemoteControllerAdapter, bool)
	FlightController() (FlightControllerAdapter, bool)

	// Close releases vendor resources held for the connection.
	Close() error
}

// PropertyStore is the typed-property surface shared by configurable units.
// Use the package-level Get and Set helpers rather than calling it directly.
type PropertyStore interface {
	Get(ctx context.Context, name string) (any, error)
	Set(ctx context.Context, name string, value any) error
}

// CameraAdapter controls a single camera.
type CameraAdapter interface {
	PropertyStore

	Index() uint
	Model() string

	// State returns the camera's current snapshot.
	State(ctx context.Context) (CameraState, error)

	// MostRecentFile returns the newest media file generated by the camera.
	// The boolean is false when no file has been generated during the connection.
	MostRecentFile(ctx context.Context) (CameraFile, bool, error)

	// IsFlatModeSupported reports whether the camera uses the flat mode model
	// instead of separate work mode and shoot photo mode settings.
	IsFlatModeSupported() bool

	StartShootPhoto(ctx context.Context) error
	StopShootPhoto(ctx context.Context) error
	StartRecordVideo(ctx context.Context) error
	StopRecordVideo(ctx context.Context) error

	// SetFocusTarget focuses on a point in normalized [0,1] view coordinates.
	SetFocusTarget(ctx context.Context, target Point) error

	// SetSpotMeteringTarget selects a cell in the 8x12 metering grid.
	SetSpotMeteringTarget(ctx context.Context, row, column uint8) error

	// SetFocusRingValue sets the absolute focus ring position.
	SetFocusRingValue(ctx context.Context, value uint) error
}

// CameraStatePusher is implemented by cameras that push a new snapshot whenever
// their state changes. Sessions install their cache update as the hook.
type CameraStatePusher interface {
	OnCameraState(hook func(channel uint, state CameraState))
}

// GimbalAdapter controls a single gimbal.
type GimbalAdapter interface {
	PropertyStore

	Index() uint
	State(ctx context.Context) (GimbalState, error)
	Reset(ctx context.Context) error
	FineTuneRoll(ctx context.Context, degrees float64) error
}

// RemoteControllerAdapter exposes read-only remote controller hardware state.
type RemoteControllerAdapter interface {
	State(ctx context.Context) (RemoteControllerState, error)
}

// FlightControllerAdapter exposes flight controller state and the actions the
// engine may trigger.
type FlightControllerAdapter interface {
	State(ctx context.Context) (FlightControllerState, error)
	StartGoHome(ctx context.Context) error
	StartLanding(ctx context.Context) error
}
