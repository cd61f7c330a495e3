package command

import (
	"github.com/dronelink/dronelinkd/internal/adapter"
)

// Finished receives the outcome of a command: nil for success.
type Finished func(err error)

// Target is what a command executes against, normally the open session.
type Target interface {
	Camera(channel uint) (adapter.CameraAdapter, bool)
	Gimbal(channel uint) (adapter.GimbalAdapter, bool)
	FlightController() (adapter.FlightControllerAdapter, bool)

	// CameraState returns the latest snapshot for the camera at channel.
	CameraState(channel uint) (adapter.Dated[adapter.CameraState], bool)

	// Valid reports whether the target can still be used. Verification stops
	// with ErrSessionClosed once it turns false.
	Valid() bool
}

// PollRecorder observes verification polling.
type PollRecorder interface {
	PollAttempt(check string)
	PollExhausted(check string)
}

type nopRecorder struct{}

func (nopRecorder) PollAttempt(string)   {}
func (nopRecorder) PollExhausted(string) {}
