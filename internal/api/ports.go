package api

import (
	"context"
	"net/http"

	"github.com/dronelink/dronelinkd/internal/adapter"
	"github.com/dronelink/dronelinkd/internal/session"
	"github.com/dronelink/dronelinkd/internal/telemetry"
)

// SessionSource is what the API reads from the session manager.
type SessionSource interface {
	Session() *session.Session
	StatusMessages() []session.Message
	FlyZoneState() (adapter.Dated[session.FlyZoneState], bool)
	ActivationState() (adapter.Dated[session.ActivationState], bool)
}

// TelemetryPort streams events to one HTTP client.
type TelemetryPort interface {
	Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

var (
	_ SessionSource = (*session.Manager)(nil)
	_ TelemetryPort = (*telemetry.Hub)(nil)
)
