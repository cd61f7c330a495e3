package session

// MessageLevel ranks a status message.
type MessageLevel string

const (
	MessageInfo    MessageLevel = "info"
	MessageWarning MessageLevel = "warning"
	MessageDanger  MessageLevel = "danger"
	MessageError   MessageLevel = "error"
)

// Message is a user-facing status line.
type Message struct {
	Title   string       `json:"title"`
	Details string       `json:"details,omitempty"`
	Level   MessageLevel `json:"level"`
}

// FlyZoneState is the airspace advisory pushed by the transport.
type FlyZoneState string

const (
	FlyZoneClear              FlyZoneState = "clear"
	FlyZoneInWarningZone      FlyZoneState = "inWarningZone"
	FlyZoneNearRestrictedZone FlyZoneState = "nearRestrictedZone"
	FlyZoneInRestrictedZone   FlyZoneState = "inRestrictedZone"
	FlyZoneUnknown            FlyZoneState = "unknown"
)

// Valid reports whether s is a known airspace state.
func (s FlyZoneState) Valid() bool {
	switch s {
	case FlyZoneClear, FlyZoneInWarningZone, FlyZoneNearRestrictedZone, FlyZoneInRestrictedZone, FlyZoneUnknown:
		return true
	}
	return false
}

// Message returns the status line for s. Clear and unknown airspace have none.
func (s FlyZoneState) Message() (Message, bool) {
	switch s {
	case FlyZoneInWarningZone:
		return Message{
			Title:   "Warning zone",
			Details: "The aircraft is in a warning zone. Fly with caution.",
			Level:   MessageWarning,
		}, true
	case FlyZoneNearRestrictedZone:
		return Message{
			Title:   "Near restricted zone",
			Details: "The aircraft is approaching a restricted zone.",
			Level:   MessageWarning,
		}, true
	case FlyZoneInRestrictedZone:
		return Message{
			Title:   "Restricted zone",
			Details: "The aircraft is in a restricted zone and may not take off.",
			Level:   MessageDanger,
		}, true
	}
	return Message{}, false
}

// ActivationState is the vendor account activation advisory.
type ActivationState string

const (
	ActivationNotSupported  ActivationState = "notSupported"
	ActivationLoginRequired ActivationState = "loginRequired"
	ActivationActivated     ActivationState = "activated"
	ActivationUnknown       ActivationState = "unknown"
)

// Valid reports whether s is a known activation state.
func (s ActivationState) Valid() bool {
	switch s {
	case ActivationNotSupported, ActivationLoginRequired, ActivationActivated, ActivationUnknown:
		return true
	}
	return false
}

// Message returns the status line for s. Only a required login produces one.
func (s ActivationState) Message() (Message, bool) {
	if s == ActivationLoginRequired {
		return Message{
			Title:   "Login required",
			Details: "Log in to the vendor account to activate the aircraft.",
			Level:   MessageError,
		}, true
	}
	return Message{}, false
}
