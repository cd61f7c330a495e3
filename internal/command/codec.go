package command

import (
	"encoding/json"
	"fmt"
	"sort"
)

type decoder func(data []byte) (Command, error)

// registry holds one decoder per kind the engine executes.
var registry = map[Kind]decoder{}

func register[T Command, PT interface {
	*T
	ensureID()
}]() {
	var zero T
	registry[zero.Kind()] = func(data []byte) (Command, error) {
		var c T
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		PT(&c).ensureID()
		return c, nil
	}
}

func init() {
	register[SetAEBCount]()
	register[SetAperture]()
	register[SetAutoExposureLock]()
	register[SetAutoLockGimbal]()
	register[SetColor]()
	register[SetContrast]()
	register[SetExposureCompensation]()
	register[StepExposureCompensation]()
	register[SetExposureMode]()
	register[SetFileIndexMode]()
	register[Focus]()
	register[SetFocusMode]()
	register[SetFocusRing]()
	register[SetISO]()
	register[SetMechanicalShutter]()
	register[SetMeteringMode]()
	register[SetMode]()
	register[SetPhotoAspectRatio]()
	register[SetPhotoFileFormat]()
	register[SetPhotoInterval]()
	register[SetPhotoMode]()
	register[SetSaturation]()
	register[SetSharpness]()
	register[SetShutterSpeed]()
	register[SetSpotMeteringTarget]()
	register[StartCapture]()
	register[StopCapture]()
	register[SetStorageLocation]()
	register[SetVideoCaption]()
	register[SetVideoFileCompressionStandard]()
	register[SetVideoFileFormat]()
	register[SetVideoMode]()
	register[SetVideoResolutionFrameRate]()
	register[SetVideoStandard]()
	register[SetWhiteBalanceCustom]()
	register[SetWhiteBalancePreset]()
	register[SetGimbalMode]()
	register[ResetGimbal]()
	register[FineTuneGimbalRoll]()
	register[StartGoHome]()
	register[StartLanding]()
}

// Kinds returns every registered kind, sorted.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Known reports whether kind is registered.
func Known(kind Kind) bool {
	_, ok := registry[kind]
	return ok
}

// New returns a zero-valued command of kind with a fresh ID. The result is not
// validated.
func New(kind Kind) (Command, error) {
	decode, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return decode([]byte(`{}`))
}

// Decode parses and validates a JSON command. The "type" field selects the
// variant; a missing "id" is filled with a fresh UUID.
func Decode(data []byte) (Command, error) {
	var envelope struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	if envelope.Type == "" {
		return nil, fmt.Errorf("%w: missing command type", ErrInvalidParameter)
	}
	decode, ok := registry[envelope.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, envelope.Type)
	}
	cmd, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidParameter, envelope.Type, err)
	}
	if err := Validate(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// Encode renders cmd as JSON including its "type" discriminator.
func Encode(cmd Command) ([]byte, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	kind, _ := json.Marshal(cmd.Kind())
	fields["type"] = kind
	return json.Marshal(fields)
}
