package command

import (
	"fmt"

	"github.com/dronelink/dronelinkd/internal/adapter"
)

// Picture style settings are offsets from the camera default.
const (
	minStyleOffset = -3
	maxStyleOffset = 3
)

type validator interface {
	validate() error
}

// Validate checks the parameters cmd carries, independent of any target.
// Failures wrap ErrInvalidParameter.
func Validate(cmd Command) error {
	v, ok := cmd.(validator)
	if !ok {
		return nil
	}
	if err := v.validate(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidParameter, cmd.Kind(), err)
	}
	return nil
}

func checkValue[V interface {
	~string
	Valid() bool
}](v V) error {
	if !v.Valid() {
		return fmt.Errorf("unsupported value %q", string(v))
	}
	return nil
}

func checkStyle(v int) error {
	if v < minStyleOffset || v > maxStyleOffset {
		return fmt.Errorf("value %d outside %d..%d", v, minStyleOffset, maxStyleOffset)
	}
	return nil
}

func checkTarget(p adapter.Point) error {
	if !p.Valid() {
		return fmt.Errorf("target %+v outside the unit square", p)
	}
	return nil
}

func (c SetAEBCount) validate() error                     { return checkValue(c.Value) }
func (c SetAperture) validate() error                     { return checkValue(c.Value) }
func (c SetColor) validate() error                        { return checkValue(c.Value) }
func (c SetContrast) validate() error                     { return checkStyle(c.Value) }
func (c SetExposureCompensation) validate() error         { return checkValue(c.Value) }
func (c SetExposureMode) validate() error                 { return checkValue(c.Value) }
func (c SetFileIndexMode) validate() error                { return checkValue(c.Value) }
func (c Focus) validate() error                           { return checkTarget(c.Target) }
func (c SetFocusMode) validate() error                    { return checkValue(c.Value) }
func (c SetISO) validate() error                          { return checkValue(c.Value) }
func (c SetMeteringMode) validate() error                 { return checkValue(c.Value) }
func (c SetMode) validate() error                         { return checkValue(c.Value) }
func (c SetPhotoAspectRatio) validate() error             { return checkValue(c.Value) }
func (c SetPhotoFileFormat) validate() error              { return checkValue(c.Value) }
func (c SetPhotoMode) validate() error                    { return checkValue(c.Value) }
func (c SetSaturation) validate() error                   { return checkStyle(c.Value) }
func (c SetSharpness) validate() error                    { return checkStyle(c.Value) }
func (c SetShutterSpeed) validate() error                 { return checkValue(c.Value) }
func (c SetSpotMeteringTarget) validate() error           { return checkTarget(c.Target) }
func (c SetStorageLocation) validate() error              { return checkValue(c.Value) }
func (c SetVideoFileCompressionStandard) validate() error { return checkValue(c.Value) }
func (c SetVideoFileFormat) validate() error              { return checkValue(c.Value) }
func (c SetVideoMode) validate() error                    { return checkValue(c.Value) }
func (c SetVideoStandard) validate() error                { return checkValue(c.Value) }
func (c SetWhiteBalancePreset) validate() error           { return checkValue(c.Value) }
func (c SetGimbalMode) validate() error                   { return checkValue(c.Value) }

func (c SetFocusRing) validate() error {
	if c.Percent < 0 || c.Percent > 1 {
		return fmt.Errorf("percent %v outside 0..1", c.Percent)
	}
	return nil
}

func (c SetPhotoInterval) validate() error {
	if c.Seconds == 0 {
		return fmt.Errorf("interval must be at least one second")
	}
	return nil
}

func (c SetVideoResolutionFrameRate) validate() error {
	format := adapter.VideoResolutionFrameRate{Resolution: c.Resolution, FrameRate: c.FrameRate, FieldOfView: c.FieldOfView}
	if !format.Valid() {
		return fmt.Errorf("incomplete video format %+v", format)
	}
	return nil
}

func (c SetWhiteBalanceCustom) validate() error {
	_, err := adapter.CustomWhiteBalance(c.Kelvin)
	return err
}
