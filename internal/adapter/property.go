package adapter

import (
	"context"
	"fmt"
)

// Property is a typed key for a unit setting. T must be comparable so the engine can
// decide with == whether a write is needed.
type Property[T comparable] struct {
	name string
}

// Name returns the wire name of the property.
func (p Property[T]) Name() string { return p.name }

// Camera properties.
var (
	PropertyAEBCount                     = Property[AEBCount]{"aebCount"}
	PropertyAperture                     = Property[Aperture]{"aperture"}
	PropertyAELock                       = Property[bool]{"aeLock"}
	PropertyAutoLockGimbal               = Property[bool]{"autoLockGimbal"}
	PropertyColor                        = Property[CameraColor]{"color"}
	PropertyContrast                     = Property[int]{"contrast"}
	PropertyExposureCompensation         = Property[ExposureCompensation]{"exposureCompensation"}
	PropertyExposureMode                 = Property[ExposureMode]{"exposureMode"}
	PropertyFileIndexMode                = Property[FileIndexMode]{"fileIndexMode"}
	PropertyFlatMode                     = Property[FlatMode]{"flatMode"}
	PropertyFocusMode                    = Property[FocusMode]{"focusMode"}
	PropertyFocusRingUpperBound          = Property[uint]{"focusRingUpperBound"}
	PropertyISO                          = Property[ISO]{"iso"}
	PropertyMechanicalShutter            = Property[bool]{"mechanicalShutter"}
	PropertyMeteringMode                 = Property[MeteringMode]{"meteringMode"}
	PropertyMode                         = Property[CameraMode]{"mode"}
	PropertyPhotoAspectRatio             = Property[PhotoAspectRatio]{"photoAspectRatio"}
	PropertyPhotoFileFormat              = Property[PhotoFileFormat]{"photoFileFormat"}
	PropertyPhotoTimeInterval            = Property[PhotoTimeIntervalSettings]{"photoTimeInterval"}
	PropertySaturation                   = Property[int]{"saturation"}
	PropertySharpness                    = Property[int]{"sharpness"}
	PropertyShootPhotoMode               = Property[ShootPhotoMode]{"shootPhotoMode"}
	PropertyShutterSpeed                 = Property[ShutterSpeed]{"shutterSpeed"}
	PropertyStorageLocation              = Property[StorageLocation]{"storageLocation"}
	PropertyVideoCaption                 = Property[bool]{"videoCaption"}
	PropertyVideoFileCompressionStandard = Property[VideoFileCompressionStandard]{"videoFileCompressionStandard"}
	PropertyVideoFileFormat              = Property[VideoFileFormat]{"videoFileFormat"}
	PropertyVideoResolutionFrameRate     = Property[VideoResolutionFrameRate]{"videoResolutionFrameRate"}
	PropertyVideoStandard                = Property[VideoStandard]{"videoStandard"}
	PropertyWhiteBalance                 = Property[WhiteBalance]{"whiteBalance"}
)

// Gimbal properties.
var (
	PropertyGimbalMode = Property[GimbalMode]{"gimbalMode"}
)

// Get reads p from store and asserts its type. A value of the wrong type is reported
// as ErrInternal because it means the adapter broke the contract.
func Get[T comparable](ctx context.Context, store PropertyStore, p Property[T]) (T, error) {
	var zero T
	raw, err := store.Get(ctx, p.name)
	if err != nil {
		return zero, err
	}
	value, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%w: property %s returned %T, want %T", ErrInternal, p.name, raw, zero)
	}
	return value, nil
}

// Set writes value to p on store.
func Set[T comparable](ctx context.Context, store PropertyStore, p Property[T], value T) error {
	return store.Set(ctx, p.name, value)
}
