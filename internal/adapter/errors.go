package adapter

import (
	"errors"
	"fmt"
	"strings"
)

// Normalized adapter errors.
var (
	ErrUnavailable  = errors.New("UNAVAILABLE")
	ErrInvalidState = errors.New("INVALID_STATE")
	ErrInvalidRange = errors.New("INVALID_RANGE")
	ErrBusy         = errors.New("BUSY")
	ErrInternal     = errors.New("INTERNAL")
)

// VendorMap lists the message tokens a vendor uses for each normalized code.
type VendorMap struct {
	Unavailable  []string
	InvalidState []string
	Range        []string
	Busy         []string
}

// VendorErrorMappings holds the token tables per vendor. Unknown vendors use
// "generic"; unknown tokens map to INTERNAL.
var VendorErrorMappings = map[string]VendorMap{
	"dji": {
		Unavailable: []string{
			"NOT_CONNECTED",
			"DISCONNECTED",
			"COMPONENT_NOT_FOUND",
			"PRODUCT_NOT_CONNECTED",
			"TIMEOUT",
		},
		InvalidState: []string{
			"NOT_SUPPORTED_IN_CURRENT_STATE",
			"CAMERA_MODE_INVALID",
			"SD_CARD_NOT_INSERTED",
			"STORAGE_FULL",
			"MOTORS_NOT_STARTED",
		},
		Range: []string{
			"PARAM_OUT_OF_RANGE",
			"INVALID_PARAM",
			"PARAM_ILLEGAL",
		},
		Busy: []string{
			"SYSTEM_BUSY",
			"COMMAND_EXECUTION_FAILED_BUSY",
			"CAMERA_BUSY",
		},
	},
	"generic": {
		Unavailable:  []string{"UNAVAILABLE", "OFFLINE", "NOT_CONNECTED", "TIMEOUT"},
		InvalidState: []string{"INVALID_STATE", "NOT_SUPPORTED", "WRONG_MODE"},
		Range:        []string{"OUT_OF_RANGE", "INVALID_RANGE", "INVALID_PARAMETER", "BAD_VALUE"},
		Busy:         []string{"BUSY", "RETRY", "RATE_LIMIT"},
	},
}

// VendorError keeps the vendor error next to its normalized code.
type VendorError struct {
	Code     error
	Original error
	Details  interface{}
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%v (vendor: %v)", e.Code, e.Original)
}

// Unwrap exposes both the normalized code and the vendor error to errors.Is/As.
func (e *VendorError) Unwrap() []error {
	return []error{e.Code, e.Original}
}

// NormalizeVendorError maps err using the generic tables.
func NormalizeVendorError(err error, payload interface{}) error {
	return NormalizeVendorErrorWithVendor(err, payload, "generic")
}

// NormalizeVendorErrorWithVendor maps err using vendorID's tables. Errors that already
// carry a normalized code are returned unchanged.
func NormalizeVendorErrorWithVendor(err error, payload interface{}, vendorID string) error {
	if err == nil {
		return nil
	}
	if IsNormalized(err) {
		return err
	}

	return &VendorError{
		Code:     mapVendorErrorToCode(err.Error(), vendorID),
		Original: err,
		Details:  payload,
	}
}

// IsNormalized reports whether err already wraps one of the normalized codes.
func IsNormalized(err error) bool {
	for _, code := range []error{ErrUnavailable, ErrInvalidState, ErrInvalidRange, ErrBusy, ErrInternal} {
		if errors.Is(err, code) {
			return true
		}
	}
	return false
}

// Code returns the normalized code name for err, or "INTERNAL".
func Code(err error) string {
	for _, code := range []error{ErrUnavailable, ErrInvalidState, ErrInvalidRange, ErrBusy} {
		if errors.Is(err, code) {
			return code.Error()
		}
	}
	return ErrInternal.Error()
}

func mapVendorErrorToCode(msg string, vendorID string) error {
	vendorMap, exists := VendorErrorMappings[vendorID]
	if !exists {
		vendorMap = VendorErrorMappings["generic"]
	}

	upperMsg := strings.ToUpper(msg)
	tables := []struct {
		tokens []string
		code   error
	}{
		{vendorMap.Unavailable, ErrUnavailable},
		{vendorMap.InvalidState, ErrInvalidState},
		{vendorMap.Range, ErrInvalidRange},
		{vendorMap.Busy, ErrBusy},
	}
	for _, table := range tables {
		for _, token := range table.tokens {
			if strings.Contains(upperMsg, token) {
				return table.code
			}
		}
	}

	return ErrInternal
}
