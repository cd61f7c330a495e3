// Package adapter defines the device capability contract consumed by the command engine.
//
// A connected product exposes per-channel handles for its camera, gimbal, remote
// controller and flight controller units. Each handle offers typed property reads and
// writes, action calls and a current-state snapshot. Vendor-specific translation of
// enums and units lives behind this contract; the engine only ever sees the values
// declared here.
//
// Errors returned by implementations are normalized to the codes in errors.go
// (UNAVAILABLE, INVALID_STATE, INVALID_RANGE, BUSY, INTERNAL) with the vendor error
// preserved for diagnostics.
package adapter
