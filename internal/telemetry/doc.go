// Package telemetry streams session events to HTTP clients as server-sent
// events.
//
// Every client first receives a "ready" event carrying the current snapshot,
// then live sessionOpened, sessionClosed, component, command and heartbeat
// events. Reconnecting clients send Last-Event-ID to replay what they missed
// from a bounded buffer.
package telemetry
