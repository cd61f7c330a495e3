// Package session tracks the connected drone.
//
// The Manager holds at most one Session, opened when the transport reports a
// product that supports flight control and closed when it disconnects.
// Registered observers receive every open and close; an observer added while a
// session is open receives SessionOpened for it straight away.
//
// A Session caches the latest snapshot of each unit and the unit handles
// themselves (one per channel, created on first use). Commands submitted to it
// run through the command engine with the session as target, so polling stops
// as soon as the session closes.
//
// Airspace and activation advisories are tracked by the Manager independently
// of the connection and merged with session messages by StatusMessages.
package session
