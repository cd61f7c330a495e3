// Package audit writes the command audit trail.
//
// Every finished command, accepted or rejected, becomes one JSON line holding
// the caller, session, command kind, channel, outcome code and latency. Files
// rotate by size.
package audit
