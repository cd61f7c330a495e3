// Package command executes drone commands against an open session.
//
// Commands form a closed set of variants (see Kinds). The Engine plans each one
// synchronously, rejecting it immediately when the addressed unit is missing or
// the camera mode forbids it, then runs it on its own goroutine and reports the
// outcome exactly once. Settings use read-compare-write so an already satisfied
// command never touches hardware. Capture commands issue an action and then
// verify it with bounded polling: busy-clear polling succeeds even when its
// budget runs out, file-appearance polling fails with ErrNoFileProduced.
package command
