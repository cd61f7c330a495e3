// Package auth verifies API bearer tokens.
//
// Tokens are JWTs signed with HS256 or RS256 carrying "sub", "roles" and
// "scopes" claims. Viewers read state and telemetry; pilots additionally submit
// commands (scope "command"). With no key configured every request runs as the
// anonymous pilot.
package auth
