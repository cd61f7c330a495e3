// Package bridge connects the session manager to an MQTT broker.
//
// Inbound, under the configured prefix:
//
//	transport/product     {"event":"connected","model":"..."} or {"event":"disconnected"}
//	transport/component   {"component":"camera","index":0,"connected":true}
//	transport/flyZone     {"state":"inWarningZone"}
//	transport/activation  {"state":"loginRequired"}
//	command               a command document as accepted by command.Decode
//
// Outbound: "session" (retained lifecycle), "status" (retained status
// messages) and "command/result" (every finished command).
package bridge
