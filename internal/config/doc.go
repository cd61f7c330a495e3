// Package config loads the dronelinkd configuration.
//
// Values start from Default(), are overlaid by an optional YAML file, then by
// DRONELINK_* environment variables, and are validated last. TimingConfig carries
// every settle delay, poll interval and attempt budget the command engine uses.
package config
