// Package cmd implements the command-line interface of nsqc. It provides a small
// command tree for consuming topics and inspecting discovery.
//
// The package is organized into several subpackages:
//
//   - tail: Consume a topic and print every message (optionally serving metrics)
//   - lookup: Print the producers discovered for a topic
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See nsqc -help for a list of all commands.
package cmd
