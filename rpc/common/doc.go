// Package common provides configuration and logging shared by all parts of the
// client.
//
// The package focuses on:
//   - Configuration structures for discovery, transport and the consumer loop
//   - Custom logging implementation integrated with Dragonboat's logger package
//
// Key Components:
//
//   - ClientConfig: Topic and channel to consume, discovery settings (lookupd
//     HTTP addresses or etcd endpoints), socket options, the RDY count and the
//     bound of the readiness wait. DefaultClientConfig provides the defaults,
//     Validate rejects unusable values and String renders a table for the CLI.
//
//   - Logger: Named loggers ("client", "transport", "discovery", "cli") obtained
//     via logger.GetLogger. InitLoggers installs a factory that writes
//     "<time> LEVEL name: message" lines to stderr and applies the configured
//     level. SetLogOutput redirects all of them.
package common
