// Package daemon coordinates the long-running shelfsync process.
//
// It wires configuration, the queue and catalog stores, the worker, and the
// periodic sweeper into a single lifecycle with flock-based locking to
// prevent multiple instances, and serves the management HTTP API.
//
// Keep orchestration logic here: matching, binding, and queue semantics live
// in their respective packages while the daemon focuses on startup, shutdown,
// and high level coordination.
package daemon
