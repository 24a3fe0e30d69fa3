// Package main hosts the shelfsync CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon management API: queue inspection and
// maintenance, ad-hoc enqueueing, channel sweeps, relevance matching, and
// configuration scaffolding. It centralizes configuration resolution and
// API address discovery so subcommands can focus on user experience.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
