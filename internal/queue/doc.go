// Package queue persists sync tasks in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema migrations, stats queries,
// heartbeat tracking, and stuck-task recovery. Each task tracks one channel
// message through pending, processing, and a terminal completed or failed
// state; a partial unique index keeps at most one non-terminal task per
// channel message so enqueueing is idempotent.
//
// The database survives daemon restarts. Tasks found in processing on startup
// are demoted to pending without consuming a retry.
package queue
