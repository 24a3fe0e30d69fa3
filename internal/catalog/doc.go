// Package catalog persists book metadata in SQLite. Books carry an optional
// write-once binding to the channel file that was matched to them.
package catalog
