// Package api defines wire-format types and converters for the HTTP API
// layer. It translates internal queue, catalog, and sweep models into
// transport-friendly DTOs so consumers never couple to internal types.
//
// DTOs use camelCase JSON tags. Internal enums (queue.Status) are exposed as
// lowercase strings. Timestamps use RFC3339 with milliseconds.
package api
