// Package api defines wire-format types and converters for the HTTP API
// layer. It translates internal session and prediction models into
// transport-friendly DTOs so polling clients never couple to internal
// types.
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers.
// Incoming sensor samples keep the snake_case layout the wearable bridges
// publish, shared with the MQTT ingest path.
package api
