// Package daemon hosts the long-running affectd process: single-instance
// locking, the HTTP API server, the optional MQTT ingest source, and the
// background sweep of the active-prediction cache.
package daemon
