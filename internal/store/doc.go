// Package store persists sessions, baselines, and predictions in SQLite.
//
// Predictions are written to two sinks in one transaction: prediction_log is
// the permanent research record, active_predictions is a TTL cache serving
// live polling clients. The cache is swept in the background; the log is
// never pruned.
package store
