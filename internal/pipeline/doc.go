// Package pipeline runs the per-window prediction sequence: change-point
// scoring against the previous window, baseline-relative feature
// extraction, response-profile cluster assignment, classification, and
// persistence. One runner serves one session and processes its windows
// strictly in order; a failed window is logged and skipped without
// stopping the session.
package pipeline
