// Package session owns the lifecycle of viewing sessions. Each active
// session gets its own goroutine that buffers incoming samples into
// fixed windows and feeds them through the prediction pipeline in order,
// so sessions progress independently of each other while windows within
// a session stay strictly sequential.
package session
