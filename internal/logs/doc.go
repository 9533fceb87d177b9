// Package logs provides bounded-memory log tailing for the CLI.
//
// It reads the trailing lines of the daemon log with a ring buffer, tracks
// byte offsets so follow mode only emits new lines, and polls with a context
// so `affect logs --follow` shuts down cleanly on interrupt.
package logs
