package store

import "errors"

// ErrDuplicatePrediction indicates a prediction already exists for the
// session and window index. The first write wins; retries of an already
// persisted window are rejected rather than overwritten.
var ErrDuplicatePrediction = errors.New("prediction already recorded for window")

// ErrSessionExists indicates a session with the same id is already
// registered.
var ErrSessionExists = errors.New("session id already registered")

// ErrSessionNotFound indicates no session is registered under the id.
var ErrSessionNotFound = errors.New("session not found")
