// Package cluster assigns users to one of the precomputed physiological
// response profiles. Each profile has its own trained classifier, so the
// assignment decides which model scores a session's windows.
package cluster
