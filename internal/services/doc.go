// Package services provides the cross-cutting plumbing shared by pipeline
// components: context annotations for session, window, and request
// identifiers, and the sentinel errors used to classify failures at the
// control-interface boundary.
package services
