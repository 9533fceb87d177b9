// Package ingest receives physiological samples from wearable bridges over
// MQTT and forwards them to the session manager. The HTTP ingest endpoint
// is the primary path; the MQTT source is optional and enabled by
// configuration for deployments where sensors publish to a broker.
package ingest
