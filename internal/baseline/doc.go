// Package baseline holds per-user reference physiology computed from an
// initial baseline recording. Profiles normalize every subsequent window's
// features for that user.
package baseline
