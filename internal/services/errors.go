package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks a request the caller can fix (bad ids, malformed samples).
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks failures caused by missing or invalid configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks lookups that resolved to nothing.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks requests rejected because the target already exists.
	ErrConflict = errors.New("already exists")
	// ErrTransient marks failures worth retrying.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes pipeline context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
