package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPrerequisite  = errors.New("prerequisite missing")
	ErrTransient     = errors.New("transient generation failure")
	ErrPermanent     = errors.New("permanent generation failure")
	ErrCompositing   = errors.New("compositing failure")
	ErrPackaging     = errors.New("packaging failure")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above. A nil marker defaults to ErrPermanent so
// unclassified failures are never retried.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrPermanent
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTransient reports whether err carries the transient marker.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Kind maps an error to the short classification recorded in workflow logs and
// the run store.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPrerequisite):
		return "prerequisite_missing"
	case errors.Is(err, ErrTransient):
		return "transient_generation"
	case errors.Is(err, ErrPermanent):
		return "permanent_generation"
	case errors.Is(err, ErrCompositing):
		return "compositing"
	case errors.Is(err, ErrPackaging):
		return "packaging"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "unknown"
	}
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
