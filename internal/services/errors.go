package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInput marks malformed or empty caller input; nothing was attempted.
	ErrInput = errors.New("input error")
	// ErrProvider marks a failure in the embedding provider; alignment
	// cannot proceed and is not retried here.
	ErrProvider = errors.New("provider error")
	// ErrConfiguration marks invalid engine configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrCancelled marks a run stopped by the caller. It is a control
	// outcome, not a failure; callers distinguish it with errors.Is.
	ErrCancelled = errors.New("cancelled")
)

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeRejected  Outcome = "rejected"
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrProvider
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps a run error to the outcome callers should report.
func Classify(err error) Outcome {
	switch {
	case errors.Is(err, ErrCancelled):
		return OutcomeCancelled
	case errors.Is(err, ErrInput), errors.Is(err, ErrConfiguration):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}

// IsCancelled reports whether err represents caller-initiated cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
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
