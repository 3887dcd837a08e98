package analysis

import (
	"context"
	"log/slog"
)

// RecoveryNote is appended to the disclaimer of a report that was produced
// by the fallback retry after a custom instruction failed.
const RecoveryNote = " [Note: Analysis recovered from a faulty configuration.]"

// CallFunc performs one analysis attempt with the given system instruction.
type CallFunc func(ctx context.Context, instruction string) (Report, error)

// WithFallback runs call with the primary instruction and, if it fails,
// retries once with the safe default instruction. A recovered report is
// marked and its disclaimer annotated so the degradation is visible. If the
// retry also fails, its error is returned unwrapped by this layer.
func WithFallback(ctx context.Context, log *slog.Logger, primary string, call CallFunc) (Report, error) {
	report, err := call(ctx, primary)
	if err == nil {
		return report, nil
	}

	log.Warn("analysis failed with custom instruction, retrying with default", "error", err)
	report, fallbackErr := call(ctx, DefaultInstruction)
	if fallbackErr != nil {
		return Report{}, fallbackErr
	}
	report.Recovered = true
	report.Disclaimer += RecoveryNote
	return report, nil
}
