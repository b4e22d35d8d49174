package exchange

import (
	"errors"
	"fmt"
	"strings"

	"thepipe/internal/convert"
)

var (
	ErrConversion = errors.New("conversion error")
	ErrApply      = errors.New("host apply error")
	ErrTransport  = errors.New("transport error")
	ErrJournal    = errors.New("journal error")
	ErrValidation = errors.New("validation error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Hint maps an exchange error to a short operator-facing suggestion.
func Hint(err error) string {
	switch {
	case errors.Is(err, convert.ErrUnsupportedKind):
		return "the receiving host has no converter for this kind; update the host or filter the selection"
	case errors.Is(err, convert.ErrReconstructionFailed):
		return "the host rejected the geometry; check the diagnostic for the failing value"
	case errors.Is(err, ErrApply):
		return "the host document was left unchanged; retry after resolving the host error"
	case errors.Is(err, ErrJournal):
		return "check the journal path and disk space, or disable the journal"
	case errors.Is(err, ErrTransport):
		return "check that the producer and consumer use the same endpoint"
	default:
		return ""
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
		return "exchange failure"
	}
	return strings.Join(parts, ": ")
}
