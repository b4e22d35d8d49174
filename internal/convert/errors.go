package convert

import (
	"errors"
	"fmt"

	"thepipe/internal/geometry"
)

var (
	// ErrUnsupportedKind marks a value or host object with no registered
	// binding in the requested direction.
	ErrUnsupportedKind = errors.New("convert: unsupported kind")
	// ErrReconstructionFailed marks a destination that rejected the data.
	ErrReconstructionFailed = errors.New("convert: reconstruction failed")
	// ErrBindingMismatch marks a value whose Go type differs from the one its
	// kind's binding was registered with. It is a registration bug, not a
	// destination failure.
	ErrBindingMismatch = errors.New("convert: value type does not match binding")
	// ErrDuplicateBinding is returned when a kind is registered twice.
	ErrDuplicateBinding = errors.New("convert: duplicate binding")
)

// UnsupportedKindError names what could not be converted. Kind is
// KindInvalid when the host classifier did not recognize the object; HostType
// then carries its Go type.
type UnsupportedKindError struct {
	Kind     geometry.Kind
	HostType string
}

func (e *UnsupportedKindError) Error() string {
	if e.Kind == geometry.KindInvalid {
		return fmt.Sprintf("convert: unsupported host type %s", e.HostType)
	}
	return fmt.Sprintf("convert: unsupported kind %s", e.Kind)
}

func (e *UnsupportedKindError) Unwrap() error { return ErrUnsupportedKind }

// ReconstructionError carries the destination's diagnostic when it rejects a
// value.
type ReconstructionError struct {
	Kind       geometry.Kind
	Diagnostic string
	Err        error
}

// Reconstruction builds a ReconstructionError for kind.
func Reconstruction(kind geometry.Kind, diagnostic string) *ReconstructionError {
	return &ReconstructionError{Kind: kind, Diagnostic: diagnostic}
}

func (e *ReconstructionError) Error() string {
	return fmt.Sprintf("convert: reconstruct %s: %s", e.Kind, e.Diagnostic)
}

func (e *ReconstructionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrReconstructionFailed}
	}
	return []error{ErrReconstructionFailed, e.Err}
}
