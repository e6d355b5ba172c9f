package core

import (
	"errors"
	"fmt"
)

var (
	// ErrState is returned when an operation runs before a required prior step.
	ErrState = errors.New("invalid state")
	// ErrInvalidArgument is returned for a sample or fraction that is not loaded.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDataIntegrity is returned for malformed keys or records.
	ErrDataIntegrity = errors.New("data integrity fault")
	// ErrDegenerateFit is returned when a regression has nothing to learn from.
	ErrDegenerateFit = errors.New("degenerate fit")
)

// DataIntegrityError reports a malformed peptide/charge key.
type DataIntegrityError struct {
	Key    string
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity fault in key %q: %s", e.Key, e.Reason)
}

// Unwrap lets errors.Is match ErrDataIntegrity.
func (e *DataIntegrityError) Unwrap() error {
	return ErrDataIntegrity
}
