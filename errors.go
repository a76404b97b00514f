package labeler

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput is returned when records handed to Tree.Load do not
	// describe a Root → Image → Annotation structure.
	ErrMalformedInput = errors.New("labeler: malformed input")
	// ErrNotFound is returned when a path or name does not resolve.
	ErrNotFound = errors.New("labeler: not found")
	// ErrDuplicateRegistration is returned by Factory.Register when the name
	// is taken and replace is false.
	ErrDuplicateRegistration = errors.New("labeler: duplicate registration")
	// ErrMissingKey is returned when a required Record key is absent.
	ErrMissingKey = errors.New("labeler: missing key")
	// ErrBadValue is returned when a Record value cannot be interpreted.
	ErrBadValue = errors.New("labeler: bad value")
)

// MalformedInputError describes the record that made Tree.Load fail.
// Annotation is -1 when the problem is on the image record itself, and Image
// is -1 when the input could not be decoded at all.
type MalformedInputError struct {
	Image      int
	Annotation int
	Reason     string
}

func (e *MalformedInputError) Error() string {
	if e.Image < 0 {
		return "labeler: malformed input: " + e.Reason
	}
	if e.Annotation < 0 {
		return fmt.Sprintf("labeler: malformed input: image %d: %s", e.Image, e.Reason)
	}
	return fmt.Sprintf("labeler: malformed input: image %d annotation %d: %s", e.Image, e.Annotation, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformedInput.
func (e *MalformedInputError) Unwrap() error { return ErrMalformedInput }
