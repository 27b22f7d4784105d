// Package xerr wraps errors with the file/section/symbol context the
// linker's diagnostics need, generalizing pkg/utils.MakeError from the
// teacher toolchain.
package xerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error per spec.md §7.
type Kind int

const (
	// Fatal aborts the link immediately.
	Fatal Kind = iota
	// Recoverable is logged and the pass continues.
	Recoverable
)

// LinkError is a diagnostic tied to an offending input file and, optionally,
// a section or symbol name within it.
type LinkError struct {
	Kind    Kind
	File    string
	Context string // section or symbol name, if any
	Err     error
}

func (e *LinkError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("%s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.File, e.Context, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

// Fatalf builds a Fatal LinkError naming the offending file and, optionally,
// a section/symbol context.
func Fatalf(file, context, format string, args ...any) error {
	return &LinkError{
		Kind:    Fatal,
		File:    file,
		Context: context,
		Err:     fmt.Errorf(format, args...),
	}
}

// Wrap mirrors the teacher's MakeError: wraps err with additional detail,
// preserving it for errors.Is/errors.As.
func Wrap(err error, detail string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(detail, args...), err)
}

// IsFatal reports whether err (or any error it wraps) is a Fatal LinkError.
// A non-nil error that wraps no LinkError also counts as fatal.
func IsFatal(err error) bool {
	var le *LinkError
	if errors.As(err, &le) {
		return le.Kind == Fatal
	}
	return err != nil
}
