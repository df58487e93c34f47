package skills

import (
	"github.com/pkg/errors"
)

// Error taxonomy shared by the content store, resolver, and session layers.
// Callers match with errors.Is; intermediate layers add context with
// errors.Wrap without losing the category.
var (
	// ErrValidation covers bad slugs, names, descriptions, and path input.
	ErrValidation = errors.New("validation failed")
	// ErrPathViolation is a sandbox escape attempt. Always rejected before
	// any filesystem access, never partially applied.
	ErrPathViolation = errors.New("path escapes skill directory")
	// ErrNotFound covers missing skills, files, and directories.
	ErrNotFound = errors.New("not found")
	// ErrConflict is a slug or directory collision, typically from a
	// concurrent import racing on the same final name.
	ErrConflict = errors.New("conflict")
	// ErrIO covers disk and archive failures during import/export. The
	// operation rolls back any destructive step before returning it.
	ErrIO = errors.New("io failure")
)

// Validationf returns an ErrValidation annotated with a formatted message.
func Validationf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrValidation, format, args...)
}

// NotFoundf returns an ErrNotFound annotated with a formatted message.
func NotFoundf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

// Conflictf returns an ErrConflict annotated with a formatted message.
func Conflictf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConflict, format, args...)
}

// PathViolationf returns an ErrPathViolation annotated with a formatted message.
func PathViolationf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrPathViolation, format, args...)
}

// IOf wraps an underlying error as an ErrIO. The cause is folded into the
// message; the category is what callers branch on.
func IOf(cause error, format string, args ...interface{}) error {
	if cause == nil {
		return errors.Wrapf(ErrIO, format, args...)
	}
	return errors.Wrapf(ErrIO, format+": %v", append(args, cause)...)
}
