package fileset

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrNotFound is the kind carried by every NotFoundError.
var ErrNotFound = errors.New("path not found")

// NotFoundError reports that an explicitly named path did not exist when an
// operation needed it.
type NotFoundError struct {
	// Op is the operation that required the path, e.g. "add input file".
	Op   string
	Path string
	// Err is the underlying filesystem error, if any.
	Err error
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", ErrNotFound.Error(), e.Path)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, ErrNotFound.Error())
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// Is matches ErrNotFound and fs.ErrNotExist so callers can test either.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound || target == fs.ErrNotExist
}

func notFound(op, path string, cause error) error {
	return &NotFoundError{Op: op, Path: path, Err: cause}
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
