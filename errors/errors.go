// Package errors defines the error taxonomy shared by the blockdev, mbr, and
// fat12 packages. Errors are explicit return values, never panics: every
// fallible operation documents exactly which of these it can return.
package errors

import "fmt"

// DriverError is implemented by every error this module returns above the
// bare block-device layer. It lets a caller attach context without losing
// the ability to test for a specific underlying cause with errors.Is/As.
type DriverError interface {
	error
	WithMessage(message string) DriverError
	WrapError(err error) DriverError
	Unwrap() error
}

// BlockError is a sentinel error identifying one of the taxonomy kinds from
// spec section 6 that carries no further structured detail.
type BlockError string

const (
	// ErrBusy is returned when a read, write, or sub-device acquisition
	// would violate the non-overlap invariant enforced by the borrow
	// tracker.
	ErrBusy = BlockError("device or resource busy")

	// ErrUnreachableDisk is returned by a sub-device whose parent tracker
	// no longer exists.
	ErrUnreachableDisk = BlockError("backing disk is unreachable")

	// ErrInvalidDiskSize is returned when a requested byte range, partition,
	// or filesystem size does not fit the device it is being created on.
	ErrInvalidDiskSize = BlockError("invalid disk size")

	// ErrUnsupportedDiskSectorSize is returned when no sector size the
	// device supports is large enough for a canonical on-disk structure
	// such as the MBR or the FAT12 boot sector.
	ErrUnsupportedDiskSectorSize = BlockError("device has no supported sector size for this operation")

	// ErrInvalidPartitionIndex is returned when a partition slot index is
	// outside [0, 4).
	ErrInvalidPartitionIndex = BlockError("invalid partition index")

	// ErrSpaceAlreadyInUse is returned when a new MBR partition would
	// overlap an existing one, or would start at LBA 0.
	ErrSpaceAlreadyInUse = BlockError("partition space already in use")

	// ErrIndexOutOfRange is returned when a FAT entry or root directory
	// entry index is outside the bounds established at mount or format
	// time.
	ErrIndexOutOfRange = BlockError("index out of range")

	// ErrIOErr is returned when the backing device reports a transport
	// failure unrelated to argument validation.
	ErrIOErr = BlockError("i/o error")
)

// Error implements the error interface.
func (e BlockError) Error() string {
	return string(e)
}

// WithMessage returns a DriverError that prefixes e's message with extra
// context while still unwrapping to e.
func (e BlockError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", message, e.Error()),
		originalError: e,
	}
}

// WrapError returns a DriverError wrapping err, reporting e as the category
// and err as the underlying cause.
func (e BlockError) WrapError(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: err,
	}
}

// Unwrap lets errors.Is/As see through a bare BlockError to itself, so
// chains built with WithMessage/WrapError terminate correctly.
func (e BlockError) Unwrap() error {
	return nil
}

type customDriverError struct {
	message       string
	originalError error
}

func (e customDriverError) Error() string {
	return e.message
}

func (e customDriverError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", message, e.message),
		originalError: e,
	}
}

func (e customDriverError) WrapError(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: err,
	}
}

func (e customDriverError) Unwrap() error {
	return e.originalError
}
