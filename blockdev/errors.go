package blockdev

import "fmt"

// InvalidSectorSizeError is returned when a requested sector size is
// rejected by a device's SectorCapability, or when the buffer passed to
// ReadSector/WriteSector implies a size that does not divide evenly into a
// sub-device's start offset.
type InvalidSectorSizeError struct {
	Found     uint64
	Supported SectorCapability
	Start     uint64
}

func (e InvalidSectorSizeError) Error() string {
	return fmt.Sprintf("invalid sector size %d at start offset %d", e.Found, e.Start)
}

func (e InvalidSectorSizeError) WithMessage(message string) DriverError {
	return wrappedError{message: fmt.Sprintf("%s: %s", message, e.Error()), cause: e}
}

func (e InvalidSectorSizeError) WrapError(err error) DriverError {
	return wrappedError{message: fmt.Sprintf("%s: %s", e.Error(), err.Error()), cause: err}
}

func (e InvalidSectorSizeError) Unwrap() error { return nil }

// InvalidSectorIndexError is returned when sector_index*size + size exceeds
// the addressable device size.
type InvalidSectorIndexError struct {
	Found uint64
	Max   uint64
}

func (e InvalidSectorIndexError) Error() string {
	return fmt.Sprintf("sector index %d exceeds maximum %d", e.Found, e.Max)
}

func (e InvalidSectorIndexError) WithMessage(message string) DriverError {
	return wrappedError{message: fmt.Sprintf("%s: %s", message, e.Error()), cause: e}
}

func (e InvalidSectorIndexError) WrapError(err error) DriverError {
	return wrappedError{message: fmt.Sprintf("%s: %s", e.Error(), err.Error()), cause: err}
}

func (e InvalidSectorIndexError) Unwrap() error { return nil }

// InvalidPermissionError is returned when an operation requires a
// permission the device or sub-device was not granted.
type InvalidPermissionError struct {
	Granted Permissions
}

func (e InvalidPermissionError) Error() string {
	return fmt.Sprintf("operation not permitted with granted permissions %+v", e.Granted)
}

func (e InvalidPermissionError) WithMessage(message string) DriverError {
	return wrappedError{message: fmt.Sprintf("%s: %s", message, e.Error()), cause: e}
}

func (e InvalidPermissionError) WrapError(err error) DriverError {
	return wrappedError{message: fmt.Sprintf("%s: %s", e.Error(), err.Error()), cause: err}
}

func (e InvalidPermissionError) Unwrap() error { return nil }

// DriverError has the same method set as errors.DriverError, but is a
// separate type declared here: blockdev does not import the errors package,
// and because these methods return blockdev.DriverError, the structured
// errors above satisfy this interface rather than errors.DriverError.
type DriverError interface {
	error
	WithMessage(message string) DriverError
	WrapError(err error) DriverError
	Unwrap() error
}

type wrappedError struct {
	message string
	cause   error
}

func (e wrappedError) Error() string { return e.message }

func (e wrappedError) WithMessage(message string) DriverError {
	return wrappedError{message: fmt.Sprintf("%s: %s", message, e.message), cause: e}
}

func (e wrappedError) WrapError(err error) DriverError {
	return wrappedError{message: fmt.Sprintf("%s: %s", e.Error(), err.Error()), cause: err}
}

func (e wrappedError) Unwrap() error { return e.cause }
