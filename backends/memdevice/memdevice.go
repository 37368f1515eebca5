// Package memdevice is an in-memory blockdev.Device backed by a plain byte
// slice, used by tests and by any caller that wants a RAM-backed device
// without touching the filesystem.
package memdevice

import (
	"io"

	"github.com/xaionaro-go/bytesextra"

	"github.com/coreblock/blockfat/blockdev"
	"github.com/coreblock/blockfat/errors"
)

// Device is a blockdev.Device backed by an in-memory buffer of fixed size.
type Device struct {
	stream     io.ReadWriteSeeker
	byteSize   uint64
	capability blockdev.SectorCapability
	perm       blockdev.Permissions
}

var _ blockdev.Device = (*Device)(nil)

// New creates a Device of the given byte size, zero-filled, supporting the
// given SectorCapability and opened with the given permissions.
func New(byteSize uint64, capability blockdev.SectorCapability, perm blockdev.Permissions) *Device {
	return NewFromBytes(make([]byte, byteSize), capability, perm)
}

// NewFromBytes wraps an existing byte slice as a Device. The slice is used
// directly; writes to the Device mutate it in place.
func NewFromBytes(data []byte, capability blockdev.SectorCapability, perm blockdev.Permissions) *Device {
	return &Device{
		stream:     bytesextra.NewReadWriteSeeker(data),
		byteSize:   uint64(len(data)),
		capability: capability,
		perm:       perm,
	}
}

func (d *Device) Info() (blockdev.DeviceInfo, error) {
	return blockdev.DeviceInfo{
		SectorCapability: d.capability,
		ByteSize:         d.byteSize,
		Permissions:      d.perm,
	}, nil
}

func (d *Device) checkBounds(sector uint64, size uint64) error {
	if !d.perm.IsUseful() {
		return blockdev.InvalidPermissionError{Granted: d.perm}
	}
	if !d.capability.IsSupported(size, d.byteSize) {
		return blockdev.InvalidSectorSizeError{Found: size, Supported: d.capability, Start: 0}
	}
	if sector*size+size > d.byteSize {
		return blockdev.InvalidSectorIndexError{Found: sector, Max: d.byteSize / size}
	}
	return nil
}

func (d *Device) ReadSector(sector uint64, buf []byte) error {
	size := uint64(len(buf))
	if !d.perm.Read {
		return blockdev.InvalidPermissionError{Granted: d.perm}
	}
	if err := d.checkBounds(sector, size); err != nil {
		return err
	}
	if _, err := d.stream.Seek(int64(sector*size), io.SeekStart); err != nil {
		return errors.ErrIOErr.WrapError(err)
	}
	if _, err := io.ReadFull(d.stream, buf); err != nil {
		return errors.ErrIOErr.WrapError(err)
	}
	return nil
}

func (d *Device) WriteSector(sector uint64, buf []byte) error {
	size := uint64(len(buf))
	if !d.perm.Write {
		return blockdev.InvalidPermissionError{Granted: d.perm}
	}
	if err := d.checkBounds(sector, size); err != nil {
		return err
	}
	if _, err := d.stream.Seek(int64(sector*size), io.SeekStart); err != nil {
		return errors.ErrIOErr.WrapError(err)
	}
	if _, err := d.stream.Write(buf); err != nil {
		return errors.ErrIOErr.WrapError(err)
	}
	return nil
}
