package tracker

import (
	"weak"

	"github.com/coreblock/blockfat/blockdev"
	"github.com/coreblock/blockfat/errors"
)

// SubDevice is a blockdev.Device view over a contiguous [start, end) byte
// range of a parent Tracker. It holds only a weak reference to its parent:
// once the parent is gone, ReadSector and WriteSector fail UnreachableDisk.
type SubDevice struct {
	parent     weak.Pointer[Tracker]
	start      uint64
	end        uint64
	perm       blockdev.Permissions
	capability blockdev.SectorCapability
	closed     bool
}

var _ blockdev.Device = (*SubDevice)(nil)

func (sd *SubDevice) size() uint64 {
	return sd.end - sd.start
}

// Info reports the sub-device's capability scoped to its own byte length,
// its byte size, and its granted permissions.
func (sd *SubDevice) Info() (blockdev.DeviceInfo, error) {
	return blockdev.DeviceInfo{
		SectorCapability: sd.capability,
		ByteSize:         sd.size(),
		Permissions:      sd.perm,
	}, nil
}

func (sd *SubDevice) translate(sector uint64, size uint64) (uint64, error) {
	if sd.start%size != 0 {
		return 0, blockdev.InvalidSectorSizeError{Found: size, Supported: sd.capability, Start: sd.start}
	}
	if !sd.capability.IsSupported(size, sd.size()) {
		return 0, blockdev.InvalidSectorSizeError{Found: size, Supported: sd.capability, Start: sd.start}
	}

	byteOffset := sector * size
	if sd.start+byteOffset+size > sd.end {
		return 0, blockdev.InvalidSectorIndexError{Found: sector, Max: sd.size() / size}
	}

	return (sd.start + byteOffset) / size, nil
}

// ReadSector reads the sector at the given index within this sub-device's
// own addressing, translating it to the parent's sector space.
func (sd *SubDevice) ReadSector(sector uint64, buf []byte) error {
	if !sd.perm.Read {
		return blockdev.InvalidPermissionError{Granted: sd.perm}
	}

	parent := sd.parent.Value()
	if parent == nil {
		return errors.ErrUnreachableDisk
	}

	parentSector, err := sd.translate(sector, uint64(len(buf)))
	if err != nil {
		return err
	}
	return parent.rawReadSector(parentSector, buf)
}

// WriteSector writes the sector at the given index within this sub-device's
// own addressing, translating it to the parent's sector space.
func (sd *SubDevice) WriteSector(sector uint64, buf []byte) error {
	if !sd.perm.Write {
		return blockdev.InvalidPermissionError{Granted: sd.perm}
	}

	parent := sd.parent.Value()
	if parent == nil {
		return errors.ErrUnreachableDisk
	}

	parentSector, err := sd.translate(sector, uint64(len(buf)))
	if err != nil {
		return err
	}
	return parent.rawWriteSector(parentSector, buf)
}

// Close releases the borrow this sub-device installed on its parent. It is
// idempotent and a no-op if the parent is already gone. Every sub-device
// must be closed before its parent tracker, per section 5's resource
// lifecycle contract.
func (sd *SubDevice) Close() error {
	if sd.closed {
		return nil
	}
	sd.closed = true

	parent := sd.parent.Value()
	if parent == nil {
		return nil
	}

	parent.mu.Lock()
	parent.releaseLocked(byteRange{start: sd.start, end: sd.end}, sd.perm)
	parent.mu.Unlock()
	return nil
}
