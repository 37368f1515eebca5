package tracker

import (
	"weak"

	"github.com/coreblock/blockfat/blockdev"
	"github.com/coreblock/blockfat/errors"
)

// ByteRange is a half-open [Start, End) byte range on a parent device, used
// to describe the fragments making up a FragmentedSubDevice.
type ByteRange struct {
	Start uint64
	End   uint64
}

func (r ByteRange) Len() uint64 {
	return r.End - r.Start
}

// FragmentedSubDevice is a blockdev.Device view backed by an ordered list of
// non-overlapping parent byte ranges, presented as one contiguous logical
// address space. A sector is never allowed to straddle two fragments.
type FragmentedSubDevice struct {
	parent     weak.Pointer[Tracker]
	fragments  []ByteRange
	perm       blockdev.Permissions
	capability blockdev.SectorCapability
	closed     bool
}

var _ blockdev.Device = (*FragmentedSubDevice)(nil)

func (fd *FragmentedSubDevice) size() uint64 {
	var total uint64
	for _, f := range fd.fragments {
		total += f.Len()
	}
	return total
}

// Info reports the fragmented sub-device's capability scoped to its total
// byte length, its total byte size, and its granted permissions.
func (fd *FragmentedSubDevice) Info() (blockdev.DeviceInfo, error) {
	return blockdev.DeviceInfo{
		SectorCapability: fd.capability,
		ByteSize:         fd.size(),
		Permissions:      fd.perm,
	}, nil
}

// locate finds the fragment containing the logical byte offset and the
// parent sector that offset maps to, failing InvalidSectorSize if the
// requested sector would straddle two fragments.
func (fd *FragmentedSubDevice) locate(logicalOffset, size uint64) (uint64, error) {
	var consumed uint64
	for _, f := range fd.fragments {
		if logicalOffset < consumed+f.Len() {
			offsetInFragment := logicalOffset - consumed
			if f.Start%size != 0 || offsetInFragment%size != 0 {
				return 0, blockdev.InvalidSectorSizeError{Found: size, Supported: fd.capability, Start: f.Start}
			}
			if offsetInFragment+size > f.Len() {
				return 0, blockdev.InvalidSectorSizeError{Found: size, Supported: fd.capability, Start: f.Start}
			}
			return (f.Start + offsetInFragment) / size, nil
		}
		consumed += f.Len()
	}
	return 0, blockdev.InvalidSectorIndexError{Found: logicalOffset / size, Max: consumed / size}
}

// ReadSector reads the sector at the given logical index, translating it to
// whichever fragment and parent sector it falls within.
func (fd *FragmentedSubDevice) ReadSector(sector uint64, buf []byte) error {
	if !fd.perm.Read {
		return blockdev.InvalidPermissionError{Granted: fd.perm}
	}

	parent := fd.parent.Value()
	if parent == nil {
		return errors.ErrUnreachableDisk
	}

	size := uint64(len(buf))
	if !fd.capability.IsSupported(size, fd.size()) {
		return blockdev.InvalidSectorSizeError{Found: size, Supported: fd.capability, Start: 0}
	}

	parentSector, err := fd.locate(sector*size, size)
	if err != nil {
		return err
	}
	return parent.rawReadSector(parentSector, buf)
}

// WriteSector writes the sector at the given logical index, translating it
// to whichever fragment and parent sector it falls within.
func (fd *FragmentedSubDevice) WriteSector(sector uint64, buf []byte) error {
	if !fd.perm.Write {
		return blockdev.InvalidPermissionError{Granted: fd.perm}
	}

	parent := fd.parent.Value()
	if parent == nil {
		return errors.ErrUnreachableDisk
	}

	size := uint64(len(buf))
	if !fd.capability.IsSupported(size, fd.size()) {
		return blockdev.InvalidSectorSizeError{Found: size, Supported: fd.capability, Start: 0}
	}

	parentSector, err := fd.locate(sector*size, size)
	if err != nil {
		return err
	}
	return parent.rawWriteSector(parentSector, buf)
}

// Close releases the borrows this fragmented sub-device installed, one per
// fragment. It is idempotent.
func (fd *FragmentedSubDevice) Close() error {
	if fd.closed {
		return nil
	}
	fd.closed = true

	parent := fd.parent.Value()
	if parent == nil {
		return nil
	}

	parent.mu.Lock()
	for _, f := range fd.fragments {
		parent.releaseLocked(byteRange{start: f.Start, end: f.End}, fd.perm)
	}
	parent.mu.Unlock()
	return nil
}
