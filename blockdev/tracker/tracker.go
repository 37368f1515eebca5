// Package tracker implements the borrow-tracking wrapper that multiplexes a
// single underlying blockdev.Device among read-only and read-write byte-range
// views. A Tracker owns the underlying device; SubDevice and
// FragmentedSubDevice are the projections it hands out, each carrying only a
// weak back-reference to the Tracker so that a Tracker is never kept alive
// past its natural lifetime by a view it granted.
package tracker

import (
	"sync"
	"weak"

	"github.com/coreblock/blockfat/blockdev"
	"github.com/coreblock/blockfat/errors"
)

// byteRange is a half-open [start, end) byte range on the parent device.
type byteRange struct {
	start uint64
	end   uint64
}

func (r byteRange) overlaps(other byteRange) bool {
	return r.start < other.end && other.start < r.end
}

// Tracker wraps an owned blockdev.Device and enforces the non-overlap
// invariant described in section 4.2: writer ranges are pairwise disjoint
// and disjoint from every reader range; reader ranges may overlap each
// other.
type Tracker struct {
	mu      sync.Mutex
	device  blockdev.Device
	readers []byteRange
	writers []byteRange
	self    weak.Pointer[Tracker]
}

// New wraps device in a Tracker. The returned Tracker owns device: callers
// should not perform I/O on device directly once this call returns.
func New(device blockdev.Device) *Tracker {
	t := &Tracker{device: device}
	t.self = weak.Make(t)
	return t
}

// Info reports the wrapped device's capability, size, and permissions.
func (t *Tracker) Info() (blockdev.DeviceInfo, error) {
	return t.device.Info()
}

// ReadSector services direct I/O on the tracker itself (no sub-device):
// reads fail Busy only when an overlapping writer borrow exists.
func (t *Tracker) ReadSector(sector uint64, buf []byte) error {
	size := uint64(len(buf))
	r := byteRange{start: sector * size, end: sector*size + size}

	t.mu.Lock()
	for _, w := range t.writers {
		if w.overlaps(r) {
			t.mu.Unlock()
			return errors.ErrBusy
		}
	}
	t.mu.Unlock()

	return t.device.ReadSector(sector, buf)
}

// WriteSector services direct I/O on the tracker itself: writes fail Busy if
// any reader or writer borrow overlaps the target range.
func (t *Tracker) WriteSector(sector uint64, buf []byte) error {
	size := uint64(len(buf))
	r := byteRange{start: sector * size, end: sector*size + size}

	t.mu.Lock()
	for _, w := range t.writers {
		if w.overlaps(r) {
			t.mu.Unlock()
			return errors.ErrBusy
		}
	}
	for _, rd := range t.readers {
		if rd.overlaps(r) {
			t.mu.Unlock()
			return errors.ErrBusy
		}
	}
	t.mu.Unlock()

	return t.device.WriteSector(sector, buf)
}

// rawReadSector/rawWriteSector bypass the busy checks above: they are used
// internally by SubDevice/FragmentedSubDevice, which have already registered
// the borrow that authorizes this access.
func (t *Tracker) rawReadSector(sector uint64, buf []byte) error {
	return t.device.ReadSector(sector, buf)
}

func (t *Tracker) rawWriteSector(sector uint64, buf []byte) error {
	return t.device.WriteSector(sector, buf)
}

// Acquire projects a contiguous [start, end) byte range of the tracked
// device as a SubDevice, granted the requested permissions.
func (t *Tracker) Acquire(start, end uint64, perm blockdev.Permissions) (*SubDevice, error) {
	info, err := t.device.Info()
	if err != nil {
		return nil, err
	}
	if end > info.ByteSize {
		return nil, errors.ErrInvalidDiskSize
	}

	r := byteRange{start: start, end: end}

	t.mu.Lock()
	if err := t.tryBorrowLocked(r, perm); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	t.registerLocked(r, perm)
	t.mu.Unlock()

	return &SubDevice{
		parent:     t.self,
		start:      start,
		end:        end,
		perm:       perm,
		capability: info.SectorCapability,
	}, nil
}

// AcquireFragmented projects an ordered list of pairwise-disjoint parent
// byte ranges as a single FragmentedSubDevice.
func (t *Tracker) AcquireFragmented(ranges []ByteRange, perm blockdev.Permissions) (*FragmentedSubDevice, error) {
	info, err := t.device.Info()
	if err != nil {
		return nil, err
	}

	internal := make([]byteRange, len(ranges))
	for i, rg := range ranges {
		if rg.End > info.ByteSize {
			return nil, errors.ErrInvalidDiskSize
		}
		internal[i] = byteRange{start: rg.Start, end: rg.End}
	}
	for i := range internal {
		for j := i + 1; j < len(internal); j++ {
			if internal[i].overlaps(internal[j]) {
				return nil, errors.ErrSpaceAlreadyInUse
			}
		}
	}

	t.mu.Lock()
	for _, r := range internal {
		if err := t.tryBorrowLocked(r, perm); err != nil {
			t.mu.Unlock()
			return nil, err
		}
	}
	for _, r := range internal {
		t.registerLocked(r, perm)
	}
	t.mu.Unlock()

	fragments := make([]ByteRange, len(ranges))
	copy(fragments, ranges)

	return &FragmentedSubDevice{
		parent:     t.self,
		fragments:  fragments,
		perm:       perm,
		capability: info.SectorCapability,
	}, nil
}

// tryBorrowLocked reports Busy if granting perm over r would violate the
// non-overlap invariant. Callers must hold t.mu.
func (t *Tracker) tryBorrowLocked(r byteRange, perm blockdev.Permissions) error {
	if perm.Write {
		for _, rd := range t.readers {
			if rd.overlaps(r) {
				return errors.ErrBusy
			}
		}
		for _, w := range t.writers {
			if w.overlaps(r) {
				return errors.ErrBusy
			}
		}
		return nil
	}

	for _, w := range t.writers {
		if w.overlaps(r) {
			return errors.ErrBusy
		}
	}
	return nil
}

// registerLocked appends r to the reader and/or writer list as requested by
// perm. Callers must hold t.mu.
func (t *Tracker) registerLocked(r byteRange, perm blockdev.Permissions) {
	if perm.Read {
		t.readers = append(t.readers, r)
	}
	if perm.Write {
		t.writers = append(t.writers, r)
	}
}

// releaseLocked removes exactly one matching record from each list perm
// registered into. Callers must hold t.mu.
func (t *Tracker) releaseLocked(r byteRange, perm blockdev.Permissions) {
	if perm.Read {
		t.readers = removeOne(t.readers, r)
	}
	if perm.Write {
		t.writers = removeOne(t.writers, r)
	}
}

func removeOne(list []byteRange, r byteRange) []byteRange {
	for i, existing := range list {
		if existing == r {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
