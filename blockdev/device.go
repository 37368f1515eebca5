// Package blockdev defines the sector-addressed block device contract that
// every layer above it — the borrow tracker, MBR partitions, and the FAT12
// engine — is built on. A Device works in fixed-size sectors; the size is
// implicit in the length of the buffer passed to ReadSector/WriteSector, and
// a Device may support more than one sector size at once (see
// SectorCapability).
//
// It is the implementation's responsibility to validate every argument: a
// caller may submit any value, valid or not.
package blockdev

// Device is the minimal capability set any block-addressed storage medium
// must expose. Implementations include hosted disk-image files, in-memory
// test backends, borrow-tracked sub-devices, and the borrow tracker itself.
type Device interface {
	// ReadSector fills buf from the sector at the given LBA. len(buf) is the
	// requested sector size.
	ReadSector(sector uint64, buf []byte) error

	// WriteSector writes buf to the sector at the given LBA. len(buf) is the
	// requested sector size.
	WriteSector(sector uint64, buf []byte) error

	// Info reports the device's sector capability, byte size, and
	// permissions.
	Info() (DeviceInfo, error)
}

// Permissions describes which operations are allowed on a device, or are
// being requested when projecting a sub-device. At least one of Read/Write
// must be true for the permissions to be useful.
type Permissions struct {
	Read  bool
	Write bool
}

// ReadOnly returns the Permissions value granting only read access.
func ReadOnly() Permissions { return Permissions{Read: true} }

// WriteOnly returns the Permissions value granting only write access.
func WriteOnly() Permissions { return Permissions{Write: true} }

// ReadWrite returns the Permissions value granting both read and write
// access.
func ReadWrite() Permissions { return Permissions{Read: true, Write: true} }

// IsUseful reports whether at least one of Read or Write is set.
func (p Permissions) IsUseful() bool {
	return p.Read || p.Write
}

// DeviceInfo describes a device's static properties: the sector sizes it
// supports, its total size in bytes, and the permissions it was opened
// with.
type DeviceInfo struct {
	SectorCapability SectorCapability
	ByteSize         uint64
	Permissions      Permissions
}
