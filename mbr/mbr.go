package mbr

import (
	"github.com/noxer/bytewriter"

	"github.com/coreblock/blockfat/blockdev"
	"github.com/coreblock/blockfat/blockdev/tracker"
	"github.com/coreblock/blockfat/errors"
)

// PartitionInfo describes one populated partition slot, as reported by
// GenericMbr.PartitionInfo.
type PartitionInfo struct {
	LBAStart         uint64
	Size             uint64
	SectorSize       uint64
	PartitionType    uint8
}

// GenericMbr is the MBR partition table engine. It reads/writes the
// canonical 512-byte record through a borrow tracker and projects
// partitions as sub-devices.
type GenericMbr struct {
	raw        RawMbr
	disk       *tracker.Tracker
	sectorSize uint64
}

// New creates a fresh, empty MBR in memory over disk. If sectorSize is 0,
// the smallest sector size the device supports that is >= 512 is chosen.
func New(disk *tracker.Tracker, sectorSize uint64) (*GenericMbr, error) {
	info, err := disk.Info()
	if err != nil {
		return nil, err
	}

	if sectorSize == 0 {
		chosen, ok := info.SectorCapability.MinimalGE(512, info.ByteSize)
		if !ok {
			return nil, errors.ErrUnsupportedDiskSectorSize
		}
		sectorSize = chosen
	}

	return &GenericMbr{
		raw:        NewRawMbr(),
		disk:       disk,
		sectorSize: sectorSize,
	}, nil
}

// Read parses the MBR already present on disk. It returns (nil, nil) if
// sector 0 does not carry a valid MBR signature — absence, not an error.
func Read(disk *tracker.Tracker, sectorSize uint64) (*GenericMbr, error) {
	info, err := disk.Info()
	if err != nil {
		return nil, err
	}

	if sectorSize == 0 {
		chosen, ok := info.SectorCapability.MinimalGE(512, info.ByteSize)
		if !ok {
			return nil, errors.ErrUnsupportedDiskSectorSize
		}
		sectorSize = chosen
	}

	sector := make([]byte, sectorSize)
	if err := disk.ReadSector(0, sector); err != nil {
		return nil, err
	}

	raw, err := Decode(sector)
	if err != nil {
		return nil, err
	}
	if !raw.HasValidSignature() {
		return nil, nil
	}

	return &GenericMbr{raw: raw, disk: disk, sectorSize: sectorSize}, nil
}

// SectorSize reports the sector size this GenericMbr was opened with.
func (m *GenericMbr) SectorSize() uint64 {
	return m.sectorSize
}

// Write serializes the record into a buffer padded to the configured
// sector size and writes it to sector 0.
func (m *GenericMbr) Write() error {
	encoded, err := m.raw.Encode()
	if err != nil {
		return err
	}

	sector := make([]byte, m.sectorSize)
	writer := bytewriter.New(sector)
	if _, err := writer.Write(encoded); err != nil {
		return errors.ErrIOErr.WrapError(err)
	}

	return m.disk.WriteSector(0, sector)
}

// SetBootCode replaces the 446-byte bootstrap region verbatim.
func (m *GenericMbr) SetBootCode(code [446]byte) {
	m.raw.Bootstrap = code
}

// BootCode returns the 446-byte bootstrap region verbatim.
func (m *GenericMbr) BootCode() [446]byte {
	return m.raw.Bootstrap
}

// PartitionInfo reports the partition occupying the given slot, or false if
// the slot is empty or out of range.
func (m *GenericMbr) PartitionInfo(index int) (PartitionInfo, bool) {
	if index < 0 || index >= 4 {
		return PartitionInfo{}, false
	}
	entry := m.raw.Partitions[index]
	if entry.IsEmpty() {
		return PartitionInfo{}, false
	}
	return PartitionInfo{
		LBAStart:      uint64(entry.LBAFirst),
		Size:          uint64(entry.SectorCount),
		SectorSize:    m.sectorSize,
		PartitionType: entry.PartitionType,
	}, true
}

// CreatePartition populates slot index with a new active partition entry
// spanning [start, start+size) sectors of the given type.
func (m *GenericMbr) CreatePartition(index int, start, size uint64, partitionType uint8) error {
	if index < 0 || index >= 4 {
		return errors.ErrInvalidPartitionIndex
	}

	end := start + size
	for _, p := range m.raw.Partitions {
		if p.IsEmpty() {
			continue
		}
		pStart, pEnd := p.sectorRange()
		if pStart < end && start < pEnd {
			return errors.ErrSpaceAlreadyInUse
		}
	}

	if start == 0 {
		return errors.ErrSpaceAlreadyInUse
	}

	info, err := m.disk.Info()
	if err != nil {
		return err
	}
	if end*m.sectorSize > info.ByteSize {
		return blockdev.InvalidSectorIndexError{Found: end, Max: info.ByteSize / m.sectorSize}
	}

	m.raw.Partitions[index] = MbrEntry{
		Status:        0x80,
		PartitionType: partitionType,
		LBAFirst:      uint32(start),
		SectorCount:   uint32(size),
	}
	return nil
}

// Partition projects the partition in the given slot as a sub-device,
// granted the requested permissions.
func (m *GenericMbr) Partition(index int, perm blockdev.Permissions) (*tracker.SubDevice, error) {
	if index < 0 || index >= 4 {
		return nil, errors.ErrInvalidPartitionIndex
	}
	entry := m.raw.Partitions[index]
	if entry.IsEmpty() {
		return nil, errors.ErrInvalidPartitionIndex
	}

	start := uint64(entry.LBAFirst) * m.sectorSize
	end := (uint64(entry.LBAFirst) + uint64(entry.SectorCount)) * m.sectorSize

	return m.disk.Acquire(start, end, perm)
}
