// Package fat12 implements the FAT12 filesystem engine: formatting and
// mounting a device, reading and writing FAT entries and root directory
// entries, and resolving cluster chains into file-shaped fragmented
// sub-devices.
package fat12

import (
	"github.com/coreblock/blockfat/blockdev"
	"github.com/coreblock/blockfat/blockdev/tracker"
	"github.com/coreblock/blockfat/errors"
)

// Cluster-chain link values, per the FAT12 specification.
const (
	clusterFree       = 0x000
	clusterBadMin     = 0xFF7
	clusterEOCMin     = 0xFF8
	clusterEOCMax     = 0xFFF
)

// Fat12 is a mounted or freshly formatted FAT12 volume over a borrow
// tracker.
type Fat12 struct {
	bpb           BiosParameterBlockCommon
	ext           ExtendedBpb12_16
	disk          *tracker.Tracker
	sectorSize    uint64
	clustersCount uint64
}

// Mount reads and validates the BPB already present on disk. It returns
// (nil, nil) if sector 0 is not a valid FAT12 volume — absence, not an
// error.
func Mount(disk *tracker.Tracker) (*Fat12, error) {
	info, err := disk.Info()
	if err != nil {
		return nil, err
	}

	sectorSize, ok := info.SectorCapability.MinimalGE(512, info.ByteSize)
	if !ok {
		return nil, errors.ErrUnsupportedDiskSectorSize
	}

	sector := make([]byte, sectorSize)
	if err := disk.ReadSector(0, sector); err != nil {
		return nil, err
	}

	bpb, ext, err := DecodeBPB(sector)
	if err != nil {
		return nil, err
	}

	if bpb.Validate() != nil || ext.Validate() != nil {
		return nil, nil
	}

	clustersCount := bpb.ClustersCount()
	if DetectFatType(clustersCount) != FatType12 {
		return nil, nil
	}

	return &Fat12{
		bpb:           bpb,
		ext:           ext,
		disk:          disk,
		sectorSize:    sectorSize,
		clustersCount: clustersCount,
	}, nil
}

// FormatOptions configures Format. BytesPerSector and SectorsPerCluster of
// 0 request the spec-mandated defaults.
type FormatOptions struct {
	NumFATs              uint8
	HiddenSectors        uint32
	RootDirectoryEntries uint16
	BytesPerSector       uint64
	SectorsPerCluster    uint8
}

var standardSectorSizes = []uint64{512, 1024, 2048, 4096}

func nextPowerOfTwo(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}

func ceilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}

// Format lays out a brand-new FAT12 volume on disk following the
// ten-step algorithm: pick bytes-per-sector, validate inputs, compute
// sectors-per-cluster and FAT size, zero the reserved/FAT/root-directory
// regions, and write the BPB. It returns (nil, nil) — absence, not an
// error — if any pre-check fails.
func Format(disk *tracker.Tracker, opts FormatOptions) (*Fat12, error) {
	info, err := disk.Info()
	if err != nil {
		return nil, err
	}

	bytesPerSector := opts.BytesPerSector
	if bytesPerSector == 0 {
		for _, candidate := range standardSectorSizes {
			if info.SectorCapability.IsSupported(candidate, info.ByteSize) {
				bytesPerSector = candidate
				break
			}
		}
		if bytesPerSector == 0 {
			return nil, errors.ErrUnsupportedDiskSectorSize
		}
	}

	if !isPowerOfTwo(bytesPerSector) || bytesPerSector < 512 || bytesPerSector > 0xFFFF {
		return nil, nil
	}
	if (uint64(opts.RootDirectoryEntries)*32)%bytesPerSector != 0 {
		return nil, nil
	}
	if opts.NumFATs < 1 {
		return nil, nil
	}

	totalSectors := info.ByteSize / bytesPerSector
	if totalSectors > 0xFFFFFFFF {
		return nil, errors.ErrInvalidDiskSize
	}

	rootDirSectors := ceilDiv(uint64(opts.RootDirectoryEntries)*32, bytesPerSector)

	sectorsPerCluster := uint64(opts.SectorsPerCluster)
	if sectorsPerCluster == 0 {
		sectorsPerCluster = nextPowerOfTwo(ceilDiv(totalSectors-rootDirSectors-1, 4085))
	}
	if !isPowerOfTwo(sectorsPerCluster) || sectorsPerCluster == 0 || sectorsPerCluster > 128 {
		return nil, nil
	}

	countOfClusters := (totalSectors - rootDirSectors - 1) / sectorsPerCluster
	fatSize := ceilDiv(countOfClusters+countOfClusters/2, bytesPerSector)
	countOfClusters = (totalSectors - rootDirSectors - uint64(opts.NumFATs)*fatSize - 1) / sectorsPerCluster
	reserved := totalSectors - countOfClusters*sectorsPerCluster - uint64(opts.NumFATs)*fatSize - rootDirSectors

	var totalSectors16 uint16
	var totalSectors32 uint32
	if totalSectors <= 0xFFFF {
		totalSectors16 = uint16(totalSectors)
	} else {
		totalSectors32 = uint32(totalSectors)
	}

	bpb := BiosParameterBlockCommon{
		BytesPerSector:       uint16(bytesPerSector),
		SectorsPerCluster:    uint8(sectorsPerCluster),
		ReservedSectorsCount: uint16(reserved),
		NumberOfFats:         opts.NumFATs,
		RootDirectoryEntries: opts.RootDirectoryEntries,
		TotalSectors16:       totalSectors16,
		Media:                0xF8,
		FatSize16:            uint16(fatSize),
		HiddenSectors:        opts.HiddenSectors,
		TotalSectors32:       totalSectors32,
	}

	ext := ExtendedBpb12_16{
		DriveNumber:   0x80,
		BootSignature: 0x29,
		VolumeLabel:   [11]byte{'N', 'O', ' ', 'N', 'A', 'M', 'E', ' ', ' ', ' ', ' '},
		FileSystemType: [8]byte{'F', 'A', 'T', '1', '2', ' ', ' ', ' '},
		Signature:     0xAA55,
	}

	f := &Fat12{
		bpb:           bpb,
		ext:           ext,
		disk:          disk,
		sectorSize:    bytesPerSector,
		clustersCount: countOfClusters,
	}

	zeroSectorCount := reserved + uint64(opts.NumFATs)*fatSize + rootDirSectors
	zero := make([]byte, bytesPerSector)
	for s := uint64(0); s < zeroSectorCount; s++ {
		if err := disk.WriteSector(s, zero); err != nil {
			return nil, err
		}
	}

	if err := f.writeBPB(); err != nil {
		return nil, err
	}

	return f, nil
}

func (f *Fat12) writeBPB() error {
	sector, err := EncodeBPB(f.bpb, f.ext)
	if err != nil {
		return err
	}
	return f.disk.WriteSector(0, sector)
}

// ClustersCount reports the total number of data clusters this volume was
// formatted or mounted with.
func (f *Fat12) ClustersCount() uint64 {
	return f.clustersCount
}

// SectorSize reports the volume's bytes-per-sector.
func (f *Fat12) SectorSize() uint64 {
	return f.sectorSize
}

func (f *Fat12) fatSectorFor(fatIndex uint8, entryIndex uint64) (sectorIndex uint64, offsetInSector uint64) {
	byteOffset := entryIndex + entryIndex/2
	fatBase := uint64(f.bpb.ReservedSectorsCount) + uint64(fatIndex)*uint64(f.bpb.FatSize16)
	return fatBase + byteOffset/f.sectorSize, byteOffset % f.sectorSize
}

// GetFatEntry returns the 12-bit value of FAT entry entryIndex, read from
// FAT copy #0.
func (f *Fat12) GetFatEntry(entryIndex uint64) (uint16, error) {
	if entryIndex >= f.clustersCount {
		return 0, errors.ErrIndexOutOfRange
	}

	sectorIndex, offset := f.fatSectorFor(0, entryIndex)

	sector := make([]byte, f.sectorSize)
	if err := f.disk.ReadSector(sectorIndex, sector); err != nil {
		return 0, err
	}

	var low, high byte
	if offset == f.sectorSize-1 {
		next := make([]byte, f.sectorSize)
		if err := f.disk.ReadSector(sectorIndex+1, next); err != nil {
			return 0, err
		}
		low, high = sector[offset], next[0]
	} else {
		low, high = sector[offset], sector[offset+1]
	}

	raw := uint16(low) | uint16(high)<<8
	if entryIndex%2 == 1 {
		return raw >> 4, nil
	}
	return raw & 0xFFF, nil
}

// SetFatEntry writes the 12-bit value to FAT entry entryIndex, mirroring
// the write to every FAT copy.
func (f *Fat12) SetFatEntry(entryIndex uint64, value uint16) error {
	if entryIndex >= f.clustersCount {
		return errors.ErrIndexOutOfRange
	}

	value &= 0xFFF

	for fatIndex := uint8(0); fatIndex < f.bpb.NumberOfFats; fatIndex++ {
		sectorIndex, offset := f.fatSectorFor(fatIndex, entryIndex)

		sector := make([]byte, f.sectorSize)
		if err := f.disk.ReadSector(sectorIndex, sector); err != nil {
			return err
		}

		straddles := offset == f.sectorSize-1
		var next []byte
		if straddles {
			next = make([]byte, f.sectorSize)
			if err := f.disk.ReadSector(sectorIndex+1, next); err != nil {
				return err
			}
		}

		getByte := func(i uint64) byte {
			if i < f.sectorSize {
				return sector[i]
			}
			return next[i-f.sectorSize]
		}
		setByte := func(i uint64, v byte) {
			if i < f.sectorSize {
				sector[i] = v
			} else {
				next[i-f.sectorSize] = v
			}
		}

		raw := uint16(getByte(offset)) | uint16(getByte(offset+1))<<8
		if entryIndex%2 == 1 {
			raw = (raw & 0x000F) | (value << 4)
		} else {
			raw = (raw & 0xF000) | value
		}
		setByte(offset, byte(raw))
		setByte(offset+1, byte(raw>>8))

		if err := f.disk.WriteSector(sectorIndex, sector); err != nil {
			return err
		}
		if straddles {
			if err := f.disk.WriteSector(sectorIndex+1, next); err != nil {
				return err
			}
		}
	}

	return nil
}

func (f *Fat12) rootDirSector(entryIndex uint64) (sectorIndex, offset uint64) {
	base := uint64(f.bpb.ReservedSectorsCount) + uint64(f.bpb.FatSize16)*uint64(f.bpb.NumberOfFats)
	byteOffset := entryIndex * fatDirEntrySize
	return base + byteOffset/f.sectorSize, byteOffset % f.sectorSize
}

// GetRootDirEntry reads the directory entry at entryIndex from the fixed
// root directory region.
func (f *Fat12) GetRootDirEntry(entryIndex uint64) (FatDirEntry, error) {
	if entryIndex >= uint64(f.bpb.RootDirectoryEntries) {
		return FatDirEntry{}, errors.ErrIndexOutOfRange
	}

	sectorIndex, offset := f.rootDirSector(entryIndex)

	sector := make([]byte, f.sectorSize)
	if err := f.disk.ReadSector(sectorIndex, sector); err != nil {
		return FatDirEntry{}, err
	}

	buf := sector
	if f.sectorSize-offset < fatDirEntrySize {
		next := make([]byte, f.sectorSize)
		if err := f.disk.ReadSector(sectorIndex+1, next); err != nil {
			return FatDirEntry{}, err
		}
		buf = append(append([]byte{}, sector...), next...)
	}

	return DecodeDirEntry(buf[offset : offset+fatDirEntrySize])
}

// SetRootDirEntry writes the directory entry at entryIndex.
func (f *Fat12) SetRootDirEntry(entryIndex uint64, entry FatDirEntry) error {
	if entryIndex >= uint64(f.bpb.RootDirectoryEntries) {
		return errors.ErrIndexOutOfRange
	}

	sectorIndex, offset := f.rootDirSector(entryIndex)
	encoded, err := EncodeDirEntry(entry)
	if err != nil {
		return err
	}

	sector := make([]byte, f.sectorSize)
	if err := f.disk.ReadSector(sectorIndex, sector); err != nil {
		return err
	}

	if f.sectorSize-offset < fatDirEntrySize {
		next := make([]byte, f.sectorSize)
		if err := f.disk.ReadSector(sectorIndex+1, next); err != nil {
			return err
		}
		combined := append(append([]byte{}, sector...), next...)
		copy(combined[offset:offset+fatDirEntrySize], encoded)
		if err := f.disk.WriteSector(sectorIndex, combined[:f.sectorSize]); err != nil {
			return err
		}
		return f.disk.WriteSector(sectorIndex+1, combined[f.sectorSize:])
	}

	copy(sector[offset:offset+fatDirEntrySize], encoded)
	return f.disk.WriteSector(sectorIndex, sector)
}

// OpenFile follows the cluster chain starting at startCluster and resolves
// it to a FragmentedSubDevice spanning the chain's coalesced byte ranges.
// The returned device's byte size is the file's size as observed through
// I/O, which may exceed the directory entry's recorded FileSize by up to
// one cluster.
func (f *Fat12) OpenFile(startCluster uint32, perm blockdev.Permissions) (*tracker.FragmentedSubDevice, error) {
	if startCluster < 2 {
		return nil, errors.ErrIndexOutOfRange
	}

	var clusters []uint64
	current := uint64(startCluster)
	for {
		clusters = append(clusters, current)

		next, err := f.GetFatEntry(current)
		if err != nil {
			return nil, err
		}
		if next >= clusterEOCMin && next <= clusterEOCMax {
			break
		}
		if next == clusterBadMin || next == clusterFree {
			return nil, errors.ErrIOErr
		}
		current = uint64(next)
	}

	firstDataSector := f.bpb.FirstDataSector()
	spc := uint64(f.bpb.SectorsPerCluster)

	var fragments []tracker.ByteRange
	for _, c := range clusters {
		start := (firstDataSector + (c-2)*spc) * f.sectorSize
		end := start + spc*f.sectorSize

		if n := len(fragments); n > 0 && fragments[n-1].End == start {
			fragments[n-1].End = end
		} else {
			fragments = append(fragments, tracker.ByteRange{Start: start, End: end})
		}
	}

	return f.disk.AcquireFragmented(fragments, perm)
}
