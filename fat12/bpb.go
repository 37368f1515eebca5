package fat12

import (
	"encoding/binary"
	"fmt"

	"github.com/go-restruct/restruct"
	"github.com/hashicorp/go-multierror"
	"github.com/noxer/bytewriter"
)

var wireEncoding binary.ByteOrder = binary.LittleEndian

// BiosParameterBlockCommon is the 36-byte common header shared by FAT12,
// FAT16, and FAT32 volumes.
type BiosParameterBlockCommon struct {
	JmpBoot               [3]byte
	OEMName               [8]byte
	BytesPerSector        uint16
	SectorsPerCluster     uint8
	ReservedSectorsCount  uint16
	NumberOfFats          uint8
	RootDirectoryEntries  uint16
	TotalSectors16        uint16
	Media                 uint8
	FatSize16             uint16
	SectorsPerTrack       uint16
	NumberOfHeads         uint16
	HiddenSectors         uint32
	TotalSectors32        uint32
}

const bpbCommonSize = 36

// ExtendedBpb12_16 is the FAT12/FAT16-specific extension following the
// common BPB header, running to the end of sector 0.
type ExtendedBpb12_16 struct {
	DriveNumber        uint8
	Reserved           uint8
	BootSignature      uint8
	VolumeSerialNumber uint32
	VolumeLabel        [11]byte
	FileSystemType     [8]byte
	BootCode           [448]byte
	Signature          uint16
}

const extendedBpbSize = 476

// DecodeBPB splits a 512-byte sector 0 buffer into its common and extended
// BPB halves.
func DecodeBPB(sector []byte) (BiosParameterBlockCommon, ExtendedBpb12_16, error) {
	var bpb BiosParameterBlockCommon
	var ext ExtendedBpb12_16

	if len(sector) < 512 {
		return bpb, ext, fmt.Errorf("fat12: sector too short for a BPB: %d bytes", len(sector))
	}

	if err := restruct.Unpack(sector[:bpbCommonSize], wireEncoding, &bpb); err != nil {
		return bpb, ext, err
	}
	if err := restruct.Unpack(sector[bpbCommonSize:512], wireEncoding, &ext); err != nil {
		return bpb, ext, err
	}
	return bpb, ext, nil
}

// EncodeBPB serializes the common and extended BPB halves into a single
// 512-byte sector 0 buffer.
func EncodeBPB(bpb BiosParameterBlockCommon, ext ExtendedBpb12_16) ([]byte, error) {
	common, err := restruct.Pack(wireEncoding, &bpb)
	if err != nil {
		return nil, err
	}
	extended, err := restruct.Pack(wireEncoding, &ext)
	if err != nil {
		return nil, err
	}

	sector := make([]byte, 512)
	writer := bytewriter.New(sector)
	if _, err := writer.Write(common); err != nil {
		return nil, err
	}
	if _, err := writer.Write(extended); err != nil {
		return nil, err
	}
	return sector, nil
}

func isPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// Validate checks the common BPB's field constraints from section 3,
// aggregating every violation rather than stopping at the first.
func (b BiosParameterBlockCommon) Validate() error {
	var result *multierror.Error

	if !isPowerOfTwo(uint64(b.BytesPerSector)) || b.BytesPerSector < 512 {
		result = multierror.Append(result, fmt.Errorf("bytes per sector %d is not a power of two >= 512", b.BytesPerSector))
	}
	if !isPowerOfTwo(uint64(b.SectorsPerCluster)) || b.SectorsPerCluster == 0 || b.SectorsPerCluster > 128 {
		result = multierror.Append(result, fmt.Errorf("sectors per cluster %d is not a power of two in [1,128]", b.SectorsPerCluster))
	}
	if b.NumberOfFats < 1 {
		result = multierror.Append(result, fmt.Errorf("number of FATs must be >= 1, got %d", b.NumberOfFats))
	}
	if (b.TotalSectors16 != 0) == (b.TotalSectors32 != 0) {
		result = multierror.Append(result, fmt.Errorf("exactly one of total_sectors_16/total_sectors_32 must be non-zero"))
	}

	return result.ErrorOrNil()
}

// Validate checks the extended BPB's fixed-value fields.
func (e ExtendedBpb12_16) Validate() error {
	var result *multierror.Error

	if e.BootSignature != 0x29 {
		result = multierror.Append(result, fmt.Errorf("boot signature is 0x%02X, expected 0x29", e.BootSignature))
	}
	if e.Signature != 0xAA55 {
		result = multierror.Append(result, fmt.Errorf("sector signature is 0x%04X, expected 0xAA55", e.Signature))
	}

	return result.ErrorOrNil()
}

// TotalSectors returns whichever of TotalSectors16/TotalSectors32 is
// non-zero.
func (b BiosParameterBlockCommon) TotalSectors() uint64 {
	if b.TotalSectors16 != 0 {
		return uint64(b.TotalSectors16)
	}
	return uint64(b.TotalSectors32)
}

// RootDirSectors returns ceil(root_entries*32 / bytes_per_sector).
func (b BiosParameterBlockCommon) RootDirSectors() uint64 {
	return (uint64(b.RootDirectoryEntries)*32 + uint64(b.BytesPerSector) - 1) / uint64(b.BytesPerSector)
}

// FirstDataSector returns reserved + #FATs*fat_size + root_dir_sectors.
func (b BiosParameterBlockCommon) FirstDataSector() uint64 {
	return uint64(b.ReservedSectorsCount) + uint64(b.NumberOfFats)*uint64(b.FatSize16) + b.RootDirSectors()
}

// ClustersCount returns (total_sectors - first_data_sector) / sectors_per_cluster.
func (b BiosParameterBlockCommon) ClustersCount() uint64 {
	return (b.TotalSectors() - b.FirstDataSector()) / uint64(b.SectorsPerCluster)
}

// FatType identifies which FAT generation a volume's cluster count
// corresponds to. Only Fat12 has an engine in this module; Fat16/Fat32 are
// named here so a future engine for them can plug into the same
// Device/tracker/sub-device stack with a different BPB extension and FAT
// entry width.
type FatType int

const (
	FatTypeUnknown FatType = iota
	FatType12
	FatType16
	FatType32
)

// DetectFatType classifies a volume by its cluster count, per the standard
// FAT specification thresholds.
func DetectFatType(clustersCount uint64) FatType {
	switch {
	case clustersCount < 4085:
		return FatType12
	case clustersCount < 65525:
		return FatType16
	default:
		return FatType32
	}
}
