// Package mbr implements the 512-byte Master Boot Record partition table:
// parsing, creating, and projecting its four partition slots as sub-devices
// of the borrow tracker.
package mbr

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"
)

var wireEncoding binary.ByteOrder = binary.LittleEndian

// Signature is the value RawMbr.Signature must hold for the record to be a
// valid MBR.
const Signature uint16 = 0xAA55

// Well-known MBR partition type bytes.
const (
	PartitionTypeEmpty    = 0x00
	PartitionTypeFAT12    = 0x01
	PartitionTypeFAT16Sml = 0x04
	PartitionTypeExtended = 0x05
	PartitionTypeFAT16    = 0x06
	PartitionTypeNTFS     = 0x07
	PartitionTypeExFAT    = 0x07
	PartitionTypeFAT32    = 0x0B
	PartitionTypeFAT32LBA = 0x0C
	PartitionTypeFAT16LBA = 0x0E
	PartitionTypeLinux    = 0x83
	PartitionTypeGPTProt  = 0xEE
)

// MbrEntry is one of the four 16-byte partition descriptors in a RawMbr.
// CHS fields are preserved verbatim but never interpreted.
type MbrEntry struct {
	Status         uint8
	ChsFirst       [3]byte
	PartitionType  uint8
	ChsLast        [3]byte
	LBAFirst       uint32
	SectorCount    uint32
}

// IsEmpty reports whether the entry is all zeroes, i.e. an unused slot.
func (e MbrEntry) IsEmpty() bool {
	return e == MbrEntry{}
}

// sectorRange returns the entry's half-open sector range [LBAFirst, LBAFirst+SectorCount).
func (e MbrEntry) sectorRange() (start, end uint64) {
	return uint64(e.LBAFirst), uint64(e.LBAFirst) + uint64(e.SectorCount)
}

// RawMbr is the identity-mapped 512-byte MBR record.
type RawMbr struct {
	Bootstrap  [446]byte
	Partitions [4]MbrEntry
	Signature  uint16
}

// NewRawMbr returns a zeroed MBR with a valid signature and no partitions,
// ready to have entries added and be written to a device.
func NewRawMbr() RawMbr {
	return RawMbr{Signature: Signature}
}

// Encode serializes the record into the canonical 512-byte on-disk layout.
func (m RawMbr) Encode() ([]byte, error) {
	buf, err := restruct.Pack(wireEncoding, &m)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Decode parses a 512-byte (or larger, only the first 512 bytes are read)
// buffer into a RawMbr.
func Decode(buf []byte) (RawMbr, error) {
	var m RawMbr
	if err := restruct.Unpack(buf[:512], wireEncoding, &m); err != nil {
		return RawMbr{}, err
	}
	return m, nil
}

// HasValidSignature reports whether m.Signature equals the canonical MBR
// signature.
func (m RawMbr) HasValidSignature() bool {
	return m.Signature == Signature
}
