package fat12

import "github.com/go-restruct/restruct"

// FatDirEntry is a 32-byte FAT directory entry. Long file names,
// timestamps, and OEM-specific bits are carried as raw fields only; this
// module does not interpret them beyond byte layout.
type FatDirEntry struct {
	Name              [11]byte
	Attributes        uint8
	Reserved          uint8
	CreationTimeTenth uint8
	CreationTime      uint16
	CreationDate      uint16
	LastAccessDate    uint16
	FirstClusterHigh  uint16
	WriteTime         uint16
	WriteDate         uint16
	FirstClusterLow   uint16
	FileSize          uint32
}

const fatDirEntrySize = 32

// FirstCluster reassembles the full (32-bit, though FAT12 only uses the low
// 16 bits) starting cluster number.
func (e FatDirEntry) FirstCluster() uint32 {
	return uint32(e.FirstClusterHigh)<<16 | uint32(e.FirstClusterLow)
}

// DecodeDirEntry parses a 32-byte buffer into a FatDirEntry. Relying on
// restruct's field-declaration-order walk means FileSize is always read
// from its correct byte range regardless of how the struct is laid out.
func DecodeDirEntry(buf []byte) (FatDirEntry, error) {
	var e FatDirEntry
	if err := restruct.Unpack(buf[:fatDirEntrySize], wireEncoding, &e); err != nil {
		return FatDirEntry{}, err
	}
	return e, nil
}

// EncodeDirEntry serializes a FatDirEntry into its canonical 32-byte form.
func EncodeDirEntry(e FatDirEntry) ([]byte, error) {
	return restruct.Pack(wireEncoding, &e)
}
