// Package filedevice is a blockdev.Device backed by a hosted disk-image
// file.
package filedevice

import (
	"io"
	"os"
	"sync"

	"github.com/coreblock/blockfat/blockdev"
	"github.com/coreblock/blockfat/errors"
)

// Device is a blockdev.Device backed by an os.File.
type Device struct {
	mu         sync.Mutex
	file       *os.File
	byteSize   uint64
	capability blockdev.SectorCapability
	perm       blockdev.Permissions
}

var _ blockdev.Device = (*Device)(nil)

// Create creates a new disk-image file at path of the given byte size and
// wraps it as a Device opened with perm.
func Create(path string, byteSize uint64, capability blockdev.SectorCapability, perm blockdev.Permissions) (*Device, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		return nil, errors.ErrIOErr.WrapError(err)
	}
	if err := file.Truncate(int64(byteSize)); err != nil {
		file.Close()
		return nil, errors.ErrIOErr.WrapError(err)
	}
	return &Device{file: file, byteSize: byteSize, capability: capability, perm: perm}, nil
}

// Open opens an existing disk-image file at path with permissions matching
// perm, and wraps it as a Device with the given SectorCapability.
func Open(path string, capability blockdev.SectorCapability, perm blockdev.Permissions) (*Device, error) {
	flag := 0
	switch {
	case perm.Read && perm.Write:
		flag = os.O_RDWR
	case perm.Read:
		flag = os.O_RDONLY
	case perm.Write:
		flag = os.O_WRONLY
	default:
		return nil, blockdev.InvalidPermissionError{Granted: perm}
	}

	file, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, errors.ErrIOErr.WrapError(err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.ErrIOErr.WrapError(err)
	}

	return &Device{
		file:       file,
		byteSize:   uint64(info.Size()),
		capability: capability,
		perm:       perm,
	}, nil
}

// Close closes the backing file.
func (d *Device) Close() error {
	return d.file.Close()
}

func (d *Device) Info() (blockdev.DeviceInfo, error) {
	return blockdev.DeviceInfo{
		SectorCapability: d.capability,
		ByteSize:         d.byteSize,
		Permissions:      d.perm,
	}, nil
}

func (d *Device) ReadSector(sector uint64, buf []byte) error {
	if !d.perm.Read {
		return blockdev.InvalidPermissionError{Granted: d.perm}
	}

	size := uint64(len(buf))
	if !d.capability.IsSupported(size, d.byteSize) {
		return blockdev.InvalidSectorSizeError{Found: size, Supported: d.capability, Start: 0}
	}

	offset := sector * size
	if offset+size > d.byteSize {
		return blockdev.InvalidSectorIndexError{Found: sector, Max: d.byteSize / size}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.file.Seek(int64(offset), io.SeekStart); err != nil {
		return errors.ErrIOErr
	}
	if _, err := io.ReadFull(d.file, buf); err != nil {
		return errors.ErrIOErr
	}
	return nil
}

func (d *Device) WriteSector(sector uint64, buf []byte) error {
	if !d.perm.Write {
		return blockdev.InvalidPermissionError{Granted: d.perm}
	}

	size := uint64(len(buf))
	if !d.capability.IsSupported(size, d.byteSize) {
		return blockdev.InvalidSectorSizeError{Found: size, Supported: d.capability, Start: 0}
	}

	offset := sector * size
	if offset+size > d.byteSize {
		return blockdev.InvalidSectorIndexError{Found: sector, Max: d.byteSize / size}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.file.Seek(int64(offset), io.SeekStart); err != nil {
		return errors.ErrIOErr
	}
	if _, err := d.file.Write(buf); err != nil {
		return errors.ErrIOErr
	}
	return nil
}
