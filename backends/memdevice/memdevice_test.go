package memdevice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreblock/blockfat/backends/memdevice"
	"github.com/coreblock/blockfat/blockdev"
)

func TestMemDevice_ReadWriteRoundTrip(t *testing.T) {
	dev := memdevice.New(4096, blockdev.SectorAllOf(512), blockdev.ReadWrite())

	payload := []byte("0123456789abcdef")
	buf := make([]byte, 512)
	copy(buf, payload)

	require.NoError(t, dev.WriteSector(3, buf))

	readBack := make([]byte, 512)
	require.NoError(t, dev.ReadSector(3, readBack))
	assert.Equal(t, buf, readBack)
}

func TestMemDevice_ReadOnlyRejectsWrite(t *testing.T) {
	dev := memdevice.New(2048, blockdev.SectorAllOf(512), blockdev.ReadOnly())

	buf := make([]byte, 512)
	err := dev.WriteSector(0, buf)
	var permErr blockdev.InvalidPermissionError
	require.ErrorAs(t, err, &permErr)
}

func TestMemDevice_OutOfRangeFailsInvalidSectorIndex(t *testing.T) {
	dev := memdevice.New(1024, blockdev.SectorAllOf(512), blockdev.ReadWrite())

	buf := make([]byte, 512)
	err := dev.ReadSector(5, buf)
	var idxErr blockdev.InvalidSectorIndexError
	require.ErrorAs(t, err, &idxErr)
}

func TestMemDevice_UnsupportedSectorSizeRejected(t *testing.T) {
	dev := memdevice.New(4096, blockdev.SectorAllOf(512), blockdev.ReadWrite())

	buf := make([]byte, 1024)
	err := dev.ReadSector(0, buf)
	var sizeErr blockdev.InvalidSectorSizeError
	require.ErrorAs(t, err, &sizeErr)
}
