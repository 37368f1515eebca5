package mbr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreblock/blockfat/backends/memdevice"
	"github.com/coreblock/blockfat/blockdev"
	"github.com/coreblock/blockfat/blockdev/tracker"
	"github.com/coreblock/blockfat/errors"
	"github.com/coreblock/blockfat/mbr"
)

func newTestDisk(t *testing.T, byteSize uint64) *tracker.Tracker {
	t.Helper()
	dev := memdevice.New(byteSize, blockdev.SectorAllOf(512), blockdev.ReadWrite())
	return tracker.New(dev)
}

// End-to-end scenario 1: 1 MiB image, 512-byte sectors, two partitions.
func TestGenericMbr_TwoPartitionsRoundTrip(t *testing.T) {
	disk := newTestDisk(t, 1048576)

	m, err := mbr.New(disk, 512)
	require.NoError(t, err)

	require.NoError(t, m.CreatePartition(0, 1, 1024, 0x00))
	require.NoError(t, m.CreatePartition(1, 1025, 1022, 0x07))
	require.NoError(t, m.Write())

	reread, err := mbr.Read(disk, 512)
	require.NoError(t, err)
	require.NotNil(t, reread)

	info0, ok := reread.PartitionInfo(0)
	require.True(t, ok)
	assert.Equal(t, mbr.PartitionInfo{LBAStart: 1, Size: 1024, SectorSize: 512, PartitionType: 0x00}, info0)

	info1, ok := reread.PartitionInfo(1)
	require.True(t, ok)
	assert.Equal(t, mbr.PartitionInfo{LBAStart: 1025, Size: 1022, SectorSize: 512, PartitionType: 0x07}, info1)
}

// End-to-end scenario 2: overlap rejection.
func TestGenericMbr_OverlapRejection(t *testing.T) {
	disk := newTestDisk(t, 1048576)

	m, err := mbr.New(disk, 512)
	require.NoError(t, err)

	require.NoError(t, m.CreatePartition(0, 1, 1024, 0x00))

	err = m.CreatePartition(1, 1024, 10, 0x07)
	assert.ErrorIs(t, err, errors.ErrSpaceAlreadyInUse)

	err = m.CreatePartition(1, 1025, 10, 0x07)
	assert.NoError(t, err)
}

func TestGenericMbr_StartAtZeroAlwaysFails(t *testing.T) {
	disk := newTestDisk(t, 1048576)

	m, err := mbr.New(disk, 512)
	require.NoError(t, err)

	err = m.CreatePartition(0, 0, 100, 0x01)
	assert.ErrorIs(t, err, errors.ErrSpaceAlreadyInUse)
}

func TestGenericMbr_InvalidSlotIndex(t *testing.T) {
	disk := newTestDisk(t, 1048576)

	m, err := mbr.New(disk, 512)
	require.NoError(t, err)

	err = m.CreatePartition(4, 1, 10, 0x01)
	assert.ErrorIs(t, err, errors.ErrInvalidPartitionIndex)
}

func TestGenericMbr_NoSignatureIsAbsenceNotError(t *testing.T) {
	disk := newTestDisk(t, 1048576)

	got, err := mbr.Read(disk, 512)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGenericMbr_BootCodeRoundTrips(t *testing.T) {
	disk := newTestDisk(t, 1048576)

	m, err := mbr.New(disk, 512)
	require.NoError(t, err)

	var code [446]byte
	for i := range code {
		code[i] = byte(i % 251)
	}
	m.SetBootCode(code)
	require.NoError(t, m.Write())

	reread, err := mbr.Read(disk, 512)
	require.NoError(t, err)
	require.NotNil(t, reread)
	assert.Equal(t, code, reread.BootCode())
}

func TestGenericMbr_ProjectPartitionAsSubDevice(t *testing.T) {
	disk := newTestDisk(t, 1048576)

	m, err := mbr.New(disk, 512)
	require.NoError(t, err)
	require.NoError(t, m.CreatePartition(0, 1, 1024, 0x01))

	part, err := m.Partition(0, blockdev.ReadWrite())
	require.NoError(t, err)
	defer part.Close()

	info, err := part.Info()
	require.NoError(t, err)
	assert.Equal(t, uint64(1024*512), info.ByteSize)
}
