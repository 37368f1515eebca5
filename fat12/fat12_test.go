package fat12_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreblock/blockfat/backends/memdevice"
	"github.com/coreblock/blockfat/blockdev"
	"github.com/coreblock/blockfat/blockdev/tracker"
	"github.com/coreblock/blockfat/errors"
	"github.com/coreblock/blockfat/fat12"
)

func newFormattedVolume(t *testing.T, byteSize uint64, opts fat12.FormatOptions) (*fat12.Fat12, *tracker.Tracker) {
	t.Helper()
	dev := memdevice.New(byteSize, blockdev.SectorAllOf(512), blockdev.ReadWrite())
	disk := tracker.New(dev)

	f, err := fat12.Format(disk, opts)
	require.NoError(t, err)
	require.NotNil(t, f)
	return f, disk
}

// End-to-end scenario 3: 4 MiB + 14 bytes, default sector/cluster sizes.
func TestFormat_FourMegabytePlusFourteenBytes(t *testing.T) {
	f, disk := newFormattedVolume(t, 4*1024*1024+14, fat12.FormatOptions{
		NumFATs:              2,
		HiddenSectors:        0,
		RootDirectoryEntries: 512,
	})

	assert.Equal(t, uint64(512), f.SectorSize())

	sector := make([]byte, 512)
	require.NoError(t, disk.ReadSector(0, sector))
	bpb, ext, err := fat12.DecodeBPB(sector)
	require.NoError(t, err)

	assert.Equal(t, uint64(8192), bpb.TotalSectors())
	assert.Equal(t, uint8(2), bpb.SectorsPerCluster)
	assert.Equal(t, uint16(12), bpb.FatSize16)
	assert.NoError(t, bpb.Validate())
	assert.NoError(t, ext.Validate())

	// BPB round-trips byte-exact.
	reencoded, err := fat12.EncodeBPB(bpb, ext)
	require.NoError(t, err)
	assert.Equal(t, sector, reencoded)
}

// End-to-end scenario 5: FAT round-trip with exact byte packing.
func TestFatEntry_RoundTripAndBytePacking(t *testing.T) {
	f, disk := newFormattedVolume(t, 4*1024*1024+14, fat12.FormatOptions{
		NumFATs:              2,
		RootDirectoryEntries: 512,
	})

	require.NoError(t, f.SetFatEntry(2, 0xABC))
	require.NoError(t, f.SetFatEntry(3, 0x123))

	got2, err := f.GetFatEntry(2)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xABC), got2)

	got3, err := f.GetFatEntry(3)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x123), got3)

	// The reserved sectors count for this geometry is 2, so FAT copy #0
	// starts at sector 2; byte offset 3 falls within that first FAT sector.
	sector := make([]byte, 512)
	require.NoError(t, disk.ReadSector(2, sector))
	assert.Equal(t, []byte{0xBC, 0x3A, 0x12}, sector[3:6])
}

func TestFatEntry_MirroredAcrossAllFATs(t *testing.T) {
	f, disk := newFormattedVolume(t, 4*1024*1024+14, fat12.FormatOptions{
		NumFATs:              2,
		RootDirectoryEntries: 512,
	})

	require.NoError(t, f.SetFatEntry(10, 0x7FE))

	first := make([]byte, 512)
	second := make([]byte, 512)
	require.NoError(t, disk.ReadSector(2, first))
	require.NoError(t, disk.ReadSector(2+12, second))
	assert.Equal(t, first, second)
}

func TestFatEntry_IndexOutOfRangeAtClustersCount(t *testing.T) {
	f, _ := newFormattedVolume(t, 4*1024*1024+14, fat12.FormatOptions{
		NumFATs:              2,
		RootDirectoryEntries: 512,
	})

	_, err := f.GetFatEntry(f.ClustersCount())
	assert.ErrorIs(t, err, errors.ErrIndexOutOfRange)

	require.NoError(t, f.SetFatEntry(f.ClustersCount()-1, 0x001))
	got, err := f.GetFatEntry(f.ClustersCount() - 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x001), got)
}

// End-to-end scenario 6: chain 5 -> 6 -> 9 -> EOC resolves to two coalesced
// fragments totaling 3072 bytes.
func TestOpenFile_ChainResolvesToCoalescedFragments(t *testing.T) {
	f, disk := newFormattedVolume(t, 4*1024*1024+14, fat12.FormatOptions{
		NumFATs:              2,
		RootDirectoryEntries: 512,
	})

	require.NoError(t, f.SetFatEntry(5, 6))
	require.NoError(t, f.SetFatEntry(6, 9))
	require.NoError(t, f.SetFatEntry(9, 0xFFF))

	// first_data_sector for this geometry is reserved(2) + numFATs(2)*fat_size(12) + root_dir_sectors(32) = 58.
	patterns := map[uint64]byte{
		64: 0x11, 65: 0x12, // cluster 5
		66: 0x21, 67: 0x22, // cluster 6
		72: 0x31, 73: 0x32, // cluster 9
	}
	for sectorIdx, fill := range patterns {
		buf := make([]byte, 512)
		for i := range buf {
			buf[i] = fill
		}
		require.NoError(t, disk.WriteSector(sectorIdx, buf))
	}

	fd, err := f.OpenFile(5, blockdev.ReadOnly())
	require.NoError(t, err)
	defer fd.Close()

	info, err := fd.Info()
	require.NoError(t, err)
	assert.Equal(t, uint64(3072), info.ByteSize)

	expected := []byte{0x11, 0x12, 0x21, 0x22, 0x31, 0x32}
	for logical, fill := range expected {
		buf := make([]byte, 512)
		require.NoError(t, fd.ReadSector(uint64(logical), buf))
		for _, b := range buf {
			assert.Equal(t, fill, b, "logical sector %d", logical)
		}
	}
}

func TestOpenFile_RejectsStartClusterBelowTwo(t *testing.T) {
	f, _ := newFormattedVolume(t, 4*1024*1024+14, fat12.FormatOptions{
		NumFATs:              2,
		RootDirectoryEntries: 512,
	})

	_, err := f.OpenFile(1, blockdev.ReadOnly())
	assert.ErrorIs(t, err, errors.ErrIndexOutOfRange)
}

func TestOpenFile_BadClusterMidChainFails(t *testing.T) {
	f, _ := newFormattedVolume(t, 4*1024*1024+14, fat12.FormatOptions{
		NumFATs:              2,
		RootDirectoryEntries: 512,
	})

	require.NoError(t, f.SetFatEntry(5, 0xFF7))

	_, err := f.OpenFile(5, blockdev.ReadOnly())
	assert.ErrorIs(t, err, errors.ErrIOErr)
}

func TestRootDirEntry_RoundTrip(t *testing.T) {
	f, _ := newFormattedVolume(t, 4*1024*1024+14, fat12.FormatOptions{
		NumFATs:              2,
		RootDirectoryEntries: 512,
	})

	entry := fat12.FatDirEntry{
		Name:            [11]byte{'H', 'E', 'L', 'L', 'O', ' ', ' ', ' ', 'T', 'X', 'T'},
		FirstClusterLow: 5,
		FileSize:        3072,
	}
	require.NoError(t, f.SetRootDirEntry(0, entry))

	got, err := f.GetRootDirEntry(0)
	require.NoError(t, err)
	assert.Equal(t, entry, got)
}

func TestRootDirEntry_IndexOutOfRange(t *testing.T) {
	f, _ := newFormattedVolume(t, 4*1024*1024+14, fat12.FormatOptions{
		NumFATs:              2,
		RootDirectoryEntries: 512,
	})

	_, err := f.GetRootDirEntry(512)
	assert.ErrorIs(t, err, errors.ErrIndexOutOfRange)
}

func TestMount_RoundTripsAFormattedVolume(t *testing.T) {
	_, disk := newFormattedVolume(t, 4*1024*1024+14, fat12.FormatOptions{
		NumFATs:              2,
		RootDirectoryEntries: 512,
	})

	mounted, err := fat12.Mount(disk)
	require.NoError(t, err)
	require.NotNil(t, mounted)
	assert.Equal(t, uint64(512), mounted.SectorSize())
}

func TestMount_NonFat12VolumeIsAbsenceNotError(t *testing.T) {
	dev := memdevice.New(65536, blockdev.SectorAllOf(512), blockdev.ReadWrite())
	disk := tracker.New(dev)

	got, err := fat12.Mount(disk)
	require.NoError(t, err)
	assert.Nil(t, got)
}
