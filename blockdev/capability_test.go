package blockdev_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreblock/blockfat/blockdev"
)

func TestSectorCapability_Any(t *testing.T) {
	capa := blockdev.SectorAny()
	assert.True(t, capa.IsSupported(512, 1<<20))
	assert.True(t, capa.IsSupported(4096, 1<<20))
	assert.False(t, capa.IsSupported(1<<21, 1<<20), "size must never exceed device size")
}

func TestSectorCapability_AllOf(t *testing.T) {
	capa := blockdev.SectorAllOf(512, 2048)
	assert.True(t, capa.IsSupported(512, 1<<20))
	assert.True(t, capa.IsSupported(2048, 1<<20))
	assert.False(t, capa.IsSupported(1024, 1<<20))
}

func TestSectorCapability_AnyExcept(t *testing.T) {
	capa := blockdev.SectorAnyExcept(4096)
	assert.True(t, capa.IsSupported(512, 1<<20))
	assert.False(t, capa.IsSupported(4096, 1<<20))
}

func TestSectorCapability_InRanges(t *testing.T) {
	capa := blockdev.SectorInRanges(blockdev.SizeRange{Min: 512, Max: 4096})
	assert.True(t, capa.IsSupported(512, 1<<20))
	assert.True(t, capa.IsSupported(2048, 1<<20))
	assert.False(t, capa.IsSupported(4096, 1<<20), "range is half-open")
}

func TestSectorCapability_AnyExceptRanges(t *testing.T) {
	capa := blockdev.SectorAnyExceptRanges(blockdev.SizeRange{Min: 512, Max: 1024})
	assert.False(t, capa.IsSupported(512, 1<<20))
	assert.True(t, capa.IsSupported(1024, 1<<20))
}

// monotone in device size for a fixed size: once supported at some device
// size, still supported at any larger device size.
func TestSectorCapability_MonotoneInDeviceSize(t *testing.T) {
	capa := blockdev.SectorAny()
	require.True(t, capa.IsSupported(512, 1024))
	assert.True(t, capa.IsSupported(512, 2048))
	assert.True(t, capa.IsSupported(512, 1<<30))
}

func TestSectorCapability_MinimalGE(t *testing.T) {
	capa := blockdev.SectorAllOf(1024, 4096)

	got, ok := capa.MinimalGE(512, 1<<20)
	require.True(t, ok)
	assert.Equal(t, uint64(1024), got)

	_, ok = capa.MinimalGE(8192, 1<<20)
	assert.False(t, ok)
}
