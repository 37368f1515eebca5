package fat12

import (
	"github.com/coreblock/blockfat/blockdev/tracker"
	"github.com/coreblock/blockfat/geometry"
)

// FormatStandard formats disk as FAT12 using the bytes-per-sector of a
// named standard floppy geometry (see the geometry package) as the
// explicit BytesPerSector, leaving every other FormatOptions field as
// given by the caller.
func FormatStandard(disk *tracker.Tracker, slug string, opts FormatOptions) (*Fat12, error) {
	g, err := geometry.Lookup(slug)
	if err != nil {
		return nil, err
	}

	opts.BytesPerSector = uint64(g.BytesPerSector)
	return Format(disk, opts)
}
