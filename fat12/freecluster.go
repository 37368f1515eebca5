package fat12

import "github.com/boljen/go-bitmap"

// FindFreeClusters scans FAT entries [2, clusters_count) for the first n
// entries whose value is zero. It returns (nil, false) if fewer than n
// free clusters exist.
//
// The FAT is scanned sector-by-sector with a rolling two-sector window,
// keyed to each entry's target sector (byteOffset/sectorSize) rather than
// to whether the entry straddles a sector boundary: at a 512-byte sector,
// FAT12's 1.5-byte packing also produces clean boundaries between entries
// every 1024 entries, and a straddle-only advance would miss those and
// read every later entry from the wrong sector. Only the sector that falls
// out of the window is refilled, rather than re-reading from the start of
// the FAT on every entry.
func (f *Fat12) FindFreeClusters(n uint64) ([]uint64, bool) {
	if n == 0 || n >= f.clustersCount {
		return nil, false
	}

	fatSectorCount := uint64(f.bpb.FatSize16)
	fatBase := uint64(f.bpb.ReservedSectorsCount)

	scratch := bitmap.New(int(f.clustersCount))

	currentSectorIndex := fatBase
	window := make([]byte, f.sectorSize*2)

	if err := f.disk.ReadSector(currentSectorIndex, window[:f.sectorSize]); err != nil {
		return nil, false
	}
	if currentSectorIndex+1 < fatBase+fatSectorCount {
		if err := f.disk.ReadSector(currentSectorIndex+1, window[f.sectorSize:]); err != nil {
			return nil, false
		}
	}

	for entry := uint64(2); entry < f.clustersCount; entry++ {
		byteOffset := entry + entry/2
		targetSectorIndex := fatBase + byteOffset/f.sectorSize

		for targetSectorIndex > currentSectorIndex {
			currentSectorIndex++
			copy(window[:f.sectorSize], window[f.sectorSize:])

			if currentSectorIndex+1 < fatBase+fatSectorCount {
				if err := f.disk.ReadSector(currentSectorIndex+1, window[f.sectorSize:]); err != nil {
					return nil, false
				}
			}
		}

		offsetInSector := byteOffset % f.sectorSize

		raw := uint16(window[offsetInSector]) | uint16(window[offsetInSector+1])<<8
		var value uint16
		if entry%2 == 1 {
			value = raw >> 4
		} else {
			value = raw & 0xFFF
		}

		scratch.Set(int(entry), value == 0)
	}

	var free []uint64
	for i := 2; i < int(f.clustersCount); i++ {
		if scratch.Get(i) {
			free = append(free, uint64(i))
			if uint64(len(free)) == n {
				return free, true
			}
		}
	}

	return nil, false
}
