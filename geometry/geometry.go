// Package geometry is a small registry of standard FAT12 floppy disk
// geometries, loaded from an embedded CSV at init time.
package geometry

import (
	_ "embed"
	"fmt"

	"github.com/gocarina/gocsv"
)

// FloppyGeometry describes one standard floppy disk format: its physical
// layout and the resulting total byte size. fat12.FormatStandard takes only
// its BytesPerSector; the volume size comes from the device being formatted.
type FloppyGeometry struct {
	Name            string `csv:"name"`
	Slug            string `csv:"slug"`
	BytesPerSector  uint   `csv:"bytes_per_sector"`
	SectorsPerTrack uint   `csv:"sectors_per_track"`
	Heads           uint   `csv:"heads"`
	Tracks          uint   `csv:"tracks"`
	TotalSectors    uint   `csv:"total_sectors"`
}

// TotalSizeBytes returns the geometry's total capacity in bytes.
func (g FloppyGeometry) TotalSizeBytes() uint64 {
	return uint64(g.TotalSectors) * uint64(g.BytesPerSector)
}

//go:embed floppy_geometries.csv
var rawCSV string

var byslug map[string]FloppyGeometry

// Lookup returns the standard floppy geometry registered under slug (e.g.
// "1440k"), or an error if no such geometry is registered.
func Lookup(slug string) (FloppyGeometry, error) {
	g, ok := byslug[slug]
	if !ok {
		return FloppyGeometry{}, fmt.Errorf("geometry: no predefined floppy geometry with slug %q", slug)
	}
	return g, nil
}

// All returns every registered standard floppy geometry.
func All() []FloppyGeometry {
	out := make([]FloppyGeometry, 0, len(byslug))
	for _, g := range byslug {
		out = append(out, g)
	}
	return out
}

func init() {
	byslug = make(map[string]FloppyGeometry)

	var rows []FloppyGeometry
	if err := gocsv.UnmarshalString(rawCSV, &rows); err != nil {
		panic(fmt.Errorf("geometry: failed to parse embedded floppy geometry table: %w", err))
	}

	for _, row := range rows {
		if _, exists := byslug[row.Slug]; exists {
			panic(fmt.Errorf("geometry: duplicate floppy geometry slug %q", row.Slug))
		}
		byslug[row.Slug] = row
	}
}
