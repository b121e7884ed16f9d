// Package regions loads the region registry used by the batch pipeline, a
// JSON list of named bounding boxes with their zoom ranges.
package regions

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/akhenakh/ofmtiles/tilegrid"
)

// Region is one registry entry.
type Region struct {
	Prefix string     `json:"oaci_prefix"`
	BBox   [4]float64 `json:"bbox"`
	Zoom   [2]int     `json:"zoom"`
}

// Bounds returns the region's bounding box.
func (r Region) Bounds() tilegrid.BBox {
	return tilegrid.BBox{
		MinLon: r.BBox[0],
		MinLat: r.BBox[1],
		MaxLon: r.BBox[2],
		MaxLat: r.BBox[3],
	}
}

// MinZoom returns the region's minimum zoom level.
func (r Region) MinZoom() int { return r.Zoom[0] }

// MaxZoom returns the region's maximum zoom level.
func (r Region) MaxZoom() int { return r.Zoom[1] }

// Load reads a registry file.
func Load(path string) ([]Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read regions config: %w", err)
	}

	var regions []Region
	if err := json.Unmarshal(data, &regions); err != nil {
		return nil, fmt.Errorf("can't parse regions config %s: %w", path, err)
	}

	return regions, nil
}

// Find returns the region with the given prefix.
func Find(regions []Region, prefix string) (Region, error) {
	for _, r := range regions {
		if r.Prefix == prefix {
			return r, nil
		}
	}

	return Region{}, fmt.Errorf("unknown region %q", prefix)
}

// Names returns the sorted unique prefixes of the registry.
func Names(regions []Region) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range regions {
		if !seen[r.Prefix] {
			seen[r.Prefix] = true
			names = append(names, r.Prefix)
		}
	}
	sort.Strings(names)

	return names
}
