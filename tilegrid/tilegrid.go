// Package tilegrid converts a geographic bounding box into the set of
// Web-Mercator tiles covering it over a range of zoom levels.
package tilegrid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// maxMercatorLat is the highest latitude representable in the Web-Mercator
// projection; latitudes beyond it are clamped before tile lookup.
const maxMercatorLat = 85.05112877980659

// llEpsilon nudges the max corner inward so a bbox edge sitting exactly on a
// tile boundary does not pull in an extra row or column of tiles.
const llEpsilon = 1e-11

// BBox is a geographic bounding box in lon/lat degrees.
type BBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// Validate rejects inverted or out-of-range bounds. Equal min/max bounds are
// accepted, they simply cover no tiles.
func (b BBox) Validate() error {
	if b.MinLon < -180 || b.MaxLon > 180 {
		return fmt.Errorf("bbox: longitude out of range [-180,180]: %s", b)
	}
	if b.MinLat < -90 || b.MaxLat > 90 {
		return fmt.Errorf("bbox: latitude out of range [-90,90]: %s", b)
	}
	if b.MinLon > b.MaxLon {
		return fmt.Errorf("bbox: min longitude %s greater than max %s",
			formatCoord(b.MinLon), formatCoord(b.MaxLon))
	}
	if b.MinLat > b.MaxLat {
		return fmt.Errorf("bbox: min latitude %s greater than max %s",
			formatCoord(b.MinLat), formatCoord(b.MaxLat))
	}

	return nil
}

// String renders the bbox the way MBTiles metadata expects its bounds value:
// "minlon,minlat,maxlon,maxlat" with at least one decimal per coordinate.
func (b BBox) String() string {
	return strings.Join([]string{
		formatCoord(b.MinLon),
		formatCoord(b.MinLat),
		formatCoord(b.MaxLon),
		formatCoord(b.MaxLat),
	}, ",")
}

func formatCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}

	return s
}

// Cover enumerates all tiles covering the bbox for every zoom level in
// [minZoom, maxZoom], lowest zoom first. A zero-area bbox covers nothing.
func Cover(b BBox, minZoom, maxZoom int) []maptile.Tile {
	var tiles []maptile.Tile
	for z := minZoom; z <= maxZoom; z++ {
		tiles = append(tiles, CoverZoom(b, z)...)
	}

	return tiles
}

// CoverZoom enumerates the tiles covering the bbox at a single zoom level,
// walking the rectangle from the upper-left tile column by column.
func CoverZoom(b BBox, zoom int) []maptile.Tile {
	if b.MinLon >= b.MaxLon || b.MinLat >= b.MaxLat {
		return nil
	}

	z := maptile.Zoom(zoom)
	ul := maptile.At(orb.Point{b.MinLon, clampLat(b.MaxLat)}, z)
	lr := maptile.At(orb.Point{b.MaxLon - llEpsilon, clampLat(b.MinLat) + llEpsilon}, z)

	last := uint32(1<<uint(zoom)) - 1
	if lr.X > last {
		lr.X = last
	}
	if lr.Y > last {
		lr.Y = last
	}

	tiles := make([]maptile.Tile, 0, int(lr.X-ul.X+1)*int(lr.Y-ul.Y+1))
	for x := ul.X; x <= lr.X; x++ {
		for y := ul.Y; y <= lr.Y; y++ {
			tiles = append(tiles, maptile.New(x, y, z))
		}
	}

	return tiles
}

func clampLat(lat float64) float64 {
	if lat > maxMercatorLat {
		return maxMercatorLat
	}
	if lat < -maxMercatorLat {
		return -maxMercatorLat
	}

	return lat
}
