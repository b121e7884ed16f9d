package tilegrid

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/require"
)

func TestCoverZoom(t *testing.T) {
	tests := []struct {
		name string
		bbox BBox
		zoom int
		want []maptile.Tile
	}{
		{
			name: "paris area zoom 7",
			bbox: BBox{MinLon: 2.0, MinLat: 48.0, MaxLon: 2.5, MaxLat: 48.5},
			zoom: 7,
			want: []maptile.Tile{maptile.New(64, 44, 7)},
		},
		{
			name: "paris area zoom 8",
			bbox: BBox{MinLon: 2.0, MinLat: 48.0, MaxLon: 2.5, MaxLat: 48.5},
			zoom: 8,
			want: []maptile.Tile{maptile.New(129, 88, 8)},
		},
		{
			name: "world zoom 0",
			bbox: BBox{MinLon: -180, MinLat: -85, MaxLon: 180, MaxLat: 85},
			zoom: 0,
			want: []maptile.Tile{maptile.New(0, 0, 0)},
		},
		{
			name: "world zoom 1",
			bbox: BBox{MinLon: -180, MinLat: -85, MaxLon: 180, MaxLat: 85},
			zoom: 1,
			want: []maptile.Tile{
				maptile.New(0, 0, 1),
				maptile.New(0, 1, 1),
				maptile.New(1, 0, 1),
				maptile.New(1, 1, 1),
			},
		},
		{
			name: "degenerate bbox covers nothing",
			bbox: BBox{MinLon: 2.0, MinLat: 48.0, MaxLon: 2.0, MaxLat: 48.0},
			zoom: 7,
			want: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CoverZoom(tc.bbox, tc.zoom)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("CoverZoom() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCoverZoomRange(t *testing.T) {
	bbox := BBox{MinLon: 2.0, MinLat: 48.0, MaxLon: 2.5, MaxLat: 48.5}

	tiles := Cover(bbox, 7, 8)
	require.Len(t, tiles, 2)
	require.Equal(t, maptile.Zoom(7), tiles[0].Z)
	require.Equal(t, maptile.Zoom(8), tiles[1].Z)

	// a tile set is a set: no address may appear twice
	seen := make(map[maptile.Tile]bool)
	for _, tile := range Cover(bbox, 5, 10) {
		require.False(t, seen[tile], "duplicate tile %v", tile)
		seen[tile] = true
	}
}

func TestBBoxValidate(t *testing.T) {
	tests := []struct {
		name    string
		bbox    BBox
		wantErr bool
	}{
		{"valid", BBox{2.0, 48.0, 2.5, 48.5}, false},
		{"degenerate is valid", BBox{2.0, 48.0, 2.0, 48.0}, false},
		{"inverted longitude", BBox{2.5, 48.0, 2.0, 48.5}, true},
		{"inverted latitude", BBox{2.0, 48.5, 2.5, 48.0}, true},
		{"longitude out of range", BBox{-190, 48.0, 2.5, 48.5}, true},
		{"latitude out of range", BBox{2.0, 48.0, 2.5, 95}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.bbox.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestBBoxString(t *testing.T) {
	require.Equal(t, "2.0,48.0,2.5,48.5", BBox{2.0, 48.0, 2.5, 48.5}.String())
	require.Equal(t, "-157.9,21.25,-157.6,21.5", BBox{-157.9, 21.25, -157.6, 21.5}.String())
}
