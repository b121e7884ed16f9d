package regions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akhenakh/ofmtiles/tilegrid"
)

const testConfig = `[
  {"oaci_prefix": "LF", "bbox": [-5.0, 41.0, 10.0, 51.5], "zoom": [7, 12]},
  {"oaci_prefix": "ED", "bbox": [5.5, 47.0, 15.5, 55.5], "zoom": [7, 11]},
  {"oaci_prefix": "LF", "bbox": [-5.0, 41.0, 10.0, 51.5], "zoom": [7, 12]}
]`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pipeline-config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	regions, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)
	require.Len(t, regions, 3)

	lf := regions[0]
	require.Equal(t, "LF", lf.Prefix)
	require.Equal(t, tilegrid.BBox{MinLon: -5.0, MinLat: 41.0, MaxLon: 10.0, MaxLat: 51.5}, lf.Bounds())
	require.Equal(t, 7, lf.MinZoom())
	require.Equal(t, 12, lf.MaxZoom())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "not json"))
	require.Error(t, err)
}

func TestFind(t *testing.T) {
	regions, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	ed, err := Find(regions, "ED")
	require.NoError(t, err)
	require.Equal(t, 11, ed.MaxZoom())

	_, err = Find(regions, "KX")
	require.Error(t, err)
}

func TestNames(t *testing.T) {
	regions, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	require.Equal(t, []string{"ED", "LF"}, Names(regions))
}
