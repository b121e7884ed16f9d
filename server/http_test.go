package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	log "github.com/go-kit/log"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/akhenakh/ofmtiles/mbtiles"
	"github.com/akhenakh/ofmtiles/tilegrid"
)

func setup(t *testing.T, tilesKey string) *httptest.Server {
	t.Helper()

	logger := log.NewNopLogger()
	path := filepath.Join(t.TempDir(), "test.mbtiles")

	meta := mbtiles.NewMetadata(tilegrid.BBox{MinLon: 2.0, MinLat: 48.0, MaxLon: 2.5, MaxLat: 48.5}, 7, 7)
	w, err := mbtiles.Create(path, meta, 0, logger)
	require.NoError(t, err)
	require.NoError(t, w.InsertTile(7, 64, mbtiles.TMSRow(7, 44), []byte("png-bytes")))
	require.NoError(t, w.Close())

	reader, clean, err := mbtiles.Open(path, logger)
	require.NoError(t, err)
	t.Cleanup(func() { clean() })

	s, err := New("ofmtilesd-test", tilesKey, reader, logger, nil)
	require.NoError(t, err)

	r := mux.NewRouter()
	r.Handle("/tiles/{z:[0-9]+}/{x:[0-9]+}/{y:[0-9]+}.png", s)
	r.HandleFunc("/metadata", s.MetadataHandler)
	r.HandleFunc("/healthz", s.HealthHandler)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return ts
}

func TestTiles(t *testing.T) {
	ts := setup(t, "")

	resp, err := http.Get(ts.URL + "/tiles/7/64/44.png")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, []byte("png-bytes"), body)

	resp, err = http.Get(ts.URL + "/tiles/7/64/45.png")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTilesKey(t *testing.T) {
	ts := setup(t, "sekret")

	resp, err := http.Get(ts.URL + "/tiles/7/64/44.png")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/tiles/7/64/44.png?key=sekret")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetadataHandler(t *testing.T) {
	ts := setup(t, "")

	resp, err := http.Get(ts.URL + "/metadata")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var meta map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&meta))
	require.Equal(t, "2.0,48.0,2.5,48.5", meta["bounds"])
	require.Equal(t, "png", meta["format"])
}

func TestHealthHandler(t *testing.T) {
	ts := setup(t, "")

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
