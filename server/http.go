package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"

	"github.com/akhenakh/ofmtiles/mbtiles"
)

var contentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"webp": "image/webp",
	"pbf":  "application/x-protobuf",
}

// ServeHTTP serves the archive tiles for URL such as /tiles/7/64/44.png
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	logger := log.With(s.logger, "component", "tile_server")
	vars := mux.Vars(req)

	z, _ := strconv.Atoi(vars["z"])
	x, _ := strconv.Atoi(vars["x"])
	y, _ := strconv.Atoi(vars["y"])

	q := req.URL.Query()
	if s.tilesKey != "" {
		k := q.Get("key")
		if k != s.tilesKey {
			level.Debug(logger).Log("err", "unauthorized tile request")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

			return
		}
	}

	data, err := s.reader.ReadTileData(req.Context(), z, x, y)
	if err != nil {
		if errors.Is(err, mbtiles.ErrTileNotFound) {
			level.Debug(logger).Log(
				"err", "tile not found",
				"z", z,
				"x", x,
				"y", y,
			)

			http.NotFound(w, req)

			return
		}
		level.Error(logger).Log(
			"err", err.Error(),
			"z", z,
			"x", x,
			"y", y,
		)

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	ctype := contentTypes[s.meta["format"]]
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	_, _ = w.Write(data)
}

// TilesHandler serves the archive tiles at /tiles/7/64/44.png
func (s *Server) TilesHandler(w http.ResponseWriter, req *http.Request) {
	s.ServeHTTP(w, req)
}

// MetadataHandler returns the archive metadata as JSON.
func (s *Server) MetadataHandler(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	b, _ := json.Marshal(s.meta)
	_, _ = w.Write(b)
}

// HealthHandler checks the archive is still readable.
func (s *Server) HealthHandler(w http.ResponseWriter, req *http.Request) {
	if _, err := s.reader.TileCount(req.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)

		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
