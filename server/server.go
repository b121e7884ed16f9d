// Package server exposes a finished MBTiles archive over HTTP so a generated
// map can be inspected before it ships.
package server

import (
	"context"
	"fmt"

	log "github.com/go-kit/log"
	"google.golang.org/grpc/health"

	"github.com/akhenakh/ofmtiles/mbtiles"
)

// Server serves tiles and metadata out of one archive.
type Server struct {
	appName      string
	tilesKey     string
	reader       *mbtiles.Reader
	meta         map[string]string
	logger       log.Logger
	healthServer *health.Server
}

// New returns a Server reading from an opened archive. tilesKey, when not
// empty, is required as the key query parameter on tile requests.
func New(appName, tilesKey string, reader *mbtiles.Reader,
	logger log.Logger, healthServer *health.Server) (*Server, error) {
	logger = log.With(logger, "component", "server")

	meta, err := reader.Metadata(context.Background())
	if err != nil {
		return nil, fmt.Errorf("can't read archive metadata: %w", err)
	}

	s := &Server{
		appName:      appName,
		tilesKey:     tilesKey,
		reader:       reader,
		meta:         meta,
		logger:       logger,
		healthServer: healthServer,
	}

	return s, nil
}

// Metadata returns the archive metadata rows loaded at startup.
func (s *Server) Metadata() map[string]string {
	return s.meta
}
