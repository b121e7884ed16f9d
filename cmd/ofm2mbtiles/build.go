package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/paulmach/orb/maptile"
	"github.com/schollz/progressbar/v3"

	"github.com/akhenakh/ofmtiles/fetcher"
	"github.com/akhenakh/ofmtiles/mbtiles"
	"github.com/akhenakh/ofmtiles/tilegrid"
)

type buildConfig struct {
	BBox        tilegrid.BBox
	MinZoom     int
	MaxZoom     int
	Cycle       string
	Prefix      string
	OutDir      string
	BaseURL     string
	Concurrency int
	RetryLimit  int
	CommitEvery int
	Progress    bool
	Timestamp   time.Time
}

// buildArchive enumerates the tile set, fetches it and writes the archive,
// returning the archive path. Cancelling ctx stops the fetches but still
// finalizes the archive with everything inserted so far.
func buildArchive(ctx context.Context, cfg buildConfig, logger log.Logger) (string, error) {
	tileSet := enumerate(cfg, logger)

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return "", fmt.Errorf("can't create output directory: %w", err)
	}
	path := filepath.Join(cfg.OutDir, mbtiles.Filename(cfg.Prefix, cfg.Cycle, cfg.MinZoom, cfg.MaxZoom, cfg.Timestamp))

	w, err := mbtiles.Create(path, mbtiles.NewMetadata(cfg.BBox, cfg.MinZoom, cfg.MaxZoom), cfg.CommitEvery, logger)
	if err != nil {
		return "", err
	}

	opts := fetcher.DefaultOptions()
	opts.Concurrency = cfg.Concurrency
	opts.RetryLimit = cfg.RetryLimit
	if cfg.Progress {
		opts.Progress = progressbar.NewOptions(len(tileSet),
			progressbar.OptionSetDescription("downloading tiles"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
	}

	client := fetcher.New(cfg.BaseURL, cfg.Cycle, logger, opts)

	// the writer is the single consumer of the completion-order stream; a
	// store error is fatal, so cancel the in-flight fetches and drain
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	inserted := 0
	var insertErr error
	for res := range client.FetchAll(fetchCtx, tileSet) {
		if insertErr != nil {
			continue
		}

		z, x, y := int(res.Tile.Z), int(res.Tile.X), int(res.Tile.Y)
		if err := w.InsertTile(z, x, mbtiles.TMSRow(z, y), res.Data); err != nil {
			insertErr = err
			cancel()

			continue
		}
		inserted++
	}

	if insertErr != nil {
		w.Close()

		return "", insertErr
	}

	if err := w.Close(); err != nil {
		return "", err
	}

	level.Info(logger).Log(
		"msg", "archive created",
		"path", path,
		"tiles", inserted,
		"requested", len(tileSet),
	)

	return path, nil
}

// enumerate lists the tiles covering the bbox for every requested zoom.
func enumerate(cfg buildConfig, logger log.Logger) []maptile.Tile {
	var tiles []maptile.Tile
	for z := cfg.MinZoom; z <= cfg.MaxZoom; z++ {
		zoomTiles := tilegrid.CoverZoom(cfg.BBox, z)
		level.Info(logger).Log("msg", "enumerated zoom level", "zoom", z, "tiles", len(zoomTiles))
		tiles = append(tiles, zoomTiles...)
	}

	return tiles
}
