// Package mbtiles writes and reads MBTiles archives, SQLite files holding a
// metadata table and a tiles table keyed by zoom/column/row.
package mbtiles

import (
	"database/sql"
	"fmt"
	"time"

	log "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	_ "modernc.org/sqlite"

	"github.com/akhenakh/ofmtiles/tilegrid"
)

const (
	// DefaultTileSize is the pixel size of the tiles served by the
	// OpenFlightMaps tile API.
	DefaultTileSize = 512

	// DefaultCommitEvery is how many tile inserts are grouped per
	// transaction, so an interrupted run still leaves a readable archive.
	DefaultCommitEvery = 64
)

// TMSRow converts an XYZ tile row (row 0 at the north edge) to the TMS row
// stored in the tiles table (row 0 at the south edge). It is its own inverse
// and the only place the flip happens.
func TMSRow(zoom, y int) int {
	return (1<<uint(zoom) - 1) - y
}

// Metadata describes the archive, written as rows of the metadata table.
type Metadata struct {
	Name     string
	Format   string
	Type     string
	Version  string
	Bounds   tilegrid.BBox
	MinZoom  int
	MaxZoom  int
	TileSize int
}

// NewMetadata returns archive metadata with the defaults this tool produces.
func NewMetadata(bounds tilegrid.BBox, minZoom, maxZoom int) Metadata {
	return Metadata{
		Name:     "Custom Area Tiles",
		Format:   "png",
		Type:     "baselayer",
		Version:  "1.0",
		Bounds:   bounds,
		MinZoom:  minZoom,
		MaxZoom:  maxZoom,
		TileSize: DefaultTileSize,
	}
}

func (m Metadata) rows() [][2]string {
	return [][2]string{
		{"name", m.Name},
		{"format", m.Format},
		{"type", m.Type},
		{"version", m.Version},
		{"bounds", m.Bounds.String()},
		{"minzoom", fmt.Sprintf("%d", m.MinZoom)},
		{"maxzoom", fmt.Sprintf("%d", m.MaxZoom)},
		{"tile_size", fmt.Sprintf("%d", m.TileSize)},
	}
}

// Filename builds the archive file name from the region prefix, the cycle
// identifier and the zoom range. A zero ts leaves the timestamp out.
func Filename(prefix, cycle string, minZoom, maxZoom int, ts time.Time) string {
	if prefix == "" {
		prefix = "area"
	}
	name := fmt.Sprintf("%s_%s_zoom%d-%d", prefix, cycle, minZoom, maxZoom)
	if !ts.IsZero() {
		name += "_" + ts.UTC().Format("20060102T150405")
	}

	return name + ".mbtiles"
}

// Writer owns the archive file for the duration of a run. Tiles are inserted
// inside a transaction committed every commitEvery inserts and on Close.
type Writer struct {
	db          *sql.DB
	tx          *sql.Tx
	pending     int
	commitEvery int
	logger      log.Logger
}

// Create opens or creates the archive at path, creates the schema if absent
// and rewrites the metadata rows for this run. commitEvery <= 0 selects
// DefaultCommitEvery.
func Create(path string, meta Metadata, commitEvery int, logger log.Logger) (*Writer, error) {
	if commitEvery <= 0 {
		commitEvery = DefaultCommitEvery
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("can't open mbtiles sqlite at %s: %w", path, err)
	}

	if err := createSchema(db, meta); err != nil {
		db.Close()

		return nil, err
	}

	tx, err := db.Begin()
	if err != nil {
		db.Close()

		return nil, fmt.Errorf("can't begin tiles transaction: %w", err)
	}

	return &Writer{
		db:          db,
		tx:          tx,
		commitEvery: commitEvery,
		logger:      log.With(logger, "component", "mbtiles"),
	}, nil
}

func createSchema(db *sql.DB, meta Metadata) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("can't begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		"CREATE TABLE IF NOT EXISTS metadata (name TEXT, value TEXT);",
		`CREATE TABLE IF NOT EXISTS tiles (
			zoom_level INTEGER,
			tile_column INTEGER,
			tile_row INTEGER,
			tile_data BLOB
		);`,
		"CREATE UNIQUE INDEX IF NOT EXISTS tile_index ON tiles (zoom_level, tile_column, tile_row);",
		"DELETE FROM metadata;",
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("can't create mbtiles schema: %w", err)
		}
	}

	for _, row := range meta.rows() {
		if _, err := tx.Exec(
			"INSERT INTO metadata (name, value) VALUES (?, ?)", row[0], row[1],
		); err != nil {
			return fmt.Errorf("can't write metadata %s: %w", row[0], err)
		}
	}

	return tx.Commit()
}

// InsertTile stores one tile blob. row is the TMS row, already converted via
// TMSRow by the caller. A duplicate (zoom, x, row) key fails on the unique
// index; such an error is fatal to the run.
func (w *Writer) InsertTile(zoom, x, row int, data []byte) error {
	if _, err := w.tx.Exec(
		"INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)",
		zoom, x, row, data,
	); err != nil {
		return fmt.Errorf("can't insert tile %d/%d/%d: %w", zoom, x, row, err)
	}

	w.pending++
	if w.pending >= w.commitEvery {
		if err := w.commit(); err != nil {
			return err
		}
	}

	return nil
}

func (w *Writer) commit() error {
	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("can't commit tiles: %w", err)
	}
	level.Debug(w.logger).Log("msg", "committed tiles", "count", w.pending)
	w.pending = 0

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("can't begin tiles transaction: %w", err)
	}
	w.tx = tx

	return nil
}

// Close commits pending tiles and releases the file. Safe to call on an
// archive with zero inserted tiles.
func (w *Writer) Close() error {
	if err := w.tx.Commit(); err != nil {
		w.db.Close()

		return fmt.Errorf("can't commit tiles: %w", err)
	}

	return w.db.Close()
}
