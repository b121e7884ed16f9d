package mbtiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	log "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// ErrTileNotFound is returned when the archive holds no tile at the address.
var ErrTileNotFound = errors.New("mbtiles: tile not found")

// Reader serves tiles out of a finished archive.
type Reader struct {
	db     *sql.DB
	logger log.Logger
}

// Open returns a read side on an existing archive.
func Open(path string, logger log.Logger) (*Reader, func() error, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("can't open mbtiles sqlite at %s: %w", path, err)
	}

	r := &Reader{
		db:     db,
		logger: log.With(logger, "component", "mbtiles"),
	}

	return r, db.Close, nil
}

// ReadTileData returns the blob for an XYZ tile address, flipping the row to
// the archive's TMS convention.
func (r *Reader) ReadTileData(ctx context.Context, zoom, x, y int) ([]byte, error) {
	row := TMSRow(zoom, y)
	level.Debug(r.logger).Log("msg", "read tile", "z", zoom, "x", x, "tms_row", row)

	var data []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?",
		zoom, x, row,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrTileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't read tile %d/%d/%d: %w", zoom, x, y, err)
	}

	return data, nil
}

// Metadata returns the archive metadata rows.
func (r *Reader) Metadata(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name, value FROM metadata")
	if err != nil {
		return nil, fmt.Errorf("can't read metadata: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("can't scan metadata row: %w", err)
		}
		meta[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't read metadata: %w", err)
	}

	return meta, nil
}

// TileCount returns the number of tiles stored in the archive.
func (r *Reader) TileCount(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tiles").Scan(&n); err != nil {
		return 0, fmt.Errorf("can't count tiles: %w", err)
	}

	return n, nil
}
