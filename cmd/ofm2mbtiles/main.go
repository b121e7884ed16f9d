package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/namsral/flag"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/akhenakh/ofmtiles/airac"
	"github.com/akhenakh/ofmtiles/fetcher"
	"github.com/akhenakh/ofmtiles/loglevel"
	"github.com/akhenakh/ofmtiles/mbtiles"
	"github.com/akhenakh/ofmtiles/regions"
	"github.com/akhenakh/ofmtiles/tilegrid"
)

const appName = "ofm2mbtiles"

var (
	version = "no version from LDFLAGS"

	logLevel = flag.String("logLevel", "INFO", "DEBUG|INFO|WARN|ERROR")

	bboxFlag   = flag.String("bbox", "", "bounding box minLon,minLat,maxLon,maxLat")
	minZoom    = flag.Int("minZoom", 7, "min zoom level")
	maxZoom    = flag.Int("maxZoom", 12, "max zoom level")
	airacCycle = flag.String("airac", "latest", `AIRAC cycle number, "latest", or "current" to compute the active cycle`)
	oaciPrefix = flag.String("oaciPrefix", "", "region prefix used in the archive file name")

	regionsPath = flag.String("regionsConfig", "", "regions registry JSON path")
	regionName  = flag.String("region", "", "region prefix to load from the registry instead of -bbox")

	outDir        = flag.String("outDir", "mbtiles", "output directory")
	tilesURL      = flag.String("tilesURL", fetcher.DefaultBaseURL, "tile server base URL")
	concurrency   = flag.Int("concurrency", 10, "maximum parallel tile fetches")
	retryLimit    = flag.Int("retryLimit", 3, "attempts per tile")
	commitEvery   = flag.Int("commitEvery", mbtiles.DefaultCommitEvery, "tile inserts per transaction")
	showProgress  = flag.Bool("progress", false, "show a progress bar during downloads")
	withTimestamp = flag.Bool("timestamp", false, "append a timestamp to the archive file name")

	publishURL = flag.String("publishURL", "", "blob bucket URL to publish the archive to, e.g. s3://bucket/charts")
)

func main() {
	flag.Parse()

	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger, "caller", log.Caller(5), "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "app", appName)
	logger = loglevel.NewLevelFilterFromString(logger, *logLevel)

	level.Info(logger).Log("msg", "starting tile download", "version", version)

	cfg, err := configure()
	if err != nil {
		level.Error(logger).Log("msg", "invalid arguments", "error", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	path, err := buildArchive(ctx, cfg, logger)
	if err != nil {
		level.Error(logger).Log("msg", "can't build archive", "error", err)
		os.Exit(2)
	}

	if *publishURL != "" {
		if err := publishArchive(context.Background(), path, *publishURL, logger); err != nil {
			level.Error(logger).Log("msg", "can't publish archive", "error", err)
			os.Exit(2)
		}
	}
}

// configure resolves flags into a build configuration, failing fast on
// invalid input before any network activity.
func configure() (buildConfig, error) {
	cfg := buildConfig{
		MinZoom:     *minZoom,
		MaxZoom:     *maxZoom,
		Cycle:       *airacCycle,
		Prefix:      *oaciPrefix,
		OutDir:      *outDir,
		BaseURL:     *tilesURL,
		Concurrency: *concurrency,
		RetryLimit:  *retryLimit,
		CommitEvery: *commitEvery,
		Progress:    *showProgress,
	}

	switch {
	case *regionName != "":
		if *regionsPath == "" {
			return cfg, fmt.Errorf("-region requires -regionsConfig")
		}
		rs, err := regions.Load(*regionsPath)
		if err != nil {
			return cfg, err
		}
		region, err := regions.Find(rs, *regionName)
		if err != nil {
			return cfg, err
		}
		cfg.BBox = region.Bounds()
		cfg.MinZoom = region.MinZoom()
		cfg.MaxZoom = region.MaxZoom()
		if cfg.Prefix == "" {
			cfg.Prefix = region.Prefix
		}
	case *bboxFlag != "":
		bbox, err := parseBBox(*bboxFlag)
		if err != nil {
			return cfg, err
		}
		cfg.BBox = bbox
	default:
		return cfg, fmt.Errorf("either -bbox or -region is required")
	}

	if err := cfg.BBox.Validate(); err != nil {
		return cfg, err
	}
	if cfg.MinZoom < 0 || cfg.MinZoom > cfg.MaxZoom || cfg.MaxZoom > 22 {
		return cfg, fmt.Errorf("invalid zoom range %d-%d", cfg.MinZoom, cfg.MaxZoom)
	}

	if cfg.Cycle == "current" {
		cfg.Cycle = airac.Current(time.Now()).Code
	}

	if *withTimestamp {
		cfg.Timestamp = time.Now()
	}

	return cfg, nil
}

func parseBBox(s string) (tilegrid.BBox, error) {
	var b tilegrid.BBox
	n, err := fmt.Sscanf(s, "%f,%f,%f,%f", &b.MinLon, &b.MinLat, &b.MaxLon, &b.MaxLat)
	if err != nil || n != 4 {
		return b, fmt.Errorf("invalid bbox %q, want minLon,minLat,maxLon,maxLat", s)
	}

	return b, nil
}
