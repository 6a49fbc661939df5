package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/officialn8/ctatracks"
	"github.com/officialn8/ctatracks/internal/config"
	"github.com/officialn8/ctatracks/internal/logger"
	"github.com/officialn8/ctatracks/store"
)

var (
	configPath = flag.String("config", "", "Path to YAML configuration. Falls back to CTATRACKS_CONFIG")
	inFileName = flag.String("file", "cta_segments.geojson", "Input: GeoJSON with raw segments (*.geojson, *.json), GTFS feed (*.zip), OSM extract (*.osm, *.xml, *.pbf) or SQLite store (*.db, *.sqlite)")
	datasetID  = flag.String("dataset", "", "Dataset ID when input is SQLite store. Newest dataset is used when empty")
	saveDB     = flag.String("save-db", "", "Save raw segments into given SQLite store")
	out        = flag.String("out", "cta_tracks.geojson", "Output file: *.geojson or *.csv. E.g.: if file name is 'tracks.csv' and -graph is set then 'tracks_vertices.csv' and 'tracks_shortcuts.csv' are produced too")
	geomFormat = flag.String("geomf", "wkt", "Format of CSV geometry. Expected values: wkt / geojson")
	linesStr   = flag.String("lines", "", "Enabled lines (separated by commas). Overrides config; all lines when empty")
	stitchAll  = flag.Bool("stitch-all", false, "Stitch every segment, not only the Loop ones")
	rawOnly    = flag.Bool("raw", false, "Write raw (not exploded) segments and exit")
	withColor  = flag.Bool("color", true, "Add 'color' property to output features")
	offsetMPP  = flag.Float64("offset-mpp", 0, "Materialize paint offsets using given meters per pixel. Zero keeps original geometry")
	withGraph  = flag.Bool("graph", false, "Build track graph and export its vertices and shortcuts")
	fromStr    = flag.String("from", "", "Route source 'lon,lat' (requires -graph)")
	toStr      = flag.String("to", "", "Route target 'lon,lat' (requires -graph)")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg)

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st := time.Now()
	segments, err := loadSegments(ctx, *inFileName, log)
	if err != nil {
		return errors.Wrap(err, "Can't load raw segments")
	}
	log.Info().Int("segments", len(segments)).Dur("elapsed", time.Since(st)).Str("file", *inFileName).Msg("Raw segments loaded")

	if *saveDB != "" {
		id, err := saveSegments(ctx, *saveDB, filepath.Base(*inFileName), segments)
		if err != nil {
			return errors.Wrap(err, "Can't save raw segments")
		}
		log.Info().Str("dataset", id.String()).Str("db", *saveDB).Msg("Raw segments saved")
	}

	fnamePart := strings.TrimSuffix(*out, filepath.Ext(*out))
	if *rawOnly {
		err = writeRaw(*out, segments)
		if err != nil {
			return errors.Wrap(err, "Can't write raw segments")
		}
		log.Info().Str("out", *out).Msg("Raw segments written")
		return nil
	}

	filter := cfg.LineFilter()
	processor := ctatracks.NewProcessor(append(cfg.ProcessorOptions(), ctatracks.WithLogger(log))...)
	log.Debug().Msg(processor.String())

	st = time.Now()
	stitched, diag := processor.Process(segments, filter)
	log.Info().Int("features", len(stitched)).Int("malformed", len(diag.SkippedMalformed)).Dur("elapsed", time.Since(st)).Msg("Segments exploded and stitched")

	if *offsetMPP > 0 {
		for i := range stitched {
			stitched[i].Geom = ctatracks.OffsetGeometry(stitched[i].Geom, stitched[i].OffsetPx, *offsetMPP)
		}
	}
	err = writeStitched(*out, stitched, cfg.ColorProperty)
	if err != nil {
		return errors.Wrap(err, "Can't write stitched segments")
	}
	log.Info().Str("out", *out).Msg("Stitched segments written")

	if !*withGraph {
		return nil
	}
	st = time.Now()
	graph, err := ctatracks.NewTrackGraph(segments, filter)
	if err != nil {
		return errors.Wrap(err, "Can't build track graph")
	}
	log.Info().Int("vertices", graph.VerticesNum()).Dur("elapsed", time.Since(st)).Msg("Track graph contracted")
	err = graph.ExportVerticesToCSV(fnamePart+"_vertices.csv", *geomFormat)
	if err != nil {
		return err
	}
	err = graph.ExportShortcutsToFile(fnamePart + "_shortcuts.csv")
	if err != nil {
		return err
	}
	if *fromStr == "" || *toStr == "" {
		return nil
	}
	from, err := parsePoint(*fromStr)
	if err != nil {
		return errors.Wrap(err, "Bad -from")
	}
	to, err := parsePoint(*toStr)
	if err != nil {
		return errors.Wrap(err, "Bad -to")
	}
	meters, route, err := graph.ShortestPath(from, to)
	if err != nil {
		return err
	}
	fmt.Printf("%.1f m\n%s\n", meters, ctatracks.PrepareWKTLinestring(route))
	return nil
}

// applyFlags overrides configuration with explicitly set flags
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lines":
			cfg.ActiveLines = []string{}
			for _, name := range strings.Split(*linesStr, ",") {
				if strings.TrimSpace(name) != "" {
					cfg.ActiveLines = append(cfg.ActiveLines, strings.TrimSpace(name))
				}
			}
		case "stitch-all":
			cfg.StitchOnlyLoop = !*stitchAll
		case "color":
			cfg.ColorProperty = *withColor
		}
	})
}

func loadSegments(ctx context.Context, fname string, log zerolog.Logger) ([]ctatracks.RawSegment, error) {
	ext := strings.ToLower(filepath.Ext(fname))
	switch ext {
	case ".geojson", ".json":
		return ctatracks.GeoJSONFileSource{Path: fname}.LoadSegments(ctx)
	case ".zip":
		shapes, err := ctatracks.ReadGTFSShapes(fname)
		if err != nil {
			return nil, err
		}
		return buildSegments(shapes, log), nil
	case ".osm", ".xml", ".pbf":
		shapes, err := ctatracks.ReadOSMShapes(fname)
		if err != nil {
			return nil, err
		}
		return buildSegments(shapes, log), nil
	case ".db", ".sqlite":
		db, err := store.Open(fname)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		id, err := pickDataset(ctx, db)
		if err != nil {
			return nil, err
		}
		log.Info().Str("dataset", id.String()).Msg("Using stored dataset")
		return db.Source(id).LoadSegments(ctx)
	}
	return nil, fmt.Errorf("File extension '%s' for file '%s' is not handled yet", ext, fname)
}

func buildSegments(shapes []ctatracks.Shape, log zerolog.Logger) []ctatracks.RawSegment {
	segments, stats := ctatracks.BuildSegments(shapes)
	log.Info().Str("stats", stats.String()).Msg("Segments built from shapes")
	if stats.LongSegments > 0 {
		log.Warn().Int("long_segments", stats.LongSegments).Msg("Some point pairs are suspiciously long")
	}
	return segments
}

func pickDataset(ctx context.Context, db *store.SQLiteStore) (uuid.UUID, error) {
	if *datasetID != "" {
		return uuid.Parse(*datasetID)
	}
	datasets, err := db.Datasets(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if len(datasets) == 0 {
		return uuid.Nil, fmt.Errorf("There are no datasets in store")
	}
	return datasets[0].ID, nil
}

func saveSegments(ctx context.Context, fname, name string, segments []ctatracks.RawSegment) (uuid.UUID, error) {
	db, err := store.Open(fname)
	if err != nil {
		return uuid.Nil, err
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		return uuid.Nil, err
	}
	return db.SaveDataset(ctx, name, segments)
}

func writeRaw(fname string, segments []ctatracks.RawSegment) error {
	if strings.ToLower(filepath.Ext(fname)) == ".csv" {
		return ctatracks.ExportRawToCSV(fname, segments, *geomFormat)
	}
	return ctatracks.WriteFeatureCollectionFile(fname, ctatracks.RawSegmentsToFeatureCollection(segments))
}

func writeStitched(fname string, segments []ctatracks.StitchedSegment, color bool) error {
	if strings.ToLower(filepath.Ext(fname)) == ".csv" {
		return ctatracks.ExportStitchedToCSV(fname, segments, *geomFormat)
	}
	return ctatracks.WriteFeatureCollectionFile(fname, ctatracks.StitchedToFeatureCollection(segments, color))
}

func parsePoint(s string) (orb.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return orb.Point{}, fmt.Errorf("Expected 'lon,lat', got '%s'", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return orb.Point{}, err
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return orb.Point{}, err
	}
	return orb.Point{lon, lat}, nil
}
