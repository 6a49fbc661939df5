package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/officialn8/ctatracks"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS datasets (
	dataset_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at_utc TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS raw_segments (
	dataset_id TEXT NOT NULL REFERENCES datasets(dataset_id) ON DELETE CASCADE,
	ordinal INTEGER NOT NULL,
	segment_id TEXT NOT NULL,
	corridor TEXT NOT NULL,
	is_loop INTEGER NOT NULL,
	lines TEXT NOT NULL,
	geom TEXT NOT NULL,
	PRIMARY KEY (dataset_id, ordinal)
);
`

// linesSeparator joins lines of a segment in a single column
const linesSeparator = "/"

// ErrDatasetNotFound is returned when there is no dataset with given ID
var ErrDatasetNotFound = errors.New("Dataset not found")

// Dataset is a stored snapshot of raw track segments
type Dataset struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	Segments  int
}

// SQLiteStore keeps raw segment datasets in SQLite database
type SQLiteStore struct {
	conn    *sql.DB
	writeMu sync.Mutex
}

// Open opens (or creates) SQLite database. Use ":memory:" for a throwaway store
func Open(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open database")
	}
	// SQLite allows a single writer; in-memory database also lives inside a single connection
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "Can't ping database")
	}
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "Can't enable foreign keys")
	}
	return &SQLiteStore{conn: conn}, nil
}

// Close closes the database connection
func (store *SQLiteStore) Close() error {
	return store.conn.Close()
}

// EnsureSchema creates tables if they don't exist
func (store *SQLiteStore) EnsureSchema(ctx context.Context) error {
	store.writeMu.Lock()
	defer store.writeMu.Unlock()
	_, err := store.conn.ExecContext(ctx, schemaSQL)
	if err != nil {
		return errors.Wrap(err, "Can't create schema")
	}
	return nil
}

// SaveDataset stores segments under a new dataset ID. Order of segments is preserved
func (store *SQLiteStore) SaveDataset(ctx context.Context, name string, segments []ctatracks.RawSegment) (uuid.UUID, error) {
	store.writeMu.Lock()
	defer store.writeMu.Unlock()

	tx, err := store.conn.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "Can't begin transaction")
	}
	defer tx.Rollback()

	datasetID := uuid.New()
	_, err = tx.ExecContext(ctx,
		"INSERT INTO datasets (dataset_id, name, created_at_utc) VALUES (?, ?, ?)",
		datasetID.String(), name, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "Can't insert dataset")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_segments (dataset_id, ordinal, segment_id, corridor, is_loop, lines, geom)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "Can't prepare segments statement")
	}
	defer stmt.Close()

	for i := range segments {
		segment := &segments[i]
		lines := make([]string, len(segment.Lines))
		for j, line := range segment.Lines {
			lines[j] = string(line)
		}
		geom := ""
		if len(segment.Geom) > 0 {
			geom = ctatracks.PrepareGeoJSONLinestring(segment.Geom)
		}
		isLoop := 0
		if segment.IsLoop {
			isLoop = 1
		}
		_, err = stmt.ExecContext(ctx, datasetID.String(), i, segment.SegmentID, segment.Corridor, isLoop, strings.Join(lines, linesSeparator), geom)
		if err != nil {
			return uuid.Nil, errors.Wrapf(err, "Can't insert segment '%s'", segment.SegmentID)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, errors.Wrap(err, "Can't commit dataset")
	}
	return datasetID, nil
}

// Datasets lists stored datasets, newest first
func (store *SQLiteStore) Datasets(ctx context.Context) ([]Dataset, error) {
	rows, err := store.conn.QueryContext(ctx, `
		SELECT d.dataset_id, d.name, d.created_at_utc, COUNT(s.ordinal)
		FROM datasets d
		LEFT JOIN raw_segments s ON s.dataset_id = d.dataset_id
		GROUP BY d.dataset_id, d.name, d.created_at_utc
		ORDER BY d.created_at_utc DESC, d.dataset_id`)
	if err != nil {
		return nil, errors.Wrap(err, "Can't query datasets")
	}
	defer rows.Close()

	datasets := []Dataset{}
	for rows.Next() {
		var idStr, createdAtStr string
		var dataset Dataset
		if err := rows.Scan(&idStr, &dataset.Name, &createdAtStr, &dataset.Segments); err != nil {
			return nil, errors.Wrap(err, "Can't scan dataset")
		}
		dataset.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, errors.Wrapf(err, "Bad dataset ID '%s'", idStr)
		}
		dataset.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
		if err != nil {
			return nil, errors.Wrapf(err, "Bad creation time of dataset '%s'", idStr)
		}
		datasets = append(datasets, dataset)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "Can't iterate datasets")
	}
	return datasets, nil
}

// LoadDataset returns segments of dataset in the order they were saved
func (store *SQLiteStore) LoadDataset(ctx context.Context, id uuid.UUID) ([]ctatracks.RawSegment, error) {
	var exists int
	err := store.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM datasets WHERE dataset_id = ?", id.String()).Scan(&exists)
	if err != nil {
		return nil, errors.Wrap(err, "Can't query dataset")
	}
	if exists == 0 {
		return nil, errors.Wrapf(ErrDatasetNotFound, "ID '%s'", id)
	}

	rows, err := store.conn.QueryContext(ctx, `
		SELECT segment_id, corridor, is_loop, lines, geom
		FROM raw_segments
		WHERE dataset_id = ?
		ORDER BY ordinal`, id.String())
	if err != nil {
		return nil, errors.Wrap(err, "Can't query segments")
	}
	defer rows.Close()

	segments := []ctatracks.RawSegment{}
	for rows.Next() {
		var segment ctatracks.RawSegment
		var isLoop int
		var lines, geom string
		if err := rows.Scan(&segment.SegmentID, &segment.Corridor, &isLoop, &lines, &geom); err != nil {
			return nil, errors.Wrap(err, "Can't scan segment")
		}
		segment.IsLoop = isLoop != 0
		segment.Lines = splitLines(lines)
		segment.Geom, err = parseGeom(geom)
		if err != nil {
			return nil, errors.Wrapf(err, "Bad geometry of segment '%s'", segment.SegmentID)
		}
		segments = append(segments, segment)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "Can't iterate segments")
	}
	return segments, nil
}

// Source returns SegmentSource reading given dataset
func (store *SQLiteStore) Source(id uuid.UUID) ctatracks.SegmentSource {
	return datasetSource{store: store, id: id}
}

type datasetSource struct {
	store *SQLiteStore
	id    uuid.UUID
}

func (source datasetSource) LoadSegments(ctx context.Context) ([]ctatracks.RawSegment, error) {
	return source.store.LoadDataset(ctx, source.id)
}

func splitLines(s string) []ctatracks.Line {
	lines := []ctatracks.Line{}
	if s == "" {
		return lines
	}
	for _, part := range strings.Split(s, linesSeparator) {
		lines = append(lines, ctatracks.Line(part))
	}
	return lines
}

func parseGeom(s string) (orb.LineString, error) {
	if s == "" {
		return orb.LineString{}, nil
	}
	geometry, err := geojson.UnmarshalGeometry([]byte(s))
	if err != nil {
		return nil, err
	}
	if geometry.Type != geojson.GeometryLineString {
		return nil, fmt.Errorf("Geometry type '%s' is not handled", geometry.Type)
	}
	line := make(orb.LineString, len(geometry.LineString))
	for i, coord := range geometry.LineString {
		if len(coord) < 2 {
			return nil, fmt.Errorf("Coordinate #%d has %d dimension(s)", i, len(coord))
		}
		line[i] = orb.Point{coord[0], coord[1]}
	}
	return line, nil
}
