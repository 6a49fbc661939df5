package store

import (
	"context"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"github.com/officialn8/ctatracks"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatal(err)
	}
	return store
}

func sampleSegments() []ctatracks.RawSegment {
	return []ctatracks.RawSegment{
		{SegmentID: "seg_0001", Corridor: "Loop", IsLoop: true, Lines: []ctatracks.Line{ctatracks.LineBrown, ctatracks.LineOrange, ctatracks.LinePink}, Geom: orb.LineString{{-87.634, 41.886}, {-87.626, 41.886}}},
		{SegmentID: "seg_0000", Corridor: "Red", Lines: []ctatracks.Line{ctatracks.LineRed}, Geom: orb.LineString{{-87.66, 42.01}, {-87.66, 42.0}, {-87.65, 41.99}}},
		{SegmentID: "seg_0002", Corridor: "Unknown", Lines: []ctatracks.Line{}, Geom: orb.LineString{}},
	}
}

func TestSaveLoadDataset(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	segments := sampleSegments()
	id, err := store.SaveDataset(ctx, "sample", segments)
	if err != nil {
		t.Error(err)
		return
	}
	if id == uuid.Nil {
		t.Errorf("Dataset ID should not be empty")
	}

	loaded, err := store.Source(id).LoadSegments(ctx)
	if err != nil {
		t.Error(err)
		return
	}
	if !reflect.DeepEqual(loaded, segments) {
		t.Errorf("Loaded segments should be %v, but got %v", segments, loaded)
	}
}

func TestDatasets(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	datasets, err := store.Datasets(ctx)
	if err != nil {
		t.Error(err)
		return
	}
	if len(datasets) != 0 {
		t.Errorf("Fresh store should have no datasets, but got %d", len(datasets))
	}

	first, err := store.SaveDataset(ctx, "first", sampleSegments())
	if err != nil {
		t.Error(err)
		return
	}
	second, err := store.SaveDataset(ctx, "second", sampleSegments()[:1])
	if err != nil {
		t.Error(err)
		return
	}
	datasets, err = store.Datasets(ctx)
	if err != nil {
		t.Error(err)
		return
	}
	if len(datasets) != 2 {
		t.Errorf("Number of datasets should be %d, but got %d", 2, len(datasets))
		return
	}
	counts := map[uuid.UUID]int{}
	for _, dataset := range datasets {
		counts[dataset.ID] = dataset.Segments
	}
	if counts[first] != 3 || counts[second] != 1 {
		t.Errorf("Segment counts should be 3 and 1, but got %d and %d", counts[first], counts[second])
	}
}

func TestLoadMissingDataset(t *testing.T) {
	store := openTestStore(t)
	_, err := store.LoadDataset(context.Background(), uuid.New())
	if errors.Cause(err) != ErrDatasetNotFound {
		t.Errorf("Error should be '%v', but got '%v'", ErrDatasetNotFound, err)
	}
}
