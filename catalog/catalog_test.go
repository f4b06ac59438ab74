package catalog

import (
	"bytes"
	"errors"
	"testing"

	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/tomo"
)

func newFixture(t *testing.T) *TestFixture {
	t.Helper()
	f, err := NewTestFixture()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return f
}

func TestNewRunSanitizesName(t *testing.T) {
	f := newFixture(t)
	run, err := f.Root.NewRun("TS 001 / rerun")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	if run.Name() != "TS_001_rerun" {
		t.Errorf("run name %q, want %q", run.Name(), "TS_001_rerun")
	}
	if _, err := f.Root.NewRun("TS_001_rerun"); err == nil {
		t.Error("duplicate run name should fail")
	}
}

func TestRunNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.Root.Run("TS_404")
	if !errors.Is(err, tomo.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestVoxelSpacingAndVolumeFactories(t *testing.T) {
	f := newFixture(t)
	run, err := f.Root.NewRun("TS_001")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	vs, err := run.NewVoxelSpacing(10)
	if err != nil {
		t.Fatalf("NewVoxelSpacing: %v", err)
	}
	if vs.Spacing() != "10.000" {
		t.Errorf("spacing %q, want canonical 10.000", vs.Spacing())
	}
	if _, err := run.NewVoxelSpacing(10.0001); err == nil {
		t.Error("spacing equal after rounding should collide")
	}

	volume, err := vs.NewVolume("wbp", []byte("voxels"))
	if err != nil {
		t.Fatalf("NewVolume: %v", err)
	}
	if _, err := vs.NewVolume("wbp", nil); err == nil {
		t.Error("duplicate volume type should fail")
	}

	fm, err := volume.NewFeatureMap("sobel", []byte("features"))
	if err != nil {
		t.Fatalf("NewFeatureMap: %v", err)
	}
	if fm.VolumeType() != "wbp" || fm.FeatureType() != "sobel" {
		t.Errorf("feature map identity (%q, %q), want (wbp, sobel)", fm.VolumeType(), fm.FeatureType())
	}
	if _, err := volume.NewFeatureMap("sobel", nil); err == nil {
		t.Error("duplicate feature type should fail")
	}
	if _, err := volume.NewFeatureMap("bad_type", nil); err == nil {
		t.Error("feature type with underscore should fail")
	}
}

func TestAnnotationFactories(t *testing.T) {
	f := newFixture(t)
	run, err := f.Root.NewRun("TS_001")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}

	picks, err := run.NewPicks("ribosome", "gapstop", ToolSessionID)
	if err != nil {
		t.Fatalf("NewPicks: %v", err)
	}
	if !picks.FromTool() {
		t.Error("session 0 should mark tool provenance")
	}
	loaded, err := picks.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("new picks should be empty, got %d points", len(loaded))
	}
	points := TestPoints(4)
	points[1].Transform = &tomo.Transform{{1, 0, 0, 5}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
	if err := picks.Store(points); err != nil {
		t.Fatalf("Store: %v", err)
	}
	loaded, err = picks.Load()
	if err != nil {
		t.Fatalf("Load after store: %v", err)
	}
	if len(loaded) != 4 || loaded[1].Transform == nil {
		t.Errorf("stored points not preserved: %v", loaded)
	}

	if _, err := run.NewPicks("ribosome", "gapstop", ToolSessionID); err == nil {
		t.Error("duplicate picks identity should fail")
	}
	if _, err := run.NewPicks("unknown", "alice", "7"); err == nil {
		t.Error("picks for an undefined object should fail")
	}
	if _, err := run.NewPicks("ribosome", "bad_id", "7"); err == nil {
		t.Error("attributor with underscore should fail")
	}
	if _, err := run.NewPicks("ribosome", "alice", ""); err == nil {
		t.Error("empty session should fail")
	}

	mesh, err := run.NewMesh("membrane", "alice", "7", []byte("glTF bytes"))
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	geometry, err := mesh.Geometry()
	if err != nil {
		t.Fatalf("Geometry: %v", err)
	}
	if !bytes.Equal(geometry, []byte("glTF bytes")) {
		t.Error("mesh payload not preserved")
	}

	seg, err := run.NewSegmentation("membrane", "alice", "7", 10, false, []byte("labels"))
	if err != nil {
		t.Fatalf("NewSegmentation: %v", err)
	}
	if seg.Multilabel() || seg.Spacing() != "10.000" {
		t.Errorf("segmentation identity wrong: multilabel=%t spacing=%q", seg.Multilabel(), seg.Spacing())
	}
	if _, err := run.NewSegmentation("freeform", "alice", "7", 10, false, nil); err == nil {
		t.Error("single-object segmentation must reference a defined object")
	}
	multi, err := run.NewSegmentation("freeform", "alice", "7", 10, true, []byte("labels"))
	if err != nil {
		t.Fatalf("multilabel NewSegmentation: %v", err)
	}
	if !multi.Multilabel() {
		t.Error("multilabel flag lost")
	}

	// Same tuple except the multilabel flag is a distinct identity.
	if _, err := run.NewSegmentation("membrane", "alice", "7", 10, true, nil); err != nil {
		t.Errorf("multilabel variant of an existing tuple should be allowed: %v", err)
	}
}

func TestResolve(t *testing.T) {
	f := newFixture(t)
	run, err := f.Root.NewRun("TS_001")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	if _, err := run.NewPicks("ribosome", "gapstop", "0"); err != nil {
		t.Fatalf("NewPicks: %v", err)
	}
	if _, err := run.NewPicks("ribosome", "alice", "7"); err != nil {
		t.Fatalf("NewPicks: %v", err)
	}
	if _, err := run.NewPicks("proteasome", "alice", "7"); err != nil {
		t.Fatalf("NewPicks: %v", err)
	}
	other, err := f.Root.NewRun("TS_002")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	if _, err := other.NewPicks("ribosome", "alice", "3"); err != nil {
		t.Fatalf("NewPicks: %v", err)
	}

	tests := []struct {
		uri  string
		run  string
		want int
	}{
		{"ribosome", "", 3},
		{"ribosome", "TS_001", 2},
		{"ribosome:gapstop", "", 1},
		{"ribosome:*/0", "", 1},
		{"*:alice", "", 3},
		{`re:.*:.*/\d`, "", 4},
		{"lamella", "", 0},
	}
	for _, test := range tests {
		matches, err := f.Root.Resolve(storage.PicksKind, test.uri, test.run)
		if err != nil {
			t.Errorf("Resolve(%q, run=%q): %v", test.uri, test.run, err)
			continue
		}
		if len(matches) != test.want {
			t.Errorf("Resolve(%q, run=%q) = %d matches, want %d", test.uri, test.run, len(matches), test.want)
		}
	}

	if _, err := f.Root.Resolve(storage.PicksKind, "ribosome", "TS_404"); !errors.Is(err, tomo.ErrNotFound) {
		t.Errorf("resolve in missing run: got %v, want ErrNotFound", err)
	}
}

func TestResolveSpacingScopedKinds(t *testing.T) {
	f := newFixture(t)
	run, err := f.Root.NewRun("TS_001")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	for _, spacing := range []float64{10, 13.48} {
		vs, err := run.NewVoxelSpacing(spacing)
		if err != nil {
			t.Fatalf("NewVoxelSpacing(%g): %v", spacing, err)
		}
		volume, err := vs.NewVolume("wbp", []byte("voxels"))
		if err != nil {
			t.Fatalf("NewVolume: %v", err)
		}
		if _, err := volume.NewFeatureMap("sobel", []byte("features")); err != nil {
			t.Fatalf("NewFeatureMap: %v", err)
		}
	}

	matches, err := f.Root.Resolve(storage.VolumeKind, "wbp", "")
	if err != nil {
		t.Fatalf("Resolve volumes: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("wbp across spacings: %d matches, want 2", len(matches))
	}
	matches, err = f.Root.Resolve(storage.VolumeKind, "wbp@10", "")
	if err != nil {
		t.Fatalf("Resolve volume at spacing: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("wbp@10: %d matches, want 1", len(matches))
	}
	matches, err = f.Root.Resolve(storage.FeatureMapKind, "*@13.48:sobel", "")
	if err != nil {
		t.Fatalf("Resolve feature maps: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("feature maps at 13.480: %d matches, want 1", len(matches))
	}
}

func TestStaticEntitiesRejectMutation(t *testing.T) {
	f := newFixture(t)
	if err := f.SeedRun(f.Static, "TS_001"); err != nil {
		t.Fatalf("seed run: %v", err)
	}
	if err := f.SeedPicks(f.Static, "TS_001", "ribosome", "gapstop", "0", TestPoints(2)); err != nil {
		t.Fatalf("seed picks: %v", err)
	}
	matches, err := f.Root.Resolve(storage.PicksKind, "ribosome", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	e := matches[0]
	if !e.ReadOnly() {
		t.Fatal("static entity should be read-only")
	}
	if err := e.Write([]byte("x")); !errors.Is(err, tomo.ErrReadOnly) {
		t.Errorf("write: got %v, want ErrReadOnly", err)
	}
	if err := e.Delete(); !errors.Is(err, tomo.ErrReadOnly) {
		t.Errorf("delete: got %v, want ErrReadOnly", err)
	}

	run, err := f.Root.Run("TS_001")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := run.Delete(); !errors.Is(err, tomo.ErrReadOnly) {
		t.Errorf("run delete: got %v, want ErrReadOnly", err)
	}

	// Reads still work through the read-only wrapper.
	payload, err := e.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	points, err := DecodePicks(payload)
	if err != nil {
		t.Fatalf("DecodePicks: %v", err)
	}
	if len(points) != 2 {
		t.Errorf("got %d points, want 2", len(points))
	}
}

func TestRunDeleteCascades(t *testing.T) {
	f := newFixture(t)
	run, err := f.Root.NewRun("TS_001")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	vs, err := run.NewVoxelSpacing(10)
	if err != nil {
		t.Fatalf("NewVoxelSpacing: %v", err)
	}
	volume, err := vs.NewVolume("wbp", []byte("voxels"))
	if err != nil {
		t.Fatalf("NewVolume: %v", err)
	}
	if _, err := volume.NewFeatureMap("sobel", []byte("features")); err != nil {
		t.Fatalf("NewFeatureMap: %v", err)
	}
	if _, err := run.NewPicks("ribosome", "alice", "7"); err != nil {
		t.Fatalf("NewPicks: %v", err)
	}
	if _, err := run.NewSegmentation("membrane", "alice", "7", 10, false, []byte("labels")); err != nil {
		t.Fatalf("NewSegmentation: %v", err)
	}

	if err := run.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	runs, err := f.Root.Runs()
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("run still listed after delete")
	}
	descs, err := f.Overlay.List(storage.PicksKind, storage.Scope{Run: "TS_001"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(descs) != 0 {
		t.Errorf("picks survived run delete: %v", descs)
	}
	descs, err = f.Overlay.List(storage.VolumeKind, storage.Scope{Run: "TS_001", Spacing: "10.000"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(descs) != 0 {
		t.Errorf("volumes survived run delete: %v", descs)
	}
}

func TestCreateEntity(t *testing.T) {
	f := newFixture(t)
	desc := storage.Descriptor{
		Kind:       storage.PicksKind,
		Scope:      storage.Scope{Run: "TS_001"},
		Name:       "ribosome",
		Attributor: "alice",
		Session:    "7",
	}
	payload, err := EncodePicks(TestPoints(2))
	if err != nil {
		t.Fatalf("EncodePicks: %v", err)
	}

	// Creating into a missing run materializes the run container.
	e, err := f.Root.CreateEntity(desc, payload, false)
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if _, err := f.Root.Run("TS_001"); err != nil {
		t.Errorf("run should exist after create: %v", err)
	}

	if _, err := f.Root.CreateEntity(desc, payload, false); err == nil {
		t.Error("duplicate identity without overwrite should fail")
	}
	replacement, err := EncodePicks(TestPoints(5))
	if err != nil {
		t.Fatalf("EncodePicks: %v", err)
	}
	if _, err := f.Root.CreateEntity(desc, replacement, true); err != nil {
		t.Fatalf("overwrite create: %v", err)
	}
	got, err := e.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	points, err := DecodePicks(got)
	if err != nil {
		t.Fatalf("DecodePicks: %v", err)
	}
	if len(points) != 5 {
		t.Errorf("overwrite not visible: got %d points, want 5", len(points))
	}

	// Identities living in the static source can never be overwritten.
	if err := f.SeedRun(f.Static, "TS_002"); err != nil {
		t.Fatalf("seed run: %v", err)
	}
	if err := f.SeedPicks(f.Static, "TS_002", "ribosome", "gapstop", "0", TestPoints(1)); err != nil {
		t.Fatalf("seed picks: %v", err)
	}
	staticDesc := storage.Descriptor{
		Kind:       storage.PicksKind,
		Scope:      storage.Scope{Run: "TS_002"},
		Name:       "ribosome",
		Attributor: "gapstop",
		Session:    "0",
	}
	if _, err := f.Root.CreateEntity(staticDesc, payload, true); !errors.Is(err, tomo.ErrReadOnly) {
		t.Errorf("create over static identity: got %v, want ErrReadOnly", err)
	}

	// Descriptor validation runs before any backend mutation.
	bad := desc
	bad.Attributor = "under_score"
	if _, err := f.Root.CreateEntity(bad, payload, false); err == nil {
		t.Error("invalid attributor should fail")
	}
	bad = desc
	bad.Name = "undefined-object"
	if _, err := f.Root.CreateEntity(bad, payload, false); err == nil {
		t.Error("undefined object should fail")
	}
}

func TestRefreshSeesExternalWrites(t *testing.T) {
	f := newFixture(t)
	run, err := f.Root.NewRun("TS_001")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	if list, err := run.PicksList(); err != nil || len(list) != 0 {
		t.Fatalf("fresh run picks = %v, %v", list, err)
	}

	// Write behind the catalog's back, as another process would.
	if err := f.SeedPicks(f.Overlay, "TS_001", "ribosome", "alice", "7", TestPoints(1)); err != nil {
		t.Fatalf("seed picks: %v", err)
	}
	if list, _ := run.PicksList(); len(list) != 0 {
		t.Fatal("cached listing should not see external writes")
	}
	run.Invalidate()
	list, err := run.PicksList()
	if err != nil {
		t.Fatalf("PicksList after invalidate: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("got %d picks after refresh, want 1", len(list))
	}
}
