package catalog

import (
	"testing"

	"github.com/tomoverse/tomocat/storage"
)

func TestRunStats(t *testing.T) {
	f, err := NewTestFixture()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	run, err := f.Root.NewRun("TS_001")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	vs, err := run.NewVoxelSpacing(10)
	if err != nil {
		t.Fatalf("NewVoxelSpacing: %v", err)
	}
	if _, err := vs.NewVolume("wbp", make([]byte, 1024)); err != nil {
		t.Fatalf("NewVolume: %v", err)
	}
	if _, err := run.NewPicks("ribosome", "alice", "7"); err != nil {
		t.Fatalf("NewPicks: %v", err)
	}
	if _, err := run.NewSegmentation("membrane", "alice", "7", 10, false, make([]byte, 512)); err != nil {
		t.Fatalf("NewSegmentation: %v", err)
	}

	stats, err := run.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Counts[storage.VolumeKind] != 1 ||
		stats.Counts[storage.PicksKind] != 1 ||
		stats.Counts[storage.SegmentationKind] != 1 ||
		stats.Counts[storage.MeshKind] != 0 {
		t.Errorf("counts wrong: %v", stats.Counts)
	}
	if stats.Bytes < 1536 {
		t.Errorf("byte total %d, want at least 1536", stats.Bytes)
	}
}
