/*
	This file computes per-run entity counts and payload byte totals for
	reporting.
*/

package catalog

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/tomoverse/tomocat/storage"
)

// RunStats summarizes one run's merged contents.
type RunStats struct {
	Run    string
	Counts map[storage.Kind]int
	Bytes  uint64
}

func (s RunStats) String() string {
	total := 0
	for _, n := range s.Counts {
		total += n
	}
	return fmt.Sprintf("run %q: %d entities, %s", s.Run, total, humanize.IBytes(s.Bytes))
}

// Stats walks the run's merged entities, counting them per kind and
// summing payload sizes.  Container payloads contribute zero bytes.
func (run *Run) Stats() (RunStats, error) {
	stats := RunStats{Run: run.Name(), Counts: make(map[storage.Kind]int)}
	for _, kind := range []storage.Kind{
		storage.VolumeKind, storage.FeatureMapKind,
		storage.PicksKind, storage.MeshKind, storage.SegmentationKind,
	} {
		entities, err := run.entitiesOf(kind)
		if err != nil {
			return stats, err
		}
		stats.Counts[kind] = len(entities)
		for _, e := range entities {
			payload, err := e.Read()
			if err != nil {
				continue
			}
			stats.Bytes += uint64(len(payload))
		}
	}
	return stats, nil
}
