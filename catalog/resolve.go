/*
	This file implements URI resolution: a parsed pattern plus a run scope
	becomes the concrete list of matching entity handles.  Results come
	back in run-then-discovery order; no further ordering is guaranteed.
*/

package catalog

import (
	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/uri"
)

// Resolve matches a URI against the merged namespace.  With a run name
// the search is scoped to exactly that run (tomo.ErrNotFound if absent);
// otherwise every run under the root is searched.
func (r *Root) Resolve(kind storage.Kind, uriString, runName string) ([]*Entity, error) {
	parsed, err := uri.Parse(kind, uriString)
	if err != nil {
		return nil, err
	}
	matcher, err := parsed.Matcher()
	if err != nil {
		return nil, err
	}

	var runs []*Run
	if runName != "" {
		run, err := r.Run(runName)
		if err != nil {
			return nil, err
		}
		runs = []*Run{run}
	} else {
		if runs, err = r.Runs(); err != nil {
			return nil, err
		}
	}

	var matches []*Entity
	for _, run := range runs {
		candidates, err := run.entitiesOf(kind)
		if err != nil {
			return nil, err
		}
		for _, e := range candidates {
			if matcher.Match(e.desc) {
				matches = append(matches, e)
			}
		}
	}
	return matches, nil
}

// entitiesOf returns the run's merged entities of one kind in discovery
// order, traversing intermediate parents for spacing-scoped kinds.
func (run *Run) entitiesOf(kind storage.Kind) ([]*Entity, error) {
	switch kind {
	case storage.PicksKind:
		picks, err := run.PicksList()
		if err != nil {
			return nil, err
		}
		entities := make([]*Entity, len(picks))
		for i, p := range picks {
			entities[i] = &p.Entity
		}
		return entities, nil
	case storage.MeshKind:
		meshes, err := run.Meshes()
		if err != nil {
			return nil, err
		}
		entities := make([]*Entity, len(meshes))
		for i, m := range meshes {
			entities[i] = &m.Entity
		}
		return entities, nil
	case storage.SegmentationKind:
		segs, err := run.Segmentations()
		if err != nil {
			return nil, err
		}
		entities := make([]*Entity, len(segs))
		for i, s := range segs {
			entities[i] = &s.Entity
		}
		return entities, nil
	case storage.VolumeKind:
		spacings, err := run.VoxelSpacings()
		if err != nil {
			return nil, err
		}
		var entities []*Entity
		for _, vs := range spacings {
			volumes, err := vs.Volumes()
			if err != nil {
				return nil, err
			}
			for _, v := range volumes {
				entities = append(entities, &v.Entity)
			}
		}
		return entities, nil
	case storage.FeatureMapKind:
		spacings, err := run.VoxelSpacings()
		if err != nil {
			return nil, err
		}
		var entities []*Entity
		for _, vs := range spacings {
			features, err := vs.FeatureMaps()
			if err != nil {
				return nil, err
			}
			for _, fm := range features {
				entities = append(entities, &fm.Entity)
			}
		}
		return entities, nil
	default:
		_, err := uri.FieldNames(kind)
		return nil, err
	}
}
