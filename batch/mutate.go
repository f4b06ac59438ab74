/*
	This file implements the resolve-then-act mutations.  Pattern/template
	compatibility is validated before any backend mutation; per-item
	failures are collected and never abort the batch.
*/

package batch

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/tomoverse/tomocat/catalog"
	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/tomo"
	"github.com/tomoverse/tomocat/uri"
)

// ItemError records one failing identity within a batch mutation.
type ItemError struct {
	URI string
	Err error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.URI, e.Err)
}

// MutationResult aggregates a resolve-then-act mutation.  Affected holds
// the serialized URIs of entities acted on (or, for dry runs, that would
// have been acted on); Errors holds every per-item failure.
type MutationResult struct {
	Affected []string
	Errors   []ItemError
	Bytes    uint64
}

// Succeeded returns the number of entities acted on.
func (r *MutationResult) Succeeded() int {
	return len(r.Affected)
}

func (r *MutationResult) String() string {
	return fmt.Sprintf("%d succeeded, %d failed, %s moved",
		len(r.Affected), len(r.Errors), humanize.IBytes(r.Bytes))
}

// Delete removes every entity matching the URI, optionally scoped to one
// run.  A pattern matching nothing yields a zero-count result, not an
// error.  With dryRun set, matches are reported but nothing is removed.
func Delete(root *catalog.Root, kind storage.Kind, srcURI, runName string, dryRun bool) (*MutationResult, error) {
	matches, err := root.Resolve(kind, srcURI, runName)
	if err != nil {
		return nil, err
	}
	result := &MutationResult{}
	touched := make(map[string]bool)
	for _, e := range matches {
		serialized, err := e.URI()
		if err != nil {
			result.Errors = append(result.Errors, ItemError{URI: srcURI, Err: err})
			continue
		}
		if dryRun {
			result.Affected = append(result.Affected, serialized)
			continue
		}
		if err := e.Delete(); err != nil {
			result.Errors = append(result.Errors, ItemError{URI: serialized, Err: err})
			continue
		}
		result.Affected = append(result.Affected, serialized)
		touched[e.RunName()] = true
	}
	invalidateRuns(root, touched)
	return result, nil
}

// Copy duplicates every entity matching the source URI onto targets
// derived from the target URI, optionally scoped to one run.  A source
// that is a pattern (or matches more than one entity) requires a target
// with placeholders; an exact single-match source requires a
// template-free target.  Both are rejected before any mutation.
func Copy(root *catalog.Root, kind storage.Kind, srcURI, dstURI, runName string, overwrite bool) (*MutationResult, error) {
	matches, multi, err := resolveSource(root, kind, srcURI, runName)
	if err != nil {
		return nil, err
	}
	if err := validateTarget(kind, dstURI, multi); err != nil {
		return nil, err
	}
	result := &MutationResult{}
	for _, e := range matches {
		copyOne(root, e, dstURI, overwrite, result)
	}
	return result, nil
}

// Move is Copy followed by deletion of each successfully copied source.
func Move(root *catalog.Root, kind storage.Kind, srcURI, dstURI, runName string, overwrite bool) (*MutationResult, error) {
	matches, multi, err := resolveSource(root, kind, srcURI, runName)
	if err != nil {
		return nil, err
	}
	if err := validateTarget(kind, dstURI, multi); err != nil {
		return nil, err
	}
	result := &MutationResult{}
	touched := make(map[string]bool)
	for _, e := range matches {
		if !copyOne(root, e, dstURI, overwrite, result) {
			continue
		}
		serialized, _ := e.URI()
		if err := e.Delete(); err != nil {
			result.Errors = append(result.Errors, ItemError{URI: serialized, Err: err})
			continue
		}
		touched[e.RunName()] = true
	}
	invalidateRuns(root, touched)
	return result, nil
}

// resolveSource resolves the source URI and classifies it: multi is true
// when the source is a pattern or matches more than one entity.
func resolveSource(root *catalog.Root, kind storage.Kind, srcURI, runName string) ([]*catalog.Entity, bool, error) {
	parsed, err := uri.Parse(kind, srcURI)
	if err != nil {
		return nil, false, err
	}
	matches, err := root.Resolve(kind, srcURI, runName)
	if err != nil {
		return nil, false, err
	}
	return matches, !parsed.IsExact() || len(matches) > 1, nil
}

// validateTarget enforces the pattern/template compatibility contract up
// front, so a bad combination causes no partial side effects.
func validateTarget(kind storage.Kind, dstURI string, multi bool) error {
	hasTemplate := uri.HasTemplate(dstURI)
	if multi && !hasTemplate {
		return tomo.Invalidf("target", "source pattern fans out over multiple %s entities; target %q needs at least one placeholder", kind, dstURI)
	}
	if !multi && hasTemplate {
		return tomo.Invalidf("target", "exact source addresses one %s; target %q must be template-free", kind, dstURI)
	}
	return nil
}

// copyOne expands the target for one matched source, reads its payload,
// and creates the target entity in the same run.  Returns true on success.
func copyOne(root *catalog.Root, e *catalog.Entity, dstURI string, overwrite bool, result *MutationResult) bool {
	srcSerialized, _ := e.URI()
	desc := e.Descriptor()

	expanded, err := uri.Expand(dstURI, desc)
	if err != nil {
		result.Errors = append(result.Errors, ItemError{URI: srcSerialized, Err: err})
		return false
	}
	parsed, err := uri.Parse(desc.Kind, expanded)
	if err != nil {
		result.Errors = append(result.Errors, ItemError{URI: srcSerialized, Err: err})
		return false
	}
	// A segmentation target inherits the source's multilabel flag when
	// the template leaves it unset.
	if desc.Kind == storage.SegmentationKind && parsed.Multilabel == uri.Unset {
		if desc.Multilabel {
			parsed.Multilabel = uri.True
		} else {
			parsed.Multilabel = uri.False
		}
	}
	target, err := uri.ToDescriptor(parsed, e.RunName())
	if err != nil {
		result.Errors = append(result.Errors, ItemError{URI: srcSerialized, Err: err})
		return false
	}
	payload, err := e.Read()
	if err != nil {
		result.Errors = append(result.Errors, ItemError{URI: srcSerialized, Err: err})
		return false
	}
	if _, err := root.CreateEntity(target, payload, overwrite); err != nil {
		result.Errors = append(result.Errors, ItemError{URI: expanded, Err: err})
		return false
	}
	result.Affected = append(result.Affected, expanded)
	result.Bytes += uint64(len(payload))
	return true
}

// Sync copies every entity matching a URI from one root into another,
// run by run, creating target runs as needed.  The per-run value in the
// returned report is a *MutationResult.
func Sync(ctx context.Context, src, dst *catalog.Root, kind storage.Kind, pattern string, workers int, overwrite, showProgress bool) (*Report, error) {
	runs, err := src.Runs()
	if err != nil {
		return nil, err
	}
	report := MapRuns(ctx, runs, workers, showProgress, func(ctx context.Context, run *catalog.Run) (interface{}, error) {
		matches, err := src.Resolve(kind, pattern, run.Name())
		if err != nil {
			return nil, err
		}
		result := &MutationResult{}
		for _, e := range matches {
			serialized, _ := e.URI()
			payload, err := e.Read()
			if err != nil {
				result.Errors = append(result.Errors, ItemError{URI: serialized, Err: err})
				continue
			}
			desc := e.Descriptor()
			desc.ReadOnly = false
			if _, err := dst.CreateEntity(desc, payload, overwrite); err != nil {
				result.Errors = append(result.Errors, ItemError{URI: serialized, Err: err})
				continue
			}
			result.Affected = append(result.Affected, serialized)
			result.Bytes += uint64(len(payload))
		}
		return result, nil
	})
	return report, nil
}

// invalidateRuns drops the cached child lists of every mutated run.
func invalidateRuns(root *catalog.Root, names map[string]bool) {
	for name := range names {
		if run, err := root.Run(name); err == nil {
			run.Invalidate()
		}
	}
}
