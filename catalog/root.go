/*
	This file defines the catalog root: the pairing of one static and one
	overlay backend, the object definitions, and the lazily loaded run
	list.  Payload reads go through a byte cache keyed by source + path.
*/

package catalog

import (
	"fmt"

	"github.com/coocood/freecache"
	"github.com/dustin/go-humanize"

	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/tomo"
)

const (
	// DefaultCacheBytes is the default payload read-cache capacity.
	DefaultCacheBytes = 64 * 1024 * 1024

	// maxCachedPayload keeps very large payloads out of the read cache.
	maxCachedPayload = 8 * 1024 * 1024
)

// Root is the top of one catalog namespace.
type Root struct {
	static  storage.Backend
	overlay storage.Backend
	objects []ObjectDefinition

	cache *freecache.Cache

	runs       []*Run
	runsLoaded bool
}

// NewRoot pairs a static and an overlay backend under one namespace.  The
// static backend is wrapped read-only if it is not already.  Passing the
// same backend for both (or nil static) means there is no separate static
// source and everything lives in the overlay.
func NewRoot(static, overlay storage.Backend, objects []ObjectDefinition) (*Root, error) {
	if overlay == nil {
		return nil, tomo.Invalidf("overlay", "an overlay backend is required")
	}
	if err := ValidateObjects(objects); err != nil {
		return nil, err
	}
	r := &Root{
		overlay: overlay,
		objects: objects,
		cache:   freecache.NewCache(DefaultCacheBytes),
	}
	if static != nil && static != overlay {
		r.static = storage.ReadOnlyBackend(static)
	} else {
		r.static = overlay
	}
	tomo.Infof("Opened catalog root (static %s, overlay %s, cache %s)\n",
		r.static, r.overlay, humanize.IBytes(uint64(DefaultCacheBytes)))
	return r, nil
}

// singleSource is true when no separate static source exists.
func (r *Root) singleSource() bool {
	return r.static == r.overlay
}

// Overlay returns the writable backend of the root.
func (r *Root) Overlay() storage.Backend {
	return r.overlay
}

// Objects returns the root's object definitions.
func (r *Root) Objects() []ObjectDefinition {
	return r.objects
}

// ObjectByName returns the definition for a sanitized object name.
func (r *Root) ObjectByName(name string) (ObjectDefinition, bool) {
	for _, obj := range r.objects {
		if obj.Name == name {
			return obj, true
		}
	}
	return ObjectDefinition{}, false
}

// Close closes both backends.
func (r *Root) Close() {
	if !r.singleSource() {
		r.static.Close()
	}
	r.overlay.Close()
}

// --- payload cache ------

func cacheKey(src storage.Backend, desc storage.Descriptor) []byte {
	path, err := storage.Path(desc)
	if err != nil {
		return nil
	}
	return []byte(src.String() + "|" + path)
}

func (r *Root) readPayload(src storage.Backend, desc storage.Descriptor) ([]byte, error) {
	key := cacheKey(src, desc)
	if key != nil {
		if data, err := r.cache.Get(key); err == nil {
			return data, nil
		}
	}
	data, err := src.Read(desc)
	if err != nil {
		return nil, err
	}
	if key != nil && len(data) > 0 && len(data) <= maxCachedPayload {
		r.cache.Set(key, data, 0)
	}
	return data, nil
}

func (r *Root) writePayload(src storage.Backend, desc storage.Descriptor, payload []byte) error {
	if err := src.Write(desc, payload); err != nil {
		return err
	}
	if key := cacheKey(src, desc); key != nil {
		r.cache.Del(key)
	}
	return nil
}

func (r *Root) deletePayload(src storage.Backend, desc storage.Descriptor) error {
	if err := src.Delete(desc); err != nil {
		return err
	}
	if key := cacheKey(src, desc); key != nil {
		r.cache.Del(key)
	}
	return nil
}

// --- run listing ------

// Runs returns the merged run list, loading it on first access.
func (r *Root) Runs() ([]*Run, error) {
	if !r.runsLoaded {
		if err := r.RefreshRuns(); err != nil {
			return nil, err
		}
	}
	return r.runs, nil
}

// RefreshRuns re-queries both sources for the run list.
func (r *Root) RefreshRuns() error {
	entities, err := r.mergedList(storage.RunKind, storage.Scope{})
	if err != nil {
		return err
	}
	runs := make([]*Run, len(entities))
	for i, e := range entities {
		runs[i] = &Run{Entity: *e}
	}
	r.runs = runs
	r.runsLoaded = true
	return nil
}

// InvalidateRuns drops the cached run list so the next access re-queries.
func (r *Root) InvalidateRuns() {
	r.runs = nil
	r.runsLoaded = false
}

// Run returns the named run or tomo.ErrNotFound.
func (r *Root) Run(name string) (*Run, error) {
	runs, err := r.Runs()
	if err != nil {
		return nil, err
	}
	for _, run := range runs {
		if run.Name() == name {
			return run, nil
		}
	}
	return nil, fmt.Errorf("run %q: %w", name, tomo.ErrNotFound)
}

// NewRun creates a run in the overlay and registers it in the cached run
// list.  A run that already exists in either source is a ValidationError.
func (r *Root) NewRun(name string) (*Run, error) {
	name, err := tomo.SanitizeName(name)
	if err != nil {
		return nil, err
	}
	if _, err := r.Run(name); err == nil {
		return nil, tomo.Invalidf("run", "run %q already exists", name)
	}
	desc := storage.Descriptor{Kind: storage.RunKind, Name: name}
	if err := r.overlay.Write(desc, nil); err != nil {
		return nil, err
	}
	run := &Run{Entity: Entity{desc: desc, root: r, src: r.overlay}}
	if r.runsLoaded {
		r.runs = append(r.runs, run)
	}
	return run, nil
}
