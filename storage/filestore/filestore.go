/*
	Package filestore implements a local-filesystem backend that lays
	catalog entities out as directories and files under a root path.
*/

package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blang/semver"

	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/tomo"
)

func init() {
	ver, err := semver.Make("0.1.0")
	if err != nil {
		tomo.Errorf("Unable to make semver in filestore: %v\n", err)
	}
	storage.RegisterEngine(Engine{"filestore", "File-based entity store", ver})
}

// --- Engine Implementation ------

type Engine struct {
	name   string
	desc   string
	semver semver.Version
}

func (e Engine) GetName() string {
	return e.name
}

func (e Engine) GetDescription() string {
	return e.desc
}

func (e Engine) IsDistributed() bool {
	return false
}

func (e Engine) GetSemVer() semver.Version {
	return e.semver
}

func (e Engine) String() string {
	return fmt.Sprintf("%s [%s]", e.name, e.semver)
}

// NewBackend returns a filestore backend.  The passed StoreConfig must
// contain a "path" string; the directory is created if absent.
func (e Engine) NewBackend(config tomo.StoreConfig) (storage.Backend, error) {
	path, found, err := config.GetString("path")
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%q must be specified for filestore configuration", "path")
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("cannot create filestore root %q: %v", path, err)
	}
	return &fileStore{root: path}, nil
}

// --- Backend Implementation ------

type fileStore struct {
	root string
}

func (f *fileStore) String() string {
	return "filestore @ " + f.root
}

func (f *fileStore) native(slashPath string) string {
	return filepath.Join(f.root, filepath.FromSlash(slashPath))
}

// List scans the scope directory, parsing entry names back into
// descriptors.  A missing directory simply means zero entities.
func (f *fileStore) List(kind storage.Kind, scope storage.Scope) ([]storage.Descriptor, error) {
	dir, err := storage.ScopeDir(kind, scope)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(f.native(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot list %s under %q: %v", kind, dir, err)
	}
	var descs []storage.Descriptor
	for _, entry := range entries {
		if storage.IsContainer(kind) != entry.IsDir() {
			continue
		}
		if desc, ok := storage.ParseEntry(kind, scope, entry.Name()); ok {
			descs = append(descs, desc)
		}
	}
	return descs, nil
}

func (f *fileStore) Read(desc storage.Descriptor) ([]byte, error) {
	path, err := storage.Path(desc)
	if err != nil {
		return nil, err
	}
	if storage.IsContainer(desc.Kind) {
		if _, err := os.Stat(f.native(path)); err != nil {
			return nil, fmt.Errorf("%s: %w", desc, tomo.ErrNotFound)
		}
		return nil, nil
	}
	data, err := os.ReadFile(f.native(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", desc, tomo.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

func (f *fileStore) Write(desc storage.Descriptor, payload []byte) error {
	path, err := storage.Path(desc)
	if err != nil {
		return err
	}
	native := f.native(path)
	if storage.IsContainer(desc.Kind) {
		return os.MkdirAll(native, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(native), 0755); err != nil {
		return err
	}
	return os.WriteFile(native, payload, 0644)
}

func (f *fileStore) Delete(desc storage.Descriptor) error {
	path, err := storage.Path(desc)
	if err != nil {
		return err
	}
	native := f.native(path)
	if _, err := os.Stat(native); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", desc, tomo.ErrNotFound)
		}
		return err
	}
	if storage.IsContainer(desc.Kind) {
		return os.RemoveAll(native)
	}
	return os.Remove(native)
}

func (f *fileStore) ReadOnly() bool {
	return false
}

func (f *fileStore) Close() {}
