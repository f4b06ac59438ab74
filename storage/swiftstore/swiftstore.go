/*
	Package swiftstore implements a backend on Openstack Swift object
	storage.  Entity paths map directly to object names inside a single
	Swift container; catalog containers (runs, voxel spacings) are
	represented by zero-byte ".keep" marker objects since object stores
	have no directories.
*/

package swiftstore

import (
	"fmt"
	"strings"

	"github.com/blang/semver"
	"github.com/ncw/swift"

	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/tomo"
)

const markerObject = ".keep"

func init() {
	ver, err := semver.Make("0.1.0")
	if err != nil {
		tomo.Errorf("Unable to make semver in swiftstore: %v\n", err)
	}
	storage.RegisterEngine(Engine{"swiftstore", "Openstack Swift entity store", ver})
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
	return true
}

func (e Engine) GetSemVer() semver.Version {
	return e.semver
}

func (e Engine) String() string {
	return fmt.Sprintf("%s [%s]", e.name, e.semver)
}

func getSetting(config tomo.StoreConfig, key string, required bool) (string, error) {
	v, found, err := config.GetString(key)
	if err != nil {
		return "", err
	}
	if required && !found {
		return "", fmt.Errorf("%q must be specified for swiftstore configuration", key)
	}
	return v, nil
}

// NewBackend returns a Swift-backed store.  The passed StoreConfig must
// contain "user", "key", "auth_url", and "container" strings; "tenant"
// and "region" are optional.
func (e Engine) NewBackend(config tomo.StoreConfig) (storage.Backend, error) {
	user, err := getSetting(config, "user", true)
	if err != nil {
		return nil, err
	}
	apiKey, err := getSetting(config, "key", true)
	if err != nil {
		return nil, err
	}
	authURL, err := getSetting(config, "auth_url", true)
	if err != nil {
		return nil, err
	}
	container, err := getSetting(config, "container", true)
	if err != nil {
		return nil, err
	}
	tenant, err := getSetting(config, "tenant", false)
	if err != nil {
		return nil, err
	}
	region, err := getSetting(config, "region", false)
	if err != nil {
		return nil, err
	}
	conn := &swift.Connection{
		UserName: user,
		ApiKey:   apiKey,
		AuthUrl:  authURL,
		Tenant:   tenant,
		Region:   region,
	}
	if err := conn.Authenticate(); err != nil {
		return nil, fmt.Errorf("cannot authenticate against Swift at %q: %v", authURL, err)
	}
	if err := conn.ContainerCreate(container, nil); err != nil {
		return nil, fmt.Errorf("cannot ensure Swift container %q: %v", container, err)
	}
	return &swiftStore{conn: conn, container: container}, nil
}

// --- Backend Implementation ------

type swiftStore struct {
	conn      *swift.Connection
	container string
}

func (s *swiftStore) String() string {
	return "swiftstore @ " + s.container
}

func (s *swiftStore) List(kind storage.Kind, scope storage.Scope) ([]storage.Descriptor, error) {
	dir, err := storage.ScopeDir(kind, scope)
	if err != nil {
		return nil, err
	}
	prefix := dir + "/"
	names, err := s.conn.ObjectNames(s.container, &swift.ObjectsOpts{
		Prefix:    prefix,
		Delimiter: '/',
	})
	if err != nil {
		if err == swift.ContainerNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot list %s under %q: %v", kind, dir, err)
	}
	seen := make(map[string]bool)
	var descs []storage.Descriptor
	for _, name := range names {
		entry := strings.TrimPrefix(name, prefix)
		isDir := strings.HasSuffix(entry, "/")
		if isDir {
			entry = strings.TrimSuffix(entry, "/")
		}
		if entry == "" || entry == markerObject || seen[entry] {
			continue
		}
		if isDir != storage.IsContainer(kind) {
			continue
		}
		seen[entry] = true
		if desc, ok := storage.ParseEntry(kind, scope, entry); ok {
			descs = append(descs, desc)
		}
	}
	return descs, nil
}

func (s *swiftStore) Read(desc storage.Descriptor) ([]byte, error) {
	path, err := storage.Path(desc)
	if err != nil {
		return nil, err
	}
	if storage.IsContainer(desc.Kind) {
		names, err := s.conn.ObjectNames(s.container, &swift.ObjectsOpts{
			Prefix: path + "/",
			Limit:  1,
		})
		if err != nil || len(names) == 0 {
			return nil, fmt.Errorf("%s: %w", desc, tomo.ErrNotFound)
		}
		return nil, nil
	}
	data, err := s.conn.ObjectGetBytes(s.container, path)
	if err != nil {
		if err == swift.ObjectNotFound {
			return nil, fmt.Errorf("%s: %w", desc, tomo.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

func (s *swiftStore) Write(desc storage.Descriptor, payload []byte) error {
	path, err := storage.Path(desc)
	if err != nil {
		return err
	}
	if storage.IsContainer(desc.Kind) {
		path += "/" + markerObject
		payload = nil
	}
	return s.conn.ObjectPutBytes(s.container, path, payload, "application/octet-stream")
}

func (s *swiftStore) Delete(desc storage.Descriptor) error {
	path, err := storage.Path(desc)
	if err != nil {
		return err
	}
	if storage.IsContainer(desc.Kind) {
		names, err := s.conn.ObjectNames(s.container, &swift.ObjectsOpts{Prefix: path + "/"})
		if err != nil || len(names) == 0 {
			return fmt.Errorf("%s: %w", desc, tomo.ErrNotFound)
		}
		for _, name := range names {
			if err := s.conn.ObjectDelete(s.container, name); err != nil && err != swift.ObjectNotFound {
				return err
			}
		}
		return nil
	}
	if err := s.conn.ObjectDelete(s.container, path); err != nil {
		if err == swift.ObjectNotFound {
			return fmt.Errorf("%s: %w", desc, tomo.ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *swiftStore) ReadOnly() bool {
	return false
}

func (s *swiftStore) Close() {}
