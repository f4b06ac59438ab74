/*
	Package badgerstore implements an embedded Badger key-value backend.
	Entity paths become Badger keys and payloads are stored with the tomo
	serialization wrapper (snappy + CRC32) so on-disk corruption is caught
	on read.
*/

package badgerstore

import (
	"fmt"
	"strings"

	"github.com/blang/semver"
	"github.com/dgraph-io/badger/v3"
	"github.com/twinj/uuid"

	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/tomo"
)

const (
	// DefaultSyncWrites is true if all writes are synced to disk, making
	// the store resilient at the cost of speed.
	DefaultSyncWrites = false

	// metaKeyID holds the store's instance id, assigned on first open.
	metaKeyID = "!meta/id"
)

func init() {
	ver, err := semver.Make("0.1.0")
	if err != nil {
		tomo.Errorf("Unable to make semver in badgerstore: %v\n", err)
	}
	storage.RegisterEngine(Engine{"badgerstore", "BadgerDB entity store", ver})
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

func parseConfig(config tomo.StoreConfig) (path string, testing bool, err error) {
	path, found, err := config.GetString("path")
	if err != nil {
		return
	}
	if !found {
		err = fmt.Errorf("%q must be specified for badgerstore configuration", "path")
		return
	}
	testing, _, err = config.GetBool("testing")
	return
}

// NewBackend returns a Badger-backed store.  The passed StoreConfig must
// contain a "path" string; a true "testing" setting keeps everything
// in-memory.
func (e Engine) NewBackend(config tomo.StoreConfig) (storage.Backend, error) {
	path, testing, err := parseConfig(config)
	if err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = DefaultSyncWrites
	opts.NumVersionsToKeep = 1
	opts.Logger = nil
	if testing {
		opts = opts.WithInMemory(true)
		opts.Dir = ""
		opts.ValueDir = ""
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cannot open badgerstore at %q: %v", path, err)
	}
	store := &badgerStore{db: db, path: path}
	if err := store.ensureID(); err != nil {
		db.Close()
		return nil, err
	}
	tomo.Infof("Opened badgerstore %s (id %s)\n", path, store.id)
	return store, nil
}

// --- Backend Implementation ------

type badgerStore struct {
	db   *badger.DB
	path string
	id   string
}

// ensureID reads or assigns the store's instance id.
func (b *badgerStore) ensureID() error {
	return b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaKeyID))
		if err == nil {
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			b.id = string(v)
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		b.id = uuid.NewV4().String()
		return txn.Set([]byte(metaKeyID), []byte(b.id))
	})
}

func (b *badgerStore) String() string {
	return "badgerstore @ " + b.path
}

func (b *badgerStore) List(kind storage.Kind, scope storage.Scope) ([]storage.Descriptor, error) {
	dir, err := storage.ScopeDir(kind, scope)
	if err != nil {
		return nil, err
	}
	prefix := dir + "/"
	seen := make(map[string]bool)
	var descs []storage.Descriptor
	err = b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			rest := strings.TrimPrefix(string(it.Item().Key()), prefix)
			name := rest
			nested := false
			if i := strings.Index(rest, "/"); i >= 0 {
				name, nested = rest[:i], true
			}
			// Containers show up as marker keys or as prefixes of deeper
			// keys; leaf kinds only as direct entries.
			if !storage.IsContainer(kind) && nested {
				continue
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			if desc, ok := storage.ParseEntry(kind, scope, name); ok {
				descs = append(descs, desc)
			}
		}
		return nil
	})
	return descs, err
}

func (b *badgerStore) Read(desc storage.Descriptor) ([]byte, error) {
	path, err := storage.Path(desc)
	if err != nil {
		return nil, err
	}
	var wrapped []byte
	err = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(path))
		if err != nil {
			return err
		}
		wrapped, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		if storage.IsContainer(desc.Kind) && b.hasChild(path) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", desc, tomo.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if storage.IsContainer(desc.Kind) {
		return nil, nil
	}
	data, _, err := tomo.DeserializeData(wrapped)
	return data, err
}

func (b *badgerStore) Write(desc storage.Descriptor, payload []byte) error {
	path, err := storage.Path(desc)
	if err != nil {
		return err
	}
	var value []byte
	if storage.IsContainer(desc.Kind) {
		value, err = tomo.SerializeData(nil, tomo.Uncompressed, tomo.NoChecksum)
	} else {
		value, err = tomo.SerializeData(payload, tomo.Snappy, tomo.CRC32)
	}
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(path), value)
	})
}

func (b *badgerStore) Delete(desc storage.Descriptor) error {
	path, err := storage.Path(desc)
	if err != nil {
		return err
	}
	found := false
	err = b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(path)); err == nil {
			found = true
			if err := txn.Delete([]byte(path)); err != nil {
				return err
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if !storage.IsContainer(desc.Kind) {
			return nil
		}
		// Cascade remove any keys below the container.
		prefix := path + "/"
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		var doomed [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			doomed = append(doomed, it.Item().KeyCopy(nil))
			found = true
		}
		for _, key := range doomed {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s: %w", desc, tomo.ErrNotFound)
	}
	return nil
}

func (b *badgerStore) hasChild(path string) bool {
	has := false
	b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(path + "/")
		it := txn.NewIterator(opts)
		defer it.Close()
		it.Rewind()
		has = it.Valid()
		return nil
	})
	return has
}

func (b *badgerStore) ReadOnly() bool {
	return false
}

func (b *badgerStore) Close() {
	if err := b.db.Close(); err != nil {
		tomo.Errorf("Error closing badgerstore @ %s: %v\n", b.path, err)
	}
}
