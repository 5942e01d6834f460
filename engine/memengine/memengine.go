// Package memengine is the reference storage engine: a copy-on-write
// in-memory multi-version store persisted to a single checksummed, optionally
// encrypted file on every commit. It implements the engine facade well enough
// to run the whole client layer, including cross-connection commit
// notification, version pinning and schema migration.
//
// Paths beginning with ":memory:" name purely in-memory databases that are
// shared between connections on the same name and vanish when the last
// connection closes.
package memengine

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cryodb/cryo/engine"
)

const memoryPrefix = ":memory:"

var (
	registryMu sync.Mutex
	registry   = make(map[string]*store)
)

// Open opens a connection to the database at cfg.Path, creating the file if
// it does not exist yet.
func Open(cfg engine.Config) (engine.Conn, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: empty path", engine.ErrFileAccess)
	}
	if len(cfg.EncryptionKey) != 0 && len(cfg.EncryptionKey) != engine.KeyLength {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", engine.ErrEncryption, engine.KeyLength, len(cfg.EncryptionKey))
	}

	regKey, path, err := resolvePath(cfg.Path)
	if err != nil {
		return nil, err
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	st, ok := registry[regKey]
	if ok {
		if !bytes.Equal(st.key, cfg.EncryptionKey) {
			return nil, engine.ErrEncryption
		}
		if st.schema != cfg.SchemaVersion {
			return nil, fmt.Errorf("%w: open with schema %d, store has %d", engine.ErrSchemaMismatch, cfg.SchemaVersion, st.schema)
		}
	} else {
		st = newStore(regKey, path, cfg)
		if path != "" {
			if err = loadOrCreate(st, cfg); err != nil {
				return nil, err
			}
		}
		registry[regKey] = st
	}

	st.mu.Lock()
	st.conns++
	st.mu.Unlock()

	return &conn{
		store: st,
		snaps: make(map[*snapshot]struct{}),
		subs:  make(map[int64]struct{}),
	}, nil
}

func resolvePath(p string) (regKey, path string, err error) {
	if strings.HasPrefix(p, memoryPrefix) {
		return p, "", nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", engine.ErrFileAccess, err)
	}
	return abs, abs, nil
}

// loadOrCreate initializes the store from its file or writes the initial
// version zero. Runs the configured migration when the file carries an older
// schema.
func loadOrCreate(st *store, cfg engine.Config) error {
	loaded, fileSchema, err := loadFile(st)
	if err != nil {
		return err
	}
	if !loaded {
		// fresh database file, persist version zero right away so open
		// failures (bad directory, no permissions) surface here
		return persist(st, st.state, st.version)
	}
	if fileSchema == cfg.SchemaVersion {
		return nil
	}
	if fileSchema > cfg.SchemaVersion {
		return fmt.Errorf("%w: file schema %d is newer than requested %d", engine.ErrSchemaMismatch, fileSchema, cfg.SchemaVersion)
	}
	if cfg.Migrate == nil {
		return fmt.Errorf("%w: file schema %d needs migration to %d", engine.ErrSchemaMismatch, fileSchema, cfg.SchemaVersion)
	}
	return migrate(st, fileSchema, cfg.Migrate)
}

// migrate runs fn inside an internal write transaction and commits the
// result under the configured schema version.
func migrate(st *store, fromSchema uint32, fn engine.MigrateFunc) error {
	c := &conn{store: st, snaps: make(map[*snapshot]struct{}), subs: make(map[int64]struct{})}
	st.mu.Lock()
	st.conns++
	st.mu.Unlock()
	defer c.Close()

	tx, err := c.BeginWrite()
	if err != nil {
		return err
	}
	if err = fn(fromSchema, tx); err != nil {
		tx.Rollback()
		return err
	}
	snap, err := tx.Commit()
	if err != nil {
		return err
	}
	snap.Release()
	return nil
}

// detach returns a copy of obj that shares no mutable state with the store.
func detach(obj engine.Object) engine.Object {
	if obj == nil {
		return nil
	}
	out := make(engine.Object, len(obj))
	for k, v := range obj {
		if b, ok := v.([]byte); ok {
			v = append([]byte(nil), b...)
		}
		out[k] = v
	}
	return out
}

// normalize widens machine-sized ints so that values read back after a
// reopen compare equal to what was written.
func normalize(obj engine.Object) engine.Object {
	out := detach(obj)
	for k, v := range out {
		switch n := v.(type) {
		case int:
			out[k] = int64(n)
		case int32:
			out[k] = int64(n)
		case uint32:
			out[k] = int64(n)
		case float32:
			out[k] = float64(n)
		}
	}
	return out
}
