package database

import (
	"github.com/cryodb/cryo/engine"
)

// Version identifies a committed state of the database. Versions are
// totally ordered and never reused.
type Version uint64

// VersionedRef pairs a Version with the frozen engine snapshot holding that
// version's data. Immutable: advancing the database constructs a new ref,
// the ones already handed out stay valid and unchanged.
type VersionedRef struct {
	db       *DB
	snapshot engine.Snapshot
	version  Version
}

func newRef(db *DB, snapshot engine.Snapshot) *VersionedRef {
	return &VersionedRef{db: db, snapshot: snapshot, version: Version(snapshot.Version())}
}

func (r *VersionedRef) Version() Version {
	return r.version
}

// Snapshot exposes the frozen data of this version for reading.
func (r *VersionedRef) Snapshot() engine.Snapshot {
	return r.snapshot
}

// DB returns the owning handle. Lookup only, the ref does not keep the
// handle alive or open.
func (r *VersionedRef) DB() *DB {
	return r.db
}

// Release unpins the underlying snapshot version. Reads through the ref
// stay valid; only the active-versions accounting changes.
func (r *VersionedRef) Release() {
	r.snapshot.Release()
}

// liveInstance is one open engine connection bound to the dispatcher that
// owns it. version tracks the connection's current position and is only
// touched by jobs on disp.
type liveInstance struct {
	conn    engine.Conn
	disp    *dispatcher
	version Version
}

// close must run on the owning dispatcher.
func (li *liveInstance) close() error {
	return li.conn.Close()
}
