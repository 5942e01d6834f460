package memengine

import (
	"maps"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/cryodb/cryo/engine"
)

// writeTx builds the next version on top of its base state. Collections are
// cloned lazily on first mutation; untouched collections stay shared with
// the base, which keeps commits cheap for snapshots that pin old versions.
type writeTx struct {
	conn    *conn
	base    *state
	baseVer uint64
	work    *state
	cloned  map[string]bool
	dirty   map[engine.ObjectRef]engine.ChangeKind
	order   []engine.ObjectRef
	done    bool
}

func newWriteTx(c *conn, base *state, baseVer uint64) *writeTx {
	return &writeTx{
		conn:    c,
		base:    base,
		baseVer: baseVer,
		work:    &state{collections: maps.Clone(base.collections)},
		cloned:  make(map[string]bool),
		dirty:   make(map[engine.ObjectRef]engine.ChangeKind),
	}
}

func (tx *writeTx) Version() uint64 { return tx.baseVer + 1 }

func (tx *writeTx) collection(name string) map[string]engine.Object {
	if !tx.cloned[name] {
		tx.work.collections[name] = maps.Clone(tx.work.collections[name])
		if tx.work.collections[name] == nil {
			tx.work.collections[name] = make(map[string]engine.Object)
		}
		tx.cloned[name] = true
	}
	return tx.work.collections[name]
}

func (tx *writeTx) markDirty(ref engine.ObjectRef, kind engine.ChangeKind) {
	if _, seen := tx.dirty[ref]; !seen {
		tx.order = append(tx.order, ref)
	}
	tx.dirty[ref] = kind
}

func (tx *writeTx) Insert(collection string, obj engine.Object) (id string) {
	id = uuid.NewString()
	tx.Put(collection, id, obj)
	return id
}

func (tx *writeTx) Put(collection, id string, obj engine.Object) {
	tx.collection(collection)[id] = normalize(obj)
	tx.markDirty(engine.ObjectRef{Collection: collection, ID: id}, engine.ObjectChanged)
}

func (tx *writeTx) Delete(collection, id string) bool {
	coll := tx.collection(collection)
	if _, ok := coll[id]; !ok {
		return false
	}
	delete(coll, id)
	tx.markDirty(engine.ObjectRef{Collection: collection, ID: id}, engine.ObjectDeleted)
	return true
}

func (tx *writeTx) Get(collection, id string) (engine.Object, bool) {
	obj, ok := tx.work.get(collection, id)
	if !ok {
		return nil, false
	}
	return detach(obj), true
}

func (tx *writeTx) Count(collection string) int {
	return len(tx.work.collections[collection])
}

func (tx *writeTx) IDs(collection string) []string {
	ids := make([]string, 0, len(tx.work.collections[collection]))
	for id := range tx.work.collections[collection] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (tx *writeTx) Commit() (engine.Snapshot, error) {
	if tx.done {
		return nil, engine.ErrConnClosed
	}
	s := tx.conn.store

	s.mu.Lock()
	newVersion := tx.baseVer + 1

	// swap the base pin for the new version's pin; the cap applies here the
	// same way it applies to BeginRead
	s.unpin(tx.baseVer)
	if err := s.pin(newVersion, false); err != nil {
		_ = s.pin(tx.baseVer, true)
		s.mu.Unlock()
		return nil, err
	}

	if err := persist(s, tx.work, newVersion); err != nil {
		s.unpin(newVersion)
		_ = s.pin(tx.baseVer, true)
		s.mu.Unlock()
		return nil, err
	}

	s.version = newVersion
	s.state = tx.work

	snap := &snapshot{conn: tx.conn, st: tx.work, version: newVersion}
	if tx.conn.snaps != nil {
		tx.conn.snaps[snap] = struct{}{}
	}

	// fan-out, collected under the lock, delivered outside of it: commit
	// subscribers first, then per-object observers for the dirty set
	var commitFns []func()
	for _, sub := range s.commitSubs {
		sub := sub
		_ = s.pin(newVersion, true)
		subSnap := &snapshot{conn: sub.conn, st: tx.work, version: newVersion}
		if sub.conn.snaps != nil {
			sub.conn.snaps[subSnap] = struct{}{}
		}
		commitFns = append(commitFns, func() {
			sub.fn(engine.CommitEvent{Version: newVersion, Snapshot: subSnap})
		})
	}
	var objFns []func()
	for _, ref := range tx.order {
		for _, obs := range s.objSubs {
			if obs.ref != ref {
				continue
			}
			obs, ref := obs, ref
			ch := engine.ObjectChange{Ref: ref, Kind: tx.dirty[ref], Version: newVersion}
			if ch.Kind == engine.ObjectChanged {
				if obj, ok := tx.work.get(ref.Collection, ref.ID); ok {
					ch.Object = detach(obj)
				}
			}
			objFns = append(objFns, func() { obs.fn(ch) })
		}
	}
	s.mu.Unlock()

	for _, fn := range commitFns {
		fn()
	}
	for _, fn := range objFns {
		fn()
	}

	tx.done = true
	s.writeMu.Unlock()
	return snap, nil
}

func (tx *writeTx) Rollback() {
	if tx.done {
		return
	}
	tx.done = true
	s := tx.conn.store
	s.mu.Lock()
	s.unpin(tx.baseVer)
	s.mu.Unlock()
	s.writeMu.Unlock()
}
