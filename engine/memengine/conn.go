package memengine

import (
	"github.com/cryodb/cryo/engine"
)

type conn struct {
	store  *store
	closed bool // guarded by store.mu
	// snapshots and subscriptions created through this connection, released
	// on Close; guarded by store.mu
	snaps map[*snapshot]struct{}
	subs  map[int64]struct{}
}

func (c *conn) BeginRead() (engine.Snapshot, error) {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.closed {
		return nil, engine.ErrConnClosed
	}
	if err := s.pin(s.version, false); err != nil {
		return nil, err
	}
	snap := &snapshot{conn: c, st: s.state, version: s.version}
	c.snaps[snap] = struct{}{}
	return snap, nil
}

func (c *conn) BeginWrite() (engine.WriteTx, error) {
	s := c.store
	s.mu.Lock()
	if c.closed {
		s.mu.Unlock()
		return nil, engine.ErrConnClosed
	}
	s.mu.Unlock()

	// serialize against writes from any connection on this file
	s.writeMu.Lock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if c.closed {
		s.writeMu.Unlock()
		return nil, engine.ErrConnClosed
	}
	// the in-flight write keeps its base version alive
	if err := s.pin(s.version, false); err != nil {
		s.writeMu.Unlock()
		return nil, err
	}
	return newWriteTx(c, s.state, s.version), nil
}

func (c *conn) ThawObject(ref engine.ObjectRef) (engine.LiveObject, error) {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.closed {
		return nil, engine.ErrConnClosed
	}
	obj, ok := s.state.get(ref.Collection, ref.ID)
	if !ok {
		return nil, engine.ErrDeleted
	}
	return &liveObject{ref: ref, version: s.version, value: detach(obj)}, nil
}

func (c *conn) SubscribeCommits(fn func(ev engine.CommitEvent)) (unsubscribe func()) {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subSeq++
	id := s.subSeq
	s.commitSubs[id] = &commitSub{fn: fn, conn: c}
	c.subs[id] = struct{}{}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.commitSubs, id)
		delete(c.subs, id)
	}
}

func (c *conn) ObserveObject(ref engine.ObjectRef, fn func(ch engine.ObjectChange)) (unsubscribe func(), err error) {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.closed {
		return nil, engine.ErrConnClosed
	}
	if _, ok := s.state.get(ref.Collection, ref.ID); !ok {
		return nil, engine.ErrDeleted
	}
	s.subSeq++
	id := s.subSeq
	s.objSubs[id] = &objObserver{ref: ref, fn: fn, conn: c}
	c.subs[id] = struct{}{}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.objSubs, id)
		delete(c.subs, id)
	}, nil
}

func (c *conn) NumActiveVersions() int {
	return c.store.numActiveVersions()
}

func (c *conn) Close() error {
	s := c.store

	registryMu.Lock()
	s.mu.Lock()
	if c.closed {
		s.mu.Unlock()
		registryMu.Unlock()
		return engine.ErrConnClosed
	}
	c.closed = true
	for snap := range c.snaps {
		if !snap.released {
			snap.released = true
			s.unpin(snap.version)
		}
	}
	c.snaps = nil
	for id := range c.subs {
		delete(s.commitSubs, id)
		delete(s.objSubs, id)
	}
	c.subs = nil
	s.conns--
	last := s.conns == 0
	s.mu.Unlock()
	if last {
		delete(registry, s.regKey)
	}
	registryMu.Unlock()
	return nil
}

type liveObject struct {
	ref     engine.ObjectRef
	version uint64
	value   engine.Object
}

func (o *liveObject) Ref() engine.ObjectRef { return o.ref }
func (o *liveObject) Version() uint64       { return o.version }
func (o *liveObject) Value() engine.Object  { return o.value }
