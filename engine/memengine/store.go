package memengine

import (
	"sync"

	"github.com/cryodb/cryo/engine"
)

// store is the shared per-file state. All connections opened on the same
// path attach to one store, which is how commits made through one handle
// become visible to every other handle on the file.
type store struct {
	regKey string
	path   string // empty for in-memory stores
	key    []byte
	schema uint32
	maxVer int

	mu         sync.Mutex
	version    uint64
	state      *state
	pins       map[uint64]int
	conns      int
	subSeq     int64
	commitSubs map[int64]*commitSub
	objSubs    map[int64]*objObserver

	// writeMu serializes write transactions across all connections on the
	// file. Held from BeginWrite until Commit or Rollback returns.
	writeMu sync.Mutex
}

type commitSub struct {
	fn   func(ev engine.CommitEvent)
	conn *conn
}

type objObserver struct {
	ref  engine.ObjectRef
	fn   func(ch engine.ObjectChange)
	conn *conn
}

// state is an immutable committed version of all data. Write transactions
// build a new state; the old one stays valid for every snapshot that still
// points at it.
type state struct {
	collections map[string]map[string]engine.Object
}

func newState() *state {
	return &state{collections: make(map[string]map[string]engine.Object)}
}

func (st *state) get(collection, id string) (engine.Object, bool) {
	obj, ok := st.collections[collection][id]
	return obj, ok
}

func newStore(regKey, path string, cfg engine.Config) *store {
	return &store{
		regKey:     regKey,
		path:       path,
		key:        cfg.EncryptionKey,
		schema:     cfg.SchemaVersion,
		maxVer:     cfg.MaxActiveVersions,
		state:      newState(),
		pins:       make(map[uint64]int),
		commitSubs: make(map[int64]*commitSub),
		objSubs:    make(map[int64]*objObserver),
	}
}

// pin registers one more reference to version v. Caller holds s.mu.
// Pinning a not-yet-pinned version is refused when it would push the number
// of distinct pinned versions over the configured cap, unless force is set
// (commit fan-out must not fail half-way).
func (s *store) pin(v uint64, force bool) error {
	if !force && s.pins[v] == 0 && s.maxVer > 0 && len(s.pins)+1 > s.maxVer {
		return engine.ErrTooManyVersions
	}
	s.pins[v]++
	return nil
}

// unpin drops one reference to version v. Caller holds s.mu.
func (s *store) unpin(v uint64) {
	if n, ok := s.pins[v]; ok {
		if n <= 1 {
			delete(s.pins, v)
		} else {
			s.pins[v] = n - 1
		}
	}
}

func (s *store) numActiveVersions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pins)
}
