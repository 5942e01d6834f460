package memengine

import (
	"golang.org/x/exp/slices"

	"github.com/cryodb/cryo/engine"
)

type snapshot struct {
	conn     *conn
	st       *state
	version  uint64
	released bool // guarded by store.mu
}

func (s *snapshot) Version() uint64 { return s.version }

func (s *snapshot) Get(collection, id string) (engine.Object, bool) {
	obj, ok := s.st.get(collection, id)
	if !ok {
		return nil, false
	}
	return detach(obj), true
}

func (s *snapshot) Count(collection string) int {
	return len(s.st.collections[collection])
}

func (s *snapshot) IDs(collection string) []string {
	ids := make([]string, 0, len(s.st.collections[collection]))
	for id := range s.st.collections[collection] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *snapshot) Release() {
	st := s.conn.store
	st.mu.Lock()
	defer st.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	st.unpin(s.version)
	if s.conn.snaps != nil {
		delete(s.conn.snaps, s)
	}
}
