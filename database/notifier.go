package database

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/cryodb/cryo/app/logger"
	"github.com/cryodb/cryo/engine"
)

// notifier owns the second live instance of a handle. The engine advances
// it on every commit to the file, no matter which connection or process
// made it, and the notifier republishes each new version into the
// subscriber streams before any per-object update for the same commit.
type notifier struct {
	db  *DB
	log logger.CtxLogger

	// instance and dispatcher are created on first subscription
	initOnce     sync.Once
	initErr      error
	disp         *dispatcher
	inst         *liveInstance // owned by disp
	unsubCommits func()

	mu         sync.Mutex
	started    bool
	subs       map[*Stream[*VersionedRef]]struct{}
	objStreams map[*Stream[engine.ObjectChange]]struct{}

	lastPublish atomic.Time
}

func newNotifier(db *DB) *notifier {
	return &notifier{
		db:         db,
		log:        log.With(zap.String("path", db.cfg.Path), zap.String("sub", "notifier")),
		subs:       make(map[*Stream[*VersionedRef]]struct{}),
		objStreams: make(map[*Stream[engine.ObjectChange]]struct{}),
	}
}

func (n *notifier) init(ctx context.Context) error {
	n.initOnce.Do(func() {
		if n.db.closing() {
			n.initErr = ErrClosed
			return
		}
		disp := newDispatcher(n.db.cfg.StreamBufferSize)
		var conn engine.Conn
		callErr := disp.call(ctx, func() {
			if conn, n.initErr = n.db.cfg.OpenEngine(n.db.cfg.engineConfig()); n.initErr != nil {
				return
			}
			n.inst = &liveInstance{conn: conn, disp: disp}
		})
		if callErr != nil {
			n.initErr = callErr
		}
		if n.initErr != nil {
			disp.stop()
			return
		}
		n.disp = disp
		n.unsubCommits = conn.SubscribeCommits(func(ev engine.CommitEvent) {
			// fired on the committer's goroutine, hop onto our own context
			if err := disp.dispatch(context.Background(), func() { n.publishCommit(ev) }); err != nil {
				ev.Snapshot.Release()
			}
		})
		n.mu.Lock()
		n.started = true
		n.mu.Unlock()
	})
	return n.initErr
}

// databaseChanged returns a stream emitting every new version of the
// database, in commit order, losslessly.
func (n *notifier) databaseChanged(ctx context.Context) (*Stream[*VersionedRef], error) {
	if err := n.init(ctx); err != nil {
		return nil, err
	}
	s := newStream[*VersionedRef](n.db.cfg.StreamBufferSize)
	s.onClose = func() {
		n.mu.Lock()
		delete(n.subs, s)
		n.mu.Unlock()
	}
	n.mu.Lock()
	if !n.started {
		// close already snapshotted the subscriber set, a registration now
		// would never be completed
		n.mu.Unlock()
		return nil, ErrClosed
	}
	n.subs[s] = struct{}{}
	n.mu.Unlock()
	return s, nil
}

// observeObject thaws the reference against the notifier's live instance
// and converts engine callbacks into stream items. A reference to an
// already-deleted object yields a completed stream, not an error.
func (n *notifier) observeObject(ctx context.Context, ref engine.ObjectRef) (*Stream[engine.ObjectChange], error) {
	if err := n.init(ctx); err != nil {
		return nil, err
	}
	s := newStream[engine.ObjectChange](n.db.cfg.StreamBufferSize)
	var obsErr error
	callErr := n.disp.call(ctx, func() {
		if _, err := n.inst.conn.ThawObject(ref); err != nil {
			if errors.Is(err, engine.ErrDeleted) {
				_ = s.Close()
				return
			}
			obsErr = err
			return
		}
		unsub, err := n.inst.conn.ObserveObject(ref, func(ch engine.ObjectChange) {
			_ = n.disp.dispatch(context.Background(), func() { n.publishObject(s, ch) })
		})
		if err != nil {
			if errors.Is(err, engine.ErrDeleted) {
				_ = s.Close()
				return
			}
			obsErr = err
			return
		}
		s.onClose = func() {
			n.mu.Lock()
			delete(n.objStreams, s)
			n.mu.Unlock()
			// the engine token must be cancelled on the owning context
			_ = n.disp.dispatch(context.Background(), func() { unsub() })
		}
		n.mu.Lock()
		if !n.started {
			n.mu.Unlock()
			unsub()
			obsErr = ErrClosed
			return
		}
		n.objStreams[s] = struct{}{}
		n.mu.Unlock()
	})
	if callErr != nil {
		return nil, callErr
	}
	if obsErr != nil {
		return nil, obsErr
	}
	return s, nil
}

// publishCommit runs on the notifier dispatcher, once per commit, in commit
// order. Whole-database subscribers always see a version no later than any
// per-object stream sees updates from the same commit, because both are
// queued here in the order the engine fired them.
func (n *notifier) publishCommit(ev engine.CommitEvent) {
	n.inst.version = Version(ev.Version)
	ref := newRef(n.db, ev.Snapshot)
	// commits from other handles on the same file advance this handle too
	n.db.adoptRef(ref)

	n.mu.Lock()
	subs := make([]*Stream[*VersionedRef], 0, len(n.subs))
	for s := range n.subs {
		subs = append(subs, s)
	}
	n.mu.Unlock()

	for _, s := range subs {
		ctx, cancel := context.WithTimeout(context.Background(), n.db.cfg.PublishTimeout)
		err := s.add(ctx, ref)
		cancel()
		switch {
		case err == nil:
			n.db.metrics.NotifyPublishedInc()
		case errors.Is(err, ErrStreamClosed):
			// consumer went away, expected
			n.mu.Lock()
			delete(n.subs, s)
			n.mu.Unlock()
		case errors.Is(err, context.DeadlineExceeded):
			// bounded-wait policy: the slow consumer loses this version,
			// everybody else is unaffected
			n.db.metrics.NotifyDroppedInc()
			n.log.Error("subscriber stalled, version update dropped",
				zap.Uint64("version", ev.Version))
		default:
			n.log.Error("unexpected publish failure", zap.Error(err))
		}
	}
	n.lastPublish.Store(time.Now())
}

func (n *notifier) publishObject(s *Stream[engine.ObjectChange], ch engine.ObjectChange) {
	ctx, cancel := context.WithTimeout(context.Background(), n.db.cfg.PublishTimeout)
	err := s.add(ctx, ch)
	cancel()
	switch {
	case err == nil:
		if ch.Kind == engine.ObjectDeleted {
			// deletion is the last item, the stream completes
			_ = s.Close()
		}
	case errors.Is(err, ErrStreamClosed):
	case errors.Is(err, context.DeadlineExceeded):
		n.db.metrics.NotifyDroppedInc()
		n.log.Error("observer stalled, object update dropped",
			zap.String("collection", ch.Ref.Collection), zap.String("id", ch.Ref.ID))
	default:
		n.log.Error("unexpected publish failure", zap.Error(err))
	}
}

// close is synchronous: it returns after the live instance was closed on
// the notifier's own dispatcher. A notifier that was never initialized
// closes as a no-op.
func (n *notifier) close() {
	n.mu.Lock()
	if !n.started {
		n.mu.Unlock()
		return
	}
	n.started = false
	subs := make([]*Stream[*VersionedRef], 0, len(n.subs))
	for s := range n.subs {
		subs = append(subs, s)
	}
	objs := make([]*Stream[engine.ObjectChange], 0, len(n.objStreams))
	for s := range n.objStreams {
		objs = append(objs, s)
	}
	n.mu.Unlock()

	n.unsubCommits()
	for _, s := range subs {
		_ = s.Close()
	}
	for _, s := range objs {
		_ = s.Close()
	}
	_ = n.disp.call(context.Background(), func() {
		if n.inst != nil {
			if err := n.inst.close(); err != nil && !errors.Is(err, engine.ErrConnClosed) {
				n.log.Warn("notification connection close error", zap.Error(err))
			}
			n.inst = nil
		}
	})
	n.disp.stop()
	if last := n.lastPublish.Load(); !last.IsZero() {
		n.log.Debug("notifier closed", zap.Time("lastPublish", last))
	}
}
