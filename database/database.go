// Package database is the client layer of an embedded, transactional,
// multi-version object database. A handle owns two single-threaded live
// instances of the underlying engine: one dedicated to serialized write
// transactions, one advancing on every commit to feed notification streams.
// Readers never block: they load the current frozen reference from an
// atomic slot that only ever moves forward in version order.
package database

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cryodb/cryo/app/logger"
	"github.com/cryodb/cryo/engine"
	"github.com/cryodb/cryo/metric"
	"github.com/cryodb/cryo/util/periodicsync"
)

const CName = "database"

var log = logger.NewNamed(CName)

const (
	stateOpen = iota
	stateClosing
	stateClosed
)

// DB is a handle to one open database.
type DB struct {
	cfg     Config
	log     logger.CtxLogger
	metrics *metric.Metrics

	writer   *writer
	notifier *notifier

	// current is the latest adopted VersionedRef; reads are lock-free,
	// replacement goes through updateMu and never regresses
	current  atomic.Pointer[VersionedRef]
	updateMu sync.Mutex

	state        atomic.Int32
	versionWatch periodicsync.PeriodicSync
}

// Open opens (creating if needed) the database described by cfg.
func Open(ctx context.Context, cfg Config) (db *DB, err error) {
	if err = cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if cfg.Logger != nil {
		cfg.Logger.ApplyGlobal()
	}

	db = &DB{
		cfg:     cfg,
		log:     log.With(zap.String("path", cfg.Path)),
		metrics: metric.New(cfg.Metric),
	}
	if err = db.metrics.Run(ctx); err != nil {
		db.log.Warn("metrics endpoint failed to start", zap.Error(err))
	}

	db.writer = newWriter(db)
	initial, err := db.writer.start(ctx)
	if err != nil {
		db.writer.disp.stop()
		_ = db.metrics.Close(ctx)
		return nil, err
	}
	db.current.Store(newRef(db, initial))
	db.notifier = newNotifier(db)

	db.versionWatch = periodicsync.NewPeriodicSync(
		cfg.ActiveVersionsCheckSeconds, time.Second*5, db.refreshActiveVersions, db.log)
	db.versionWatch.Run()

	db.log.InfoCtx(ctx, "database opened", zap.Uint64("version", uint64(initial.Version())))
	return db, nil
}

// Write runs fn as a serialized write transaction. The caller suspends
// until the writer executed the body and committed or rolled back; caller
// cancellation is honored only after the transaction finished rolling back.
func (db *DB) Write(ctx context.Context, fn WriteFunc) (WriteResult, error) {
	if err := CheckInTransaction(ctx, "cannot start a write from inside a write transaction"); err != nil {
		return WriteResult{}, err
	}
	return db.write(ctx, fn)
}

// WriteBlocking is the synchronous variant: it ignores caller cancellation
// and always runs the transaction to its end.
func (db *DB) WriteBlocking(ctx context.Context, fn WriteFunc) (WriteResult, error) {
	if err := CheckInTransaction(ctx, "cannot start a blocking write from inside a write transaction"); err != nil {
		return WriteResult{}, err
	}
	return db.write(context.WithoutCancel(ctx), fn)
}

func (db *DB) write(ctx context.Context, fn WriteFunc) (WriteResult, error) {
	if db.closing() {
		db.metrics.WriteErrorInc()
		return WriteResult{}, ErrClosed
	}
	res, snap, err := db.writer.write(ctx, fn)
	if err != nil {
		db.metrics.WriteErrorInc()
		return WriteResult{}, err
	}
	if res.Cancelled {
		return res, nil
	}
	res.Ref = newRef(db, snap)
	db.adoptRef(res.Ref)
	db.versionWatch.Kick()
	return res, nil
}

// adoptRef replaces the current reference if the candidate is not older.
// A slower-to-arrive commit can never overwrite a newer one.
func (db *DB) adoptRef(ref *VersionedRef) {
	db.updateMu.Lock()
	defer db.updateMu.Unlock()
	if db.closing() {
		ref.Release()
		return
	}
	cur := db.current.Load()
	if cur != nil && ref.version < cur.version {
		// a discarded candidate must not keep its version pinned
		ref.Release()
		db.log.Debug("stale version discarded",
			zap.Uint64("candidate", uint64(ref.version)), zap.Uint64("current", uint64(cur.version)))
		return
	}
	db.current.Store(ref)
	if cur != nil && cur != ref {
		cur.Release()
	}
}

// Version reports the version of the current reference. Inside a write
// transaction body (ctx obtained from Tx.Context) it reports the version
// the in-progress transaction will commit as, stable for the whole body.
func (db *DB) Version(ctx context.Context) (Version, error) {
	if db.closing() {
		return 0, ErrClosed
	}
	if tx := txFromContext(ctx); tx != nil {
		return tx.Version(), nil
	}
	cur := db.current.Load()
	if cur == nil {
		return 0, ErrClosed
	}
	return cur.version, nil
}

// CurrentRef returns the latest adopted reference. The ref is immutable;
// later commits swap in new refs without touching this one.
func (db *DB) CurrentRef(ctx context.Context) (*VersionedRef, error) {
	if db.closing() {
		return nil, ErrClosed
	}
	cur := db.current.Load()
	if cur == nil {
		return nil, ErrClosed
	}
	return cur, nil
}

// NumActiveVersions reports how many distinct versions are pinned by
// outstanding references across all connections to the file. Growth here
// means some reader, stream or ref is holding history alive.
func (db *DB) NumActiveVersions(ctx context.Context) (int, error) {
	if db.closing() {
		return 0, ErrClosed
	}
	return db.writer.numActiveVersions(ctx)
}

// DatabaseChanged subscribes to whole-database version updates. Every
// committed version is delivered, in order, to every subscriber.
func (db *DB) DatabaseChanged(ctx context.Context) (*Stream[*VersionedRef], error) {
	if db.closing() {
		return nil, ErrClosed
	}
	return db.notifier.databaseChanged(ctx)
}

// ObserveObject subscribes to changes of a single object. The stream
// completes after the object is deleted, or immediately when it already
// was.
func (db *DB) ObserveObject(ctx context.Context, ref engine.ObjectRef) (*Stream[engine.ObjectChange], error) {
	if db.closing() {
		return nil, ErrClosed
	}
	return db.notifier.observeObject(ctx, ref)
}

func (db *DB) IsClosed() bool {
	return db.state.Load() != stateOpen
}

func (db *DB) closing() bool {
	return db.state.Load() != stateOpen
}

// Close tears the handle down: the writer first (any in-flight write fails
// with ErrWriteInterrupted after rolling back), then the notifier on its
// own context, then the current reference. Calling it from inside a write
// transaction body fails with ErrInTransaction and leaves the handle open.
func (db *DB) Close(ctx context.Context) error {
	if err := CheckInTransaction(ctx, "cannot close the database from inside a write transaction"); err != nil {
		return err
	}
	if !db.state.CompareAndSwap(stateOpen, stateClosing) {
		return ErrClosed
	}
	db.versionWatch.Close()
	db.writer.close()
	db.notifier.close()

	db.updateMu.Lock()
	if cur := db.current.Swap(nil); cur != nil {
		cur.Release()
	}
	db.updateMu.Unlock()

	if err := db.metrics.Close(ctx); err != nil {
		db.log.Warn("metrics close error", zap.Error(err))
	}
	db.state.Store(stateClosed)
	db.log.InfoCtx(ctx, "database closed")
	return nil
}

func (db *DB) refreshActiveVersions(ctx context.Context) error {
	if db.closing() {
		return nil
	}
	n, err := db.writer.numActiveVersions(ctx)
	if err != nil {
		return nil
	}
	db.metrics.SetActiveVersions(n)
	if t := db.cfg.ActiveVersionsWarnThreshold; t > 0 && n > t {
		db.log.Warn("active version count above threshold",
			zap.Int("active", n), zap.Int("threshold", t))
	}
	return nil
}
