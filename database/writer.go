package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cheggaaa/mb/v3"
	"go.uber.org/zap"

	"github.com/cryodb/cryo/app/logger"
	"github.com/cryodb/cryo/engine"
)

// Tx is the mutable transaction context a write body operates on. It is
// only valid until the body returns and must not be retained.
type Tx struct {
	ctx       context.Context
	wtx       engine.WriteTx
	cancelled bool
}

// Context carries the write marker; hand it to nested calls so that
// re-entrant writes and closes fail fast instead of deadlocking.
func (tx *Tx) Context() context.Context { return tx.ctx }

// Version this transaction will commit as. Stable for the whole body.
func (tx *Tx) Version() Version { return Version(tx.wtx.Version()) }

func (tx *Tx) Insert(collection string, obj engine.Object) (id string) {
	return tx.wtx.Insert(collection, obj)
}

func (tx *Tx) Put(collection, id string, obj engine.Object) {
	tx.wtx.Put(collection, id, obj)
}

func (tx *Tx) Delete(collection, id string) bool {
	return tx.wtx.Delete(collection, id)
}

func (tx *Tx) Get(collection, id string) (engine.Object, bool) {
	return tx.wtx.Get(collection, id)
}

func (tx *Tx) Count(collection string) int {
	return tx.wtx.Count(collection)
}

func (tx *Tx) IDs(collection string) []string {
	return tx.wtx.IDs(collection)
}

// CancelWrite requests a rollback. The body should return normally
// afterwards; the write completes without error, without committing and
// without producing a new version.
func (tx *Tx) CancelWrite() { tx.cancelled = true }

// WriteFunc is a write transaction body. Any error it returns triggers a
// rollback and propagates to the caller unchanged.
type WriteFunc func(tx *Tx) (any, error)

// WriteResult reports a finished write. Ref and Version are zero when the
// body cancelled the write.
type WriteResult struct {
	Ref       *VersionedRef
	Version   Version
	Value     any
	Cancelled bool
}

type txCtxKey struct{}

func txFromContext(ctx context.Context) *Tx {
	tx, _ := ctx.Value(txCtxKey{}).(*Tx)
	return tx
}

// CheckInTransaction fails with an ErrIllegalState-derived error when ctx
// already belongs to a running write transaction body.
func CheckInTransaction(ctx context.Context, msg string) error {
	if txFromContext(ctx) != nil {
		return fmt.Errorf("%w: %s", ErrInTransaction, msg)
	}
	return nil
}

// writer serializes all write transactions of one handle onto a single
// dispatcher owning the write connection. Exactly one body runs at a time.
type writer struct {
	db   *DB
	disp *dispatcher
	inst *liveInstance // owned by disp
	log  logger.CtxLogger
}

func newWriter(db *DB) *writer {
	return &writer{
		db:   db,
		disp: newDispatcher(db.cfg.WriteQueueSize),
		log:  log.With(zap.String("path", db.cfg.Path), zap.String("sub", "writer")),
	}
}

// start opens the write connection and the initial read snapshot on the
// writer's dispatcher.
func (w *writer) start(ctx context.Context) (initial engine.Snapshot, err error) {
	callErr := w.disp.call(ctx, func() {
		var conn engine.Conn
		if conn, err = w.db.cfg.OpenEngine(w.db.cfg.engineConfig()); err != nil {
			return
		}
		var snap engine.Snapshot
		if snap, err = conn.BeginRead(); err != nil {
			_ = conn.Close()
			return
		}
		w.inst = &liveInstance{conn: conn, disp: w.disp, version: Version(snap.Version())}
		initial = snap
	})
	if callErr != nil {
		return nil, callErr
	}
	return initial, err
}

type writeOutcome struct {
	res      WriteResult
	snap     engine.Snapshot
	err      error
	panicVal any
}

func (w *writer) write(ctx context.Context, fn WriteFunc) (res WriteResult, snap engine.Snapshot, err error) {
	outcome := make(chan writeOutcome, 1)
	if err = w.disp.dispatch(ctx, func() {
		outcome <- w.runWrite(ctx, fn)
	}); err != nil {
		if errors.Is(err, mb.ErrClosed) {
			return res, nil, ErrClosed
		}
		return res, nil, err
	}
	// once enqueued the caller waits the write out, even when cancelled: a
	// transaction that began must finish rolling back before we return
	var out writeOutcome
	select {
	case out = <-outcome:
	case <-w.disp.stopped():
		select {
		case out = <-outcome:
		default:
			return res, nil, ErrWriteInterrupted
		}
	}
	if out.panicVal != nil {
		panic(out.panicVal)
	}
	return out.res, out.snap, out.err
}

// runWrite executes one full transaction on the writer dispatcher:
// begin, body, then commit or rollback. Rollback is the unconditional
// cleanup on every non-commit exit path, panics included.
func (w *writer) runWrite(ctx context.Context, fn WriteFunc) (out writeOutcome) {
	if w.db.closing() {
		out.err = ErrWriteInterrupted
		return
	}
	if ctx.Err() != nil {
		out.err = ctx.Err()
		return
	}
	wtx, err := w.inst.conn.BeginWrite()
	if err != nil {
		out.err = err
		return
	}
	started := time.Now()
	tx := &Tx{wtx: wtx}
	tx.ctx = context.WithValue(ctx, txCtxKey{}, tx)

	// a panicking body rolls back like an error would; the panic value is
	// carried back and rethrown on the caller's goroutine so the writer
	// itself survives
	committed := false
	defer func() {
		if r := recover(); r != nil {
			if !committed {
				wtx.Rollback()
				w.db.metrics.RollbackInc()
			}
			out = writeOutcome{panicVal: r}
		}
	}()

	value, err := fn(tx)
	switch {
	case err != nil:
		wtx.Rollback()
		w.db.metrics.RollbackInc()
		// the body's error propagates unchanged
		out.err = err
		return
	case tx.cancelled:
		wtx.Rollback()
		w.db.metrics.RollbackInc()
		w.log.DebugCtx(ctx, "write cancelled by body")
		out.res = WriteResult{Cancelled: true}
		return
	case ctx.Err() != nil:
		wtx.Rollback()
		w.db.metrics.RollbackInc()
		out.err = ctx.Err()
		return
	case w.db.closing():
		wtx.Rollback()
		w.db.metrics.RollbackInc()
		w.log.WarnCtx(ctx, "write interrupted by close")
		out.err = ErrWriteInterrupted
		return
	}

	snap, err := wtx.Commit()
	if err != nil {
		wtx.Rollback()
		w.db.metrics.RollbackInc()
		out.err = err
		return
	}
	committed = true
	w.inst.version = Version(snap.Version())
	w.db.metrics.CommitInc()
	w.db.metrics.ObserveCommitDuration(time.Since(started))
	out.res = WriteResult{Version: Version(snap.Version()), Value: value}
	out.snap = snap
	return
}

// numActiveVersions delegates to the engine on the writer dispatcher.
func (w *writer) numActiveVersions(ctx context.Context) (n int, err error) {
	err = w.disp.call(ctx, func() {
		n = w.inst.conn.NumActiveVersions()
	})
	return
}

// close drains the queue, closes the connection on the owning dispatcher
// and stops it. In-flight writes fail with ErrWriteInterrupted because the
// handle flips to closing before close is called.
func (w *writer) close() {
	_ = w.disp.call(context.Background(), func() {
		if w.inst != nil {
			if err := w.inst.close(); err != nil && !errors.Is(err, engine.ErrConnClosed) {
				w.log.Warn("write connection close error", zap.Error(err))
			}
			w.inst = nil
		}
	})
	w.disp.stop()
}
