package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryodb/cryo/engine"
)

func waitCtx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestDatabaseChanged(t *testing.T) {
	fx := newFixture(t)

	stream, err := fx.DatabaseChanged(ctx)
	require.NoError(t, err)

	const commits = 3
	for i := 0; i < commits; i++ {
		fx.put(t, "tasks", "a", engine.Object{"i": int64(i)})
	}

	// every version arrives, in commit order, none skipped
	for i := 1; i <= commits; i++ {
		ref, err := stream.WaitOne(waitCtx(t))
		require.NoError(t, err)
		assert.Equal(t, Version(i), ref.Version())
		obj, ok := ref.Snapshot().Get("tasks", "a")
		require.True(t, ok)
		assert.Equal(t, int64(i-1), obj["i"])
	}

	require.NoError(t, stream.Close())
	_, err = stream.WaitOne(waitCtx(t))
	require.ErrorIs(t, err, ErrStreamClosed)

	// publishing keeps working with the subscriber gone
	fx.put(t, "tasks", "a", engine.Object{"i": int64(commits)})
}

func TestDatabaseChangedMultipleSubscribers(t *testing.T) {
	fx := newFixture(t)

	s1, err := fx.DatabaseChanged(ctx)
	require.NoError(t, err)
	s2, err := fx.DatabaseChanged(ctx)
	require.NoError(t, err)

	res := fx.put(t, "tasks", "a", engine.Object{"n": int64(1)})

	for _, s := range []*Stream[*VersionedRef]{s1, s2} {
		ref, err := s.WaitOne(waitCtx(t))
		require.NoError(t, err)
		assert.Equal(t, res.Version, ref.Version())
	}
	require.NoError(t, s1.Close())
	require.NoError(t, s2.Close())
}

func TestDatabaseChangedAcrossHandles(t *testing.T) {
	path := fmt.Sprintf(":memory:%s", t.Name())

	writerDB, err := Open(ctx, Config{Path: path})
	require.NoError(t, err)
	defer writerDB.Close(ctx)
	watcherDB, err := Open(ctx, Config{Path: path})
	require.NoError(t, err)
	defer watcherDB.Close(ctx)

	stream, err := watcherDB.DatabaseChanged(ctx)
	require.NoError(t, err)
	defer stream.Close()

	res, err := writerDB.Write(ctx, func(tx *Tx) (any, error) {
		tx.Put("tasks", "a", engine.Object{"from": "other handle"})
		return nil, nil
	})
	require.NoError(t, err)

	ref, err := stream.WaitOne(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, res.Version, ref.Version())

	// the foreign commit advanced the watching handle too
	v, err := watcherDB.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Version, v)
}

func TestObserveObject(t *testing.T) {
	fx := newFixture(t)
	fx.put(t, "tasks", "a", engine.Object{"state": "initial"})

	ref := engine.ObjectRef{Collection: "tasks", ID: "a"}
	stream, err := fx.ObserveObject(ctx, ref)
	require.NoError(t, err)

	fx.put(t, "tasks", "a", engine.Object{"state": "updated"})
	ch, err := stream.WaitOne(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, engine.ObjectChanged, ch.Kind)
	assert.Equal(t, ref, ch.Ref)
	assert.Equal(t, "updated", ch.Object["state"])

	// unrelated objects do not show up on this stream
	fx.put(t, "tasks", "b", engine.Object{"n": int64(1)})

	res, err := fx.Write(ctx, func(tx *Tx) (any, error) {
		tx.Delete("tasks", "a")
		return nil, nil
	})
	require.NoError(t, err)

	ch, err = stream.WaitOne(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, engine.ObjectDeleted, ch.Kind)
	assert.Nil(t, ch.Object)
	assert.Equal(t, uint64(res.Version), ch.Version)

	// deletion completes the stream
	_, err = stream.WaitOne(waitCtx(t))
	require.ErrorIs(t, err, ErrStreamClosed)
}

func TestObserveObjectAlreadyDeleted(t *testing.T) {
	fx := newFixture(t)

	stream, err := fx.ObserveObject(ctx, engine.ObjectRef{Collection: "tasks", ID: "missing"})
	require.NoError(t, err)
	// an observer of a gone object gets a completed stream, not an error
	_, err = stream.WaitOne(waitCtx(t))
	require.ErrorIs(t, err, ErrStreamClosed)
}

func TestObserveObjectStreamClose(t *testing.T) {
	fx := newFixture(t)
	fx.put(t, "tasks", "a", engine.Object{"n": int64(0)})

	stream, err := fx.ObserveObject(ctx, engine.ObjectRef{Collection: "tasks", ID: "a"})
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())

	// writes after the unsubscribe must not block on the dead stream
	for i := 1; i <= 3; i++ {
		fx.put(t, "tasks", "a", engine.Object{"n": int64(i)})
	}
}

func TestCommitBeforeObjectUpdate(t *testing.T) {
	fx := newFixture(t)
	fx.put(t, "tasks", "a", engine.Object{"n": int64(0)})

	commits, err := fx.DatabaseChanged(ctx)
	require.NoError(t, err)
	defer commits.Close()
	objects, err := fx.ObserveObject(ctx, engine.ObjectRef{Collection: "tasks", ID: "a"})
	require.NoError(t, err)
	defer objects.Close()

	res := fx.put(t, "tasks", "a", engine.Object{"n": int64(1)})

	// the object update for a commit is never ahead of the commit itself:
	// once it arrived, the version notification is already buffered
	ch, err := objects.WaitOne(waitCtx(t))
	require.NoError(t, err)
	require.Equal(t, uint64(res.Version), ch.Version)

	ref, err := commits.WaitOne(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, res.Version, ref.Version())
}

func TestLaggingSubscriberLeaksNoVersions(t *testing.T) {
	fx := newFixture(t, func(c *Config) {
		c.StreamBufferSize = 1
		c.PublishTimeout = 200 * time.Millisecond
	})

	// a subscriber that never consumes forces the notifier to fall behind
	// the writer, so most of its commit events arrive already superseded
	stream, err := fx.DatabaseChanged(ctx)
	require.NoError(t, err)
	defer stream.Close()

	for i := 0; i < 5; i++ {
		fx.put(t, "tasks", "a", engine.Object{"i": int64(i)})
	}

	// discarded candidates must not keep their versions pinned: once the
	// notifier drained, only the current version stays alive
	require.Eventually(t, func() bool {
		n, err := fx.NumActiveVersions(ctx)
		return err == nil && n == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSubscribeAfterCloseFails(t *testing.T) {
	fx := newFixture(t)
	fx.put(t, "tasks", "a", engine.Object{"n": int64(0)})

	// force the notifier to initialize before the handle closes
	stream, err := fx.DatabaseChanged(ctx)
	require.NoError(t, err)
	defer stream.Close()

	require.NoError(t, fx.Close(ctx))

	// registration on a closed-down notifier is refused, not leaked as a
	// stream that never completes
	_, err = fx.notifier.databaseChanged(ctx)
	require.ErrorIs(t, err, ErrClosed)
	_, err = fx.notifier.observeObject(ctx, engine.ObjectRef{Collection: "tasks", ID: "a"})
	require.ErrorIs(t, err, ErrClosed)
}

func TestCloseCompletesStreams(t *testing.T) {
	fx := newFixture(t)
	fx.put(t, "tasks", "a", engine.Object{"n": int64(0)})

	commits, err := fx.DatabaseChanged(ctx)
	require.NoError(t, err)
	objects, err := fx.ObserveObject(ctx, engine.ObjectRef{Collection: "tasks", ID: "a"})
	require.NoError(t, err)

	require.NoError(t, fx.Close(ctx))

	_, err = commits.WaitOne(waitCtx(t))
	require.ErrorIs(t, err, ErrStreamClosed)
	_, err = objects.WaitOne(waitCtx(t))
	require.ErrorIs(t, err, ErrStreamClosed)
}
