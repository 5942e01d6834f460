package database

import (
	"context"
	"errors"

	"github.com/cheggaaa/mb/v3"
)

// dispatcher is a single-threaded execution context: one goroutine draining
// a mailbox of jobs. Engine handles are context-affine, so every connection
// is owned by exactly one dispatcher and only ever touched by jobs running
// on it.
type dispatcher struct {
	queue *mb.MB[func()]
	done  chan struct{}
}

func newDispatcher(size int) *dispatcher {
	d := &dispatcher{
		queue: mb.New[func()](size),
		done:  make(chan struct{}),
	}
	go d.process()
	return d
}

func (d *dispatcher) process() {
	defer close(d.done)
	for {
		job, err := d.queue.WaitOne(context.Background())
		if err != nil {
			return
		}
		job()
	}
}

// dispatch enqueues a job. ctx applies to the enqueue only, not to the job's
// execution. Returns mb.ErrClosed after stop.
func (d *dispatcher) dispatch(ctx context.Context, job func()) error {
	return d.queue.Add(ctx, job)
}

// call runs fn on the dispatcher and waits for it to finish. It does not
// give up on ctx cancellation once the job is enqueued: jobs that started
// must be waited out so cleanup on the owning context always completes.
func (d *dispatcher) call(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	err := d.dispatch(ctx, func() {
		defer close(ran)
		fn()
	})
	if err != nil {
		if errors.Is(err, mb.ErrClosed) {
			return ErrClosed
		}
		return err
	}
	select {
	case <-ran:
		return nil
	case <-d.done:
		// the loop exited; the job either ran right before that or will
		// never run
		select {
		case <-ran:
			return nil
		default:
			return ErrClosed
		}
	}
}

// stopped is closed once the dispatcher goroutine exits.
func (d *dispatcher) stopped() <-chan struct{} {
	return d.done
}

// stop closes the queue and waits for the goroutine to exit. A job that is
// mid-run finishes; jobs still queued are dropped and their callers observe
// the stop through call/stopped.
func (d *dispatcher) stop() {
	_ = d.queue.Close()
	<-d.done
}
