package periodicsync

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cryodb/cryo/app/logger"
)

// PeriodicSync runs a callable periodically on its own goroutine. Kick
// schedules an immediate extra call without disturbing the period.
type PeriodicSync interface {
	Run()
	Kick()
	Close()
}

type CallerFunc func(ctx context.Context) error

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (tt timeTicker) C() <-chan time.Time { return tt.t.C }
func (tt timeTicker) Stop()               { tt.t.Stop() }

func NewPeriodicSync(periodSeconds int, timeout time.Duration, caller CallerFunc, l logger.CtxLogger) PeriodicSync {
	return NewPeriodicSyncDuration(time.Duration(periodSeconds)*time.Second, timeout, caller, l)
}

func NewPeriodicSyncDuration(period, timeout time.Duration, caller CallerFunc, l logger.CtxLogger) PeriodicSync {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = logger.CtxWithFields(ctx, zap.String("rootOp", "periodicCall"))
	return &periodicCall{
		caller:     caller,
		log:        l,
		loopCtx:    ctx,
		loopCancel: cancel,
		loopDone:   make(chan struct{}),
		kick:       make(chan struct{}, 1),
		period:     period,
		timeout:    timeout,
		newTicker: func(d time.Duration) ticker {
			return timeTicker{t: time.NewTicker(d)}
		},
	}
}

type periodicCall struct {
	log        logger.CtxLogger
	caller     CallerFunc
	loopCtx    context.Context
	loopCancel context.CancelFunc
	loopDone   chan struct{}
	kick       chan struct{}
	period     time.Duration
	timeout    time.Duration
	newTicker  func(d time.Duration) ticker
	isRunning  atomic.Bool
}

func (p *periodicCall) Run() {
	p.isRunning.Store(true)
	go p.loop(p.period)
}

// Kick requests one extra call as soon as the loop is free. Coalesced: many
// kicks between two calls result in a single call.
func (p *periodicCall) Kick() {
	if !p.isRunning.Load() {
		return
	}
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *periodicCall) loop(period time.Duration) {
	defer close(p.loopDone)
	doCall := func() {
		ctx := p.loopCtx
		if p.timeout != 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(p.loopCtx, p.timeout)
			defer cancel()
		}
		if err := p.caller(ctx); err != nil {
			p.log.WarnCtx(ctx, "periodic call error", zap.Error(err))
		}
	}
	doCall()
	if period <= 0 {
		// kick-only mode
		for {
			select {
			case <-p.loopCtx.Done():
				return
			case <-p.kick:
				doCall()
			}
		}
	}
	tk := p.newTicker(period)
	defer tk.Stop()
	for {
		select {
		case <-p.loopCtx.Done():
			return
		case <-p.kick:
			doCall()
		case <-tk.C():
			doCall()
		}
	}
}

func (p *periodicCall) Close() {
	if !p.isRunning.Load() {
		return
	}
	p.loopCancel()
	<-p.loopDone
}
