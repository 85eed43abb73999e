// Package poller drives a segment skipper from live player positions.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eleven-am/godash/internal/domain"
	"github.com/eleven-am/godash/internal/log"
	"github.com/eleven-am/godash/internal/sponsorblock"
)

const DefaultInterval = 100 * time.Millisecond

// Tick is reported after every evaluation. InSegment tells the UI whether a
// manual skip affordance should stay visible.
type Tick struct {
	PositionMs int64
	Decision   sponsorblock.Decision
	InSegment  bool
}

type Options struct {
	Interval time.Duration
	// OnTick runs on the poll goroutine and must not block.
	OnTick func(Tick)
	Logger zerolog.Logger
}

type acceptRequest struct {
	reply chan acceptResult
}

type acceptResult struct {
	seekMs int64
	ok     bool
}

// Poller evaluates the skipper on a self-rescheduling timer while the player
// is playing. All skipper access happens on the poll goroutine while it runs.
type Poller struct {
	skipper  *sponsorblock.Skipper
	player   domain.Player
	interval time.Duration
	onTick   func(Tick)
	logger   zerolog.Logger
	accepts  chan acceptRequest

	// lastOffer is the index of the most recently offered segment, or -1.
	lastOffer int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

func New(skipper *sponsorblock.Skipper, player domain.Player, opts Options) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	onTick := opts.OnTick
	if onTick == nil {
		onTick = func(Tick) {}
	}
	return &Poller{
		skipper:   skipper,
		player:    player,
		interval:  interval,
		onTick:    onTick,
		logger:    opts.Logger,
		accepts:   make(chan acceptRequest),
		lastOffer: -1,
	}
}

// Start begins polling. It is a no-op when the skipper has no enabled
// categories. Polling ends by itself once the player stops playing.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != nil {
		return fmt.Errorf("poller already running")
	}
	if !p.skipper.Enabled() {
		logger := log.WithContext(ctx, p.logger)
		logger.Debug().Msg("no enabled segment categories, not polling")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	p.wg.Add(1)
	go p.run(ctx, cancel, done)
	return nil
}

// Stop ends polling and waits for the loop to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done != nil
}

// Done returns a channel closed when the current loop exits. It is nil when
// the poller is not running.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Accept skips the most recently offered segment and seeks the player past
// it.
func (p *Poller) Accept(ctx context.Context) (int64, bool) {
	for {
		p.mu.Lock()
		done := p.done
		if done == nil {
			defer p.mu.Unlock()
			return p.accept()
		}
		p.mu.Unlock()

		req := acceptRequest{reply: make(chan acceptResult, 1)}
		select {
		case p.accepts <- req:
			res := <-req.reply
			return res.seekMs, res.ok
		case <-done:
			// The loop exited; retry inline.
		case <-ctx.Done():
			return 0, false
		}
	}
}

func (p *Poller) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer p.wg.Done()
	logger := log.WithContext(ctx, p.logger)
	defer func() {
		p.mu.Lock()
		p.cancel = nil
		p.done = nil
		p.mu.Unlock()
		cancel()
		close(done)
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-p.accepts:
			seek, ok := p.accept()
			req.reply <- acceptResult{seekMs: seek, ok: ok}
		case <-timer.C:
			if !p.player.IsPlaying() {
				logger.Debug().Msg("player paused, polling stopped")
				return
			}
			if !p.skipper.Enabled() {
				return
			}
			p.tick(ctx)
			timer.Reset(p.interval)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	pos := p.player.Position()
	d := p.skipper.Evaluate(ctx, pos, p.player.Duration())

	switch d.Kind {
	case sponsorblock.DecisionAutoSkip:
		p.player.SeekTo(d.SeekToMs)
		p.lastOffer = -1
	case sponsorblock.DecisionOffer:
		p.lastOffer = d.Index
	default:
		if !p.skipper.WithinAnySegment(pos) {
			p.lastOffer = -1
		}
	}

	p.onTick(Tick{PositionMs: pos, Decision: d, InSegment: p.skipper.WithinAnySegment(pos)})
}

func (p *Poller) accept() (int64, bool) {
	if p.lastOffer < 0 {
		return 0, false
	}
	seek, ok := p.skipper.Accept(p.lastOffer)
	p.lastOffer = -1
	if ok {
		p.player.SeekTo(seek)
	}
	return seek, ok
}
