package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/eleven-am/godash/internal/domain"
	"github.com/eleven-am/godash/internal/log"
	"github.com/eleven-am/godash/internal/metrics"
)

var ErrClosed = errors.New("queue controller closed")

const DefaultMaxPages = 50

// State is the terminal state of one continuation request.
type State int

const (
	// StateInserted means the anchor is queued and current.
	StateInserted State = iota
	// StateExhausted means the source ran out of pages without containing
	// the anchor. The anchor was appended as a single entry.
	StateExhausted
	// StateFailed means a page fetch failed. The queue keeps what it had.
	StateFailed
	// StateSuperseded means Clear or a newer request replaced this one.
	StateSuperseded
)

func (s State) String() string {
	switch s {
	case StateInserted:
		return "inserted"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return "superseded"
	}
}

type Outcome struct {
	State State
	Pages int
	Err   error
}

type Options struct {
	MaxPages int
	Logger   zerolog.Logger
}

// flight is the continuation request currently being resolved.
type flight struct {
	gen       uint64
	source    domain.Source
	anchor    domain.QueueEntry
	pages     int
	lastToken string
	out       chan Outcome
	cancel    context.CancelFunc
}

type state struct {
	queue      *Queue
	generation uint64
	pending    *flight
}

// Controller owns a Queue on a single goroutine. Calls are delivered as
// messages; page fetches run in the background and report back the same way.
type Controller struct {
	fetcher  domain.PageFetcher
	maxPages int
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	inbox  chan func(*state)
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func NewController(fetcher domain.PageFetcher, opts Options) *Controller {
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		fetcher:  fetcher,
		maxPages: maxPages,
		logger:   opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
		inbox:    make(chan func(*state)),
		done:     make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

func (c *Controller) run() {
	defer c.wg.Done()
	s := &state{queue: New()}
	for {
		select {
		case <-c.done:
			c.supersede(s)
			return
		case fn := <-c.inbox:
			fn(s)
		}
	}
}

// Close stops the controller, resolving any pending request as superseded.
func (c *Controller) Close() {
	c.once.Do(func() {
		close(c.done)
		c.cancel()
	})
	c.wg.Wait()
}

// do runs fn on the controller goroutine and waits for it.
func (c *Controller) do(fn func(*state)) error {
	finished := make(chan struct{})
	select {
	case c.inbox <- func(s *state) { fn(s); close(finished) }:
	case <-c.done:
		return ErrClosed
	}
	<-finished
	return nil
}

func (c *Controller) Current() (domain.QueueEntry, bool) {
	var e domain.QueueEntry
	var ok bool
	_ = c.do(func(s *state) { e, ok = s.queue.Current() })
	return e, ok
}

func (c *Controller) HasNext() bool {
	var ok bool
	_ = c.do(func(s *state) { ok = s.queue.HasNext() })
	return ok
}

func (c *Controller) HasPrev() bool {
	var ok bool
	_ = c.do(func(s *state) { ok = s.queue.HasPrev() })
	return ok
}

func (c *Controller) Next() (domain.QueueEntry, bool) {
	var e domain.QueueEntry
	var ok bool
	_ = c.do(func(s *state) { e, ok = s.queue.Next() })
	return e, ok
}

func (c *Controller) Prev() (domain.QueueEntry, bool) {
	var e domain.QueueEntry
	var ok bool
	_ = c.do(func(s *state) { e, ok = s.queue.Prev() })
	return e, ok
}

func (c *Controller) Entries() []domain.QueueEntry {
	var out []domain.QueueEntry
	_ = c.do(func(s *state) { out = s.queue.Entries() })
	return out
}

func (c *Controller) UpdateCurrent(entry domain.QueueEntry) error {
	return c.do(func(s *state) { s.queue.UpdateCurrent(entry) })
}

func (c *Controller) Append(videoID string) error {
	return c.do(func(s *state) { s.queue.Append(videoID, domain.Source{Kind: domain.SourceSingle}) })
}

func (c *Controller) InsertNext(videoID string) error {
	return c.do(func(s *state) { s.queue.InsertNext(videoID, domain.Source{Kind: domain.SourceSingle}) })
}

func (c *Controller) Remove(index int) (bool, error) {
	var ok bool
	err := c.do(func(s *state) { ok = s.queue.Remove(index) })
	return ok, err
}

func (c *Controller) Select(videoID string) (bool, error) {
	var ok bool
	err := c.do(func(s *state) { ok = s.queue.Select(videoID) })
	return ok, err
}

// Clear empties the queue and supersedes any pending continuation.
func (c *Controller) Clear() error {
	return c.do(func(s *state) {
		c.supersede(s)
		s.generation++
		s.queue.Clear()
	})
}

// InsertFromPlaylist positions the queue on anchor within the playlist,
// fetching pages until the anchor appears or the playlist runs out. While
// the anchor is the last queued entry the following page is fetched too, so
// playback can continue past it. The returned channel receives exactly one
// Outcome.
func (c *Controller) InsertFromPlaylist(playlistID string, anchor domain.QueueEntry) (<-chan Outcome, error) {
	return c.insertFrom(domain.Source{Kind: domain.SourcePlaylist, ID: playlistID}, anchor)
}

// InsertFromChannel is InsertFromPlaylist over a channel's uploads.
func (c *Controller) InsertFromChannel(channelID string, anchor domain.QueueEntry) (<-chan Outcome, error) {
	return c.insertFrom(domain.Source{Kind: domain.SourceChannel, ID: channelID}, anchor)
}

func (c *Controller) insertFrom(src domain.Source, anchor domain.QueueEntry) (<-chan Outcome, error) {
	out := make(chan Outcome, 1)
	err := c.do(func(s *state) {
		c.supersede(s)
		s.generation++

		f := &flight{gen: s.generation, source: src, anchor: anchor, out: out}

		if s.queue.Select(anchor.VideoID) {
			// Already queued. Extend the queue when nothing follows the anchor
			// and the source has more pages.
			s.pending = f
			if !c.followAnchor(s, f) {
				c.finish(s, f, Outcome{State: StateInserted})
			}
			return
		}

		token, known := s.queue.Token(src)
		if known && token == "" {
			c.giveUp(s, f)
			return
		}
		s.pending = f
		c.fetch(f, token)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// fetch loads one page in the background. Runs on the controller goroutine.
func (c *Controller) fetch(f *flight, token string) {
	ctx, cancel := context.WithCancel(c.ctx)
	f.cancel = cancel
	f.lastToken = token

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		var page domain.Page
		var err error
		switch f.source.Kind {
		case domain.SourceChannel:
			page, err = c.fetcher.ChannelPage(ctx, f.source.ID, token)
		default:
			page, err = c.fetcher.PlaylistPage(ctx, f.source.ID, token)
		}

		select {
		case c.inbox <- func(s *state) { c.handlePage(s, f, page, err) }:
		case <-c.done:
		}
	}()
}

func (c *Controller) handlePage(s *state, f *flight, page domain.Page, err error) {
	kind := f.source.Kind.String()
	if err != nil && c.ctx.Err() != nil {
		// Closing; run resolves the pending flight as superseded.
		return
	}
	if s.pending != f || f.gen != s.generation {
		metrics.ObserveQueuePageFetch(kind, "stale")
		return
	}

	logger := c.logger.With().Str(log.FieldSource, f.source.Key()).Logger()

	if err != nil {
		metrics.ObserveQueuePageFetch(kind, "error")
		logger.Warn().Err(err).Int("pages", f.pages).Msg("queue page fetch failed")
		c.finish(s, f, Outcome{State: StateFailed, Pages: f.pages, Err: err})
		return
	}
	metrics.ObserveQueuePageFetch(kind, "ok")
	f.pages++

	for _, id := range page.VideoIDs {
		s.queue.Append(id, f.source)
	}
	s.queue.SetToken(f.source, page.NextPageToken)

	if s.queue.Select(f.anchor.VideoID) {
		if c.followAnchor(s, f) {
			return
		}
		logger.Debug().Int("pages", f.pages).Msg("queue positioned on anchor")
		c.finish(s, f, Outcome{State: StateInserted, Pages: f.pages})
		return
	}

	next := page.NextPageToken
	if next == "" || next == f.lastToken || f.pages >= c.maxPages {
		if next != "" {
			logger.Warn().Int("pages", f.pages).Msg("queue continuation stopped early")
		}
		c.giveUp(s, f)
		return
	}
	c.fetch(f, next)
}

// followAnchor fetches the next page of f's source when the anchor is the
// last queued entry. It stops on an exhausted or repeated token and after
// maxPages pages.
func (c *Controller) followAnchor(s *state, f *flight) bool {
	if s.queue.IndexOf(f.anchor.VideoID)+1 != s.queue.Len() {
		return false
	}
	token, _ := s.queue.Token(f.source)
	if token == "" || token == f.lastToken || f.pages >= c.maxPages {
		return false
	}
	c.fetch(f, token)
	return true
}

// giveUp appends the anchor as a single entry and makes it current.
func (c *Controller) giveUp(s *state, f *flight) {
	entry := f.anchor
	if entry.Source.Kind != domain.SourceSingle {
		entry.Source = domain.Source{Kind: domain.SourceSingle}
	}
	s.queue.Append(entry.VideoID, entry.Source)
	s.queue.Select(entry.VideoID)
	c.finish(s, f, Outcome{State: StateExhausted, Pages: f.pages})
}

// finish delivers the outcome of f and retires it.
func (c *Controller) finish(s *state, f *flight, o Outcome) {
	if s.pending == f {
		s.pending = nil
	}
	f.out <- o
}

func (c *Controller) supersede(s *state) {
	if s.pending == nil {
		return
	}
	f := s.pending
	if f.cancel != nil {
		f.cancel()
	}
	c.finish(s, f, Outcome{State: StateSuperseded, Pages: f.pages})
}
