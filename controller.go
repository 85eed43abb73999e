// Package godash turns a video's stream catalog into something a player can
// consume and keeps the surrounding playback state.
//
// It synthesizes a static DASH manifest from the progressive streams an
// extraction backend reports, skips sponsor segments while a video plays,
// resolves the current chapter, and maintains a playback queue that can be
// extended from paginated playlist and channel feeds.
//
// # Architecture
//
// The library depends on collaborators supplied by the caller:
//
//   - StreamFetcher: Returns the stream catalog of a video
//   - PageFetcher: Returns pages of playlist and channel feeds
//   - SegmentFetcher: Returns sponsor segments of a video (optional)
//   - URLRewriter: Maps stream URLs before they enter the manifest (optional)
//   - Notifier: Shows a message when a segment is skipped (optional)
//
// # Basic Usage
//
//	controller := godash.NewController(godash.Options{
//	    Streams:      backend,
//	    Pages:        backend,
//	    Segments:     sponsorClient,
//	    SkipPolicies: map[godash.Category]godash.SkipPolicy{
//	        godash.CategorySponsor: godash.PolicyAutomatic,
//	    },
//	})
//	defer controller.Close()
//
//	session, err := controller.Load(ctx, "dQw4w9WgXcQ")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	player.Open(session.ManifestDataURI())
//
//	poller, err := session.StartPolling(ctx, player, nil)
//
// # Playback Flow
//
// When a video is loaded:
//
//  1. The stream catalog is fetched and grouped into adaptation sets
//  2. A manifest is rendered, or the HLS url is used for live broadcasts
//  3. Sponsor segments are fetched for the enabled categories
//  4. Chapters are merged with the highlight segment, if any
//
// While the video plays, the poller evaluates the playback position every
// PollInterval and seeks past segments whose policy is automatic.
package godash

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eleven-am/godash/internal/adaptation"
	"github.com/eleven-am/godash/internal/chapter"
	"github.com/eleven-am/godash/internal/domain"
	"github.com/eleven-am/godash/internal/log"
	"github.com/eleven-am/godash/internal/manifest"
	"github.com/eleven-am/godash/internal/poller"
	"github.com/eleven-am/godash/internal/queue"
	"github.com/eleven-am/godash/internal/sponsorblock"
)

// ErrNothingToPlay is returned by Load when a catalog has neither a usable
// DASH representation nor an HLS url.
var ErrNothingToPlay = errors.New("no playable streams")

type (
	// Streams is the stream catalog of one video.
	Streams = domain.Streams

	// StreamFetcher loads the stream catalog of a video.
	StreamFetcher = domain.StreamFetcher

	// PageFetcher loads pages of playlist and channel feeds for the queue.
	PageFetcher = domain.PageFetcher

	// SegmentFetcher loads sponsor segments for the requested categories.
	SegmentFetcher = domain.SegmentFetcher

	// URLRewriter maps a stream URL to the URL the player should fetch.
	URLRewriter = domain.URLRewriter

	// Notifier shows a localized message to the user.
	Notifier = domain.Notifier

	// Player is the live playback handle polled while a video plays.
	Player = domain.Player

	Segment    = domain.Segment
	Chapter    = domain.Chapter
	Subtitle   = domain.Subtitle
	QueueEntry = domain.QueueEntry
	Category   = domain.Category
	SkipPolicy = domain.SkipPolicy

	// Queue is the playback queue shared by every session of a Controller.
	Queue = queue.Controller

	// Poller drives segment skipping against a Player.
	Poller = poller.Poller

	// Tick reports one poll of the playback position.
	Tick = poller.Tick

	Decision = sponsorblock.Decision
)

const (
	CategorySponsor       = domain.CategorySponsor
	CategoryIntro         = domain.CategoryIntro
	CategoryOutro         = domain.CategoryOutro
	CategorySelfPromo     = domain.CategorySelfPromo
	CategoryInteraction   = domain.CategoryInteraction
	CategoryFiller        = domain.CategoryFiller
	CategoryMusicOfftopic = domain.CategoryMusicOfftopic
	CategoryPreview       = domain.CategoryPreview
	CategoryHighlight     = domain.CategoryHighlight

	PolicyOff           = domain.PolicyOff
	PolicyManual        = domain.PolicyManual
	PolicyAutomatic     = domain.PolicyAutomatic
	PolicyAutomaticOnce = domain.PolicyAutomaticOnce
)

// Options configures the Controller behavior and dependencies.
type Options struct {
	// Streams is required. Loads the stream catalog of a video.
	Streams StreamFetcher

	// Pages is required. Loads playlist and channel pages for the queue.
	Pages PageFetcher

	// Segments loads sponsor segments. When nil, no segments are skipped and
	// no highlight chapter is added.
	Segments SegmentFetcher

	// Rewriter maps every stream URL before it enters a manifest.
	// Default: URLs are used as is.
	Rewriter URLRewriter

	// Notifier is told when a segment is skipped automatically.
	Notifier Notifier

	// SkipPolicies binds categories to skip policies. Missing categories
	// are off.
	SkipPolicies map[Category]SkipPolicy

	// SkipNotifications enables Notifier calls on automatic skips.
	SkipNotifications bool

	// ShowHighlights requests the highlight category and adds it as a
	// chapter.
	ShowHighlights bool

	// SupportsHDR keeps HDR video streams in the manifest.
	SupportsHDR bool

	// AudioOnly leaves video adaptation sets out of the manifest.
	AudioOnly bool

	// VideoCodec keeps only video streams whose codec starts with it.
	// Default: "all".
	VideoCodec string

	// MaxQueuePages bounds one queue continuation search.
	// Default: 50.
	MaxQueuePages int

	// PollInterval is the delay between playback position checks.
	// Default: 100 milliseconds.
	PollInterval time.Duration

	// SegmentTimeout bounds the segment fetch during Load. A slow segment
	// API delays playback by at most this long.
	// Default: 5 seconds.
	SegmentTimeout time.Duration

	// Logger receives the controller's logs.
	// Default: the process logger with component "godash".
	Logger *zerolog.Logger
}

func (o *Options) setDefaults() {
	if o.VideoCodec == "" {
		o.VideoCodec = adaptation.AllCodecs
	}
	if o.MaxQueuePages == 0 {
		o.MaxQueuePages = queue.DefaultMaxPages
	}
	if o.PollInterval == 0 {
		o.PollInterval = poller.DefaultInterval
	}
	if o.SegmentTimeout == 0 {
		o.SegmentTimeout = 5 * time.Second
	}
	if o.Logger == nil {
		l := log.WithComponent("godash")
		o.Logger = &l
	}
}

func (o *Options) validate() {
	if o.Streams == nil {
		panic("godash: Streams is required")
	}
	if o.Pages == nil {
		panic("godash: Pages is required")
	}
}

// Controller loads videos into sessions and owns the playback queue.
//
// A Controller must be closed with Close when no longer needed to stop the
// queue's background goroutine.
type Controller struct {
	opts    Options
	builder *manifest.Builder
	skip    sponsorblock.Config
	queue   *queue.Controller
	logger  zerolog.Logger
}

// NewController creates a new Controller with the given options.
// It panics if required options (Streams, Pages) are nil.
func NewController(opts Options) *Controller {
	opts.validate()
	opts.setDefaults()

	logger := *opts.Logger
	return &Controller{
		opts:    opts,
		builder: manifest.NewBuilder(opts.Rewriter, opts.VideoCodec, logger.With().Str(log.FieldComponent, "manifest").Logger()),
		skip: sponsorblock.Config{
			Policies:      opts.SkipPolicies,
			Notifications: opts.SkipNotifications,
			Highlights:    opts.ShowHighlights,
		},
		queue: queue.NewController(opts.Pages, queue.Options{
			MaxPages: opts.MaxQueuePages,
			Logger:   logger.With().Str(log.FieldComponent, "queue").Logger(),
		}),
		logger: logger,
	}
}

// Close stops the queue, resolving any pending continuation as superseded.
func (c *Controller) Close() {
	c.queue.Close()
}

// Queue returns the playback queue.
func (c *Controller) Queue() *Queue {
	return c.queue
}

// Manifest renders the DASH manifest for streams. Streams that cannot be
// represented are left out; a catalog without usable streams yields an MPD
// with an empty period.
func (c *Controller) Manifest(streams *Streams) ([]byte, error) {
	doc, err := manifest.RenderBytes(c.builder.Build(streams, c.opts.SupportsHDR, c.opts.AudioOnly))
	if err != nil {
		return nil, fmt.Errorf("render manifest: %w", err)
	}
	return doc, nil
}

// ManifestDataURI is Manifest encoded as a base64 data URI.
func (c *Controller) ManifestDataURI(streams *Streams) (string, error) {
	doc, err := c.Manifest(streams)
	if err != nil {
		return "", err
	}
	return manifest.DataURI(doc), nil
}

// Load fetches the catalog of videoID and prepares a session for it.
//
// Live broadcasts and catalogs without DASH representations fall back to
// the HLS url when there is one. Segment fetch failures only disable
// skipping for this session.
func (c *Controller) Load(ctx context.Context, videoID string) (*Session, error) {
	streams, err := c.opts.Streams.Streams(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("fetch streams: %w", err)
	}

	id := uuid.New().String()
	videoLogger := c.logger.With().Str(log.FieldVideoID, videoID).Logger()
	logger := videoLogger.With().Str(log.FieldSessionID, id).Logger()

	s := &Session{
		ID:         id,
		VideoID:    videoID,
		Streams:    streams,
		interval:   c.opts.PollInterval,
		pollLogger: videoLogger.With().Str(log.FieldComponent, "poller").Logger(),
	}

	if streams.IsLive() {
		if streams.HLS == "" {
			return nil, fmt.Errorf("load %s: live without hls: %w", videoID, ErrNothingToPlay)
		}
		s.hls = streams.HLS
	} else {
		root := c.builder.Build(streams, c.opts.SupportsHDR, c.opts.AudioOnly)
		if len(root.FindAll("Representation")) == 0 {
			if streams.HLS == "" {
				return nil, fmt.Errorf("load %s: %w", videoID, ErrNothingToPlay)
			}
			logger.Info().Msg("no dash representations, using hls")
			s.hls = streams.HLS
		} else {
			doc, err := manifest.RenderBytes(root)
			if err != nil {
				return nil, fmt.Errorf("render manifest: %w", err)
			}
			s.manifest = doc
		}
	}

	segments := c.segments(ctx, videoID, logger)
	s.segments = segments
	s.skipper = sponsorblock.NewSkipper(c.skip, segments, c.opts.Notifier, logger.With().Str(log.FieldComponent, "sponsorblock").Logger())

	var highlights []domain.Segment
	if h, ok := s.skipper.Highlight(); ok {
		highlights = []domain.Segment{h}
	}
	s.Chapters = chapter.WithHighlight(streams.Chapters, highlights, nil)

	logger.Debug().
		Bool("hls", s.hls != "").
		Int("segments", len(segments)).
		Int("chapters", len(s.Chapters)).
		Msg("session loaded")
	return s, nil
}

func (c *Controller) segments(ctx context.Context, videoID string, logger zerolog.Logger) []domain.Segment {
	if c.opts.Segments == nil {
		return nil
	}
	categories := c.skip.Categories()
	if len(categories) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.SegmentTimeout)
	defer cancel()

	segments, err := c.opts.Segments.Segments(ctx, videoID, categories)
	if err != nil {
		logger.Warn().Err(err).Msg("segment fetch failed, skipping disabled")
		return nil
	}
	return segments
}
