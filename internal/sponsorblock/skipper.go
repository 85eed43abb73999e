package sponsorblock

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/eleven-am/godash/internal/domain"
	"github.com/eleven-am/godash/internal/log"
	"github.com/eleven-am/godash/internal/metrics"
)

// SkippedMessageKey is sent to the notifier after an automatic skip.
const SkippedMessageKey = "sponsorblock.segment_skipped"

// endGuardMs suppresses matches this close to the end of the video, where a
// skip would land past the end and retrigger.
const endGuardMs = 500

// notifyTimeout bounds a skip notification. Evaluate runs on the poll
// goroutine, so a notifier that ignores its context stalls polling.
const notifyTimeout = 250 * time.Millisecond

type DecisionKind int

const (
	DecisionNone DecisionKind = iota
	DecisionAutoSkip
	DecisionOffer
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionAutoSkip:
		return "auto_skip"
	case DecisionOffer:
		return "offer"
	default:
		return "none"
	}
}

// Decision is the outcome of one evaluation. SeekToMs is set for
// DecisionAutoSkip; Segment and Index are set for both AutoSkip and Offer.
type Decision struct {
	Kind     DecisionKind
	SeekToMs int64
	Segment  domain.Segment
	Index    int
}

// Skipper matches playback positions against one video's segments. It keeps
// per-segment skipped state and must be used from a single goroutine.
type Skipper struct {
	cfg      Config
	segments []domain.Segment
	notifier domain.Notifier
	logger   zerolog.Logger
}

// NewSkipper copies segments; the skipper owns its copy for the lifetime of
// the video. notifier may be nil.
func NewSkipper(cfg Config, segments []domain.Segment, notifier domain.Notifier, logger zerolog.Logger) *Skipper {
	owned := make([]domain.Segment, len(segments))
	copy(owned, segments)
	return &Skipper{cfg: cfg, segments: owned, notifier: notifier, logger: logger}
}

// Enabled reports whether evaluation can ever produce a decision.
func (s *Skipper) Enabled() bool {
	return s.cfg.Enabled()
}

func (s *Skipper) Segments() []domain.Segment {
	out := make([]domain.Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Evaluate decides what to do at positionMs. The first segment containing
// the position decides; later segments are not consulted.
func (s *Skipper) Evaluate(ctx context.Context, positionMs, durationMs int64) Decision {
	for i := range s.segments {
		seg := &s.segments[i]
		if seg.Category == domain.CategoryHighlight || !seg.Valid() {
			continue
		}
		if abs(durationMs-positionMs) < endGuardMs {
			continue
		}
		start, end := seg.StartMs(), seg.EndMs()
		if positionMs < start || positionMs >= end {
			continue
		}

		policy := s.cfg.Policy(seg.Category)
		switch {
		case policy == domain.PolicyManual,
			policy == domain.PolicyAutomaticOnce && seg.SkippedOnce:
			return Decision{Kind: DecisionOffer, Segment: *seg, Index: i}

		case policy == domain.PolicyAutomatic,
			policy == domain.PolicyAutomaticOnce && !seg.SkippedOnce:
			seg.SkippedOnce = true
			metrics.ObserveSegmentSkip(string(seg.Category), "automatic")
			s.logger.Debug().
				Str(log.FieldCategory, string(seg.Category)).
				Int64("from_ms", positionMs).
				Int64("to_ms", end).
				Msg("auto-skipping segment")
			if s.cfg.Notifications {
				s.notify(ctx)
			}
			return Decision{Kind: DecisionAutoSkip, SeekToMs: end, Segment: *seg, Index: i}

		default:
			return Decision{}
		}
	}
	return Decision{}
}

// Accept performs a manual skip of the segment at index and returns where to
// seek.
func (s *Skipper) Accept(index int) (int64, bool) {
	if index < 0 || index >= len(s.segments) {
		return 0, false
	}
	seg := &s.segments[index]
	if seg.Category == domain.CategoryHighlight || !seg.Valid() {
		return 0, false
	}
	seg.SkippedOnce = true
	metrics.ObserveSegmentSkip(string(seg.Category), "manual")
	return seg.EndMs(), true
}

// WithinAnySegment reports whether positionMs falls inside a skippable
// segment, end inclusive.
func (s *Skipper) WithinAnySegment(positionMs int64) bool {
	for i := range s.segments {
		seg := &s.segments[i]
		if seg.Category == domain.CategoryHighlight || !seg.Valid() {
			continue
		}
		if positionMs >= seg.StartMs() && positionMs <= seg.EndMs() {
			return true
		}
	}
	return false
}

// Highlight returns the first highlight segment when highlights are enabled.
func (s *Skipper) Highlight() (domain.Segment, bool) {
	if !s.cfg.Highlights {
		return domain.Segment{}, false
	}
	for _, seg := range s.segments {
		if seg.Category == domain.CategoryHighlight {
			return seg, true
		}
	}
	return domain.Segment{}, false
}

func (s *Skipper) notify(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Debug().Str("panic", fmt.Sprint(r)).Msg("skip notification panicked")
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, SkippedMessageKey); err != nil {
		s.logger.Debug().Err(err).Msg("skip notification failed")
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
