package godash

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/eleven-am/godash/internal/chapter"
	"github.com/eleven-am/godash/internal/domain"
	"github.com/eleven-am/godash/internal/log"
	"github.com/eleven-am/godash/internal/manifest"
	"github.com/eleven-am/godash/internal/poller"
	"github.com/eleven-am/godash/internal/sponsorblock"
)

var ErrSubtitleNotFound = errors.New("subtitle not found")

// Session is one loaded video. Exactly one of Manifest and HLS is non-empty.
type Session struct {
	// ID correlates the session's log lines.
	ID       string
	VideoID  string
	Streams  *Streams
	Chapters []Chapter

	manifest []byte
	hls      string
	segments []domain.Segment
	skipper  *sponsorblock.Skipper
	interval time.Duration

	// pollLogger has no session id; the poller reads it from the context.
	pollLogger zerolog.Logger
}

// Manifest returns the rendered DASH manifest, or nil for HLS playback.
func (s *Session) Manifest() []byte {
	return s.manifest
}

// ManifestDataURI returns the manifest as a base64 data URI, or "" for HLS
// playback.
func (s *Session) ManifestDataURI() string {
	if s.manifest == nil {
		return ""
	}
	return manifest.DataURI(s.manifest)
}

// HLS returns the HLS url when the session plays over HLS.
func (s *Session) HLS() string {
	return s.hls
}

// Segments returns the sponsor segments fetched for this video.
func (s *Session) Segments() []Segment {
	out := make([]Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Chapter returns the chapter playing at positionMs.
func (s *Session) Chapter(positionMs int64) (Chapter, bool) {
	return chapter.Current(positionMs, s.Chapters)
}

// Subtitle returns the subtitle track for lang. Matching ignores case, and
// a manually authored track wins over an auto-generated one.
func (s *Session) Subtitle(lang string) (Subtitle, error) {
	var fallback *domain.Subtitle
	for i := range s.Streams.Subtitles {
		sub := &s.Streams.Subtitles[i]
		if !strings.EqualFold(sub.LanguageCode, lang) {
			continue
		}
		if !sub.AutoGenerated {
			return *sub, nil
		}
		if fallback == nil {
			fallback = sub
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return Subtitle{}, fmt.Errorf("subtitle %q: %w", lang, ErrSubtitleNotFound)
}

// StartPolling starts skipping segments against player. It returns a nil
// Poller when no category is enabled. onTick, if set, runs on the poll
// goroutine and must not block.
//
// The session's skip state lives in the returned Poller; start at most one
// per session.
func (s *Session) StartPolling(ctx context.Context, player Player, onTick func(Tick)) (*Poller, error) {
	if !s.skipper.Enabled() {
		return nil, nil
	}
	p := poller.New(s.skipper, player, poller.Options{
		Interval: s.interval,
		OnTick:   onTick,
		Logger:   s.pollLogger,
	})
	if err := p.Start(log.ContextWithSessionID(ctx, s.ID)); err != nil {
		return nil, fmt.Errorf("start poller: %w", err)
	}
	return p, nil
}
