package domain

import "context"

// URLRewriter maps a stream URL to the URL the player should fetch.
type URLRewriter interface {
	Rewrite(url string) string
}

// URLRewriterFunc adapts a plain function to URLRewriter.
type URLRewriterFunc func(url string) string

func (f URLRewriterFunc) Rewrite(url string) string { return f(url) }

// Notifier is called on the poll goroutine and must return promptly. The
// context it receives carries a short deadline.
type Notifier interface {
	Notify(ctx context.Context, messageKey string) error
}

type StreamFetcher interface {
	Streams(ctx context.Context, videoID string) (*Streams, error)
}

// PageFetcher loads playlist and channel feeds. An empty pageToken requests
// the first page.
type PageFetcher interface {
	PlaylistPage(ctx context.Context, playlistID string, pageToken string) (Page, error)
	ChannelPage(ctx context.Context, channelID string, pageToken string) (Page, error)
}

type SegmentFetcher interface {
	Segments(ctx context.Context, videoID string, categories []Category) ([]Segment, error)
}

// Player is the live playback handle polled by the skip loop. Positions are
// in milliseconds.
type Player interface {
	IsPlaying() bool
	Position() int64
	Duration() int64
	SeekTo(positionMs int64)
}
