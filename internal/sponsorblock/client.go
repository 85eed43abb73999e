package sponsorblock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/eleven-am/godash/internal/cache"
	"github.com/eleven-am/godash/internal/domain"
	"github.com/eleven-am/godash/internal/log"
)

// Transport performs a GET against the segment API and returns the body.
// Errors carrying a StatusCode method are inspected for 404.
type Transport interface {
	Get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error)
}

type segmentsResponse struct {
	Segments []wireSegment `json:"segments"`
}

type wireSegment struct {
	UUID          string    `json:"UUID"`
	ActionType    string    `json:"actionType"`
	Category      string    `json:"category"`
	Description   string    `json:"description"`
	Locked        int       `json:"locked"`
	Segment       []float64 `json:"segment"`
	VideoDuration float64   `json:"videoDuration"`
	Votes         int       `json:"votes"`
}

// Client fetches segment lists, caching decoded responses per video and
// category set.
type Client struct {
	transport Transport
	cache     cache.Cache
	ttl       time.Duration
	group     singleflight.Group
	logger    zerolog.Logger
}

// NewClient returns a client. store may be nil to disable caching.
func NewClient(transport Transport, store cache.Cache, ttl time.Duration, logger zerolog.Logger) *Client {
	return &Client{transport: transport, cache: store, ttl: ttl, logger: logger}
}

// Segments returns the segments of videoID in the requested categories. A
// video without submissions yields an empty list.
func (c *Client) Segments(ctx context.Context, videoID string, categories []domain.Category) ([]domain.Segment, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	names, err := json.Marshal(categories)
	if err != nil {
		return nil, fmt.Errorf("encode categories: %w", err)
	}
	key := "sponsors:" + videoID + ":" + string(names)

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.load(ctx, key, videoID, string(names))
	})
	if err != nil {
		return nil, err
	}
	segs := v.([]domain.Segment)
	out := make([]domain.Segment, len(segs))
	copy(out, segs)
	return out, nil
}

func (c *Client) load(ctx context.Context, key, videoID, categories string) ([]domain.Segment, error) {
	logger := c.logger.With().Str(log.FieldVideoID, videoID).Logger()

	if c.cache != nil {
		data, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Msg("segment cache read failed")
		} else if ok {
			if segs, err := decode(data); err == nil {
				return segs, nil
			}
			logger.Warn().Msg("discarding undecodable cached segments")
		}
	}

	body, err := c.transport.Get(ctx, "sponsors", "/sponsors/"+url.PathEscape(videoID), url.Values{"category": {categories}})
	if err != nil {
		var sc interface{ StatusCode() int }
		if !errors.As(err, &sc) || sc.StatusCode() != http.StatusNotFound {
			return nil, fmt.Errorf("fetch segments %s: %w", videoID, err)
		}
		body = []byte(`{"segments":[]}`)
	}

	segs, err := decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode segments %s: %w", videoID, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, body, c.ttl); err != nil {
			logger.Warn().Err(err).Msg("segment cache write failed")
		}
	}
	return segs, nil
}

func decode(data []byte) ([]domain.Segment, error) {
	var resp segmentsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Segment, 0, len(resp.Segments))
	for _, w := range resp.Segments {
		if len(w.Segment) < 2 {
			continue
		}
		out = append(out, domain.Segment{
			UUID:          w.UUID,
			Category:      domain.Category(w.Category),
			ActionType:    domain.ActionType(w.ActionType),
			Description:   w.Description,
			Start:         w.Segment[0],
			End:           w.Segment[1],
			VideoDuration: w.VideoDuration,
			Votes:         w.Votes,
			Locked:        w.Locked,
		})
	}
	return out, nil
}
