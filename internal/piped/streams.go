package piped

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/eleven-am/godash/internal/domain"
)

type streamsResponse struct {
	Title        string          `json:"title"`
	Duration     int64           `json:"duration"`
	Livestream   bool            `json:"livestream"`
	HLS          string          `json:"hls"`
	VideoStreams []pipedStream   `json:"videoStreams"`
	AudioStreams []pipedStream   `json:"audioStreams"`
	Subtitles    []pipedSubtitle `json:"subtitles"`
	Chapters     []pipedChapter  `json:"chapters"`
}

type pipedStream struct {
	URL              string `json:"url"`
	Format           string `json:"format"`
	Quality          string `json:"quality"`
	MimeType         string `json:"mimeType"`
	Codec            string `json:"codec"`
	VideoOnly        bool   `json:"videoOnly"`
	Bitrate          int    `json:"bitrate"`
	InitStart        *int64 `json:"initStart"`
	InitEnd          *int64 `json:"initEnd"`
	IndexStart       *int64 `json:"indexStart"`
	IndexEnd         *int64 `json:"indexEnd"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	FPS              int    `json:"fps"`
	AudioTrackID     string `json:"audioTrackId"`
	AudioTrackName   string `json:"audioTrackName"`
	AudioTrackType   string `json:"audioTrackType"`
	AudioTrackLocale string `json:"audioTrackLocale"`
}

type pipedSubtitle struct {
	URL           string `json:"url"`
	MimeType      string `json:"mimeType"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	AutoGenerated bool   `json:"autoGenerated"`
}

type pipedChapter struct {
	Title string `json:"title"`
	Image string `json:"image"`
	Start int64  `json:"start"`
}

// Streams fetches the stream catalog of one video.
func (c *Client) Streams(ctx context.Context, videoID string) (*domain.Streams, error) {
	body, err := c.Get(ctx, "streams", "/streams/"+url.PathEscape(videoID), nil)
	if err != nil {
		return nil, err
	}

	var resp streamsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode streams %s: %w", videoID, err)
	}
	return resp.toDomain(), nil
}

func (r *streamsResponse) toDomain() *domain.Streams {
	out := &domain.Streams{
		Title:      r.Title,
		Duration:   r.Duration,
		Livestream: r.Livestream,
		HLS:        r.HLS,
	}

	for _, s := range r.VideoStreams {
		out.VideoStreams = append(out.VideoStreams, domain.VideoStream{
			URL:        s.URL,
			Format:     s.Format,
			Quality:    s.Quality,
			MimeType:   s.MimeType,
			Codec:      s.Codec,
			Bitrate:    s.Bitrate,
			Width:      s.Width,
			Height:     s.Height,
			FPS:        s.FPS,
			VideoOnly:  s.VideoOnly,
			IndexRange: byteRange(s.IndexStart, s.IndexEnd),
			InitRange:  byteRange(s.InitStart, s.InitEnd),
		})
	}

	for _, s := range r.AudioStreams {
		out.AudioStreams = append(out.AudioStreams, domain.AudioStream{
			URL:              s.URL,
			Format:           s.Format,
			Quality:          s.Quality,
			MimeType:         s.MimeType,
			Codec:            s.Codec,
			Bitrate:          s.Bitrate,
			AudioTrackID:     s.AudioTrackID,
			AudioTrackName:   s.AudioTrackName,
			AudioTrackType:   s.AudioTrackType,
			AudioTrackLocale: s.AudioTrackLocale,
			IndexRange:       byteRange(s.IndexStart, s.IndexEnd),
			InitRange:        byteRange(s.InitStart, s.InitEnd),
		})
	}

	for _, s := range r.Subtitles {
		out.Subtitles = append(out.Subtitles, domain.Subtitle{
			URL:           s.URL,
			MimeType:      s.MimeType,
			LanguageCode:  s.Code,
			DisplayName:   s.Name,
			AutoGenerated: s.AutoGenerated,
		})
	}

	for _, ch := range r.Chapters {
		out.Chapters = append(out.Chapters, domain.Chapter{
			Title:    ch.Title,
			Start:    ch.Start,
			ImageURL: ch.Image,
		})
	}

	return out
}

// byteRange is nil unless both bounds were reported.
func byteRange(start, end *int64) *domain.ByteRange {
	if start == nil || end == nil {
		return nil
	}
	return &domain.ByteRange{Start: *start, End: *end}
}
