package piped

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/eleven-am/godash/internal/domain"
)

type pageResponse struct {
	NextPage       *string      `json:"nextpage"`
	RelatedStreams []streamItem `json:"relatedStreams"`
}

type streamItem struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// PlaylistPage fetches the first page of a playlist when pageToken is empty
// and the continuation page otherwise.
func (c *Client) PlaylistPage(ctx context.Context, playlistID string, pageToken string) (domain.Page, error) {
	if pageToken == "" {
		return c.page(ctx, "playlist", "/playlists/"+url.PathEscape(playlistID), nil)
	}
	return c.page(ctx, "playlist_next", "/nextpage/playlists/"+url.PathEscape(playlistID), url.Values{"nextpage": {pageToken}})
}

// ChannelPage is PlaylistPage for a channel's upload feed.
func (c *Client) ChannelPage(ctx context.Context, channelID string, pageToken string) (domain.Page, error) {
	if pageToken == "" {
		return c.page(ctx, "channel", "/channel/"+url.PathEscape(channelID), nil)
	}
	return c.page(ctx, "channel_next", "/nextpage/channel/"+url.PathEscape(channelID), url.Values{"nextpage": {pageToken}})
}

func (c *Client) page(ctx context.Context, endpoint, p string, query url.Values) (domain.Page, error) {
	body, err := c.Get(ctx, endpoint, p, query)
	if err != nil {
		return domain.Page{}, err
	}

	var resp pageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Page{}, fmt.Errorf("decode %s page: %w", endpoint, err)
	}

	var page domain.Page
	if resp.NextPage != nil {
		page.NextPageToken = *resp.NextPage
	}
	for _, item := range resp.RelatedStreams {
		if item.Type != "" && item.Type != "stream" {
			continue
		}
		if id := VideoID(item.URL); id != "" {
			page.VideoIDs = append(page.VideoIDs, id)
		}
	}
	return page, nil
}

// VideoID extracts the id from "/watch?v=ID" style urls. Anything else yields
// its last path element.
func VideoID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
