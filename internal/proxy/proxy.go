// Package proxy decides which host a player should fetch stream URLs from.
package proxy

import (
	"net/url"

	"github.com/rs/zerolog"
)

// hostParam is the query parameter proxied stream URLs use to carry the
// upstream host.
const hostParam = "host"

type Config struct {
	// Unwrap sends the player straight to the upstream host named by the
	// host query parameter.
	Unwrap bool
	// URL, when set and Unwrap does not apply, replaces host and port. The
	// stream keeps its own scheme.
	URL    string
	Logger zerolog.Logger
}

// Rewriter implements domain.URLRewriter.
type Rewriter struct {
	unwrap bool
	proxy  *url.URL
	logger zerolog.Logger
}

func NewRewriter(cfg Config) (*Rewriter, error) {
	r := &Rewriter{unwrap: cfg.Unwrap, logger: cfg.Logger}
	if cfg.URL != "" {
		u, err := url.Parse(cfg.URL)
		if err != nil {
			return nil, err
		}
		r.proxy = u
	}
	return r, nil
}

// Rewrite returns raw unchanged when it cannot be parsed or no rule applies.
func (r *Rewriter) Rewrite(raw string) string {
	if raw == "" || (!r.unwrap && r.proxy == nil) {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		r.logger.Debug().Err(err).Msg("leaving unparsable stream url as is")
		return raw
	}

	if r.unwrap {
		q := u.Query()
		if host := q.Get(hostParam); host != "" {
			q.Del(hostParam)
			u.Host = host
			u.RawQuery = q.Encode()
			return u.String()
		}
	}

	if r.proxy != nil && r.proxy.Host != "" {
		u.Host = r.proxy.Host
		return u.String()
	}
	return raw
}
