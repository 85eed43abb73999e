// Package config loads godash settings from a YAML file and GODASH_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/eleven-am/godash/internal/domain"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Log          LogConfig          `yaml:"log"`
	API          APIConfig          `yaml:"api"`
	SponsorBlock SponsorBlockConfig `yaml:"sponsorblock"`
	Player       PlayerConfig       `yaml:"player"`
	Proxy        ProxyConfig        `yaml:"proxy"`
	Cache        CacheConfig        `yaml:"cache"`
	Queue        QueueConfig        `yaml:"queue"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`
	Burst     int           `yaml:"burst"`
}

type SponsorBlockConfig struct {
	Enabled       bool              `yaml:"enabled"`
	Notifications bool              `yaml:"notifications"`
	Highlights    bool              `yaml:"highlights"`
	Categories    map[string]string `yaml:"categories"`
}

type PlayerConfig struct {
	SupportsHDR bool   `yaml:"supports_hdr"`
	VideoCodec  string `yaml:"video_codec"`
	AudioOnly   bool   `yaml:"audio_only"`
}

type ProxyConfig struct {
	Unwrap bool   `yaml:"unwrap"`
	URL    string `yaml:"url"`
}

type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

type QueueConfig struct {
	MaxPages int `yaml:"max_pages"`
}

func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		API: APIConfig{
			BaseURL:   "https://pipedapi.kavin.rocks",
			Timeout:   30 * time.Second,
			RateLimit: 5,
			Burst:     10,
		},
		SponsorBlock: SponsorBlockConfig{
			Enabled:    true,
			Highlights: true,
			Categories: map[string]string{
				string(domain.CategorySponsor): "automatic",
			},
		},
		Player: PlayerConfig{VideoCodec: "all"},
		Cache:  CacheConfig{TTL: 30 * time.Minute},
		Queue:  QueueConfig{MaxPages: 50},
	}
}

// Policies resolves the category map into typed policies. Categories set to
// off are omitted.
func (c *Config) Policies() map[domain.Category]domain.SkipPolicy {
	out := make(map[domain.Category]domain.SkipPolicy, len(c.SponsorBlock.Categories))
	for name, value := range c.SponsorBlock.Categories {
		p := domain.ParseSkipPolicy(value)
		if p == domain.PolicyOff {
			continue
		}
		out[domain.Category(name)] = p
	}
	return out
}

func (c *Config) Validate() error {
	var problems []string

	if c.API.BaseURL == "" {
		problems = append(problems, "api.base_url is required")
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("api.base_url %q is not an absolute URL", c.API.BaseURL))
	}
	if c.API.Timeout <= 0 {
		problems = append(problems, "api.timeout must be positive")
	}
	if c.API.RateLimit < 0 {
		problems = append(problems, "api.rate_limit must not be negative")
	}
	if c.Proxy.URL != "" {
		if u, err := url.Parse(c.Proxy.URL); err != nil || u.Host == "" {
			problems = append(problems, fmt.Sprintf("proxy.url %q is not an absolute URL", c.Proxy.URL))
		}
	}
	if c.Player.VideoCodec == "" {
		problems = append(problems, "player.video_codec must be \"all\" or a codec prefix")
	}
	if c.Queue.MaxPages <= 0 {
		problems = append(problems, "queue.max_pages must be positive")
	}

	names := make([]string, 0, len(c.SponsorBlock.Categories))
	for name := range c.SponsorBlock.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := strings.ToLower(strings.TrimSpace(c.SponsorBlock.Categories[name]))
		if value != "off" && domain.ParseSkipPolicy(value) == domain.PolicyOff {
			problems = append(problems, fmt.Sprintf("sponsorblock.categories.%s: unknown policy %q", name, value))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
