package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "GODASH_"

// Loader applies defaults, then the YAML file, then the environment.
type Loader struct {
	path   string
	lookup func(string) (string, bool)
}

func NewLoader(path string) *Loader {
	return &Loader{path: path, lookup: os.LookupEnv}
}

func Load(path string) (Config, error) {
	return NewLoader(path).Load()
}

func (l *Loader) Load() (Config, error) {
	cfg := Default()

	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", l.path, err)
		}
	}

	if err := l.applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	var err error

	l.envString("LOG_LEVEL", &cfg.Log.Level)
	l.envString("API_BASE_URL", &cfg.API.BaseURL)
	if e := l.envDuration("API_TIMEOUT", &cfg.API.Timeout); e != nil {
		err = errors.Join(err, e)
	}
	if e := l.envFloat("API_RATE_LIMIT", &cfg.API.RateLimit); e != nil {
		err = errors.Join(err, e)
	}
	if e := l.envInt("API_BURST", &cfg.API.Burst); e != nil {
		err = errors.Join(err, e)
	}
	if e := l.envBool("SPONSORBLOCK_ENABLED", &cfg.SponsorBlock.Enabled); e != nil {
		err = errors.Join(err, e)
	}
	if e := l.envBool("SPONSORBLOCK_NOTIFICATIONS", &cfg.SponsorBlock.Notifications); e != nil {
		err = errors.Join(err, e)
	}
	if e := l.envBool("SPONSORBLOCK_HIGHLIGHTS", &cfg.SponsorBlock.Highlights); e != nil {
		err = errors.Join(err, e)
	}
	if e := l.envBool("PLAYER_SUPPORTS_HDR", &cfg.Player.SupportsHDR); e != nil {
		err = errors.Join(err, e)
	}
	l.envString("PLAYER_VIDEO_CODEC", &cfg.Player.VideoCodec)
	if e := l.envBool("PLAYER_AUDIO_ONLY", &cfg.Player.AudioOnly); e != nil {
		err = errors.Join(err, e)
	}
	if e := l.envBool("PROXY_UNWRAP", &cfg.Proxy.Unwrap); e != nil {
		err = errors.Join(err, e)
	}
	l.envString("PROXY_URL", &cfg.Proxy.URL)
	l.envString("CACHE_REDIS_ADDR", &cfg.Cache.RedisAddr)
	if e := l.envDuration("CACHE_TTL", &cfg.Cache.TTL); e != nil {
		err = errors.Join(err, e)
	}
	if e := l.envInt("QUEUE_MAX_PAGES", &cfg.Queue.MaxPages); e != nil {
		err = errors.Join(err, e)
	}

	// GODASH_SPONSORBLOCK_CATEGORIES=sponsor=automatic,intro=manual
	if raw, ok := l.lookup(envPrefix + "SPONSORBLOCK_CATEGORIES"); ok {
		categories := make(map[string]string)
		for _, pair := range strings.Split(raw, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			name, value, found := strings.Cut(pair, "=")
			if !found {
				err = errors.Join(err, fmt.Errorf("%w: %sSPONSORBLOCK_CATEGORIES entry %q lacks '='", ErrInvalid, envPrefix, pair))
				continue
			}
			categories[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
		cfg.SponsorBlock.Categories = categories
	}

	return err
}

func (l *Loader) envString(key string, dst *string) {
	if v, ok := l.lookup(envPrefix + key); ok {
		*dst = v
	}
}

func (l *Loader) envBool(key string, dst *bool) error {
	v, ok := l.lookup(envPrefix + key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%w: %s%s=%q is not a boolean", ErrInvalid, envPrefix, key, v)
	}
	*dst = b
	return nil
}

func (l *Loader) envInt(key string, dst *int) error {
	v, ok := l.lookup(envPrefix + key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s%s=%q is not an integer", ErrInvalid, envPrefix, key, v)
	}
	*dst = n
	return nil
}

func (l *Loader) envFloat(key string, dst *float64) error {
	v, ok := l.lookup(envPrefix + key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%w: %s%s=%q is not a number", ErrInvalid, envPrefix, key, v)
	}
	*dst = f
	return nil
}

func (l *Loader) envDuration(key string, dst *time.Duration) error {
	v, ok := l.lookup(envPrefix + key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: %s%s=%q is not a duration", ErrInvalid, envPrefix, key, v)
	}
	*dst = d
	return nil
}
