// Command godash inspects what the playback core makes of a video: its DASH
// manifest, its sponsor segments, and the queue built from a playlist.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/eleven-am/godash/internal/cache"
	"github.com/eleven-am/godash/internal/config"
	"github.com/eleven-am/godash/internal/log"
	"github.com/eleven-am/godash/internal/piped"
	"github.com/eleven-am/godash/internal/proxy"
	"github.com/eleven-am/godash/internal/sponsorblock"
)

var (
	configPath string
	logLevel   string
)

// app holds the collaborators shared by every subcommand.
type app struct {
	cfg      config.Config
	logger   zerolog.Logger
	backend  *piped.Client
	segments *sponsorblock.Client
	rewriter *proxy.Rewriter
	closers  []func() error
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Debug().Err(err).Msg("close")
		}
	}
}

var current *app

var rootCmd = &cobra.Command{
	Use:           "godash",
	Short:         "Inspect manifests, sponsor segments and queues",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		current = a
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides the config file")

	rootCmd.AddCommand(manifestCmd, segmentsCmd, queueCmd)
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log.Configure(log.Config{Level: cfg.Log.Level, Output: os.Stderr, Service: "godash"})
	a := &app{cfg: cfg, logger: log.WithComponent("cli")}

	a.backend = piped.NewClient(piped.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		Burst:     cfg.API.Burst,
		Logger:    log.WithComponent("piped"),
	})

	var store cache.Cache = cache.NewMemory()
	if cfg.Cache.RedisAddr != "" {
		r, err := cache.NewRedis(ctx, cache.RedisConfig{Addr: cfg.Cache.RedisAddr}, log.WithComponent("cache"))
		if err != nil {
			a.logger.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("redis unavailable, using memory cache")
		} else {
			store = cache.NewFallback(r, store, log.WithComponent("cache"))
			a.closers = append(a.closers, r.Close)
		}
	}
	a.segments = sponsorblock.NewClient(a.backend, store, cfg.Cache.TTL, log.WithComponent("sponsorblock"))

	a.rewriter, err = proxy.NewRewriter(proxy.Config{
		Unwrap: cfg.Proxy.Unwrap,
		URL:    cfg.Proxy.URL,
		Logger: log.WithComponent("proxy"),
	})
	if err != nil {
		return nil, fmt.Errorf("proxy url: %w", err)
	}
	return a, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if current != nil {
		current.close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "godash:", err)
		stop()
		os.Exit(1)
	}
}
