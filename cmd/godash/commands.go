package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/eleven-am/godash"
	"github.com/eleven-am/godash/internal/piped"
	"github.com/eleven-am/godash/internal/sponsorblock"
)

func (a *app) controller() *godash.Controller {
	opts := godash.Options{
		Streams:           a.backend,
		Pages:             a.backend,
		Rewriter:          a.rewriter,
		SupportsHDR:       a.cfg.Player.SupportsHDR,
		AudioOnly:         a.cfg.Player.AudioOnly,
		VideoCodec:        a.cfg.Player.VideoCodec,
		MaxQueuePages:     a.cfg.Queue.MaxPages,
		SkipNotifications: a.cfg.SponsorBlock.Notifications,
		ShowHighlights:    a.cfg.SponsorBlock.Highlights,
		Logger:            &a.logger,
	}
	if a.cfg.SponsorBlock.Enabled {
		opts.Segments = a.segments
		opts.SkipPolicies = a.cfg.Policies()
	}
	return godash.NewController(opts)
}

var (
	manifestOutput  string
	manifestDataURI bool
)

var manifestCmd = &cobra.Command{
	Use:   "manifest <video-id|url>",
	Short: "Print the DASH manifest of a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := current.controller()
		defer c.Close()

		s, err := c.Load(cmd.Context(), piped.VideoID(args[0]))
		if err != nil {
			return err
		}

		var out []byte
		switch {
		case s.HLS() != "":
			out = []byte(s.HLS() + "\n")
		case manifestDataURI:
			out = []byte(s.ManifestDataURI() + "\n")
		default:
			out = s.Manifest()
		}

		if manifestOutput == "" {
			_, err := cmd.OutOrStdout().Write(out)
			return err
		}
		if err := renameio.WriteFile(manifestOutput, out, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", manifestOutput, err)
		}
		current.logger.Info().Str("path", manifestOutput).Str("session", s.ID).Msg("manifest written")
		return nil
	},
}

var segmentsCmd = &cobra.Command{
	Use:   "segments <video-id|url>",
	Short: "List the sponsor segments of a video for the configured categories",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := sponsorblock.Config{
			Policies:   current.cfg.Policies(),
			Highlights: current.cfg.SponsorBlock.Highlights,
		}
		segments, err := current.segments.Segments(cmd.Context(), piped.VideoID(args[0]), cfg.Categories())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for _, s := range segments {
			fmt.Fprintf(w, "%-15s %-10s %9s - %-9s %s\n",
				s.Category,
				cfg.Policy(s.Category),
				clock(s.Start),
				clock(s.End),
				s.Description,
			)
		}
		return nil
	},
}

var queueChannel bool

var queueCmd = &cobra.Command{
	Use:   "queue <playlist-id> <video-id|url>",
	Short: "Build the queue for a video inside a playlist or channel",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := current.controller()
		defer c.Close()

		anchor := godash.QueueEntry{VideoID: piped.VideoID(args[1])}
		insert := c.Queue().InsertFromPlaylist
		if queueChannel {
			insert = c.Queue().InsertFromChannel
		}
		out, err := insert(args[0], anchor)
		if err != nil {
			return err
		}

		select {
		case o := <-out:
			if o.Err != nil {
				return fmt.Errorf("queue %s: %w", o.State, o.Err)
			}
			current.logger.Info().Str("state", o.State.String()).Int("pages", o.Pages).Msg("queue resolved")
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		}

		cur, _ := c.Queue().Current()
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Current string              `json:"current"`
			Entries []godash.QueueEntry `json:"entries"`
		}{Current: cur.VideoID, Entries: c.Queue().Entries()})
	},
}

func init() {
	manifestCmd.Flags().StringVarP(&manifestOutput, "output", "o", "", "write to this file atomically instead of stdout")
	manifestCmd.Flags().BoolVar(&manifestDataURI, "data-uri", false, "print the manifest as a base64 data URI")
	queueCmd.Flags().BoolVar(&queueChannel, "channel", false, "treat the first argument as a channel id")
}

func clock(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Millisecond)
	return d.String()
}
