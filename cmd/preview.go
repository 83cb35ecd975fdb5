package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/mpv-danmaku/internal/commentfile"
	"github.com/zjrosen/mpv-danmaku/internal/preview"
	"github.com/zjrosen/mpv-danmaku/internal/session"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Play danmaku in the terminal",
	Long: `Run a full danmaku session against a simulated player and draw the comments
in the terminal. Comments come from a local comment file or, with --media,
from dandanplay.

Keys: space pause, ←/→ seek 5s, +/- speed, d toggle danmaku, r reload,
L logs, ? help, q quit.`,
	Args: cobra.NoArgs,
	RunE: runPreview,
}

var (
	previewComments string
	previewMedia    string
	previewPaused   bool
	previewOff      bool
)

func init() {
	previewCmd.Flags().StringVar(&previewComments, "comments", "", "comment file (JSON)")
	previewCmd.Flags().StringVar(&previewMedia, "media", "", "media file to look up on dandanplay")
	previewCmd.Flags().BoolVar(&previewPaused, "paused", false, "start paused")
	previewCmd.Flags().BoolVar(&previewOff, "off", false, "start with danmaku off")
	previewCmd.MarkFlagsMutuallyExclusive("comments", "media")
	previewCmd.MarkFlagsOneRequired("comments", "media")

	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, _ []string) error {
	if configErr != nil {
		return configErr
	}
	closeLog, err := setupLogging(true)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pcfg := preview.Config{
		Session: session.Config{Layout: cfg.Layout(), SkipPatterns: cfg.SkipPatterns},
		Enabled: !previewOff,
		Paused:  previewPaused,
	}
	if previewComments != "" {
		pcfg.Path = previewComments
		pcfg.Fetcher = commentfile.Source{Path: previewComments}
	} else {
		fetcher, provider, err := newFetcher(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = provider.Shutdown(context.Background()) }()
		pcfg.Path = previewMedia
		pcfg.Fetcher = fetcher
	}

	return preview.Run(ctx, pcfg)
}
