package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/mpv-danmaku/internal/commentfile"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch MEDIA",
	Short: "Download the comments for a media file",
	Long: `Look MEDIA up on dandanplay by name and content hash and save its comments
as a comment file usable with render and preview.

Example:
  mpv-danmaku fetch ~/Videos/ep01.mkv --out ep01.json`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

var fetchOut string

func init() {
	fetchCmd.Flags().StringVarP(&fetchOut, "out", "o", "", "output file (default: MEDIA with a .danmaku.json suffix)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if configErr != nil {
		return configErr
	}
	closeLog, err := setupLogging(false)
	if err != nil {
		return err
	}
	defer closeLog()

	media := args[0]
	out := fetchOut
	if out == "" {
		out = media + ".danmaku.json"
	}

	ctx := cmd.Context()
	client, provider, err := newFetcher(ctx)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(sctx)
	}()

	records, err := client.Fetch(ctx, media)
	if err != nil {
		return fmt.Errorf("fetching comments for %s: %w", media, err)
	}
	if err := commentfile.Save(out, records); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved %d comments to %s\n", len(records), out)
	return nil
}
