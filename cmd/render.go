package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/mpv-danmaku/internal/commentfile"
	"github.com/zjrosen/mpv-danmaku/internal/danmaku"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the overlay markup of one frame",
	Long: `Load a comment file and print the ASS markup mpv would receive at the given
playback position.

Example:
  mpv-danmaku render --comments ep01.json --pos 42.5
  mpv-danmaku render --comments ep01.json --pos 10 --width 1280 --height 720 --frames 3`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

var (
	renderComments string
	renderPos      float64
	renderWidth    float64
	renderHeight   float64
	renderSpeed    float64
	renderFrames   int
)

func init() {
	renderCmd.Flags().StringVar(&renderComments, "comments", "", "comment file (JSON)")
	renderCmd.Flags().Float64Var(&renderPos, "pos", 0, "playback position in seconds")
	renderCmd.Flags().Float64Var(&renderWidth, "width", 1920, "overlay width in pixels")
	renderCmd.Flags().Float64Var(&renderHeight, "height", 1080, "overlay height in pixels")
	renderCmd.Flags().Float64Var(&renderSpeed, "speed", 1, "playback speed")
	renderCmd.Flags().IntVar(&renderFrames, "frames", 1, "consecutive ticks to render")
	_ = renderCmd.MarkFlagRequired("comments")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, _ []string) error {
	if configErr != nil {
		return configErr
	}
	if renderWidth <= 0 || renderHeight <= 0 {
		return fmt.Errorf("width and height must be positive")
	}
	if renderFrames < 1 {
		return fmt.Errorf("frames must be at least 1")
	}

	records, err := commentfile.Load(renderComments)
	if err != nil {
		return err
	}
	store := danmaku.NewStore(records)
	engine := danmaku.NewEngine(cfg.Layout())
	interval := cfg.Layout().Interval.Seconds()

	out := cmd.OutOrStdout()
	for i := range renderFrames {
		if i > 0 {
			_, _ = fmt.Fprintln(out)
		}
		frame := danmaku.Frame{
			Width:  renderWidth,
			Height: renderHeight,
			Pos:    renderPos + float64(i)*interval*renderSpeed,
			Speed:  renderSpeed,
		}
		_, _ = fmt.Fprintln(out, danmaku.Markup(engine.Render(store, frame)))
	}
	return nil
}
