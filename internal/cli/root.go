package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	ffmpegbin "github.com/mgpai22/clipforge/internal/ffmpeg"
	"github.com/mgpai22/clipforge/internal/logging"
	"github.com/mgpai22/clipforge/internal/media"
)

var (
	verbose bool
	logger  *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "clipforge",
	Short: "Cut silence and add captions to videos",
	Long: `Clipforge edits videos by removing silent stretches and adding
automatic captions.

ffmpeg does the media work; speech recognition runs locally through
whisper.cpp or remotely through OpenAI or Gemini.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		logger = logging.NewLogger(verbose)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path")
	rootCmd.PersistentFlags().
		StringP("language", "l", "", "Language code (e.g., en, es, fr)")
}

// newEngine locates ffmpeg and returns the engine backed by it.
func newEngine() (*media.FFmpegEngine, ffmpegbin.BinaryPaths, error) {
	paths, err := ffmpegbin.Ensure()
	if err != nil {
		return nil, paths, fmt.Errorf("ffmpeg is required: %w", err)
	}
	logger.Debugw("Using ffmpeg", "ffmpeg", paths.FFmpeg, "ffprobe", paths.FFprobe)
	return media.NewFFmpegEngine(paths, logger), paths, nil
}
