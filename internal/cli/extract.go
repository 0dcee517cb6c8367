package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/clipforge/internal/audio"
	"github.com/mgpai22/clipforge/internal/media"
)

var extractCmd = &cobra.Command{
	Use:   "extract [video_file]",
	Short: "Extract audio from a video file",
	Long: `Extract the audio track from a video file and save it as a separate audio file.

Supports multiple output formats: wav, mp3, aac, flac.

Examples:
  clipforge extract video.mp4
  clipforge extract video.mp4 -o audio.mp3 -f mp3
  clipforge extract video.mp4 --format wav --sample-rate 44100 --channels 2`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().
		StringP("format", "f", "wav", "Output audio format (wav, mp3, aac, flac)")
	extractCmd.Flags().
		IntP("sample-rate", "r", 16000, "Sample rate in Hz (e.g., 16000, 44100, 48000)")
	extractCmd.Flags().
		IntP("channels", "c", 1, "Number of audio channels (1=mono, 2=stereo)")
	extractCmd.Flags().
		StringP("bitrate", "b", "", "Bitrate for lossy formats (e.g., 128k, 320k)")
}

var validAudioFormats = map[string]bool{
	"wav":  true,
	"mp3":  true,
	"aac":  true,
	"flac": true,
}

func runExtract(cmd *cobra.Command, args []string) error {
	videoPath := args[0]

	format, _ := cmd.Flags().GetString("format")
	sampleRate, _ := cmd.Flags().GetInt("sample-rate")
	channels, _ := cmd.Flags().GetInt("channels")
	bitrate, _ := cmd.Flags().GetString("bitrate")
	outputPath, _ := cmd.Flags().GetString("output")

	if !audio.IsMediaFile(videoPath) {
		return fmt.Errorf("unsupported file type: %s", filepath.Ext(videoPath))
	}
	if !validAudioFormats[format] {
		return fmt.Errorf(
			"invalid format %q: supported formats are wav, mp3, aac, flac",
			format,
		)
	}
	if outputPath == "" {
		outputPath = strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + "." + format
	}

	logger.Infow("Extracting audio",
		"video", videoPath,
		"output", outputPath,
		"format", format,
		"sample_rate", sampleRate,
		"channels", channels,
	)

	engine, _, err := newEngine()
	if err != nil {
		return err
	}

	opts := media.AudioOptions{
		Format:     format,
		SampleRate: sampleRate,
		Channels:   channels,
		Bitrate:    bitrate,
	}
	if err := engine.ExtractAudio(context.Background(), videoPath, outputPath, opts); err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Audio extracted successfully: %s\n", absOutput)
	return nil
}
