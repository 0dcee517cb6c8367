package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mgpai22/clipforge/internal/manifest"
	"github.com/mgpai22/clipforge/internal/media"
	"github.com/mgpai22/clipforge/internal/silence"
	"github.com/mgpai22/clipforge/internal/timeline"
)

var silenceCmd = &cobra.Command{
	Use:   "silence [media_file]",
	Short: "List the segments a silence cut would keep and remove",
	Long: `Run silence detection and print the reconciled keep/silence timeline
without writing any media.

Examples:
  clipforge silence talk.mp4
  clipforge silence talk.mp4 --threshold -35 --min-duration 0.8 --padding 0.1`,
	Args: cobra.ExactArgs(1),
	RunE: runSilence,
}

func init() {
	rootCmd.AddCommand(silenceCmd)

	defaults := manifest.DefaultSilenceCut()
	silenceCmd.Flags().Float64("threshold", defaults.ThresholdDB, "Silence threshold in dB")
	silenceCmd.Flags().Float64("min-duration", defaults.MinDuration, "Minimum silence duration in seconds")
	silenceCmd.Flags().Float64("padding", defaults.Padding, "Seconds of silence kept on each side of a cut")
}

func runSilence(cmd *cobra.Command, args []string) error {
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	minDuration, _ := cmd.Flags().GetFloat64("min-duration")
	padding, _ := cmd.Flags().GetFloat64("padding")

	engine, _, err := newEngine()
	if err != nil {
		return err
	}

	ctx := context.Background()
	info, err := engine.Probe(ctx, args[0])
	if err != nil {
		return err
	}
	if !info.HasAudio {
		return media.ErrNoAudioStream
	}

	analysis, err := silence.Analyze(ctx, engine, args[0], info.Duration, silence.Options{
		ThresholdDB: threshold,
		MinDuration: minDuration,
		Padding:     padding,
	}, nil)
	if err != nil {
		return err
	}

	printAnalysis(cmd.OutOrStdout(), analysis, info.Duration)
	return nil
}

func printAnalysis(w io.Writer, a *silence.Analysis, duration float64) {
	rows := make([][]string, 0, len(a.Segments))
	for i, seg := range a.Segments {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			string(seg.Label),
			fmt.Sprintf("%.3f", seg.Start),
			fmt.Sprintf("%.3f", seg.End),
			fmt.Sprintf("%.3f", seg.Length()),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"#", "Label", "Start", "End", "Length"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight},
	))

	kept := timeline.Total(a.Segments, timeline.LabelKeep)
	fmt.Fprintf(w, "Detected %d silences, %d removable; %.1fs -> %.1fs\n",
		len(a.Raw), a.Silences(), duration, kept)
}
