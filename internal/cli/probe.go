package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mgpai22/clipforge/internal/media"
)

var probeCmd = &cobra.Command{
	Use:   "probe [media_file]",
	Short: "Show duration and stream layout of a media file",
	Args:  cobra.ExactArgs(1),
	RunE:  runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	engine, _, err := newEngine()
	if err != nil {
		return err
	}

	info, err := engine.Probe(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Property", "Value"},
		probeRows(info),
		[]columnAlignment{alignLeft, alignRight},
	))
	return nil
}

func probeRows(info *media.ProbeResult) [][]string {
	rows := [][]string{
		{"Duration", fmt.Sprintf("%.3fs", info.Duration)},
		{"Video", strconv.FormatBool(info.HasVideo)},
	}
	if info.HasVideo {
		rows = append(rows,
			[]string{"Video codec", info.VideoCodec},
			[]string{"Resolution", fmt.Sprintf("%dx%d", info.Width, info.Height)},
			[]string{"Frame rate", fmt.Sprintf("%.2f", info.FPS)},
		)
	}
	rows = append(rows, []string{"Audio", strconv.FormatBool(info.HasAudio)})
	if info.HasAudio {
		rows = append(rows,
			[]string{"Audio codec", info.AudioCodec},
			[]string{"Sample rate", fmt.Sprintf("%d Hz", info.AudioSampleRate)},
		)
	}
	return rows
}
