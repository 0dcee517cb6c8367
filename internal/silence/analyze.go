package silence

import (
	"context"
	"fmt"

	"github.com/mgpai22/clipforge/internal/media"
	"github.com/mgpai22/clipforge/internal/timeline"
)

// Options controls silence detection and how much of each silence is kept.
type Options struct {
	ThresholdDB float64
	MinDuration float64
	Padding     float64
}

// Analysis is the outcome of a silence scan.
type Analysis struct {
	Raw      []timeline.TimeRange
	Segments []timeline.Segment
}

// Silences returns how many silence segments survived padding.
func (a *Analysis) Silences() int {
	return timeline.Count(a.Segments, timeline.LabelSilence)
}

// Keep returns the ordered ranges that remain after cutting.
func (a *Analysis) Keep() []timeline.TimeRange {
	return timeline.KeepRanges(a.Segments)
}

// Analyze runs silence detection on path and reconciles the result into a
// keep/silence partition of [0, duration].
func Analyze(
	ctx context.Context,
	engine media.Engine,
	path string,
	duration float64,
	opts Options,
	progress media.ProgressFunc,
) (*Analysis, error) {
	diagnostics, err := engine.DetectSilence(
		ctx,
		path,
		media.SilenceOptions{ThresholdDB: opts.ThresholdDB, MinDuration: opts.MinDuration},
		duration,
		progress,
	)
	if err != nil {
		return nil, fmt.Errorf("silence detection failed: %w", err)
	}

	raw := Parse(diagnostics, duration)
	segments := timeline.Reconcile(duration, raw, opts.Padding)
	if err := timeline.Validate(segments, duration); err != nil {
		return nil, fmt.Errorf("reconciled segments are inconsistent: %w", err)
	}

	return &Analysis{Raw: raw, Segments: segments}, nil
}
