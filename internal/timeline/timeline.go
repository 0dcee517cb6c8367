package timeline

import (
	"fmt"
	"math"
)

// start/end pair in seconds, as reported by the silence detector
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Length returns End-Start.
func (r TimeRange) Length() float64 {
	return r.End - r.Start
}

// classification of a span of the timeline
type Label string

const (
	LabelKeep    Label = "keep"
	LabelSilence Label = "silence"
	LabelCaption Label = "caption"
)

// labeled span of the timeline; Text is only set for captions
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Label Label   `json:"label"`
	Text  string  `json:"text,omitempty"`
}

func (s Segment) Length() float64 {
	return s.End - s.Start
}

func (s Segment) Range() TimeRange {
	return TimeRange{Start: s.Start, End: s.End}
}

// KeepRanges returns the boundaries of every keep segment, in order.
func KeepRanges(segments []Segment) []TimeRange {
	var ranges []TimeRange
	for _, seg := range segments {
		if seg.Label == LabelKeep {
			ranges = append(ranges, seg.Range())
		}
	}
	return ranges
}

// Count returns how many segments carry the given label.
func Count(segments []Segment, label Label) int {
	n := 0
	for _, seg := range segments {
		if seg.Label == label {
			n++
		}
	}
	return n
}

// Total returns the summed length of all segments carrying the given label.
func Total(segments []Segment, label Label) float64 {
	var total float64
	for _, seg := range segments {
		if seg.Label == label {
			total += seg.Length()
		}
	}
	return total
}

// tolerance used when comparing boundaries produced by float arithmetic
const epsilon = 1e-9

// Validate checks that segments partition [0, duration]: sorted, starting at
// zero, contiguous, ending at duration and free of zero-length entries.
func Validate(segments []Segment, duration float64) error {
	if len(segments) == 0 {
		if duration > 0 {
			return fmt.Errorf("no segments for duration %.3f", duration)
		}
		return nil
	}

	if math.Abs(segments[0].Start) > epsilon {
		return fmt.Errorf("first segment starts at %.3f, want 0", segments[0].Start)
	}

	for i, seg := range segments {
		if seg.End <= seg.Start {
			return fmt.Errorf(
				"segment %d is degenerate: [%.3f, %.3f)",
				i,
				seg.Start,
				seg.End,
			)
		}
		if i > 0 && math.Abs(segments[i-1].End-seg.Start) > epsilon {
			return fmt.Errorf(
				"segments %d and %d are not contiguous: %.3f != %.3f",
				i-1,
				i,
				segments[i-1].End,
				seg.Start,
			)
		}
	}

	last := segments[len(segments)-1]
	if math.Abs(last.End-duration) > epsilon {
		return fmt.Errorf("last segment ends at %.3f, want %.3f", last.End, duration)
	}

	return nil
}
