package timeline

// Reconcile turns raw silence intervals into a labeled keep/silence partition
// of [0, duration].
//
// Padding shrinks every silence interval on both sides; an interval whose
// padded length is not positive disappears into the surrounding keep time.
// Intervals are consumed in the order given and are expected to be sorted by
// start. A cursor tracks the end of the last emitted segment so overlapping
// intervals can never produce overlapping segments.
//
// A non-positive duration yields no segments.
func Reconcile(duration float64, raw []TimeRange, padding float64) []Segment {
	if duration <= 0 {
		return nil
	}
	if len(raw) == 0 {
		return []Segment{{Start: 0, End: duration, Label: LabelKeep}}
	}

	segments := make([]Segment, 0, 2*len(raw)+1)
	cursor := 0.0

	for _, r := range raw {
		start := max(r.Start+padding, 0)
		end := min(r.End-padding, duration)

		if start < cursor {
			start = cursor
		}
		if end <= start {
			continue
		}

		if start > cursor {
			segments = append(segments, Segment{Start: cursor, End: start, Label: LabelKeep})
		}
		segments = append(segments, Segment{Start: start, End: end, Label: LabelSilence})
		cursor = end
	}

	if cursor < duration {
		segments = append(segments, Segment{Start: cursor, End: duration, Label: LabelKeep})
	}

	// padding erased every interval
	if len(segments) == 0 {
		return []Segment{{Start: 0, End: duration, Label: LabelKeep}}
	}

	return segments
}
