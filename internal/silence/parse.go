package silence

import (
	"regexp"
	"strconv"

	"github.com/mgpai22/clipforge/internal/timeline"
)

// older ffmpeg builds print timestamps with %g, so small values use exponents
var (
	startMarker = regexp.MustCompile(`silence_start:\s*(-?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?)`)
	endMarker   = regexp.MustCompile(`silence_end:\s*(-?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?)`)
)

// Parse extracts silence intervals from ffmpeg silencedetect diagnostics.
//
// Start and end markers are collected separately in order of appearance and
// paired by position. A trailing start without an end means the silence runs
// to the end of the stream: it ends at duration when the duration is known
// (duration > 0) and is dropped otherwise. Text without markers yields no
// intervals.
func Parse(diagnostics string, duration float64) []timeline.TimeRange {
	starts := extractMarkers(startMarker, diagnostics)
	ends := extractMarkers(endMarker, diagnostics)

	var ranges []timeline.TimeRange
	for i, start := range starts {
		switch {
		case i < len(ends):
			ranges = append(ranges, timeline.TimeRange{Start: start, End: ends[i]})
		case i == len(ends) && duration > 0:
			ranges = append(ranges, timeline.TimeRange{Start: start, End: duration})
		}
	}
	return ranges
}

func extractMarkers(re *regexp.Regexp, text string) []float64 {
	matches := re.FindAllStringSubmatch(text, -1)
	values := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	return values
}
