package silence

import (
	"reflect"
	"testing"

	"github.com/mgpai22/clipforge/internal/timeline"
)

const sampleDiagnostics = `Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'talk.mp4':
  Duration: 00:00:30.00, start: 0.000000, bitrate: 1200 kb/s
[silencedetect @ 0x600000c3c000] silence_start: 4.21
[silencedetect @ 0x600000c3c000] silence_end: 6.5 | silence_duration: 2.29
size=N/A time=00:00:12.00 bitrate=N/A speed=60x
[silencedetect @ 0x600000c3c000] silence_start: 12
[silencedetect @ 0x600000c3c000] silence_end: 14.75 | silence_duration: 2.75
[silencedetect @ 0x600000c3c000] silence_start: 27.5
size=N/A time=00:00:30.00 bitrate=N/A speed=61x
`

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		diagnostics string
		duration    float64
		want        []timeline.TimeRange
	}{
		{
			name:        "open trailing silence ends at known duration",
			diagnostics: sampleDiagnostics,
			duration:    30,
			want: []timeline.TimeRange{
				{Start: 4.21, End: 6.5},
				{Start: 12, End: 14.75},
				{Start: 27.5, End: 30},
			},
		},
		{
			name:        "open trailing silence dropped when duration unknown",
			diagnostics: sampleDiagnostics,
			duration:    0,
			want: []timeline.TimeRange{
				{Start: 4.21, End: 6.5},
				{Start: 12, End: 14.75},
			},
		},
		{
			name:        "single unmatched start",
			diagnostics: "[silencedetect @ 0x1] silence_start: 17\n",
			duration:    20,
			want:        []timeline.TimeRange{{Start: 17, End: 20}},
		},
		{
			name:        "single unmatched start without duration",
			diagnostics: "[silencedetect @ 0x1] silence_start: 17\n",
			duration:    -1,
			want:        nil,
		},
		{
			name:        "no markers",
			diagnostics: "Stream #0:0: Audio: aac, 44100 Hz, stereo\n",
			duration:    10,
			want:        nil,
		},
		{
			name:        "empty input",
			diagnostics: "",
			duration:    10,
			want:        nil,
		},
		{
			name: "negative start before stream begins",
			diagnostics: "silence_start: -0.0213\n" +
				"silence_end: 1.5 | silence_duration: 1.52\n",
			duration: 10,
			want:     []timeline.TimeRange{{Start: -0.0213, End: 1.5}},
		},
		{
			name: "pairs by position not by value",
			diagnostics: "silence_start: 8\n" +
				"silence_start: 2\n" +
				"silence_end: 9\n" +
				"silence_end: 3\n",
			duration: 10,
			want: []timeline.TimeRange{
				{Start: 8, End: 9},
				{Start: 2, End: 3},
			},
		},
		{
			name: "exponent notation",
			diagnostics: "silence_start: 2.3e-05\n" +
				"silence_end: 1.25 | silence_duration: 1.24998\n" +
				"silence_start: 1.5E+01\n" +
				"silence_end: 16 | silence_duration: 1\n",
			duration: 20,
			want: []timeline.TimeRange{
				{Start: 2.3e-05, End: 1.25},
				{Start: 15, End: 16},
			},
		},
		{
			name:        "extra ends are ignored",
			diagnostics: "silence_start: 1\nsilence_end: 2\nsilence_end: 5\n",
			duration:    10,
			want:        []timeline.TimeRange{{Start: 1, End: 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.diagnostics, tt.duration)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFeedsReconcile(t *testing.T) {
	raw := Parse(sampleDiagnostics, 30)
	segs := timeline.Reconcile(30, raw, 0)
	if err := timeline.Validate(segs, 30); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := timeline.Count(segs, timeline.LabelSilence); got != 3 {
		t.Errorf("silence segments = %d, want 3", got)
	}
	if last := segs[len(segs)-1]; last.Label != timeline.LabelSilence {
		t.Errorf("last segment = %+v, want trailing silence", last)
	}
}
