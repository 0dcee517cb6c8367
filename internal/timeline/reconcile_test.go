package timeline

import (
	"math"
	"math/rand"
	"sort"
	"testing"
)

func TestReconcile(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		raw      []TimeRange
		padding  float64
		want     []Segment
	}{
		{
			name:     "no silence",
			duration: 30,
			raw:      nil,
			padding:  0.5,
			want:     []Segment{{0, 30, LabelKeep, ""}},
		},
		{
			name:     "basic split",
			duration: 30,
			raw:      []TimeRange{{10, 15}},
			want: []Segment{
				{0, 10, LabelKeep, ""},
				{10, 15, LabelSilence, ""},
				{15, 30, LabelKeep, ""},
			},
		},
		{
			name:     "leading silence",
			duration: 20,
			raw:      []TimeRange{{0, 3}},
			want: []Segment{
				{0, 3, LabelSilence, ""},
				{3, 20, LabelKeep, ""},
			},
		},
		{
			name:     "trailing silence",
			duration: 20,
			raw:      []TimeRange{{17, 20}},
			want: []Segment{
				{0, 17, LabelKeep, ""},
				{17, 20, LabelSilence, ""},
			},
		},
		{
			name:     "padding shrinks silence",
			duration: 30,
			raw:      []TimeRange{{10, 15}},
			padding:  0.5,
			want: []Segment{
				{0, 10.5, LabelKeep, ""},
				{10.5, 14.5, LabelSilence, ""},
				{14.5, 30, LabelKeep, ""},
			},
		},
		{
			name:     "padding eliminates the only interval",
			duration: 30,
			raw:      []TimeRange{{10, 10.5}},
			padding:  0.5,
			want:     []Segment{{0, 30, LabelKeep, ""}},
		},
		{
			name:     "padding at start of file",
			duration: 10,
			raw:      []TimeRange{{0, 2}},
			padding:  0.5,
			want: []Segment{
				{0, 0.5, LabelKeep, ""},
				{0.5, 1.5, LabelSilence, ""},
				{1.5, 10, LabelKeep, ""},
			},
		},
		{
			name:     "silence past the end is clamped",
			duration: 10,
			raw:      []TimeRange{{8, 10.5}},
			padding:  0.5,
			want: []Segment{
				{0, 8.5, LabelKeep, ""},
				{8.5, 10, LabelSilence, ""},
			},
		},
		{
			name:     "entire file silent",
			duration: 10,
			raw:      []TimeRange{{0, 10}},
			want:     []Segment{{0, 10, LabelSilence, ""}},
		},
		{
			name:     "overlapping intervals never overlap in output",
			duration: 30,
			raw:      []TimeRange{{5, 12}, {10, 15}},
			want: []Segment{
				{0, 5, LabelKeep, ""},
				{5, 12, LabelSilence, ""},
				{12, 15, LabelSilence, ""},
				{15, 30, LabelKeep, ""},
			},
		},
		{
			name:     "interval fully inside a previous one is skipped",
			duration: 30,
			raw:      []TimeRange{{5, 20}, {8, 12}},
			want: []Segment{
				{0, 5, LabelKeep, ""},
				{5, 20, LabelSilence, ""},
				{20, 30, LabelKeep, ""},
			},
		},
		{
			name:     "interval after duration is ignored",
			duration: 10,
			raw:      []TimeRange{{2, 4}, {12, 14}},
			want: []Segment{
				{0, 2, LabelKeep, ""},
				{2, 4, LabelSilence, ""},
				{4, 10, LabelKeep, ""},
			},
		},
		{
			name:     "mixed elimination",
			duration: 20,
			raw:      []TimeRange{{2, 2.4}, {5, 9}, {15, 15.3}},
			padding:  0.25,
			want: []Segment{
				{0, 5.25, LabelKeep, ""},
				{5.25, 8.75, LabelSilence, ""},
				{8.75, 20, LabelKeep, ""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.duration, tt.raw, tt.padding)
			assertSegments(t, got, tt.want)
			if err := Validate(got, tt.duration); err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}
}

func TestReconcileNonPositiveDuration(t *testing.T) {
	if got := Reconcile(0, []TimeRange{{0, 1}}, 0); len(got) != 0 {
		t.Errorf("Reconcile(0, ...) = %v, want no segments", got)
	}
	if got := Reconcile(-1, nil, 0); len(got) != 0 {
		t.Errorf("Reconcile(-1, nil) = %v, want no segments", got)
	}
}

func TestReconcileNoSilenceIsSingleKeep(t *testing.T) {
	for _, d := range []float64{0.01, 1, 59.94, 3600} {
		for _, p := range []float64{0, 0.05, 10} {
			got := Reconcile(d, nil, p)
			assertSegments(t, got, []Segment{{0, d, LabelKeep, ""}})
		}
	}
}

// Randomized check of the partition invariant over sorted, possibly
// overlapping intervals and a range of paddings.
func TestReconcilePartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 2000; iter++ {
		duration := 1 + rng.Float64()*600
		n := rng.Intn(12)
		raw := make([]TimeRange, 0, n)
		for i := 0; i < n; i++ {
			start := rng.Float64() * duration * 1.1
			length := 0.01 + rng.Float64()*duration/4
			raw = append(raw, TimeRange{Start: start, End: start + length})
		}
		sort.Slice(raw, func(i, j int) bool { return raw[i].Start < raw[j].Start })
		padding := rng.Float64() * 2

		got := Reconcile(duration, raw, padding)
		if err := Validate(got, duration); err != nil {
			t.Fatalf(
				"iteration %d: duration=%.3f padding=%.3f raw=%v: %v\nsegments=%v",
				iter, duration, padding, raw, err, got,
			)
		}

		var covered float64
		for _, seg := range got {
			covered += seg.Length()
			if seg.Label != LabelKeep && seg.Label != LabelSilence {
				t.Fatalf("iteration %d: unexpected label %q", iter, seg.Label)
			}
		}
		if math.Abs(covered-duration) > 1e-6 {
			t.Fatalf("iteration %d: covered %.6f, want %.6f", iter, covered, duration)
		}
	}
}

func TestKeepRangesAndCount(t *testing.T) {
	segs := Reconcile(30, []TimeRange{{5, 10}, {20, 25}}, 0)

	keep := KeepRanges(segs)
	want := []TimeRange{{0, 5}, {10, 20}, {25, 30}}
	if len(keep) != len(want) {
		t.Fatalf("KeepRanges returned %d ranges, want %d", len(keep), len(want))
	}
	for i := range want {
		if keep[i] != want[i] {
			t.Errorf("keep[%d] = %v, want %v", i, keep[i], want[i])
		}
	}

	if n := Count(segs, LabelSilence); n != 2 {
		t.Errorf("Count(silence) = %d, want 2", n)
	}
	if total := Total(segs, LabelSilence); total != 10 {
		t.Errorf("Total(silence) = %v, want 10", total)
	}
}

func TestKeepRangesAllSilence(t *testing.T) {
	segs := Reconcile(10, []TimeRange{{0, 10}}, 0)
	if keep := KeepRanges(segs); len(keep) != 0 {
		t.Errorf("KeepRanges = %v, want none", keep)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		duration float64
		wantErr  bool
	}{
		{"valid", []Segment{{0, 5, LabelKeep, ""}, {5, 10, LabelSilence, ""}}, 10, false},
		{"empty with zero duration", nil, 0, false},
		{"empty with positive duration", nil, 10, true},
		{"late start", []Segment{{1, 10, LabelKeep, ""}}, 10, true},
		{"gap", []Segment{{0, 4, LabelKeep, ""}, {5, 10, LabelSilence, ""}}, 10, true},
		{"overlap", []Segment{{0, 6, LabelKeep, ""}, {5, 10, LabelSilence, ""}}, 10, true},
		{"short end", []Segment{{0, 9, LabelKeep, ""}}, 10, true},
		{"degenerate", []Segment{{0, 5, LabelKeep, ""}, {5, 5, LabelSilence, ""}, {5, 10, LabelKeep, ""}}, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.segments, tt.duration)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func assertSegments(t *testing.T, got, want []Segment) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d segments %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if math.Abs(got[i].Start-want[i].Start) > 1e-9 ||
			math.Abs(got[i].End-want[i].End) > 1e-9 ||
			got[i].Label != want[i].Label {
			t.Errorf("segment %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
