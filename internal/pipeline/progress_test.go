package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestPlanBandsCoverUnitInterval(t *testing.T) {
	stages := plannedStages(true, true, false, true)
	bands := planBands(stages)

	at := 0.0
	for _, s := range stages {
		b, ok := bands[s]
		if !ok {
			t.Fatalf("no band for %s", s)
		}
		if math.Abs(b.start-at) > 1e-9 || b.end < b.start {
			t.Errorf("band %s = %+v, want start %v", s, b, at)
		}
		at = b.end
	}
	if math.Abs(at-1) > 1e-9 {
		t.Errorf("bands end at %v, want 1", at)
	}
	if _, ok := bands[StageTranslate]; ok {
		t.Error("translate band planned without translation")
	}
}

func TestReporterNeverGoesBackwards(t *testing.T) {
	var got []float64
	r := newReporter(func(e Event) { got = append(got, e.Fraction) }, plannedStages(true, false, false, false))

	r.stage(StageCut, 0.5)
	r.stage(StageSilenceScan, 1)
	r.stage(StageCut, 0.2)
	r.stage("Unplanned", 0.9)
	r.done()

	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Fatalf("fractions went backwards: %v", got)
		}
	}
	if got[len(got)-1] != 1 {
		t.Errorf("final fraction = %v", got[len(got)-1])
	}
}

func TestReporterClampsStageFraction(t *testing.T) {
	var last Event
	r := newReporter(func(e Event) { last = e }, []string{StageProbing})
	r.stage(StageProbing, 7)
	if last.Fraction != 1 {
		t.Errorf("fraction = %v, want 1", last.Fraction)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("boom"), KindInternal},
		{configError("bad", ErrEmptyKeepSet), KindConfiguration},
		{fmt.Errorf("wrapped: %w", configError("bad", nil)), KindConfiguration},
		{fmt.Errorf("stage: %w", context.Canceled), KindCanceled},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
