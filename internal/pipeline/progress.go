package pipeline

import (
	"sync"

	"github.com/mgpai22/clipforge/internal/media"
)

// stage labels, in execution order
const (
	StageProbing      = "Probing"
	StageSilenceScan  = "SilenceScan"
	StageReconcile    = "Reconcile"
	StageCut          = "Cut"
	StageTranscribe   = "Transcribe"
	StageTranslate    = "Translate"
	StageCaptionWrite = "CaptionWrite"
	StageBurnIn       = "BurnIn"
	StageFinalize     = "Finalize"
	StageDone         = "Done"
)

// Event is one progress update. Fraction covers the whole job.
type Event struct {
	Stage    string  `json:"stage"`
	Fraction float64 `json:"fraction"`
}

// Sink receives progress events. It is called from the job goroutine and
// from delegate worker goroutines, never concurrently.
type Sink func(Event)

// relative cost of each stage, used to size its share of [0, 1]
var stageWeights = map[string]float64{
	StageProbing:      1,
	StageSilenceScan:  10,
	StageReconcile:    1,
	StageCut:          30,
	StageTranscribe:   40,
	StageTranslate:    8,
	StageCaptionWrite: 1,
	StageBurnIn:       30,
	StageFinalize:     2,
}

type band struct {
	start, end float64
}

// planBands lays the given stages end to end over [0, 1].
func planBands(stages []string) map[string]band {
	var total float64
	for _, s := range stages {
		total += stageWeights[s]
	}

	bands := make(map[string]band, len(stages))
	var at float64
	for _, s := range stages {
		width := 0.0
		if total > 0 {
			width = stageWeights[s] / total
		}
		bands[s] = band{start: at, end: min(at+width, 1)}
		at += width
	}
	return bands
}

// reporter maps stage-local fractions onto the job and never lets the
// reported value go backwards.
type reporter struct {
	mu    sync.Mutex
	sink  Sink
	bands map[string]band
	last  float64
}

func newReporter(sink Sink, stages []string) *reporter {
	return &reporter{sink: sink, bands: planBands(stages)}
}

func (r *reporter) stage(name string, fraction float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	value := r.last
	if b, ok := r.bands[name]; ok {
		value = b.start + min(max(fraction, 0), 1)*(b.end-b.start)
	}
	if value < r.last {
		value = r.last
	}
	r.last = value
	if r.sink != nil {
		r.sink(Event{Stage: name, Fraction: value})
	}
}

// forStage adapts the reporter to a delegate progress callback.
func (r *reporter) forStage(name string) media.ProgressFunc {
	return func(fraction float64) {
		r.stage(name, fraction)
	}
}

func (r *reporter) done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = 1
	if r.sink != nil {
		r.sink(Event{Stage: StageDone, Fraction: 1})
	}
}

// plannedStages lists the stages a job will run given its manifest switches.
func plannedStages(silenceCut, captions, translate, burnIn bool) []string {
	stages := []string{StageProbing}
	if silenceCut {
		stages = append(stages, StageSilenceScan, StageReconcile, StageCut)
	}
	if captions {
		stages = append(stages, StageTranscribe)
		if translate {
			stages = append(stages, StageTranslate)
		}
		stages = append(stages, StageCaptionWrite)
		if burnIn {
			stages = append(stages, StageBurnIn)
		}
	}
	return append(stages, StageFinalize)
}
