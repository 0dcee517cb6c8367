// Package mediatest provides an in-memory media.Engine for tests.
//
// Source files handled by the fake hold the JSON encoding of a
// media.ProbeResult, so metadata survives every copy and rename the pipeline
// does. Use WriteSource to create one.
package mediatest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mgpai22/clipforge/internal/media"
	"github.com/mgpai22/clipforge/internal/timeline"
)

// WriteSource writes a fake media file described by probe.
func WriteSource(path string, probe media.ProbeResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(probe)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSource reads back a file written by WriteSource or by the fake.
func ReadSource(path string) (*media.ProbeResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var probe media.ProbeResult
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%s is not a fake media file: %w", path, err)
	}
	return &probe, nil
}

// Call records one engine invocation.
type Call struct {
	Method string
	Path   string
	Dst    string
	Keep   []timeline.TimeRange
}

// Engine is a media.Engine that never touches ffmpeg.
type Engine struct {
	// returned by DetectSilence
	Diagnostics string

	// per-method injected failures, keyed by method name
	// ("Probe", "DetectSilence", "CutAndConcatenate", "ExtractAudio",
	// "BurnSubtitles")
	Errors map[string]error

	mu    sync.Mutex
	calls []Call
}

var _ media.Engine = (*Engine)(nil)

func New(diagnostics string) *Engine {
	return &Engine{Diagnostics: diagnostics}
}

// Calls returns a copy of the recorded invocations.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// Called reports how many times method was invoked.
func (e *Engine) Called(method string) int {
	n := 0
	for _, c := range e.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (e *Engine) record(c Call) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, c)
	if err, ok := e.Errors[c.Method]; ok {
		return err
	}
	return nil
}

func (e *Engine) Probe(ctx context.Context, path string) (*media.ProbeResult, error) {
	if err := e.record(Call{Method: "Probe", Path: path}); err != nil {
		return nil, err
	}
	return ReadSource(path)
}

func (e *Engine) DetectSilence(
	ctx context.Context,
	path string,
	opts media.SilenceOptions,
	duration float64,
	progress media.ProgressFunc,
) (string, error) {
	if err := e.record(Call{Method: "DetectSilence", Path: path}); err != nil {
		return "", err
	}
	if _, err := ReadSource(path); err != nil {
		return "", err
	}
	report(progress, 0.5, 1)
	return e.Diagnostics, nil
}

// CutAndConcatenate writes a file whose duration is the total keep length.
func (e *Engine) CutAndConcatenate(
	ctx context.Context,
	path string,
	keep []timeline.TimeRange,
	dst string,
	progress media.ProgressFunc,
) error {
	call := Call{
		Method: "CutAndConcatenate",
		Path:   path,
		Dst:    dst,
		Keep:   append([]timeline.TimeRange(nil), keep...),
	}
	if err := e.record(call); err != nil {
		return err
	}
	if len(keep) == 0 {
		return media.ErrEmptyKeepRanges
	}
	src, err := ReadSource(path)
	if err != nil {
		return err
	}

	out := *src
	out.Duration = 0
	for _, r := range keep {
		out.Duration += r.Length()
	}
	report(progress, 0.25, 0.75, 1)
	return WriteSource(dst, out)
}

func (e *Engine) ExtractAudio(
	ctx context.Context,
	path, dst string,
	opts media.AudioOptions,
) error {
	if err := e.record(Call{Method: "ExtractAudio", Path: path, Dst: dst}); err != nil {
		return err
	}
	src, err := ReadSource(path)
	if err != nil {
		return err
	}
	if !src.HasAudio {
		return media.ErrNoAudioStream
	}
	out := *src
	out.HasVideo = false
	out.Width, out.Height, out.FPS, out.VideoCodec = 0, 0, 0, ""
	return WriteSource(dst, out)
}

// BurnSubtitles copies the source unchanged after checking the subtitle file
// exists.
func (e *Engine) BurnSubtitles(
	ctx context.Context,
	path, subtitlePath, dst string,
	progress media.ProgressFunc,
) error {
	if err := e.record(Call{Method: "BurnSubtitles", Path: path, Dst: dst}); err != nil {
		return err
	}
	if _, err := os.Stat(subtitlePath); err != nil {
		return fmt.Errorf("subtitle file: %w", err)
	}
	src, err := ReadSource(path)
	if err != nil {
		return err
	}
	report(progress, 0.5, 1)
	return WriteSource(dst, *src)
}

func report(progress media.ProgressFunc, fractions ...float64) {
	if progress == nil {
		return
	}
	for _, f := range fractions {
		progress(f)
	}
}
