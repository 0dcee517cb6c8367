// Package pipeline runs an editing job: probe, optional silence cut, optional
// captions, then finalize the output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/clipforge/internal/logging"
	"github.com/mgpai22/clipforge/internal/manifest"
	"github.com/mgpai22/clipforge/internal/media"
	"github.com/mgpai22/clipforge/internal/silence"
	"github.com/mgpai22/clipforge/internal/subtitle"
	"github.com/mgpai22/clipforge/internal/timeline"
	"github.com/mgpai22/clipforge/internal/transcribe"
	"github.com/mgpai22/clipforge/internal/translate"
)

// builds the transcriber for a job's caption settings
type TranscriberFactory func(ctx context.Context, c manifest.Captions) (transcribe.Transcriber, error)

// builds the translator for a job's caption settings
type TranslatorFactory func(ctx context.Context, c manifest.Captions) (translate.Translator, error)

// Deps are the collaborators a pipeline delegates to.
type Deps struct {
	Engine      media.Engine
	Transcriber TranscriberFactory
	Translator  TranslatorFactory
	Logger      *logging.Logger
}

// Result summarizes a finished job.
type Result struct {
	OutputPath             string             `json:"output_path"`
	OriginalDuration       float64            `json:"original_duration"`
	FinalDuration          float64            `json:"final_duration"`
	SilenceSegmentsRemoved int                `json:"silence_segments_removed"`
	CaptionPath            string             `json:"caption_path,omitempty"`
	Segments               []timeline.Segment `json:"segments,omitempty"`
	TranscriptSegments     []timeline.Segment `json:"transcript_segments,omitempty"`
}

type Pipeline struct {
	deps   Deps
	logger *logging.Logger
}

func New(deps Deps) *Pipeline {
	return &Pipeline{
		deps:   deps,
		logger: logging.OrNop(deps.Logger).Named("pipeline"),
	}
}

// job holds the state of one Process call
type job struct {
	m        *manifest.Manifest
	progress *reporter
	workDir  string
	ext      string

	// latest artifact; equals m.Input until an edit stage writes one
	current string
	result  *Result
}

// Process runs every enabled stage of m in order and reports progress to
// sink. The first failing stage ends the job.
func (p *Pipeline) Process(ctx context.Context, m *manifest.Manifest, sink Sink) (*Result, error) {
	if p.deps.Engine == nil {
		return nil, errors.New("pipeline has no media engine")
	}
	if err := m.Validate(); err != nil {
		return nil, configError("invalid manifest", err)
	}
	if err := checkDistinct(m.Input, m.Output); err != nil {
		return nil, err
	}

	workDir, cleanup, err := prepareWorkDir(m.WorkDir)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	ext := filepath.Ext(m.Output)
	if ext == "" {
		ext = filepath.Ext(m.Input)
	}

	j := &job{
		m: m,
		progress: newReporter(sink, plannedStages(
			m.SilenceCut.Enabled,
			m.Captions.Enabled,
			m.Captions.TranslateTo != "",
			m.Captions.BurnIn,
		)),
		workDir: workDir,
		ext:     ext,
		current: m.Input,
		result:  &Result{OutputPath: m.Output},
	}

	logger := p.logger.With("input", m.Input, "output", m.Output)
	logger.Infow("Processing started",
		"silence_cut", m.SilenceCut.Enabled,
		"captions", m.Captions.Enabled,
		"work_dir", workDir,
	)

	if err := p.probe(ctx, j); err != nil {
		return nil, err
	}
	if m.SilenceCut.Enabled {
		if err := p.cutSilence(ctx, j); err != nil {
			return nil, err
		}
	}
	if m.Captions.Enabled {
		if err := p.caption(ctx, j); err != nil {
			return nil, err
		}
	}
	if err := p.finalize(ctx, j); err != nil {
		return nil, err
	}

	j.progress.done()
	logger.Infow("Processing complete",
		"original_duration", j.result.OriginalDuration,
		"final_duration", j.result.FinalDuration,
		"silences_removed", j.result.SilenceSegmentsRemoved,
	)
	return j.result, nil
}

func (p *Pipeline) probe(ctx context.Context, j *job) error {
	j.progress.stage(StageProbing, 0)

	info, err := p.deps.Engine.Probe(ctx, j.m.Input)
	if err != nil {
		return fmt.Errorf("failed to probe input: %w", err)
	}

	needAudio := j.m.SilenceCut.Enabled || j.m.Captions.Enabled
	if err := media.RequireStreams(info, needAudio); err != nil {
		return configError("source cannot be processed", err)
	}
	if info.Duration <= 0 {
		return configError("source cannot be processed", ErrZeroDuration)
	}

	j.result.OriginalDuration = info.Duration
	j.result.FinalDuration = info.Duration
	j.progress.stage(StageProbing, 1)
	return nil
}

func (p *Pipeline) cutSilence(ctx context.Context, j *job) error {
	sc := j.m.SilenceCut
	analysis, err := silence.Analyze(
		ctx,
		p.deps.Engine,
		j.current,
		j.result.OriginalDuration,
		silence.Options{
			ThresholdDB: sc.ThresholdDB,
			MinDuration: sc.MinDuration,
			Padding:     sc.Padding,
		},
		j.progress.forStage(StageSilenceScan),
	)
	if err != nil {
		return err
	}
	j.progress.stage(StageReconcile, 1)
	j.result.Segments = analysis.Segments

	removed := analysis.Silences()
	p.logger.Debugw("Silence reconciled",
		"raw_intervals", len(analysis.Raw),
		"silences", removed,
		"removed_seconds", timeline.Total(analysis.Segments, timeline.LabelSilence),
	)
	if removed == 0 {
		p.logger.Infow("No silence to remove")
		return nil
	}

	keep := analysis.Keep()
	if len(keep) == 0 {
		return configError("refusing to write an empty output", ErrEmptyKeepSet)
	}

	dst := filepath.Join(j.workDir, "cut"+j.ext)
	if err := p.deps.Engine.CutAndConcatenate(
		ctx,
		j.current,
		keep,
		dst,
		j.progress.forStage(StageCut),
	); err != nil {
		return fmt.Errorf("failed to cut silence: %w", err)
	}

	j.current = dst
	j.result.SilenceSegmentsRemoved = removed
	j.progress.stage(StageCut, 1)
	return nil
}

func (p *Pipeline) caption(ctx context.Context, j *job) error {
	c := j.m.Captions
	if p.deps.Transcriber == nil {
		return configError("captions requested", errors.New("no transcriber configured"))
	}

	format, err := subtitle.ParseFormat(c.OutputFormat)
	if err != nil {
		return configError("captions requested", err)
	}

	transcriber, err := p.deps.Transcriber(ctx, c)
	if err != nil {
		return configError("transcriber unavailable", err)
	}

	j.progress.stage(StageTranscribe, 0)
	provider := transcribe.Provider(strings.ToLower(c.Provider))
	audioOpts := transcribe.AudioOptionsFor(provider)
	audioPath := filepath.Join(j.workDir, "audio."+audioOpts.Format)
	if err := p.deps.Engine.ExtractAudio(ctx, j.current, audioPath, audioOpts); err != nil {
		return fmt.Errorf("failed to extract audio: %w", err)
	}
	j.progress.stage(StageTranscribe, 0.1)

	transcript, err := transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}
	segments := transcript.Segments
	p.logger.Infow("Transcription complete",
		"segments", len(segments),
		"language", transcript.Language,
	)
	j.progress.stage(StageTranscribe, 1)

	if c.TranslateTo != "" {
		segments, err = p.translate(ctx, c, segments)
		if err != nil {
			return err
		}
		j.progress.stage(StageTranslate, 1)
	}
	j.result.TranscriptSegments = segments

	layout := subtitle.DefaultLayout()
	if c.MaxLineChars > 0 {
		layout = layout.WithLineLength(c.MaxLineChars)
	}
	captionPath := sidecarPath(j.m.Output, format)
	if err := os.MkdirAll(filepath.Dir(captionPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if _, err := subtitle.WriteSegments(segments, captionPath, format, layout); err != nil {
		return err
	}
	j.result.CaptionPath = captionPath
	j.progress.stage(StageCaptionWrite, 1)

	if !c.BurnIn {
		return nil
	}

	dst := filepath.Join(j.workDir, "captioned"+j.ext)
	if err := p.deps.Engine.BurnSubtitles(
		ctx,
		j.current,
		captionPath,
		dst,
		j.progress.forStage(StageBurnIn),
	); err != nil {
		return fmt.Errorf("failed to burn captions: %w", err)
	}
	j.current = dst
	j.progress.stage(StageBurnIn, 1)
	return nil
}

func (p *Pipeline) translate(
	ctx context.Context,
	c manifest.Captions,
	segments []timeline.Segment,
) ([]timeline.Segment, error) {
	if p.deps.Translator == nil {
		return nil, configError("translation requested", errors.New("no translator configured"))
	}
	translator, err := p.deps.Translator(ctx, c)
	if err != nil {
		return nil, configError("translator unavailable", err)
	}

	p.logger.Infow("Translating captions", "target", c.TranslateTo, "provider", c.TranslateProvider)
	translated, err := translate.Segments(ctx, translator, segments)
	if err != nil {
		return nil, fmt.Errorf("failed to translate captions: %w", err)
	}
	return translated, nil
}

func (p *Pipeline) finalize(ctx context.Context, j *job) error {
	j.progress.stage(StageFinalize, 0)

	if err := os.MkdirAll(filepath.Dir(j.m.Output), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if j.current == j.m.Input {
		p.logger.Debugw("No edits applied, copying source")
		if err := copyFile(j.m.Input, j.m.Output); err != nil {
			return fmt.Errorf("failed to copy source: %w", err)
		}
	} else if err := promote(j.current, j.m.Output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	info, err := p.deps.Engine.Probe(ctx, j.m.Output)
	if err != nil {
		return fmt.Errorf("failed to probe output: %w", err)
	}
	j.result.FinalDuration = info.Duration
	j.progress.stage(StageFinalize, 1)
	return nil
}

// checkDistinct rejects an output that resolves to the input file through a
// symlink or hard link.
func checkDistinct(input, output string) error {
	in, err := os.Stat(input)
	if err != nil {
		return nil
	}
	out, err := os.Stat(output)
	if err != nil {
		return nil
	}
	if os.SameFile(in, out) {
		return configError("invalid manifest", ErrSameFile)
	}
	return nil
}

// sidecarPath returns output with its extension replaced by the caption
// format's.
func sidecarPath(output string, format subtitle.Format) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + format.Extension()
}

// prepareWorkDir returns dir, created if needed, or a fresh temporary
// directory that cleanup removes.
func prepareWorkDir(dir string) (string, func(), error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", nil, fmt.Errorf("failed to create work directory: %w", err)
		}
		return dir, func() {}, nil
	}

	tmp, err := os.MkdirTemp("", "clipforge-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	return tmp, func() { os.RemoveAll(tmp) }, nil
}

// promote moves src to dst, copying when they are on different filesystems.
func promote(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
