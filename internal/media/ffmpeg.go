package media

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/mgpai22/clipforge/internal/ffmpeg"
	"github.com/mgpai22/clipforge/internal/logging"
	"github.com/mgpai22/clipforge/internal/timeline"
)

// Engine implementation that shells out to ffmpeg/ffprobe. ffmpeg-go builds
// the argument lists; the processes are run here so stderr can be streamed
// for progress and kept for error reports.
type FFmpegEngine struct {
	ffmpeg  string
	ffprobe string
	logger  *logging.Logger

	// parallel segment encodes during CutAndConcatenate
	Concurrency int
}

func NewFFmpegEngine(paths ffmpegbin.BinaryPaths, logger *logging.Logger) *FFmpegEngine {
	return &FFmpegEngine{
		ffmpeg:      paths.FFmpeg,
		ffprobe:     paths.FFprobe,
		logger:      logging.OrNop(logger),
		Concurrency: 2,
	}
}

// DetectSilence runs the silencedetect audio filter over the whole file and
// returns ffmpeg's diagnostic output.
func (e *FFmpegEngine) DetectSilence(
	ctx context.Context,
	path string,
	opts SilenceOptions,
	duration float64,
	progress ProgressFunc,
) (string, error) {
	stream := ffmpeg.Input(path).
		Output("-", ffmpeg.KwArgs{
			"af": silenceFilter(opts),
			"f":  "null",
		})

	return e.run(ctx, "ffmpeg silencedetect", stream.GetArgs(), duration, progress)
}

func silenceFilter(opts SilenceOptions) string {
	return fmt.Sprintf(
		"silencedetect=noise=%sdB:d=%s",
		strconv.FormatFloat(opts.ThresholdDB, 'f', -1, 64),
		strconv.FormatFloat(opts.MinDuration, 'f', -1, 64),
	)
}

// cutJob is one keep range to be encoded into its own file
type cutJob struct {
	index int
	r     timeline.TimeRange
	path  string
}

// keep ranges shorter than this produce parts with no frames
const minPartSeconds = 0.001

// encodableRanges drops ranges too short to yield a part file
func encodableRanges(keep []timeline.TimeRange) []timeline.TimeRange {
	out := make([]timeline.TimeRange, 0, len(keep))
	for _, r := range keep {
		if r.Length() >= minPartSeconds {
			out = append(out, r)
		}
	}
	return out
}

// CutAndConcatenate encodes every keep range into its own file (up to
// Concurrency at a time) and joins them with the concat demuxer. Order of
// keep is preserved in the output.
func (e *FFmpegEngine) CutAndConcatenate(
	ctx context.Context,
	path string,
	keep []timeline.TimeRange,
	dst string,
	progress ProgressFunc,
) error {
	keep = encodableRanges(keep)
	if len(keep) == 0 {
		return ErrEmptyKeepRanges
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	partsDir, err := os.MkdirTemp(filepath.Dir(dst), ".clipforge-parts-*")
	if err != nil {
		return fmt.Errorf("failed to create parts directory: %w", err)
	}
	defer os.RemoveAll(partsDir)

	ext := filepath.Ext(dst)
	if ext == "" {
		ext = ".mp4"
	}

	jobs := make([]cutJob, len(keep))
	for i, r := range keep {
		jobs[i] = cutJob{
			index: i,
			r:     r,
			path:  filepath.Join(partsDir, fmt.Sprintf("part_%04d%s", i, ext)),
		}
	}

	tracker := newCutProgress(keep, progress)
	if err := e.encodeParts(ctx, path, jobs, tracker); err != nil {
		return err
	}

	listPath := filepath.Join(partsDir, "parts.txt")
	if err := writeConcatList(listPath, jobs); err != nil {
		return err
	}

	stream := ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": 0}).
		Output(dst, ffmpeg.KwArgs{"c": "copy"}).
		OverWriteOutput()

	if _, err := e.run(ctx, "ffmpeg concat", stream.GetArgs(), 0, nil); err != nil {
		return err
	}

	if progress != nil {
		progress(1)
	}
	return nil
}

func (e *FFmpegEngine) encodeParts(
	ctx context.Context,
	path string,
	jobs []cutJob,
	tracker *cutProgress,
) error {
	concurrency := e.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)

	sem := make(chan struct{}, concurrency)

	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(j cutJob) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			stream := ffmpeg.Input(path, ffmpeg.KwArgs{
				"ss": formatSeconds(j.r.Start),
				"t":  formatSeconds(j.r.Length()),
			}).Output(j.path, ffmpeg.KwArgs{
				"c:v":               "libx264",
				"preset":            "veryfast",
				"crf":               18,
				"c:a":               "aac",
				"b:a":               "192k",
				"avoid_negative_ts": "make_zero",
			}).OverWriteOutput()

			_, err := e.run(
				ctx,
				fmt.Sprintf("ffmpeg cut segment %d", j.index),
				stream.GetArgs(),
				j.r.Length(),
				func(f float64) { tracker.update(j.index, f) },
			)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				return
			}
			tracker.update(j.index, 1)
		}(job)
	}

	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// cutProgress folds per-segment completion into one fraction weighted by
// segment length. The concat step owns the last 5%.
type cutProgress struct {
	mu       sync.Mutex
	lengths  []float64
	done     []float64
	total    float64
	progress ProgressFunc
}

func newCutProgress(keep []timeline.TimeRange, progress ProgressFunc) *cutProgress {
	p := &cutProgress{
		lengths:  make([]float64, len(keep)),
		done:     make([]float64, len(keep)),
		progress: progress,
	}
	for i, r := range keep {
		p.lengths[i] = r.Length()
		p.total += r.Length()
	}
	return p
}

func (p *cutProgress) update(index int, fraction float64) {
	if p.progress == nil || p.total <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done[index] = min(max(fraction, 0), 1) * p.lengths[index]
	var sum float64
	for _, d := range p.done {
		sum += d
	}
	p.progress(0.95 * sum / p.total)
}

func writeConcatList(listPath string, jobs []cutJob) error {
	var sb strings.Builder
	for _, j := range jobs {
		// concat demuxer quoting: close quote, escaped quote, reopen
		name := strings.ReplaceAll(filepath.Base(j.path), "'", `'\''`)
		sb.WriteString(fmt.Sprintf("file '%s'\n", name))
	}
	if err := os.WriteFile(listPath, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	return nil
}

// extracts audio from a media file
func (e *FFmpegEngine) ExtractAudio(
	ctx context.Context,
	path, dst string,
	opts AudioOptions,
) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("media file not found: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	stream := ffmpeg.Input(path).
		Output(dst, audioKwArgs(opts)).
		OverWriteOutput()

	_, err := e.run(ctx, "ffmpeg extract audio", stream.GetArgs(), 0, nil)
	return err
}

func audioKwArgs(opts AudioOptions) ffmpeg.KwArgs {
	kwargs := ffmpeg.KwArgs{
		"vn": "", // No video
	}
	if opts.SampleRate > 0 {
		kwargs["ar"] = opts.SampleRate
	}
	if opts.Channels > 0 {
		kwargs["ac"] = opts.Channels
	}

	switch opts.Format {
	case "mp3":
		kwargs["acodec"] = "libmp3lame"
		if opts.Bitrate != "" {
			kwargs["b:a"] = opts.Bitrate
		}
	case "aac":
		kwargs["acodec"] = "aac"
		if opts.Bitrate != "" {
			kwargs["b:a"] = opts.Bitrate
		}
	case "flac":
		kwargs["acodec"] = "flac"
	default:
		kwargs["acodec"] = "pcm_s16le"
	}
	return kwargs
}

// BurnSubtitles hard-codes a subtitle file into the video stream.
func (e *FFmpegEngine) BurnSubtitles(
	ctx context.Context,
	path, subtitlePath, dst string,
	progress ProgressFunc,
) error {
	var duration float64
	if progress != nil {
		if probe, err := e.Probe(ctx, path); err == nil {
			duration = probe.Duration
		}
	}

	stream := ffmpeg.Input(path).
		Output(dst, ffmpeg.KwArgs{
			"vf":  "subtitles=" + escapeFilterPath(subtitlePath),
			"c:a": "copy",
		}).
		OverWriteOutput()

	_, err := e.run(ctx, "ffmpeg burn subtitles", stream.GetArgs(), duration, progress)
	return err
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	return p
}

// run executes ffmpeg with args, streaming stderr so that "time=" updates can
// be reported against duration. The collected stderr is returned either way.
func (e *FFmpegEngine) run(
	ctx context.Context,
	op string,
	args []string,
	duration float64,
	progress ProgressFunc,
) (string, error) {
	cmd := exec.CommandContext(ctx, e.ffmpeg, args...)
	e.logger.Debugw("Running ffmpeg", "op", op, "args", args)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", &DelegateError{Op: op, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return "", &DelegateError{Op: op, Err: err}
	}

	var diag bytes.Buffer
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLinesOrCR)
	for scanner.Scan() {
		line := scanner.Text()
		diag.WriteString(line)
		diag.WriteByte('\n')

		if progress != nil && duration > 0 {
			if t, ok := parseProgressTime(line); ok {
				progress(min(t/duration, 1))
			}
		}
	}
	// keep the pipe drained if the scanner gave up on an oversized line
	_, _ = io.Copy(&diag, stderr)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return diag.String(), ctx.Err()
		}
		return diag.String(), &DelegateError{Op: op, Err: err, Output: diag.String()}
	}
	return diag.String(), nil
}

var progressTime = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// parses the "time=HH:MM:SS.xx" field of an ffmpeg status line
func parseProgressTime(line string) (float64, bool) {
	m := progressTime.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.ParseFloat(m[1], 64)
	mins, _ := strconv.ParseFloat(m[2], 64)
	secs, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	return h*3600 + mins*60 + secs, true
}

// ffmpeg rewrites its status line with '\r'; treat it as a line break
func scanLinesOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
