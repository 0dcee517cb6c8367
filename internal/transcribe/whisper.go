package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mgpai22/clipforge/internal/media"
	"github.com/mgpai22/clipforge/internal/timeline"
)

const (
	defaultWhisperBinary = "whisper-cli"
	defaultWhisperModel  = "base"
)

// implements Transcriber by running the whisper.cpp CLI on a local model
type WhisperCPPTranscriber struct {
	binary  string
	model   string
	options Options
}

func NewWhisperCPPTranscriber(opts Options) *WhisperCPPTranscriber {
	binary := opts.Binary
	if binary == "" {
		binary = defaultWhisperBinary
	}
	model := opts.Model
	if model == "" {
		model = defaultWhisperModel
	}
	return &WhisperCPPTranscriber{
		binary:  binary,
		model:   resolveWhisperModel(model, opts.ModelDir),
		options: opts,
	}
}

// a model is either a path to a ggml file or a size name looked up in dir
func resolveWhisperModel(model, dir string) string {
	if strings.ContainsRune(model, os.PathSeparator) || strings.HasSuffix(model, ".bin") {
		return model
	}
	if dir == "" {
		if cache, err := os.UserCacheDir(); err == nil {
			dir = filepath.Join(cache, "clipforge", "whisper")
		}
	}
	return filepath.Join(dir, "ggml-"+model+".bin")
}

func (t *WhisperCPPTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}
	if _, err := os.Stat(t.model); err != nil {
		return nil, fmt.Errorf("whisper model not found at %s: %w", t.model, err)
	}

	outDir, err := os.MkdirTemp(filepath.Dir(audioPath), "whisper-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create whisper output directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	outPrefix := filepath.Join(outDir, "transcript")
	cmd := exec.CommandContext(ctx, t.binary, t.args(audioPath, outPrefix)...)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &media.DelegateError{Op: "whisper.cpp", Err: err, Output: output.String()}
	}

	data, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp produced no transcript: %w", err)
	}
	return parseWhisperJSON(data)
}

func (t *WhisperCPPTranscriber) args(audioPath, outPrefix string) []string {
	args := []string{
		"-m", t.model,
		"-f", audioPath,
		"-oj",
		"-of", outPrefix,
		"-np",
	}

	lang := t.options.Language
	if lang == "" {
		lang = "auto"
	}
	args = append(args, "-l", lang)

	if tl := strings.ToLower(strings.TrimSpace(t.options.TranscriptLanguage)); tl == "en" || tl == "english" {
		args = append(args, "-tr")
	}
	if t.options.WordLevel {
		args = append(args, "-ml", "1", "-sow")
	}
	if t.options.Prompt != "" {
		args = append(args, "--prompt", t.options.Prompt)
	}
	return args
}

// parses the -oj output: offsets are milliseconds
func parseWhisperJSON(data []byte) (*Result, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("whisper.cpp wrote invalid JSON")
	}
	doc := gjson.ParseBytes(data)

	result := &Result{Language: doc.Get("result.language").String()}
	for _, item := range doc.Get("transcription").Array() {
		text := strings.TrimSpace(item.Get("text").String())
		if text == "" {
			continue
		}
		start := item.Get("offsets.from").Float() / 1000
		end := item.Get("offsets.to").Float() / 1000
		result.Segments = append(result.Segments, timeline.Segment{
			Start: start,
			End:   end,
			Label: timeline.LabelCaption,
			Text:  text,
		})
		result.Duration = max(result.Duration, end)
	}
	return result, nil
}
