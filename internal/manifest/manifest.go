// Package manifest defines the editing request shared by the CLI, the HTTP
// server and the pipeline. Manifests are JSON or TOML files.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

var ErrInvalid = errors.New("invalid manifest")

// silence detection and removal
type SilenceCut struct {
	Enabled     bool    `json:"enabled" toml:"enabled"`
	ThresholdDB float64 `json:"threshold_db" toml:"threshold_db"`
	MinDuration float64 `json:"min_duration" toml:"min_duration"`
	Padding     float64 `json:"padding" toml:"padding"`
}

// automatic captions
type Captions struct {
	Enabled      bool   `json:"enabled" toml:"enabled"`
	Provider     string `json:"provider" toml:"provider"`
	Model        string `json:"model" toml:"model"`
	Language     string `json:"language,omitempty" toml:"language,omitempty"`
	OutputFormat string `json:"output_format" toml:"output_format"`
	WordLevel    bool   `json:"word_level" toml:"word_level"`
	BurnIn       bool   `json:"burn_in" toml:"burn_in"`
	MaxLineChars int    `json:"max_line_chars,omitempty" toml:"max_line_chars,omitempty"`

	// language the transcript is written in; "native" keeps the spoken one
	TranscriptLanguage string `json:"transcript_language,omitempty" toml:"transcript_language,omitempty"`
	// vocabulary or style hint passed to the transcriber
	Prompt string `json:"prompt,omitempty" toml:"prompt,omitempty"`

	TranslateTo       string `json:"translate_to,omitempty" toml:"translate_to,omitempty"`
	TranslateProvider string `json:"translate_provider,omitempty" toml:"translate_provider,omitempty"`
}

type Manifest struct {
	Version    string     `json:"version" toml:"version"`
	Input      string     `json:"input" toml:"input"`
	Output     string     `json:"output" toml:"output"`
	WorkDir    string     `json:"work_dir,omitempty" toml:"work_dir,omitempty"`
	SilenceCut SilenceCut `json:"silence_cut" toml:"silence_cut"`
	Captions   Captions   `json:"captions" toml:"captions"`
}

func DefaultSilenceCut() SilenceCut {
	return SilenceCut{
		ThresholdDB: -30,
		MinDuration: 0.5,
		Padding:     0.05,
	}
}

func DefaultCaptions() Captions {
	return Captions{
		Provider:          "whisper",
		Model:             "base",
		OutputFormat:      "srt",
		TranslateProvider: "gemini",
	}
}

// New returns a manifest for input and output with every option at its
// default and both stages disabled.
func New(input, output string) *Manifest {
	return &Manifest{
		Version:    "1",
		Input:      input,
		Output:     output,
		SilenceCut: DefaultSilenceCut(),
		Captions:   DefaultCaptions(),
	}
}

// Load reads a manifest, choosing TOML for .toml files and JSON otherwise.
// Absent fields keep their defaults.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m := New("", "")
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, m)
	default:
		err = json.Unmarshal(data, m)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}

	if m.Input == "" || m.Output == "" {
		return nil, fmt.Errorf("%w: manifest must contain 'input' and 'output' fields", ErrInvalid)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Save writes the manifest in the format implied by the extension.
func (m *Manifest) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		data, err = toml.Marshal(m)
	default:
		data, err = json.MarshalIndent(m, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

var (
	providers          = map[string]bool{"whisper": true, "openai": true, "gemini": true}
	translateProviders = map[string]bool{"gemini": true, "openai": true, "anthropic": true}
	formats            = map[string]bool{"srt": true, "vtt": true, "ass": true}
)

// Validate reports the first setting that cannot be processed.
func (m *Manifest) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}

	if m.Input == "" {
		return invalid("input is required")
	}
	if m.Output == "" {
		return invalid("output is required")
	}
	if samePath(m.Input, m.Output) {
		return invalid("output must differ from input")
	}

	if sc := m.SilenceCut; sc.Enabled {
		if sc.MinDuration <= 0 {
			return invalid("silence_cut.min_duration must be positive, got %v", sc.MinDuration)
		}
		if sc.Padding < 0 {
			return invalid("silence_cut.padding must not be negative, got %v", sc.Padding)
		}
	}

	if c := m.Captions; c.Enabled {
		if !providers[strings.ToLower(c.Provider)] {
			return invalid("captions.provider %q is not one of whisper, openai, gemini", c.Provider)
		}
		if !formats[strings.ToLower(c.OutputFormat)] {
			return invalid("captions.output_format %q is not one of srt, vtt, ass", c.OutputFormat)
		}
		if c.MaxLineChars < 0 {
			return invalid("captions.max_line_chars must not be negative")
		}
		if c.TranslateTo != "" && !translateProviders[strings.ToLower(c.TranslateProvider)] {
			return invalid("captions.translate_provider %q is not one of gemini, openai, anthropic", c.TranslateProvider)
		}
	}
	return nil
}

// samePath compares absolute forms, so "in.mp4" and "./dir/../in.mp4" match
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
