package transcribe

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestParseWhisperJSON(t *testing.T) {
	data := []byte(`{
		"result": {"language": "en"},
		"transcription": [
			{"timestamps": {"from": "00:00:00,000", "to": "00:00:02,500"}, "offsets": {"from": 0, "to": 2500}, "text": " And so my fellow Americans"},
			{"timestamps": {"from": "00:00:02,500", "to": "00:00:03,000"}, "offsets": {"from": 2500, "to": 3000}, "text": "  "},
			{"timestamps": {"from": "00:00:03,000", "to": "00:00:07,250"}, "offsets": {"from": 3000, "to": 7250}, "text": " ask not"}
		]
	}`)

	result, err := parseWhisperJSON(data)
	if err != nil {
		t.Fatalf("parseWhisperJSON: %v", err)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(result.Segments))
	}
	first := result.Segments[0]
	if first.Start != 0 || first.End != 2.5 || first.Text != "And so my fellow Americans" {
		t.Errorf("first segment = %+v", first)
	}
	if result.Segments[1].Start != 3 || result.Segments[1].End != 7.25 {
		t.Errorf("second segment = %+v", result.Segments[1])
	}
	if result.Language != "en" || result.Duration != 7.25 {
		t.Errorf("language/duration = %q/%v", result.Language, result.Duration)
	}

	if _, err := parseWhisperJSON([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestResolveWhisperModel(t *testing.T) {
	if got := resolveWhisperModel("small", "/models"); got != filepath.Join("/models", "ggml-small.bin") {
		t.Errorf("size name resolved to %q", got)
	}
	if got := resolveWhisperModel("custom.bin", "/models"); got != "custom.bin" {
		t.Errorf("explicit file resolved to %q", got)
	}
	explicit := filepath.Join("opt", "ggml-large-v3.bin")
	if got := resolveWhisperModel(explicit, "/models"); got != explicit {
		t.Errorf("explicit path resolved to %q", got)
	}
}

func TestWhisperArgs(t *testing.T) {
	tr := NewWhisperCPPTranscriber(Options{
		Model:              "tiny",
		ModelDir:           "/models",
		WordLevel:          true,
		TranscriptLanguage: "english",
	})
	args := tr.args("/work/audio.wav", "/work/out/transcript")
	joined := strings.Join(args, " ")

	for _, want := range []string{"-f /work/audio.wav", "-oj", "-of /work/out/transcript", "-l auto", "-tr", "-ml 1 -sow"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
	if i := slices.Index(args, "-m"); i < 0 || args[i+1] != filepath.Join("/models", "ggml-tiny.bin") {
		t.Errorf("model arg missing in %q", joined)
	}
	if tr.binary != defaultWhisperBinary {
		t.Errorf("binary = %q", tr.binary)
	}
}

func TestWhisperTranscribeMissingModel(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "audio.wav")
	if err := os.WriteFile(wav, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewWhisperCPPTranscriber(Options{Model: "base", ModelDir: filepath.Join(dir, "none")})
	_, err := tr.Transcribe(context.Background(), wav)
	if err == nil || !strings.Contains(err.Error(), "whisper model not found") {
		t.Fatalf("error = %v, want missing model", err)
	}
}
