package transcribe

import (
	"context"
	"testing"
)

func TestFactory(t *testing.T) {
	ctx := context.Background()

	tr, err := Factory(ctx, ProviderWhisper, "", Options{})
	if err != nil {
		t.Fatalf("Factory(whisper): %v", err)
	}
	if _, ok := tr.(*WhisperCPPTranscriber); !ok {
		t.Errorf("expected *WhisperCPPTranscriber, got %T", tr)
	}

	tr, err = Factory(ctx, ProviderOpenAI, "fake-key", Options{})
	if err != nil {
		t.Fatalf("Factory(openai): %v", err)
	}
	if _, ok := tr.(*OpenAITranscriber); !ok {
		t.Errorf("expected *OpenAITranscriber, got %T", tr)
	}

	if _, err := Factory(ctx, "carrier-pigeon", "", Options{}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestAudioOptionsFor(t *testing.T) {
	if opts := AudioOptionsFor(ProviderWhisper); opts.Format != "wav" || opts.SampleRate != 16000 {
		t.Errorf("whisper audio = %+v", opts)
	}
	if opts := AudioOptionsFor(ProviderGemini); opts.Format != "mp3" || opts.Bitrate != "64k" {
		t.Errorf("gemini audio = %+v", opts)
	}
}

func TestRemoteModel(t *testing.T) {
	tests := map[string]string{
		"":               "fallback",
		"base":           "fallback",
		"Large-V3":       "fallback",
		"gemini-2.5-pro": "gemini-2.5-pro",
		"whisper-1":      "whisper-1",
	}
	for in, want := range tests {
		if got := remoteModel(in, "fallback"); got != want {
			t.Errorf("remoteModel(%q) = %q, want %q", in, got, want)
		}
	}
}
