package transcribe

import (
	"strings"
	"testing"
)

func TestExtractTranscriptSegments(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCount int
		wantErr   bool
	}{
		{
			name: "plain valid array",
			input: `[
				{"start": 0.0, "end": 2.5, "text": "Hello world"},
				{"start": 2.5, "end": 5.0, "text": "How are you"}
			]`,
			wantCount: 2,
		},
		{
			name: "preamble with valid array",
			input: `Here is the JSON transcript:
			[{"start": 0.0, "end": 2.5, "text": "Hello world"}]`,
			wantCount: 1,
		},
		{
			name: "valid array with trailing text",
			input: `[{"start": 0.0, "end": 2.5, "text": "Hello world"}]
			I hope this helps!`,
			wantCount: 1,
		},
		{
			name: "unrelated object first then transcript array",
			input: `{"status": "ok", "count": 5}
			[{"start": 0.0, "end": 2.0, "text": "Real transcript"}]`,
			wantCount: 1,
		},
		{
			name: "multiple arrays picks first valid",
			input: `[1, 2, 3]
			[{"start": 0.0, "end": 2.0, "text": "Actual transcript"}]`,
			wantCount: 1,
		},
		{
			name: "nested wrapper object",
			input: `{"response": {"segments": [{"start": 0.0, "end": 1.0, "text": "Nested"}]}}`,
			wantCount: 1,
		},
		{
			name:      "valid timestamps but empty text",
			input:     `[{"start": 1.0, "end": 2.0, "text": ""}]`,
			wantCount: 1,
		},
		{
			name:    "empty array",
			input:   `[]`,
			wantErr: true,
		},
		{
			name:    "no JSON at all",
			input:   `This is just plain text with no JSON content.`,
			wantErr: true,
		},
		{
			name:    "invalid JSON",
			input:   `[{"start": 0.0, "end": 2.0, "text": "incomplete"`,
			wantErr: true,
		},
		{
			name:    "all zero segment",
			input:   `[{"start": 0, "end": 0, "text": ""}]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := extractTranscriptSegments(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(segments) != tt.wantCount {
				t.Errorf("got %d segments, want %d", len(segments), tt.wantCount)
			}
		})
	}
}

func TestParseTranscriptionResponse(t *testing.T) {
	text := "```json\n" +
		`[{"start": 0.5, "end": 2, "text": " Hi there "},` +
		`{"start": 2, "end": 3, "text": ""},` +
		`{"start": 5, "end": 4, "text": "backwards"}]` +
		"\n```"

	segments, err := parseTranscriptionResponse(text)
	if err != nil {
		t.Fatalf("parseTranscriptionResponse: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1: %+v", len(segments), segments)
	}
	if segments[0].Text != "Hi there" || segments[0].Start != 0.5 || segments[0].End != 2 {
		t.Errorf("segment = %+v", segments[0])
	}

	if _, err := parseTranscriptionResponse("   "); err == nil {
		t.Error("expected error for empty response")
	}
}

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain JSON", `[{"start": 0}]`, `[{"start": 0}]`},
		{"json code fence", "```json\n[{\"start\": 0}]\n```", `[{"start": 0}]`},
		{"plain code fence", "```\n[{\"start\": 0}]\n```", `[{"start": 0}]`},
		{"surrounding whitespace", "  \n\n```json\n[{\"start\": 0}]\n```\n\n  ", `[{"start": 0}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanJSONResponse(tt.input); got != tt.want {
				t.Errorf("cleanJSONResponse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGeminiPromptMentionsOptions(t *testing.T) {
	tr := &GeminiTranscriber{options: Options{
		Language:           "German",
		TranscriptLanguage: "English",
		WordLevel:          true,
	}}
	prompt := tr.buildTranscriptionPrompt()
	for _, want := range []string{"The audio is in German", "Output the transcript in English", "per spoken word"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
