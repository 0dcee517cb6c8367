package translate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// BuildPrompt creates the translation prompt for LLM providers
func BuildPrompt(opts Options, items []Item) string {
	var sb strings.Builder

	if opts.InputLanguage != "" {
		sb.WriteString(fmt.Sprintf(
			"Translate the following %s caption texts to %s.\n\n",
			opts.InputLanguage,
			opts.TargetLanguage,
		))
	} else {
		sb.WriteString(fmt.Sprintf(
			"Translate the following caption texts to %s.\n\n",
			opts.TargetLanguage,
		))
	}

	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString("1. Translate ONLY the text content, preserving the meaning.\n")
	sb.WriteString("2. Preserve line breaks in the same positions.\n")
	sb.WriteString("3. Return ONLY a JSON array with the same structure.\n")
	sb.WriteString("4. Each object must have 'index' and 'text' fields.\n")
	sb.WriteString("5. The 'index' values must match the input indices exactly.\n")
	sb.WriteString("6. Do not add any explanation or markdown formatting.\n\n")

	if opts.Prompt != "" {
		sb.WriteString(fmt.Sprintf("Additional instructions: %s\n\n", opts.Prompt))
	}

	sb.WriteString("Input JSON:\n")

	inputJSON, _ := json.MarshalIndent(items, "", "  ")
	sb.Write(inputJSON)

	sb.WriteString("\n\nOutput the translated JSON array only:")

	return sb.String()
}

// parseResponse extracts the translations for items from a model reply
func parseResponse(reply string, items []Item) ([]Item, error) {
	reply = cleanJSONResponse(reply)
	if reply == "" {
		return nil, fmt.Errorf("empty response")
	}

	results, err := extractTranslationResults(reply)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to parse JSON response: %w (response: %s)",
			err,
			truncateString(reply, 200),
		)
	}

	if len(results) != len(items) {
		return nil, fmt.Errorf("expected %d results, got %d", len(items), len(results))
	}

	want := make(map[int]bool, len(items))
	for _, item := range items {
		want[item.Index] = true
	}
	for _, r := range results {
		if !want[r.Index] {
			return nil, fmt.Errorf("response has unexpected index %d", r.Index)
		}
	}

	return results, nil
}

var jsonFence = regexp.MustCompile("```(?:json)?\\s*")

func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	s = jsonFence.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// fixes invalid JSON escape sequences like \N (ASS newline).
// It replaces \N with \\N so JSON can parse it, preserving the literal \N in the output.
func fixInvalidEscapes(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	i := 0
	for i < len(s) {
		if i < len(s)-1 && s[i] == '\\' {
			next := s[i+1]
			switch next {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
				result.WriteByte(s[i])
				result.WriteByte(next)
			default:
				result.WriteString("\\\\")
				result.WriteByte(next)
			}
			i += 2
			continue
		}
		result.WriteByte(s[i])
		i++
	}

	return result.String()
}

func extractTranslationResults(text string) ([]Item, error) {
	text = fixInvalidEscapes(text)

	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		decoder := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			continue
		}
		if results, ok := tryExtractResults(raw); ok {
			return results, nil
		}
	}
	return nil, fmt.Errorf("no valid translation JSON found in response")
}

func tryExtractResults(raw json.RawMessage) ([]Item, bool) {
	var results []Item
	if err := json.Unmarshal(raw, &results); err == nil && validateResults(results) {
		return results, true
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, false
	}

	for _, key := range []string{"results", "translations", "data", "items"} {
		if fieldRaw, exists := wrapper[key]; exists {
			var fieldResults []Item
			if err := json.Unmarshal(fieldRaw, &fieldResults); err == nil && validateResults(fieldResults) {
				return fieldResults, true
			}
		}
	}

	for _, fieldRaw := range wrapper {
		var fieldResults []Item
		if err := json.Unmarshal(fieldRaw, &fieldResults); err == nil && validateResults(fieldResults) {
			return fieldResults, true
		}
	}

	return nil, false
}

// a result set is usable when at least one item carries text
func validateResults(results []Item) bool {
	for _, r := range results {
		if r.Text != "" {
			return true
		}
	}
	return false
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
