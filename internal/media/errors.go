package media

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrNoVideoStream   = errors.New("no video stream found")
	ErrNoAudioStream   = errors.New("no audio stream found")
	ErrEmptyKeepRanges = errors.New("cut called with empty keep range list")
)

// how much delegate output is kept for error messages
const MaxDiagnosticBytes = 500

// DelegateError is a failed call into an external tool. Output holds what the
// tool printed, which is usually the only useful clue.
type DelegateError struct {
	Op     string
	Err    error
	Output string
}

func (e *DelegateError) Error() string {
	tail := e.Diagnostics()
	if tail == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed: %v\n%s", e.Op, e.Err, tail)
}

func (e *DelegateError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies the error for callers that map failures to statuses.
func (e *DelegateError) ErrorKind() string {
	return "delegate"
}

// Diagnostics returns the last MaxDiagnosticBytes of the tool output.
func (e *DelegateError) Diagnostics() string {
	return Tail(e.Output, MaxDiagnosticBytes)
}

// Tail returns at most n trailing bytes of s, trimmed. The cut never splits
// a UTF-8 sequence.
func Tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return strings.TrimSpace(s[i:])
}
