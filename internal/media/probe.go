package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Probe reads stream metadata with ffprobe.
func (e *FFmpegEngine) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("media file not found: %s", path)
	}

	cmd := exec.CommandContext(ctx, e.ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debugw("Running ffprobe", "args", cmd.Args)
	if err := cmd.Run(); err != nil {
		return nil, &DelegateError{Op: "ffprobe", Err: err, Output: stderr.String()}
	}

	result, err := parseProbe(stdout.Bytes())
	if err != nil {
		return nil, &DelegateError{Op: "ffprobe", Err: err, Output: stdout.String()}
	}
	return result, nil
}

// parses ffprobe -show_format -show_streams JSON
func parseProbe(data []byte) (*ProbeResult, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("ffprobe returned invalid JSON")
	}
	doc := gjson.ParseBytes(data)

	durationField := doc.Get("format.duration")
	if !durationField.Exists() {
		return nil, errors.New("ffprobe output has no format.duration")
	}
	duration, err := strconv.ParseFloat(durationField.String(), 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration %q: %w", durationField.String(), err)
	}

	result := &ProbeResult{Duration: duration}

	for _, stream := range doc.Get("streams").Array() {
		switch stream.Get("codec_type").String() {
		case "video":
			// cover art is reported as a video stream
			if result.HasVideo || stream.Get("disposition.attached_pic").Int() == 1 {
				continue
			}
			result.HasVideo = true
			result.Width = int(stream.Get("width").Int())
			result.Height = int(stream.Get("height").Int())
			result.VideoCodec = stream.Get("codec_name").String()
			result.FPS = parseFrameRate(stream.Get("r_frame_rate").String())
		case "audio":
			if result.HasAudio {
				continue
			}
			result.HasAudio = true
			result.AudioCodec = stream.Get("codec_name").String()
			// sample_rate is a string in ffprobe output
			result.AudioSampleRate = int(stream.Get("sample_rate").Int())
		}
	}

	return result, nil
}

// parses rates like "30000/1001"
func parseFrameRate(rate string) float64 {
	num, den, ok := strings.Cut(rate, "/")
	if !ok {
		v, _ := strconv.ParseFloat(rate, 64)
		return v
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
