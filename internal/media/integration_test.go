package media

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	ffmpegbin "github.com/mgpai22/clipforge/internal/ffmpeg"
	"github.com/mgpai22/clipforge/internal/timeline"
)

func binaryPathsForTest() ffmpegbin.BinaryPaths {
	return ffmpegbin.BinaryPaths{FFmpeg: "ffmpeg", FFprobe: "ffprobe"}
}

// builds a 6s clip: tone for 2s, then silence
func makeTestVideo(t *testing.T, paths ffmpegbin.BinaryPaths) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "input.mp4")
	cmd := exec.Command(paths.FFmpeg,
		"-y",
		"-f", "lavfi", "-i", "testsrc=size=320x240:rate=25:duration=6",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=2,apad=whole_dur=6",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-shortest",
		out,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("cannot generate test video: %v\n%s", err, b)
	}
	return out
}

func TestFFmpegEngineIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ffmpeg integration test in short mode")
	}
	paths, err := ffmpegbin.Ensure()
	if err != nil {
		t.Skipf("ffmpeg not available: %v", err)
	}

	ctx := context.Background()
	engine := NewFFmpegEngine(paths, nil)
	input := makeTestVideo(t, paths)

	probe, err := engine.Probe(ctx, input)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if !probe.HasVideo || !probe.HasAudio {
		t.Fatalf("probe = %+v, want audio and video", probe)
	}

	var lastProgress float64
	diag, err := engine.DetectSilence(
		ctx,
		input,
		SilenceOptions{ThresholdDB: -30, MinDuration: 0.5},
		probe.Duration,
		func(f float64) { lastProgress = f },
	)
	if err != nil {
		t.Fatalf("DetectSilence: %v", err)
	}
	if lastProgress <= 0 {
		t.Errorf("expected progress updates from silencedetect")
	}
	if len(diag) == 0 {
		t.Fatal("DetectSilence returned no diagnostics")
	}

	dst := filepath.Join(t.TempDir(), "out.mp4")
	keep := []timeline.TimeRange{{Start: 0, End: 1}, {Start: 3, End: 4}}
	if err := engine.CutAndConcatenate(ctx, input, keep, dst, nil); err != nil {
		t.Fatalf("CutAndConcatenate: %v", err)
	}

	cut, err := engine.Probe(ctx, dst)
	if err != nil {
		t.Fatalf("Probe(cut): %v", err)
	}
	if cut.Duration < 1.5 || cut.Duration > 2.5 {
		t.Errorf("cut duration = %.2f, want ~2", cut.Duration)
	}
}
