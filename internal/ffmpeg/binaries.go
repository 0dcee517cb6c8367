package ffmpeg

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
)

const (
	ffmpegEnv  = "CLIPFORGE_FFMPEG_PATH"
	ffprobeEnv = "CLIPFORGE_FFPROBE_PATH"
)

var ErrNotFound = errors.New("ffmpeg/ffprobe not found")

type BinaryPaths struct {
	FFmpeg  string
	FFprobe string
}

var (
	ensureOnce sync.Once
	ensureErr  error
	ensurePath BinaryPaths
)

// Ensure locates ffmpeg and ffprobe once per process. Lookup order is the
// CLIPFORGE_FFMPEG_PATH / CLIPFORGE_FFPROBE_PATH overrides, then PATH, then
// the per-user install dir (<user cache>/clipforge/bin).
func Ensure() (BinaryPaths, error) {
	ensureOnce.Do(func() {
		ensurePath, ensureErr = resolve(os.Getenv, exec.LookPath, installDir())
	})
	return ensurePath, ensureErr
}

func FFmpegPath() (string, error) {
	paths, err := Ensure()
	if err != nil {
		return "", err
	}
	return paths.FFmpeg, nil
}

func FFprobePath() (string, error) {
	paths, err := Ensure()
	if err != nil {
		return "", err
	}
	return paths.FFprobe, nil
}

func resolve(
	getenv func(string) string,
	lookPath func(string) (string, error),
	dir string,
) (BinaryPaths, error) {
	ffmpegPath, err := locate("ffmpeg", getenv(ffmpegEnv), lookPath, dir)
	if err != nil {
		return BinaryPaths{}, err
	}
	ffprobePath, err := locate("ffprobe", getenv(ffprobeEnv), lookPath, dir)
	if err != nil {
		return BinaryPaths{}, err
	}
	return BinaryPaths{FFmpeg: ffmpegPath, FFprobe: ffprobePath}, nil
}

func locate(
	name, override string,
	lookPath func(string) (string, error),
	dir string,
) (string, error) {
	if override != "" {
		if !fileExists(override) {
			return "", fmt.Errorf("%w: %s override %q does not exist", ErrNotFound, name, override)
		}
		return override, nil
	}

	if found, err := lookPath(name); err == nil {
		return found, nil
	}

	if dir != "" {
		candidate := filepath.Join(dir, name+executableSuffix())
		if fileExists(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s is not on PATH", ErrNotFound, name)
}

func installDir() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil || cacheDir == "" {
		return ""
	}
	return filepath.Join(cacheDir, "clipforge", "bin")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

func executableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
