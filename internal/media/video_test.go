package media

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFFmpeg writes a shell script standing in for the ffmpeg binary. The
// video path never inspects ffmpeg's own output format, only the frame file
// it leaves behind, so a script that copies a fixture JPEG to its last
// argument is a faithful stand-in for "-vframes 1 ... destPath".
func fakeFFmpeg(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-ffmpeg.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestVideoProcessor_Process_Success(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	scriptDir := t.TempDir()

	video := filepath.Join(srcDir, "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("not a real video, ffmpeg is faked"), 0o644))

	fixtureJPEG := writeTestJPEG(t, srcDir, "frame.jpg")
	ffmpeg := fakeFFmpeg(t, scriptDir, "for f in \"$@\"; do dest=\"$f\"; done\ncp \""+fixtureJPEG+"\" \"$dest\"")

	p := NewVideoProcessor(Config{
		ThumbnailSize:          24,
		JPEGQuality:            80,
		VideoCaptureTime:       "00:00:01",
		VideoExtractionTimeout: 5 * time.Second,
		FFmpegPath:             ffmpeg,
	})

	var progressed []int
	result, err := p.Process(video, outDir, func(percent int) {
		progressed = append(progressed, percent)
	})
	require.NoError(t, err)
	assert.Equal(t, 24, result.Width)
	assert.Equal(t, ".jpg", filepath.Ext(result.ThumbnailPath))
	assert.Equal(t, []int{40, 60, 80}, progressed)
}

func TestVideoProcessor_Process_MissingInput(t *testing.T) {
	p := NewVideoProcessor(Config{ThumbnailSize: 24, JPEGQuality: 80, FFmpegPath: "ffmpeg"})

	_, err := p.Process(filepath.Join(t.TempDir(), "missing.mp4"), t.TempDir(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInputMissing)
}

func TestVideoProcessor_Process_ExtractionFailure(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	scriptDir := t.TempDir()

	video := filepath.Join(srcDir, "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("data"), 0o644))

	ffmpeg := fakeFFmpeg(t, scriptDir, "echo 'invalid data found' 1>&2\nexit 1")

	p := NewVideoProcessor(Config{
		ThumbnailSize:          24,
		JPEGQuality:            80,
		VideoCaptureTime:       "00:00:01",
		VideoExtractionTimeout: 5 * time.Second,
		FFmpegPath:             ffmpeg,
	})

	_, err := p.Process(video, outDir, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVideoExtractionFailed)

	var ffmpegErr *FFmpegError
	require.True(t, errors.As(err, &ffmpegErr))
	assert.Contains(t, ffmpegErr.Stderr, "invalid data found")
}

func TestVideoProcessor_Process_ExtractionTimeout(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	scriptDir := t.TempDir()

	video := filepath.Join(srcDir, "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("data"), 0o644))

	ffmpeg := fakeFFmpeg(t, scriptDir, "sleep 5")

	p := NewVideoProcessor(Config{
		ThumbnailSize:          24,
		JPEGQuality:            80,
		VideoCaptureTime:       "00:00:01",
		VideoExtractionTimeout: 50 * time.Millisecond,
		FFmpegPath:             ffmpeg,
	})

	_, err := p.Process(video, outDir, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVideoExtractionTimeout)
}
