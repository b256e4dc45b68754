package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// VideoProcessor extracts a single frame from a video via an external
// subprocess, then resizes it through the same cover-fit path images use.
type VideoProcessor struct {
	cfg   Config
	image *ImageProcessor
}

// NewVideoProcessor constructs a VideoProcessor for cfg.
func NewVideoProcessor(cfg Config) *VideoProcessor {
	return &VideoProcessor{cfg: cfg, image: NewImageProcessor(cfg)}
}

// Process extracts a frame at cfg.VideoCaptureTime, enforces the extraction
// timeout, then resizes the frame to a JPEG thumbnail. Progress ticks at
// 40% before the subprocess runs, 60% after the frame is extracted, and 80%
// after resize+encode.
func (p *VideoProcessor) Process(sourcePath, outputDir string, progress ProgressFunc) (*Result, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInputMissing, sourcePath)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating output dir: %v", ErrEncodeFailed, err)
	}

	tempFrame := filepath.Join(outputDir, fmt.Sprintf("temp_%s.jpg", uuid.NewString()))
	defer func() {
		if err := os.Remove(tempFrame); err != nil && !os.IsNotExist(err) {
			log.Printf("media: failed to remove temp frame %s: %v", tempFrame, err)
		}
	}()

	if progress != nil {
		progress(40)
	}

	if err := p.extractFrame(sourcePath, tempFrame); err != nil {
		return nil, err
	}

	if progress != nil {
		progress(60)
	}

	src, err := imaging.Open(tempFrame, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	result, err := resizeAndSave(src, outputDir, ".jpg", p.cfg.ThumbnailSize, p.cfg.JPEGQuality)
	if err != nil {
		return nil, err
	}

	if progress != nil {
		progress(80)
	}

	return result, nil
}

// extractFrame runs the configured extractor with a hard timeout, seeking
// to the configured capture time and emitting exactly one frame.
func (p *VideoProcessor) extractFrame(sourcePath, destPath string) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.VideoExtractionTimeout)
	defer cancel()

	ffmpegPath := p.cfg.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	args := []string{
		"-ss", p.cfg.VideoCaptureTime,
		"-i", sourcePath,
		"-vframes", "1",
		"-f", "image2",
		"-y",
		destPath,
	}

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrVideoExtractionTimeout, ctx.Err())
	}

	return fmt.Errorf("%w: %v", ErrVideoExtractionFailed, &FFmpegError{
		Args:   args,
		Stderr: stderr.String(),
		Err:    err,
	})
}
