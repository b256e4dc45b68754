package media

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // decode-only: source images may arrive as WebP
)

// ProgressFunc reports a percentage (0-100) back to the caller, forwarded
// by the Worker to Queue.UpdateProgress.
type ProgressFunc func(percent int)

// Result is what a successful Process call produces.
type Result struct {
	ThumbnailPath string
	Width         int
	Height        int
}

// ImageProcessor resizes a source image to a square thumbnail, cover-fit
// and centered, per the image path.
type ImageProcessor struct {
	cfg Config
}

// NewImageProcessor constructs an ImageProcessor for cfg.
func NewImageProcessor(cfg Config) *ImageProcessor {
	return &ImageProcessor{cfg: cfg}
}

// Process resizes sourcePath into outputDir, reporting 40% on entry and
// 80% after the write completes.
func (p *ImageProcessor) Process(sourcePath, outputDir string, progress ProgressFunc) (*Result, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrInputMissing, sourcePath)
		}
		return nil, fmt.Errorf("%w: %v", ErrInputMissing, err)
	}

	if progress != nil {
		progress(40)
	}

	src, err := imaging.Open(sourcePath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	ext, err := probeOutputExt(sourcePath)
	if err != nil {
		return nil, err
	}

	result, err := resizeAndSave(src, outputDir, ext, p.cfg.ThumbnailSize, p.cfg.JPEGQuality)
	if err != nil {
		return nil, err
	}

	if progress != nil {
		progress(80)
	}

	return result, nil
}

// resizeAndSave cover-fits src to size x size centered, encodes to ext
// (.jpg or .png), and verifies the write produced a non-empty file. Shared
// by the image and video processing paths.
func resizeAndSave(src image.Image, outputDir, ext string, size, jpegQuality int) (*Result, error) {
	thumb := imaging.Fill(src, size, size, imaging.Center, imaging.Lanczos)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating output dir: %v", ErrEncodeFailed, err)
	}

	destPath := filepath.Join(outputDir, fmt.Sprintf("thumb_%s%s", uuid.NewString(), ext))
	if err := saveThumbnail(thumb, destPath, jpegQuality); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}

	if err := verifyNonEmpty(destPath); err != nil {
		return nil, err
	}

	return &Result{ThumbnailPath: destPath, Width: size, Height: size}, nil
}

// probeOutputExt decides JPEG vs PNG output based on the source format:
// JPEG variants stay JPEG, everything else becomes PNG.
func probeOutputExt(sourcePath string) (string, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	defer f.Close()

	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	switch format {
	case "jpeg":
		return ".jpg", nil
	default:
		return ".png", nil
	}
}

func saveThumbnail(img image.Image, destPath string, jpegQuality int) error {
	switch filepath.Ext(destPath) {
	case ".jpg", ".jpeg":
		return imaging.Save(img, destPath,
			imaging.JPEGQuality(jpegQuality),
		)
	default:
		return imaging.Save(img, destPath,
			imaging.PNGCompressionLevel(png.BestCompression),
		)
	}
}

func verifyNonEmpty(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmptyOutput, err)
	}
	if info.Size() == 0 {
		_ = os.Remove(path)
		return ErrEmptyOutput
	}
	return nil
}
