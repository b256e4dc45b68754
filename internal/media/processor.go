package media

import (
	"fmt"

	"github.com/snapthumb/snapthumb/internal/domain/thumbnail"
)

// Processor is the pure transformation stage the Worker invokes: given an
// input-file path and kind, produce one thumbnail artifact on disk,
// reporting intermediate progress.
type Processor struct {
	image *ImageProcessor
	video *VideoProcessor
}

// New constructs a Processor for cfg.
func New(cfg Config) *Processor {
	return &Processor{
		image: NewImageProcessor(cfg),
		video: NewVideoProcessor(cfg),
	}
}

// Process dispatches to the image or video path by kind.
func (p *Processor) Process(kind thumbnail.Kind, sourcePath, outputDir string, progress ProgressFunc) (*Result, error) {
	switch kind {
	case thumbnail.KindImage:
		return p.image.Process(sourcePath, outputDir, progress)
	case thumbnail.KindVideo:
		return p.video.Process(sourcePath, outputDir, progress)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
}
