package media

import "time"

// Config holds the tunables the Media Processor is configured with; see
// the recognized configuration options.
type Config struct {
	ThumbnailSize            int    // square output dimension in pixels, default 128
	JPEGQuality              int    // default 80
	VideoCaptureTime         string // ffmpeg -ss value, default "00:00:01"
	VideoExtractionTimeout   time.Duration // default 60s
	FFmpegPath               string // default "ffmpeg", resolved via PATH
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ThumbnailSize:          128,
		JPEGQuality:            80,
		VideoCaptureTime:       "00:00:01",
		VideoExtractionTimeout: 60 * time.Second,
		FFmpegPath:             "ffmpeg",
	}
}
