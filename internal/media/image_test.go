package media

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestJPEG(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 8), B: 100, A: 255})
		}
	}
	require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 90}))
	return path
}

func writeTestPNG(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 200, B: uint8(x), A: 255})
		}
	}
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestImageProcessor_Process_JPEGStaysJPEG(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	src := writeTestJPEG(t, srcDir, "source.jpg")

	p := NewImageProcessor(Config{ThumbnailSize: 32, JPEGQuality: 80})

	var progressed []int
	result, err := p.Process(src, outDir, func(percent int) {
		progressed = append(progressed, percent)
	})
	require.NoError(t, err)

	assert.Equal(t, 32, result.Width)
	assert.Equal(t, 32, result.Height)
	assert.Equal(t, ".jpg", filepath.Ext(result.ThumbnailPath))
	assert.Equal(t, []int{40, 80}, progressed)

	info, err := os.Stat(result.ThumbnailPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestImageProcessor_Process_PNGStaysPNG(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	src := writeTestPNG(t, srcDir, "source.png")

	p := NewImageProcessor(Config{ThumbnailSize: 16, JPEGQuality: 80})

	result, err := p.Process(src, outDir, nil)
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(result.ThumbnailPath))
}

func TestImageProcessor_Process_MissingInput(t *testing.T) {
	p := NewImageProcessor(Config{ThumbnailSize: 32, JPEGQuality: 80})

	_, err := p.Process(filepath.Join(t.TempDir(), "does-not-exist.jpg"), t.TempDir(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInputMissing)
}

func TestImageProcessor_Process_CorruptInput(t *testing.T) {
	srcDir := t.TempDir()
	path := filepath.Join(srcDir, "corrupt.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	p := NewImageProcessor(Config{ThumbnailSize: 32, JPEGQuality: 80})

	_, err := p.Process(path, t.TempDir(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProbeFailed)
}
