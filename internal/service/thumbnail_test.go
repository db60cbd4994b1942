package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngFrame(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImagingProcessor_FitsPoster(t *testing.T) {
	out, err := NewImagingProcessor().GenerateThumbnail(bytes.NewReader(pngFrame(t, 1280, 720)), PosterMaxWidth, PosterMaxHeight)
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 180, img.Bounds().Dy())
}

func TestImagingProcessor_KeepsSmallFrames(t *testing.T) {
	out, err := NewImagingProcessor().GenerateThumbnail(bytes.NewReader(pngFrame(t, 160, 120)), PosterMaxWidth, PosterMaxHeight)
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 160, img.Bounds().Dx())
}

func TestImagingProcessor_RejectsGarbage(t *testing.T) {
	_, err := NewImagingProcessor().GenerateThumbnail(strings.NewReader("not an image"), 10, 10)
	assert.Error(t, err)
}
