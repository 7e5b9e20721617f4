package chat

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessImage_Downscales(t *testing.T) {
	out, err := ProcessImage(pngBytes(t, 2048, 512), 4<<20, 1024, 80)
	require.NoError(t, err)

	assert.Equal(t, 1024, out.Width)
	assert.Equal(t, 256, out.Height)
	assert.Equal(t, "image/jpeg", out.MediaType)

	img, format, err := image.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, image.Rect(0, 0, 1024, 256), img.Bounds())
}

func TestProcessImage_SmallImageKeepsSize(t *testing.T) {
	out, err := ProcessImage(pngBytes(t, 40, 30), 4<<20, 1024, 80)
	require.NoError(t, err)
	assert.Equal(t, 40, out.Width)
	assert.Equal(t, 30, out.Height)

	_, err = jpeg.DecodeConfig(bytes.NewReader(out.Data))
	assert.NoError(t, err)
}

func TestProcessImage_Rejects(t *testing.T) {
	_, err := ProcessImage(pngBytes(t, 64, 64), 100, 1024, 80)
	assert.True(t, errors.Is(err, ErrImageTooLarge), "got %v", err)

	_, err = ProcessImage([]byte("definitely not an image"), 4<<20, 1024, 80)
	assert.True(t, errors.Is(err, ErrInvalidImage), "got %v", err)
}

func TestProcessImage_RejectsPixelBombs(t *testing.T) {
	tests := []struct {
		name string
		w, h uint32
	}{
		{"16000 square", 16000, 16000},
		{"just over budget", 8000, 5001},
		{"one huge edge", 1 << 30, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ProcessImage(pngHeader(tc.w, tc.h), 4<<20, 1024, 80)
			assert.ErrorIs(t, err, ErrImageDimensions)
		})
	}
}

func TestProcessImage_AtPixelBudgetHeaderPasses(t *testing.T) {
	// Exactly 40 MP clears the dimension check; the missing pixel data then
	// fails the real decode.
	_, err := ProcessImage(pngHeader(8000, 5000), 4<<20, 1024, 80)
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.NotErrorIs(t, err, ErrImageDimensions)
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, edge, wantW, wantH int
	}{
		{800, 600, 1024, 800, 600},
		{2048, 1024, 1024, 1024, 512},
		{1000, 3000, 1024, 341, 1024},
		{5000, 2, 1024, 1024, 1},
	}
	for _, tc := range tests {
		w, h := fitWithin(tc.w, tc.h, tc.edge)
		assert.Equal(t, [2]int{tc.wantW, tc.wantH}, [2]int{w, h}, "%dx%d", tc.w, tc.h)
	}
}
