package chat

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Image errors surface to the client as 400s.
var (
	ErrImageTooLarge   = errors.New("image is too large (max 4MB)")
	ErrImageDimensions = errors.New("image has too many pixels (max 40 megapixels)")
	ErrInvalidImage    = errors.New("invalid image file")
)

// maxPixels bounds the decoded bitmap. The byte cap alone does not: a few
// hundred KB of PNG can describe gigabytes of pixels.
const maxPixels = 40_000_000

// ProcessedImage is an upload after downscaling and re-encoding.
type ProcessedImage struct {
	Data      []byte
	Width     int
	Height    int
	MediaType string
}

// ProcessImage decodes a PNG, JPEG, GIF or WebP upload, shrinks it so the
// longest edge is at most maxEdge and re-encodes it as JPEG. Dimensions are
// read from the header and checked before the bitmap is decoded.
func ProcessImage(data []byte, maxBytes int64, maxEdge, quality int) (*ProcessedImage, error) {
	if int64(len(data)) > maxBytes {
		return nil, ErrImageTooLarge
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageDimensions, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	w, h := fitWithin(src.Bounds().Dx(), src.Bounds().Dy(), maxEdge)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// JPEG has no alpha; paint a white background first.
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return &ProcessedImage{
		Data:      buf.Bytes(),
		Width:     w,
		Height:    h,
		MediaType: "image/jpeg",
	}, nil
}

// fitWithin scales w x h down, keeping the aspect ratio, until neither
// edge exceeds maxEdge. Images that already fit are left alone.
func fitWithin(w, h, maxEdge int) (int, int) {
	if w <= maxEdge && h <= maxEdge {
		return w, h
	}
	if w >= h {
		return maxEdge, max(1, h*maxEdge/w)
	}
	return max(1, w*maxEdge/h), maxEdge
}
