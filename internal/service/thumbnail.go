// Package service contains the business logic layer.
//
// This file renders poster thumbnails for uploaded recordings.
package service

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

const (
	// PosterMaxWidth and PosterMaxHeight bound the stored poster.
	PosterMaxWidth  = 320
	PosterMaxHeight = 240

	posterJPEGQuality = 80
)

// ThumbnailProcessor shrinks a still frame into a JPEG poster.
type ThumbnailProcessor interface {
	// GenerateThumbnail decodes data and fits it inside maxWidth x maxHeight,
	// preserving aspect ratio.
	GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, error)
}

type imagingProcessor struct{}

// NewImagingProcessor creates a ThumbnailProcessor backed by imaging.
func NewImagingProcessor() ThumbnailProcessor {
	return &imagingProcessor{}
}

func (p *imagingProcessor) GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, error) {
	img, err := imaging.Decode(data, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode poster: %w", err)
	}

	b := img.Bounds()
	var out image.Image = img
	if b.Dx() > maxWidth || b.Dy() > maxHeight {
		out = imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(posterJPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode poster: %w", err)
	}
	return buf.Bytes(), nil
}
