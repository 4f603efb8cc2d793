package carousel

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const (
	// PageJPEGQuality is used for PDF page bands.
	PageJPEGQuality = 98
	// SlideJPEGQuality is used for per-slide downloads.
	SlideJPEGQuality = 95
)

// Flatten draws src over an opaque background of the same bounds.
func Flatten(src image.Image, background color.Color) *image.RGBA {
	if background == nil {
		background = color.White
	}
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	return dst
}

// EncodeJPEG flattens img on white and encodes it at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img == nil {
		return nil, NewError(KindEncoding, "image is nil", nil)
	}
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Flatten(img, color.White), &jpeg.Options{Quality: quality}); err != nil {
		return nil, NewError(KindEncoding, "jpeg encode failed", err)
	}
	return buf.Bytes(), nil
}
