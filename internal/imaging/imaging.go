// Package imaging converts model-returned normalized regions into pixel
// crops of the uploaded image.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

// Scale is the fixed normalized coordinate range: 0 is the left/top edge,
// Scale the right/bottom edge, independent of actual pixel dimensions.
const Scale = 1000

// Box is a region in normalized [0, Scale] coordinates.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Pixels converts the box to absolute pixel coordinates for an image of
// the given size: multiply by the matching dimension, divide by Scale,
// truncate. The right and bottom edges are clamped to the image bounds so
// the crop never exceeds the source.
func (b Box) Pixels(width, height int) image.Rectangle {
	x0 := b.X * width / Scale
	y0 := b.Y * height / Scale
	x1 := x0 + b.Width*width/Scale
	y1 := y0 + b.Height*height/Scale

	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > width {
		x1 = width
	}
	if y1 > height {
		y1 = height
	}

	return image.Rect(x0, y0, x1, y1)
}

// Valid reports whether the pixel rectangle describes a usable crop.
func Valid(r image.Rectangle) bool {
	return r.Dx() > 0 && r.Dy() > 0
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Crop returns the region of img covered by r. Decoded PNG/JPEG images
// support SubImage directly; anything else is copied through a draw pass.
func Crop(img image.Image, r image.Rectangle) image.Image {
	r = r.Add(img.Bounds().Min).Intersect(img.Bounds())
	if si, ok := img.(subImager); ok {
		return si.SubImage(r)
	}

	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}

// EncodePNG renders an image to PNG bytes for storage and serving.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
