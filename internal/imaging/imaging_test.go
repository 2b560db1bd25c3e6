package imaging_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/hayasaka/p-tavern/internal/imaging"
)

func TestPixelsFullExtentIsIdentity(t *testing.T) {
	box := imaging.Box{X: 0, Y: 0, Width: 1000, Height: 1000}

	got := box.Pixels(640, 480)
	want := image.Rect(0, 0, 640, 480)
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPixelsTruncates(t *testing.T) {
	// 333/1000 of 100 px is 33.3 px; truncation keeps the integer part.
	box := imaging.Box{X: 333, Y: 0, Width: 333, Height: 1000}

	got := box.Pixels(100, 50)
	if got.Min.X != 33 {
		t.Fatalf("left edge = %d, want 33", got.Min.X)
	}
	if got.Max.X != 66 {
		t.Fatalf("right edge = %d, want 66", got.Max.X)
	}
}

func TestPixelsClampsRightBottom(t *testing.T) {
	// Converted right/bottom edges would land past the image bounds.
	box := imaging.Box{X: 500, Y: 500, Width: 900, Height: 900}

	got := box.Pixels(200, 100)
	if got.Max.X != 200 {
		t.Fatalf("right edge = %d, want clamp to 200", got.Max.X)
	}
	if got.Max.Y != 100 {
		t.Fatalf("bottom edge = %d, want clamp to 100", got.Max.Y)
	}
}

func TestPixelsClampsNegativeOrigin(t *testing.T) {
	box := imaging.Box{X: -100, Y: -100, Width: 500, Height: 500}

	got := box.Pixels(100, 100)
	if got.Min.X != 0 || got.Min.Y != 0 {
		t.Fatalf("origin = %v, want (0,0)", got.Min)
	}
}

func TestValid(t *testing.T) {
	if imaging.Valid(image.Rect(0, 0, 0, 10)) {
		t.Fatal("zero-width rect must be invalid")
	}
	if !imaging.Valid(image.Rect(0, 0, 1, 1)) {
		t.Fatal("1x1 rect must be valid")
	}
}

func TestCrop(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	src.Set(5, 5, color.RGBA{R: 255, A: 255})

	out := imaging.Crop(src, image.Rect(4, 4, 8, 8))
	if out.Bounds().Dx() != 4 || out.Bounds().Dy() != 4 {
		t.Fatalf("unexpected crop size: %v", out.Bounds())
	}

	r, _, _, _ := out.At(5, 5).RGBA()
	if r == 0 {
		t.Fatal("marked pixel missing from crop")
	}
}

func TestCropNonSubImager(t *testing.T) {
	src := image.NewUniform(color.RGBA{G: 255, A: 255})
	out := imaging.Crop(wrapBounded{src, image.Rect(0, 0, 6, 6)}, image.Rect(1, 1, 4, 4))

	if out.Bounds().Dx() != 3 || out.Bounds().Dy() != 3 {
		t.Fatalf("unexpected crop size: %v", out.Bounds())
	}
	_, g, _, _ := out.At(0, 0).RGBA()
	if g == 0 {
		t.Fatal("expected source color in copied crop")
	}
}

func TestEncodePNGRoundTrips(t *testing.T) {
	data, err := imaging.EncodePNG(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	if err != nil {
		t.Fatalf("EncodePNG err: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty png output")
	}
}

// wrapBounded gives an image.Uniform finite bounds without a SubImage
// method, forcing the draw fallback.
type wrapBounded struct {
	image.Image
	bounds image.Rectangle
}

func (w wrapBounded) Bounds() image.Rectangle { return w.bounds }
