// Package solver ranks candidate images by visual similarity to a target
// using a grey-level histogram and an edge density score.
package solver

import (
	"errors"
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

// ImageSize is the edge length every image is resampled to before feature
// extraction.
const ImageSize = 64

var (
	// ErrEmptyImage is returned for nil images or images with no pixels.
	ErrEmptyImage = errors.New("solver: empty image")
	// ErrUnexpectedSize is returned when features are requested for an image
	// that was not preprocessed.
	ErrUnexpectedSize = errors.New("solver: image must be 64x64")
)

// Preprocess resamples img to ImageSize x ImageSize. Grayscale images stay
// grayscale.
func Preprocess(img image.Image) (image.Image, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	// nfnt/resize only keeps *image.Gray and *image.Gray16 single channel.
	switch img.(type) {
	case *image.Gray, *image.Gray16:
	default:
		if isGrayModel(img.ColorModel()) {
			img = toGray(img)
		}
	}

	return resize.Resize(ImageSize, ImageSize, img, resize.Bilinear), nil
}

// Channels reports how many colour channels img carries once alpha is
// dropped: 1 for grayscale, 3 otherwise.
func Channels(img image.Image) int {
	if isGrayModel(img.ColorModel()) {
		return 1
	}
	return 3
}

func isGrayModel(m color.Model) bool {
	return m == color.GrayModel || m == color.Gray16Model
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray
}
