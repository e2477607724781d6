package solver

import (
	"image"
	"image/color"
	"math"
)

const (
	// HistogramBins is the number of grey-level buckets over [0,256).
	HistogramBins = 32
	// FeatureLen is the histogram plus the edge ratio.
	FeatureLen = HistogramBins + 1
)

// Features is the fixed-length descriptor of one preprocessed image: the
// L2-normalised grey-level histogram followed by the edge ratio.
type Features [FeatureLen]float64

// Histogram returns the normalised histogram part of f.
func (f Features) Histogram() []float64 {
	return f[:HistogramBins]
}

// EdgeRatio returns the fraction of pixels marked as edges.
func (f Features) EdgeRatio() float64 {
	return f[HistogramBins]
}

// ExtractFeatures computes the descriptor of a 64x64 image.
func ExtractFeatures(img image.Image) (Features, error) {
	var f Features
	if img == nil || img.Bounds().Empty() {
		return f, ErrEmptyImage
	}
	if b := img.Bounds(); b.Dx() != ImageSize || b.Dy() != ImageSize {
		return f, ErrUnexpectedSize
	}

	gray := Grayscale(img)

	hist := histogram(gray)
	copy(f[:HistogramBins], hist[:])
	f[HistogramBins] = EdgeRatio(Canny(gray, CannyLowThreshold, CannyHighThreshold))

	return f, nil
}

// Grayscale converts img to 8-bit luma using BT.601 fixed-point weights,
// dropping alpha. *image.Gray input is returned as is.
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}

	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			gray.Pix[y*gray.Stride+x] = luma(c.R, c.G, c.B)
		}
	}
	return gray
}

func luma(r, g, b uint8) uint8 {
	return uint8((4899*uint32(r) + 9617*uint32(g) + 1868*uint32(b) + 8192) >> 14)
}

func histogram(gray *image.Gray) [HistogramBins]float64 {
	var hist [HistogramBins]float64
	const binWidth = 256 / HistogramBins

	b := gray.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for _, v := range row {
			hist[int(v)/binWidth]++
		}
	}

	var sum float64
	for _, v := range hist {
		sum += v * v
	}
	if sum == 0 {
		return hist
	}
	norm := math.Sqrt(sum)
	for i := range hist {
		hist[i] /= norm
	}
	return hist
}
