package solver

import (
	"image"
	"math"
)

// Hysteresis thresholds applied to the L1 gradient magnitude.
const (
	CannyLowThreshold  = 50
	CannyHighThreshold = 150
)

var (
	tan22 = math.Tan(math.Pi / 8)
	tan67 = math.Tan(3 * math.Pi / 8)
)

// Canny runs a Canny edge detector over gray and returns a mask where edge
// pixels are 255 and everything else is 0. Gradients come from 3x3 Sobel
// kernels with replicated borders; low and high are swapped if given in the
// wrong order.
func Canny(gray *image.Gray, low, high float64) *image.Gray {
	if low > high {
		low, high = high, low
	}

	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	edges := image.NewGray(b)
	if w == 0 || h == 0 {
		return edges
	}

	px := func(x, y int) float64 {
		x = clamp(x, 0, w-1)
		y = clamp(y, 0, h-1)
		return float64(gray.Pix[y*gray.Stride+x])
	}

	gx := make([]float64, w*h)
	gy := make([]float64, w*h)
	mag := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := (px(x+1, y-1) + 2*px(x+1, y) + px(x+1, y+1)) -
				(px(x-1, y-1) + 2*px(x-1, y) + px(x-1, y+1))
			dy := (px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1)) -
				(px(x-1, y-1) + 2*px(x, y-1) + px(x+1, y-1))
			i := y*w + x
			gx[i], gy[i] = dx, dy
			mag[i] = math.Abs(dx) + math.Abs(dy)
		}
	}

	at := func(x, y int) float64 {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	const (
		none = iota
		weak
		strong
	)
	state := make([]uint8, w*h)
	stack := make([]int, 0, w*h/8)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			m := mag[i]
			if m <= low {
				continue
			}

			ax, ay := math.Abs(gx[i]), math.Abs(gy[i])
			var peak bool
			switch {
			case ay < ax*tan22:
				peak = m > at(x-1, y) && m >= at(x+1, y)
			case ay > ax*tan67:
				peak = m > at(x, y-1) && m >= at(x, y+1)
			case (gx[i] < 0) != (gy[i] < 0):
				peak = m > at(x+1, y-1) && m > at(x-1, y+1)
			default:
				peak = m > at(x-1, y-1) && m > at(x+1, y+1)
			}
			if !peak {
				continue
			}

			if m > high {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		edges.Pix[(i/w)*edges.Stride+i%w] = 255

		x, y := i%w, i/w
		for ny := y - 1; ny <= y+1; ny++ {
			for nx := x - 1; nx <= x+1; nx++ {
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] == weak {
					state[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}

	return edges
}

// EdgeRatio returns the fraction of non-zero pixels in an edge mask.
func EdgeRatio(edges *image.Gray) float64 {
	b := edges.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}

	count := 0
	for y := 0; y < b.Dy(); y++ {
		row := edges.Pix[y*edges.Stride : y*edges.Stride+b.Dx()]
		for _, v := range row {
			if v > 0 {
				count++
			}
		}
	}
	return float64(count) / float64(total)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
