package ocr

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

const (
	maxSkewDegrees  = 5.0
	skewStepDegrees = 0.25
	deskewWidth     = 600
	inkThreshold    = 128
)

// Prepare converts a rendered page into the form Tesseract reads best:
// grayscale, deskewed, contrast-stretched and sharpened.
func Prepare(img image.Image) image.Image {
	gray := imaging.Grayscale(img)
	gray = deskew(gray)
	gray = stretchContrast(gray, 0.001)
	return imaging.Sharpen(gray, 1.0)
}

func deskew(img *image.NRGBA) *image.NRGBA {
	angle := skewAngle(img)
	if math.Abs(angle) <= skewStepDegrees {
		return img
	}
	// skewAngle reports the skew present in the page; rotating the other
	// way straightens it.
	return imaging.Rotate(img, -angle, color.White)
}

// skewAngle estimates the skew present in the image: the counter-clockwise
// rotation, in degrees, that would produce it from straight horizontal rows.
// It shears a downsampled binarized copy through candidate angles and scores
// each by the squared row histogram, which peaks when text baselines line up.
// Score ties go to the smallest angle so straight pages read as zero.
func skewAngle(img image.Image) float64 {
	small := img
	if img.Bounds().Dx() > deskewWidth {
		small = imaging.Resize(img, deskewWidth, 0, imaging.Linear)
	}

	b := small.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	type point struct{ x, y int }
	var ink []point
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := color.GrayModel.Convert(small.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if g.Y < inkThreshold {
				ink = append(ink, point{x, y})
			}
		}
	}
	if len(ink) == 0 {
		return 0
	}

	maxShift := int(float64(w)*math.Tan(maxSkewDegrees*math.Pi/180)) + 1

	bestAngle, bestScore := 0.0, -1.0
	for a := -maxSkewDegrees; a <= maxSkewDegrees+1e-9; a += skewStepDegrees {
		tan := math.Tan(a * math.Pi / 180)
		rows := make([]int, h+2*maxShift)
		for _, p := range ink {
			r := p.y + int(float64(p.x)*tan) + maxShift
			if r >= 0 && r < len(rows) {
				rows[r]++
			}
		}

		score := 0.0
		for _, n := range rows {
			score += float64(n) * float64(n)
		}
		if score > bestScore || (score == bestScore && math.Abs(a) < math.Abs(bestAngle)) {
			bestScore, bestAngle = score, a
		}
	}

	return bestAngle
}

// stretchContrast linearly remaps intensities so that the given fraction of
// pixels clips at each end of the range. The input must be grayscale
// (R == G == B per pixel), which Prepare guarantees.
func stretchContrast(img *image.NRGBA, clip float64) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	total := w * h
	if total == 0 {
		return img
	}

	var hist [256]int
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			hist[row[x*4]]++
		}
	}

	clipCount := int(float64(total) * clip)
	lo, hi := 0, 255
	for n := 0; lo < 255; lo++ {
		n += hist[lo]
		if n > clipCount {
			break
		}
	}
	for n := 0; hi > 0; hi-- {
		n += hist[hi]
		if n > clipCount {
			break
		}
	}
	if hi <= lo {
		return img
	}

	scale := 255.0 / float64(hi-lo)
	var lut [256]uint8
	for i := range lut {
		v := (float64(i) - float64(lo)) * scale
		switch {
		case v < 0:
			lut[i] = 0
		case v > 255:
			lut[i] = 255
		default:
			lut[i] = uint8(v + 0.5)
		}
	}

	out := imaging.Clone(img)
	for y := 0; y < h; y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+w*4]
		for x := 0; x < w; x++ {
			g := lut[row[x*4]]
			row[x*4], row[x*4+1], row[x*4+2] = g, g, g
		}
	}
	return out
}
