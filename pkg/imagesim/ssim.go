package imagesim

import (
	"fmt"
	"image"
)

// Stabilizing constants from Wang et al., with L=255 for 8-bit grayscale.
const (
	ssimC1 = (0.01 * 255) * (0.01 * 255)
	ssimC2 = (0.03 * 255) * (0.03 * 255)
)

// SSIM computes the global structural similarity index between two images
// of identical dimensions. The score is in [-1, 1]; identical images score
// 1, higher means more similar.
func SSIM(a, b *image.Gray) (float64, error) {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return 0, fmt.Errorf("dimension mismatch: %dx%d vs %dx%d", ab.Dx(), ab.Dy(), bb.Dx(), bb.Dy())
	}

	width, height := ab.Dx(), ab.Dy()
	n := float64(width * height)

	var sumA, sumB float64
	for y := 0; y < height; y++ {
		arow := a.Pix[y*a.Stride : y*a.Stride+width]
		brow := b.Pix[y*b.Stride : y*b.Stride+width]
		for x := 0; x < width; x++ {
			sumA += float64(arow[x])
			sumB += float64(brow[x])
		}
	}
	meanA := sumA / n
	meanB := sumB / n

	var varA, varB, cov float64
	for y := 0; y < height; y++ {
		arow := a.Pix[y*a.Stride : y*a.Stride+width]
		brow := b.Pix[y*b.Stride : y*b.Stride+width]
		for x := 0; x < width; x++ {
			da := float64(arow[x]) - meanA
			db := float64(brow[x]) - meanB
			varA += da * da
			varB += db * db
			cov += da * db
		}
	}
	varA /= n
	varB /= n
	cov /= n

	num := (2*meanA*meanB + ssimC1) * (2*cov + ssimC2)
	den := (meanA*meanA + meanB*meanB + ssimC1) * (varA + varB + ssimC2)
	return num / den, nil
}
