package analyzer

import (
	"image"

	"mediadedup/pkg/imagesim"
)

// Metrics is the similarity-scoring contract the detector funnels a
// candidate pair through. The production implementation is backed by
// pkg/imagesim; tests substitute their own to exercise the funnel stages.
type Metrics interface {
	// ScalePair normalizes a pair to equal dimensions, or reports the
	// pair not comparable
	ScalePair(a, b *image.Gray, tolerance float64) (*image.Gray, *image.Gray, bool)

	// HashDistance is the clamped perceptual hash distance; 0 means
	// hash-level candidate match
	HashDistance(a, b *image.Gray, cutoff int) (int, error)

	// SSIM scores structural similarity in [-1, 1], higher is more similar
	SSIM(a, b *image.Gray) (float64, error)

	// MSE is the pixel-wise mean squared error, lower is more similar
	MSE(a, b *image.Gray) (float64, error)
}

type imagesimMetrics struct{}

func (imagesimMetrics) ScalePair(a, b *image.Gray, tolerance float64) (*image.Gray, *image.Gray, bool) {
	return imagesim.ScalePair(a, b, tolerance)
}

func (imagesimMetrics) HashDistance(a, b *image.Gray, cutoff int) (int, error) {
	return imagesim.HashDistance(a, b, cutoff)
}

func (imagesimMetrics) SSIM(a, b *image.Gray) (float64, error) {
	return imagesim.SSIM(a, b)
}

func (imagesimMetrics) MSE(a, b *image.Gray) (float64, error) {
	return imagesim.MSE(a, b)
}
