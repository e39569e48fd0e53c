package imagesim

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	// register decoders for the media formats the scraper delivers
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
	xdraw "golang.org/x/image/draw"
)

// DecodeGray strictly decodes raw image bytes into a grayscale image with
// bounds normalized to the origin.
func DecodeGray(data []byte) (*image.Gray, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray, nil
}

// ScalePair normalizes two images to identical dimensions. Images that
// already match pass through untouched. When the aspect ratios differ by
// at least tolerance the pair is not comparable and ok is false. Otherwise
// the image with the larger pixel count is downscaled to the other's
// dimensions with a smooth interpolation filter.
func ScalePair(a, b *image.Gray, tolerance float64) (*image.Gray, *image.Gray, bool) {
	aw, ah := a.Bounds().Dx(), a.Bounds().Dy()
	bw, bh := b.Bounds().Dx(), b.Bounds().Dy()

	if aw == bw && ah == bh {
		return a, b, true
	}
	if ah == 0 || bh == 0 {
		return nil, nil, false
	}

	ra := float64(aw) / float64(ah)
	rb := float64(bw) / float64(bh)
	if diff := ra - rb; diff >= tolerance || -diff >= tolerance {
		return nil, nil, false
	}

	if aw*ah > bw*bh {
		return resize(a, bw, bh), b, true
	}
	return a, resize(b, aw, ah), true
}

func resize(src *image.Gray, width, height int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// HashDistance computes the perceptual hash distance between two images,
// reduced by cutoff and clamped at zero. A result of 0 marks a hash-level
// candidate match.
func HashDistance(a, b image.Image, cutoff int) (int, error) {
	ha, err := goimagehash.AverageHash(a)
	if err != nil {
		return 0, fmt.Errorf("failed to hash image: %w", err)
	}
	hb, err := goimagehash.AverageHash(b)
	if err != nil {
		return 0, fmt.Errorf("failed to hash image: %w", err)
	}

	dist, err := ha.Distance(hb)
	if err != nil {
		return 0, fmt.Errorf("failed to compare hashes: %w", err)
	}

	dist -= cutoff
	if dist < 0 {
		dist = 0
	}
	return dist, nil
}

// MSE computes the pixel-wise mean squared error between two images of
// identical dimensions. Lower means more similar; identical images score 0.
func MSE(a, b *image.Gray) (float64, error) {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return 0, fmt.Errorf("dimension mismatch: %dx%d vs %dx%d", ab.Dx(), ab.Dy(), bb.Dx(), bb.Dy())
	}

	width, height := ab.Dx(), ab.Dy()
	var sum float64
	for y := 0; y < height; y++ {
		arow := a.Pix[y*a.Stride : y*a.Stride+width]
		brow := b.Pix[y*b.Stride : y*b.Stride+width]
		for x := 0; x < width; x++ {
			d := float64(arow[x]) - float64(brow[x])
			sum += d * d
		}
	}

	return sum / float64(width*height), nil
}
