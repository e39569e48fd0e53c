package analyzer

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"mediadedup/pkg/config"
	"mediadedup/pkg/logger"
	"mediadedup/pkg/scraperapi"
	"mediadedup/pkg/store"
)

// blocksGray builds a checkerboard of block x block tiles alternating lo and
// hi, textured enough for the similarity metrics to have something to grip.
func blocksGray(w, h, block int, lo, hi uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := lo
			if (x/block+y/block)%2 == 1 {
				v = hi
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

// shiftGray returns a copy with every pixel raised by delta
func shiftGray(src *image.Gray, delta uint8) *image.Gray {
	dst := image.NewGray(src.Bounds())
	for i, v := range src.Pix {
		dst.Pix[i] = v + delta
	}
	return dst
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeBase64PNG(t *testing.T, img image.Image) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(encodePNG(t, img))
}

// seedOriginal stores an image blob and its post record the way a save-all
// run would, returning the inserted post with its assigned id.
func seedOriginal(t *testing.T, m *store.Mock, articleID string, img *image.Gray, orderNum int64) *store.Post {
	t.Helper()
	ctx := context.Background()

	mediaID, err := m.PutMedia(ctx, articleID, encodePNG(t, img))
	require.NoError(t, err)

	post := &store.Post{
		ArticleID:  articleID,
		OrderNum:   orderNum,
		Dim:        store.Dim{Height: img.Bounds().Dy(), Width: img.Bounds().Dx()},
		MediaID:    mediaID,
		IsOriginal: true,
		Reposts:    []store.RepostEvidence{},
	}
	require.NoError(t, m.InsertPost(ctx, post))
	return post
}

func findPost(t *testing.T, posts []*store.Post, articleID string) *store.Post {
	t.Helper()
	for _, p := range posts {
		if p.ArticleID == articleID {
			return p
		}
	}
	t.Fatalf("post %s not found", articleID)
	return nil
}

// fakeClient serves canned pages keyed by offset; unknown offsets are empty
type fakeClient struct {
	pages    map[int]*scraperapi.QueryResponse
	probeErr error
	queryErr error
	offsets  []int
}

func (f *fakeClient) Query(limit, offset int) (*scraperapi.QueryResponse, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.offsets = append(f.offsets, offset)
	if page, ok := f.pages[offset]; ok {
		return page, nil
	}
	return &scraperapi.QueryResponse{}, nil
}

func (f *fakeClient) Probe() error {
	return f.probeErr
}

// fakeMetrics drives the detection funnel with fixed scores and records
// which stages were reached
type fakeMetrics struct {
	scaleOK bool
	dist    int
	ssim    float64
	mse     float64

	hashCalls int
	ssimCalls int
	mseCalls  int
}

func (f *fakeMetrics) ScalePair(a, b *image.Gray, tolerance float64) (*image.Gray, *image.Gray, bool) {
	return a, b, f.scaleOK
}

func (f *fakeMetrics) HashDistance(a, b *image.Gray, cutoff int) (int, error) {
	f.hashCalls++
	return f.dist, nil
}

func (f *fakeMetrics) SSIM(a, b *image.Gray) (float64, error) {
	f.ssimCalls++
	return f.ssim, nil
}

func (f *fakeMetrics) MSE(a, b *image.Gray) (float64, error) {
	f.mseCalls++
	return f.mse, nil
}

func newTestAnalyzer(client Client, st store.Store, batchSize int) *Analyzer {
	cfg := config.DefaultConfig()
	cfg.Scraper.BatchSize = batchSize
	log := logger.NewTestLogger()

	return &Analyzer{
		client:   client,
		store:    st,
		detector: NewDetector(st, cfg.Detection, log),
		cfg:      cfg,
		logger:   log,
	}
}
