package analyzer

import (
	"context"
	"image"

	"mediadedup/pkg/config"
	"mediadedup/pkg/errors"
	"mediadedup/pkg/imagesim"
	"mediadedup/pkg/logger"
	"mediadedup/pkg/store"
)

// Detector classifies a candidate image against the corpus of stored
// posts. Every stored post is a comparison target, but a repost link is
// only ever established against a target that is itself still original.
type Detector struct {
	store   store.Store
	metrics Metrics
	cfg     config.DetectionConfig
	logger  logger.Logger
}

// NewDetector creates a detector backed by the imagesim primitives
func NewDetector(st store.Store, cfg config.DetectionConfig, log logger.Logger) *Detector {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Detector{
		store:   st,
		metrics: imagesimMetrics{},
		cfg:     cfg,
		logger:  log,
	}
}

// Classify scans the corpus in insertion order and persists the draft as
// either a new original or a repost of the first satisfying match. On a
// repost the matched original gains one evidence entry.
func (d *Detector) Classify(ctx context.Context, candidate *image.Gray, draft *store.Post) error {
	corpus, err := d.store.AllPosts(ctx)
	if err != nil {
		return err
	}

	for _, target := range corpus {
		evidence, matched, err := d.compare(ctx, candidate, draft, target)
		if err != nil {
			return err
		}
		if !matched {
			continue
		}

		target.Reposts = append(target.Reposts, *evidence)
		if err := d.store.ReplacePost(ctx, target); err != nil {
			return err
		}

		draft.IsOriginal = false
		draft.RepostOf = &target.ID
		draft.Reposts = nil

		d.logger.InfoWithFields("repost detected", map[string]interface{}{
			"article_id":    draft.ArticleID,
			"original":      target.ArticleID,
			"mse":           evidence.MSE,
			"ssim":          evidence.SSIM,
			"hash_distance": evidence.HashDistance,
		})

		// first satisfying match wins
		break
	}

	if draft.IsOriginal {
		d.logger.DebugWithFields("admitted as original", map[string]interface{}{
			"article_id": draft.ArticleID,
			"corpus":     len(corpus),
		})
	}

	return d.store.InsertPost(ctx, draft)
}

// compare runs one candidate/target pair through the three-stage funnel:
// cheap hash distance first, structural similarity second, and the
// strictest pixel-level check last to reject same-template posts that
// only differ in caption text.
func (d *Detector) compare(ctx context.Context, candidate *image.Gray, draft *store.Post, target *store.Post) (*store.RepostEvidence, bool, error) {
	data, err := d.store.GetMedia(ctx, target.MediaID)
	if err != nil {
		return nil, false, err
	}
	stored, err := imagesim.DecodeGray(data)
	if err != nil {
		return nil, false, errors.Malformed(err, "stored media for %s is not decodable", target.ArticleID)
	}

	a, b, ok := d.metrics.ScalePair(candidate, stored, d.cfg.AspectRatioTolerance)
	if !ok {
		// dimensions too dissimilar to be the same content
		return nil, false, nil
	}

	dist, err := d.metrics.HashDistance(a, b, d.cfg.HashCutoff)
	if err != nil {
		return nil, false, errors.Malformed(err, "hash comparison failed for %s", draft.ArticleID)
	}
	if dist != 0 {
		return nil, false, nil
	}

	ssim, err := d.metrics.SSIM(a, b)
	if err != nil {
		return nil, false, errors.Malformed(err, "ssim comparison failed for %s", draft.ArticleID)
	}
	if ssim < d.cfg.SSIMThreshold {
		// hash collision was coincidental
		return nil, false, nil
	}

	mse, err := d.metrics.MSE(a, b)
	if err != nil {
		return nil, false, errors.Malformed(err, "mse comparison failed for %s", draft.ArticleID)
	}
	if mse >= d.cfg.MSECeiling {
		// same template, materially different pixel content
		return nil, false, nil
	}

	if !target.IsOriginal {
		// scan all, link only to originals
		return nil, false, nil
	}

	return &store.RepostEvidence{
		ArticleID:    draft.ArticleID,
		MSE:          mse,
		SSIM:         ssim,
		HashDistance: dist,
		Certainty:    1,
	}, true, nil
}
