package analyzer

import (
	"context"
	"encoding/base64"
	"image"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mediadedup/pkg/config"
	"mediadedup/pkg/errors"
	"mediadedup/pkg/imagesim"
	"mediadedup/pkg/logger"
	"mediadedup/pkg/scraperapi"
	"mediadedup/pkg/store"
)

// Termination is the state an analysis run ended in. All three are
// success terminations; anything else surfaces as an error.
type Termination string

const (
	// TerminationExhausted means the upstream returned an empty page
	TerminationExhausted Termination = "exhausted"

	// TerminationBoundaryReached means resume mode re-encountered the
	// last previously processed article
	TerminationBoundaryReached Termination = "boundary_reached"

	// TerminationShortPage means the upstream returned fewer documents
	// than requested and the final page has been processed
	TerminationShortPage Termination = "short_page"
)

// Summary is the result of a completed run
type Summary struct {
	RunID            primitive.ObjectID
	Termination      Termination
	PostsProcessed   int
	BatchesProcessed int
}

// Client is the upstream paginated data source consumed by the analyzer
type Client interface {
	Query(limit, offset int) (*scraperapi.QueryResponse, error)
	Probe() error
}

// Analyzer walks the upstream scraper output once per execution, admitting
// every new post into storage either in bulk (first run against an empty
// store) or through the duplicate detection engine.
type Analyzer struct {
	client   Client
	store    store.Store
	detector *Detector
	cfg      *config.Config
	logger   logger.Logger
}

// New connects the analyzer to the upstream scraper and the storage gateway
func New(ctx context.Context, cfg *config.Config) (*Analyzer, error) {
	log := logger.GetLogger()

	st, err := store.NewMongo(ctx, &cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	client := scraperapi.NewClient(cfg.Scraper.BaseURL, cfg.Scraper.RequestTimeout, log)

	return &Analyzer{
		client:   client,
		store:    st,
		detector: NewDetector(st, cfg.Detection, log),
		cfg:      cfg,
		logger:   log,
	}, nil
}

// Store exposes the storage gateway, mainly so the caller can close it
func (a *Analyzer) Store() store.Store {
	return a.store
}

// Run executes one synchronization pass and returns its summary. A nil
// error means the run reached one of the three termination states and the
// run record was finalized; on error the run record stays open-ended.
func (a *Analyzer) Run(ctx context.Context) (*Summary, error) {
	// Pre-run validation of the upstream interface and the store
	if err := a.client.Probe(); err != nil {
		return nil, err
	}
	if err := a.store.Ping(ctx); err != nil {
		return nil, err
	}

	last, err := a.store.FirstPostByOrderNum(ctx)
	if err != nil {
		return nil, err
	}
	saveAll := last == nil

	run := &store.Run{StartTime: time.Now().UTC()}
	runID, err := a.store.InsertRun(ctx, run)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"run_id":     runID.Hex(),
		"batch_size": a.cfg.Scraper.BatchSize,
		"save_all":   saveAll,
	}
	if last != nil {
		fields["last_article"] = last.ArticleID
	}
	a.logger.InfoWithFields("analysis run started", fields)

	batchSize := a.cfg.Scraper.BatchSize
	offset := 0
	finalBatch := false
	boundaryFound := false
	shortPage := false

	for {
		page, err := a.client.Query(batchSize, offset)
		if err != nil {
			return nil, err
		}

		if len(page.Documents) == 0 {
			a.logger.InfoWithFields("no more documents upstream", map[string]interface{}{
				"run_id": runID.Hex(),
				"offset": offset,
			})
			break
		}

		if len(page.Documents) < batchSize {
			shortPage = true
			finalBatch = true
		}

		run.BatchesProcessed++

		if pageIsEmpty(page) {
			a.logger.DebugWithFields("no posts in batch, advancing", map[string]interface{}{
				"run_id": runID.Hex(),
				"offset": offset,
			})
			if finalBatch {
				break
			}
			offset += batchSize
			continue
		}

		if saveAll {
			if err := a.admitPage(ctx, runID, page, run); err != nil {
				return nil, err
			}
		} else {
			done, err := a.resumePage(ctx, runID, page, run, last, &boundaryFound)
			if err != nil {
				return nil, err
			}
			if done {
				finalBatch = true
			}
		}

		if finalBatch {
			break
		}
		offset += batchSize
	}

	termination := TerminationExhausted
	if boundaryFound {
		termination = TerminationBoundaryReached
	} else if shortPage {
		termination = TerminationShortPage
	}

	now := time.Now().UTC()
	run.EndTime = &now
	if err := a.store.FinalizeRun(ctx, run); err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:            runID,
		Termination:      termination,
		PostsProcessed:   run.PostsProcessed,
		BatchesProcessed: run.BatchesProcessed,
	}

	a.logger.InfoWithFields("analysis run finished", map[string]interface{}{
		"run_id":            runID.Hex(),
		"termination":       string(termination),
		"posts_processed":   summary.PostsProcessed,
		"batches_processed": summary.BatchesProcessed,
	})

	return summary, nil
}

// admitPage bulk-admits every post on the page as an original (save-all mode)
func (a *Analyzer) admitPage(ctx context.Context, runID primitive.ObjectID, page *scraperapi.QueryResponse, run *store.Run) error {
	for _, doc := range page.Documents {
		for _, post := range doc.Posts {
			if err := a.admitOriginal(ctx, runID, post); err != nil {
				return err
			}
			run.PostsProcessed++
		}
	}
	return nil
}

// resumePage routes posts upstream of the boundary through detection and
// reports whether the page ends the run. Once the last-seen article is
// matched, everything after it is already-processed data.
func (a *Analyzer) resumePage(ctx context.Context, runID primitive.ObjectID, page *scraperapi.QueryResponse, run *store.Run, last *store.Post, boundaryFound *bool) (bool, error) {
	for _, doc := range page.Documents {
		if len(doc.Posts) == 0 {
			continue
		}
		if doc.StartPostID == last.ArticleID || *boundaryFound {
			a.logger.DebugWithFields("stale document reached", map[string]interface{}{
				"run_id":       runID.Hex(),
				"last_article": last.ArticleID,
			})
			*boundaryFound = true
			return true, nil
		}

		for _, post := range doc.Posts {
			if post.ArticleID == last.ArticleID {
				a.logger.InfoWithFields("boundary article found", map[string]interface{}{
					"run_id":       runID.Hex(),
					"last_article": last.ArticleID,
				})
				*boundaryFound = true
				return true, nil
			}

			if err := a.detectAndAdmit(ctx, runID, post); err != nil {
				return false, err
			}
			run.PostsProcessed++
		}
	}
	return false, nil
}

// decodePost unpacks a scraped post into raw bytes and a grayscale image
func decodePost(post scraperapi.Post) ([]byte, *image.Gray, error) {
	data, err := base64.StdEncoding.DecodeString(post.MediaData)
	if err != nil {
		return nil, nil, errors.Malformed(err, "media payload for %s is not valid base64", post.ArticleID)
	}
	img, err := imagesim.DecodeGray(data)
	if err != nil {
		return nil, nil, errors.Malformed(err, "media payload for %s is not a decodable image", post.ArticleID)
	}
	return data, img, nil
}

// admitOriginal is the bulk admission path: store the blob, allocate the
// next OrderNum and insert the record as an original without comparison.
func (a *Analyzer) admitOriginal(ctx context.Context, runID primitive.ObjectID, post scraperapi.Post) error {
	data, img, err := decodePost(post)
	if err != nil {
		return err
	}

	mediaID, err := a.store.PutMedia(ctx, post.ArticleID, data)
	if err != nil {
		return err
	}

	orderNum, err := a.store.NextOrderNum(ctx)
	if err != nil {
		return err
	}

	return a.store.InsertPost(ctx, &store.Post{
		ArticleID:     post.ArticleID,
		OrderNum:      orderNum,
		RunID:         runID,
		ProcessedTime: time.Now().UTC(),
		Dim:           store.Dim{Height: img.Bounds().Dy(), Width: img.Bounds().Dx()},
		MediaID:       mediaID,
		IsOriginal:    true,
		Reposts:       []store.RepostEvidence{},
	})
}

// detectAndAdmit stores the blob and runs the candidate through the
// duplicate detection engine.
func (a *Analyzer) detectAndAdmit(ctx context.Context, runID primitive.ObjectID, post scraperapi.Post) error {
	data, img, err := decodePost(post)
	if err != nil {
		return err
	}

	mediaID, err := a.store.PutMedia(ctx, post.ArticleID, data)
	if err != nil {
		return err
	}

	draft := &store.Post{
		ArticleID:     post.ArticleID,
		RunID:         runID,
		ProcessedTime: time.Now().UTC(),
		Dim:           store.Dim{Height: img.Bounds().Dy(), Width: img.Bounds().Dx()},
		MediaID:       mediaID,
		IsOriginal:    true,
		Reposts:       []store.RepostEvidence{},
	}

	return a.detector.Classify(ctx, img, draft)
}

func pageIsEmpty(page *scraperapi.QueryResponse) bool {
	for _, doc := range page.Documents {
		if len(doc.Posts) > 0 {
			return false
		}
	}
	return true
}
