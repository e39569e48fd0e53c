package store

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is the persisted metadata record for one admitted image. A post is
// written exactly once; the only later mutation is appending repost
// evidence while it is an original.
type Post struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty"`
	ArticleID     string              `bson:"ArticleId"`
	OrderNum      int64               `bson:"OrderNum,omitempty"`
	RunID         primitive.ObjectID  `bson:"RunId"`
	ProcessedTime time.Time           `bson:"ProcessedTime"`
	Dim           Dim                 `bson:"Dim"`
	MediaID       primitive.ObjectID  `bson:"MediaId"`
	IsOriginal    bool                `bson:"IsOriginal"`
	RepostOf      *primitive.ObjectID `bson:"RepostOf"`
	Reposts       []RepostEvidence    `bson:"Reposts"`
}

// Dim holds the decoded image dimensions
type Dim struct {
	Height int `bson:"Height"`
	Width  int `bson:"Width"`
}

// RepostEvidence records the similarity scores that established a repost link
type RepostEvidence struct {
	ArticleID    string  `bson:"ArticleId"`
	MSE          float64 `bson:"mse"`
	SSIM         float64 `bson:"ssim"`
	HashDistance int     `bson:"hashDistance"`
	Certainty    int     `bson:"certainty"`
}

// Run is the bookkeeping record for one analyzer execution. EndTime stays
// nil until the run reaches a success termination; an aborted run leaves
// the record open-ended.
type Run struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	StartTime        time.Time          `bson:"StartProcessTime"`
	EndTime          *time.Time         `bson:"EndProcessTime"`
	PostsProcessed   int                `bson:"PostsProcessed"`
	BatchesProcessed int                `bson:"BatchesProcessed"`
}
