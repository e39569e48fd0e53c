package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the storage gateway: content-addressable media blobs plus the
// Posts/Runs metadata records and the OrderNum sequence.
type Store interface {
	// Ping verifies the store is reachable
	Ping(ctx context.Context) error

	// FirstPostByOrderNum returns the post with the lowest OrderNum, i.e.
	// the first record ever admitted, or nil when the store is empty.
	FirstPostByOrderNum(ctx context.Context) (*Post, error)

	// AllPosts returns the full corpus in insertion order
	AllPosts(ctx context.Context) ([]*Post, error)

	// InsertPost persists a new post record and fills in its ID
	InsertPost(ctx context.Context, post *Post) error

	// ReplacePost replaces an existing record by identity
	ReplacePost(ctx context.Context, post *Post) error

	// NextOrderNum allocates the next value of the monotonic sequence.
	// The read-increment is atomic at the gateway boundary; the first
	// allocated value is 1.
	NextOrderNum(ctx context.Context) (int64, error)

	// PutMedia stores raw media bytes and returns the blob reference
	PutMedia(ctx context.Context, name string, data []byte) (primitive.ObjectID, error)

	// GetMedia reads media bytes back by reference
	GetMedia(ctx context.Context, id primitive.ObjectID) ([]byte, error)

	// InsertRun creates an open-ended run record
	InsertRun(ctx context.Context, run *Run) (primitive.ObjectID, error)

	// FinalizeRun sets the run's end time and counters
	FinalizeRun(ctx context.Context, run *Run) error

	// Close releases the underlying connection
	Close(ctx context.Context) error
}
