package store

import (
	"bytes"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"mediadedup/pkg/config"
	"mediadedup/pkg/errors"
	"mediadedup/pkg/logger"
)

const (
	postsCollection   = "Posts"
	runsCollection    = "Runs"
	counterCollection = "Counter"

	orderNumCounterID = "OrderNum"
)

// Mongo implements Store on MongoDB with a GridFS bucket for media blobs
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	bucket *gridfs.Bucket
	logger logger.Logger
}

// NewMongo connects to MongoDB and prepares the collections and bucket
func NewMongo(ctx context.Context, cfg *config.StorageConfig, log logger.Logger) (*Mongo, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Storage(err, "failed to connect to %s", cfg.URI)
	}

	db := client.Database(cfg.Database)
	bucket, err := gridfs.NewBucket(db)
	if err != nil {
		return nil, errors.Storage(err, "failed to open media bucket")
	}

	log.DebugWithFields("storage gateway connected", map[string]interface{}{
		"database": cfg.Database,
	})

	return &Mongo{
		client: client,
		db:     db,
		bucket: bucket,
		logger: log,
	}, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return errors.Storage(err, "store unreachable")
	}
	return nil
}

func (m *Mongo) FirstPostByOrderNum(ctx context.Context) (*Post, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "OrderNum", Value: 1}})

	var post Post
	err := m.db.Collection(postsCollection).FindOne(ctx, bson.D{}, opts).Decode(&post)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Storage(err, "failed to read first post")
	}
	return &post, nil
}

func (m *Mongo) AllPosts(ctx context.Context) ([]*Post, error) {
	// _id ascending gives a deterministic insertion-order corpus scan
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := m.db.Collection(postsCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, errors.Storage(err, "failed to query corpus")
	}
	defer cursor.Close(ctx)

	var posts []*Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, errors.Storage(err, "failed to decode corpus")
	}
	return posts, nil
}

func (m *Mongo) InsertPost(ctx context.Context, post *Post) error {
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if _, err := m.db.Collection(postsCollection).InsertOne(ctx, post); err != nil {
		return errors.Storage(err, "failed to insert post %s", post.ArticleID)
	}
	return nil
}

func (m *Mongo) ReplacePost(ctx context.Context, post *Post) error {
	filter := bson.M{"_id": post.ID}
	if _, err := m.db.Collection(postsCollection).ReplaceOne(ctx, filter, post); err != nil {
		return errors.Storage(err, "failed to replace post %s", post.ArticleID)
	}
	return nil
}

func (m *Mongo) NextOrderNum(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Val int64 `bson:"val"`
	}
	err := m.db.Collection(counterCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": orderNumCounterID},
		bson.M{"$inc": bson.M{"val": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, errors.Storage(err, "failed to allocate order number")
	}
	return counter.Val, nil
}

func (m *Mongo) PutMedia(ctx context.Context, name string, data []byte) (primitive.ObjectID, error) {
	id, err := m.bucket.UploadFromStream(name, bytes.NewReader(data))
	if err != nil {
		return primitive.NilObjectID, errors.Storage(err, "failed to store media %s", name)
	}
	return id, nil
}

func (m *Mongo) GetMedia(ctx context.Context, id primitive.ObjectID) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := m.bucket.DownloadToStream(id, &buf); err != nil {
		return nil, errors.Storage(err, "failed to read media %s", id.Hex())
	}
	return buf.Bytes(), nil
}

func (m *Mongo) InsertRun(ctx context.Context, run *Run) (primitive.ObjectID, error) {
	if run.ID.IsZero() {
		run.ID = primitive.NewObjectID()
	}
	if _, err := m.db.Collection(runsCollection).InsertOne(ctx, run); err != nil {
		return primitive.NilObjectID, errors.Storage(err, "failed to insert run record")
	}
	return run.ID, nil
}

func (m *Mongo) FinalizeRun(ctx context.Context, run *Run) error {
	filter := bson.M{"_id": run.ID}
	if _, err := m.db.Collection(runsCollection).ReplaceOne(ctx, filter, run); err != nil {
		return errors.Storage(err, "failed to finalize run record")
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
