package store

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mock is an in-memory Store for testing and dry runs. Records are deep
// copied on the way in and out so callers never alias internal state.
type Mock struct {
	mu       sync.Mutex
	posts    []*Post
	runs     map[primitive.ObjectID]*Run
	media    map[primitive.ObjectID][]byte
	orderNum int64

	// PingErr forces Ping to fail, for precondition tests
	PingErr error
}

// NewMock creates an empty in-memory store
func NewMock() *Mock {
	return &Mock{
		runs:  make(map[primitive.ObjectID]*Run),
		media: make(map[primitive.ObjectID][]byte),
	}
}

func (m *Mock) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *Mock) FirstPostByOrderNum(ctx context.Context) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Ascending sort over OrderNum with Mongo semantics: records missing
	// the field sort before any numbered record, insertion order breaking
	// ties. Resume-admitted posts carry no OrderNum, so the first post of
	// the latest resume run is the boundary for the next one.
	var first *Post
	for _, p := range m.posts {
		if p.OrderNum == 0 {
			first = p
			break
		}
		if first == nil || p.OrderNum < first.OrderNum {
			first = p
		}
	}
	if first == nil {
		return nil, nil
	}
	return copyPost(first), nil
}

func (m *Mock) AllPosts(ctx context.Context) ([]*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Post, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, copyPost(p))
	}
	return out, nil
}

func (m *Mock) InsertPost(ctx context.Context, post *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	for _, p := range m.posts {
		if p.ID == post.ID {
			return fmt.Errorf("duplicate post id %s", post.ID.Hex())
		}
	}
	m.posts = append(m.posts, copyPost(post))
	return nil
}

func (m *Mock) ReplacePost(ctx context.Context, post *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, p := range m.posts {
		if p.ID == post.ID {
			m.posts[i] = copyPost(post)
			return nil
		}
	}
	return fmt.Errorf("post %s not found", post.ID.Hex())
}

func (m *Mock) NextOrderNum(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.orderNum++
	return m.orderNum, nil
}

func (m *Mock) PutMedia(ctx context.Context, name string, data []byte) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := primitive.NewObjectID()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.media[id] = buf
	return id, nil
}

func (m *Mock) GetMedia(ctx context.Context, id primitive.ObjectID) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.media[id]
	if !ok {
		return nil, fmt.Errorf("media %s not found", id.Hex())
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (m *Mock) InsertRun(ctx context.Context, run *Run) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if run.ID.IsZero() {
		run.ID = primitive.NewObjectID()
	}
	m.runs[run.ID] = copyRun(run)
	return run.ID, nil
}

func (m *Mock) FinalizeRun(ctx context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[run.ID]; !ok {
		return fmt.Errorf("run %s not found", run.ID.Hex())
	}
	m.runs[run.ID] = copyRun(run)
	return nil
}

func (m *Mock) Close(ctx context.Context) error {
	return nil
}

// Runs returns all stored run records, for test assertions
func (m *Mock) Runs() []*Run {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, copyRun(r))
	}
	return out
}

// Run returns the stored run record by id, for test assertions
func (m *Mock) Run(id primitive.ObjectID) *Run {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return nil
	}
	return copyRun(run)
}

func copyPost(p *Post) *Post {
	clone := *p
	if p.RepostOf != nil {
		ref := *p.RepostOf
		clone.RepostOf = &ref
	}
	if p.Reposts != nil {
		clone.Reposts = make([]RepostEvidence, len(p.Reposts))
		copy(clone.Reposts, p.Reposts)
	}
	return &clone
}

func copyRun(r *Run) *Run {
	clone := *r
	if r.EndTime != nil {
		end := *r.EndTime
		clone.EndTime = &end
	}
	return &clone
}
