package app_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"trip_hotel/internal/domain"
)

// ---- fakes ----

type fakeFetcher struct {
	mu    sync.Mutex
	body  []byte
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memStore struct {
	mu     sync.Mutex
	files  map[string][]byte
	mod    map[string]time.Time
	putErr error
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}, mod: map[string]time.Time{}}
}

func (s *memStore) Put(ctx context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.files[path] = append([]byte(nil), data...)
	s.mod[path] = time.Now()
	return nil
}

func (s *memStore) Get(ctx context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (s *memStore) Stat(ctx context.Context, path string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mod[path]
	return m, ok, nil
}

// memGateway enforces uniqueness under a single lock, like a unique index would.
type memGateway struct {
	mu         sync.Mutex
	rows       map[string]domain.Listing
	nextID     int64
	acquireErr error
	insertErr  error
	acquired   int
	closed     int
}

func newMemGateway() *memGateway { return &memGateway{rows: map[string]domain.Listing{}} }

func (g *memGateway) Acquire(ctx context.Context) (domain.ListingSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.acquireErr != nil {
		return nil, g.acquireErr
	}
	g.acquired++
	return &memSession{g: g}, nil
}

func (g *memGateway) row(id string) (domain.Listing, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.rows[id]
	return l, ok
}

func (g *memGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rows)
}

type memSession struct{ g *memGateway }

func (s *memSession) Insert(ctx context.Context, l domain.Listing) (int64, error) {
	s.g.mu.Lock()
	defer s.g.mu.Unlock()
	if s.g.insertErr != nil {
		err := s.g.insertErr
		s.g.insertErr = nil // one-shot, the session stays usable
		return 0, &domain.PersistenceError{ExternalID: l.ExternalID, Op: "insert", Err: err}
	}
	if _, dup := s.g.rows[l.ExternalID]; dup {
		return 0, &domain.DuplicateRecordError{ExternalID: l.ExternalID}
	}
	s.g.nextID++
	l.ID = s.g.nextID
	s.g.rows[l.ExternalID] = l
	return l.ID, nil
}

func (s *memSession) Close() error {
	s.g.mu.Lock()
	defer s.g.mu.Unlock()
	s.g.closed++
	return nil
}

type sliceSource struct {
	mu    sync.Mutex
	recs  []domain.SourceRecord
	i     int
	acked int
	// onNext runs after the i-th record is handed out
	onNext func(i int)
}

func (s *sliceSource) Next(ctx context.Context) (domain.SourceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.i >= len(s.recs) {
		return domain.SourceRecord{}, io.EOF
	}
	r := s.recs[s.i]
	r.Ack = func() error {
		s.mu.Lock()
		s.acked++
		s.mu.Unlock()
		return nil
	}
	s.i++
	if s.onNext != nil {
		s.onNext(s.i)
	}
	return r, nil
}

func item(kv ...any) domain.SourceRecord {
	m := map[string]any{}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return domain.SourceRecord{Fields: m}
}

var errBoom = errors.New("boom")

func ptr[T any](v T) *T { return &v }
func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
