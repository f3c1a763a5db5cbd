package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"trip_hotel/internal/app"
	"trip_hotel/internal/domain"
)

func newCoordinator(gw *memGateway, f *fakeFetcher, st *memStore, opts ...app.Option) *app.Coordinator {
	return app.NewCoordinator(gw, app.NewAssetResolver(f, st), opts...)
}

func TestProcess_PersistsWithoutImage(t *testing.T) {
	gw := newMemGateway()
	c := newCoordinator(gw, &fakeFetcher{}, newMemStore())
	sess, _ := gw.Acquire(context.Background())

	for i := 0; i < 20; i++ {
		l := domain.Listing{ExternalID: fmt.Sprintf("HTL-%d", i), Title: "Hotel", City: "Lima"}
		out := c.Process(context.Background(), sess, &l)
		if out.State != domain.StatePersisted || out.Asset != domain.AssetSkipped {
			t.Fatalf("unexpected outcome: %+v", out)
		}
		row, ok := gw.row(l.ExternalID)
		if !ok || row.ExternalID != l.ExternalID || row.ID != out.RowID || l.ID != out.RowID {
			t.Fatalf("row mismatch: %+v vs %+v", row, out)
		}
	}
}

func TestProcess_DuplicateRejected(t *testing.T) {
	gw := newMemGateway()
	c := newCoordinator(gw, &fakeFetcher{}, newMemStore())
	sess, _ := gw.Acquire(context.Background())

	first := domain.Listing{ExternalID: "HTL-42", Title: "A", City: "B"}
	second := domain.Listing{ExternalID: "HTL-42", Title: "Other", City: "C"}

	before := gw.count()
	if out := c.Process(context.Background(), sess, &first); out.State != domain.StatePersisted {
		t.Fatalf("first must persist: %+v", out)
	}
	out := c.Process(context.Background(), sess, &second)
	if out.State != domain.StateRejected || out.Reason != domain.RejectDuplicate {
		t.Fatalf("second must be a duplicate: %+v", out)
	}
	var de *domain.DuplicateRecordError
	if !errors.As(out.Err, &de) {
		t.Fatalf("expected DuplicateRecordError, got %v", out.Err)
	}
	if gw.count()-before != 1 {
		t.Fatalf("persisted count must grow by exactly 1")
	}
	if row, _ := gw.row("HTL-42"); row.Title != "A" {
		t.Fatalf("duplicate must not overwrite: %+v", row)
	}
}

func TestProcess_ValidationFailsFast(t *testing.T) {
	gw := newMemGateway()
	f := &fakeFetcher{body: []byte("x")}
	c := newCoordinator(gw, f, newMemStore())
	sess, _ := gw.Acquire(context.Background())

	for _, l := range []domain.Listing{
		{ExternalID: "HTL-7", Title: "", City: "Oslo", ImageURL: ptr("https://c/p.jpg")},
		{ExternalID: "", Title: "T", City: "Oslo", ImageURL: ptr("https://c/p.jpg")},
	} {
		l := l
		out := c.Process(context.Background(), sess, &l)
		if out.State != domain.StateRejected || out.Reason != domain.RejectValidation {
			t.Fatalf("expected validation reject: %+v", out)
		}
		if out.Asset != domain.AssetNone {
			t.Fatalf("resolver must not run: %+v", out)
		}
	}
	if f.Calls() != 0 || gw.count() != 0 {
		t.Fatalf("no fetch and no row expected (calls=%d rows=%d)", f.Calls(), gw.count())
	}
}

func TestProcess_AssetFailureStillPersists(t *testing.T) {
	gw := newMemGateway()
	c := newCoordinator(gw, &fakeFetcher{err: errBoom}, newMemStore())
	sess, _ := gw.Acquire(context.Background())

	l := domain.Listing{ExternalID: "HTL-8", Title: "A", City: "B", ImageURL: ptr("https://c/p.jpg")}
	out := c.Process(context.Background(), sess, &l)
	if out.State != domain.StatePersisted || out.Asset != domain.AssetFailed {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	var ae *domain.AssetFetchError
	if !errors.As(out.AssetErr, &ae) {
		t.Fatalf("expected AssetFetchError, got %v", out.AssetErr)
	}
	if row, _ := gw.row("HTL-8"); row.ImagePath != nil {
		t.Fatalf("image path must stay unset: %v", *row.ImagePath)
	}
}

func TestProcess_AssetResolvedPathPersisted(t *testing.T) {
	gw := newMemGateway()
	c := newCoordinator(gw, &fakeFetcher{body: []byte("img")}, newMemStore())
	sess, _ := gw.Acquire(context.Background())

	l := domain.Listing{ExternalID: "HTL-9", Title: "Grand Plaza", City: "New York", ImageURL: ptr("https://c/photo1.jpg")}
	out := c.Process(context.Background(), sess, &l)
	if out.State != domain.StatePersisted || out.Asset != domain.AssetResolved {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	row, _ := gw.row("HTL-9")
	if deref(row.ImagePath) != "images/new_york/grand_plaza_photo1.jpg" || out.ImagePath != deref(row.ImagePath) {
		t.Fatalf("image path: %q / %q", deref(row.ImagePath), out.ImagePath)
	}
}

func TestProcess_PersistenceErrorDoesNotPoisonSession(t *testing.T) {
	gw := newMemGateway()
	gw.insertErr = errBoom
	c := newCoordinator(gw, &fakeFetcher{}, newMemStore())
	sess, _ := gw.Acquire(context.Background())

	a := domain.Listing{ExternalID: "A", Title: "t", City: "c"}
	out := c.Process(context.Background(), sess, &a)
	if out.State != domain.StateRejected || out.Reason != domain.RejectPersistence {
		t.Fatalf("expected persistence reject: %+v", out)
	}
	b := domain.Listing{ExternalID: "B", Title: "t", City: "c"}
	if out := c.Process(context.Background(), sess, &b); out.State != domain.StatePersisted {
		t.Fatalf("next record must persist: %+v", out)
	}
}

func TestRun_ReportAndAck(t *testing.T) {
	gw := newMemGateway()
	var (
		mu  sync.Mutex
		obs []domain.Outcome
	)
	c := newCoordinator(gw, &fakeFetcher{err: errBoom}, newMemStore(),
		app.WithObserver(func(o domain.Outcome) { mu.Lock(); obs = append(obs, o); mu.Unlock() }))

	src := &sliceSource{recs: []domain.SourceRecord{
		item("hotel_id", "HTL-42", "property_title", "A", "city_name", "X"),
		item("hotel_id", "HTL-42", "property_title", "A", "city_name", "X"),
		item("hotel_id", "HTL-7", "property_title", "", "city_name", "X"),
		item("hotel_id", "HTL-1", "property_title", "P", "city_name", "X", "price", "N/A", "image", "https://c/p.jpg"),
		{Err: errors.New("invalid character 'x'")},
	}}

	rep, err := c.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if rep.Received != 5 || rep.Persisted != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rep.Rejected[domain.RejectDuplicate] != 1 || rep.Rejected[domain.RejectValidation] != 2 {
		t.Fatalf("unexpected rejects: %+v", rep.Rejected)
	}
	if rep.Assets[domain.AssetFailed] != 1 || rep.Assets[domain.AssetSkipped] != 2 {
		t.Fatalf("unexpected assets: %+v", rep.Assets)
	}
	if rep.Interrupted {
		t.Fatalf("source was drained, not interrupted")
	}
	if src.acked != 5 || len(obs) != 5 {
		t.Fatalf("every record must be acked and observed: acked=%d observed=%d", src.acked, len(obs))
	}
	if row, ok := gw.row("HTL-1"); !ok || row.Price != nil {
		t.Fatalf("N/A price must persist as null: %+v", row)
	}
	if gw.acquired != 1 || gw.closed != 1 {
		t.Fatalf("session lifecycle: acquired=%d closed=%d", gw.acquired, gw.closed)
	}
}

func TestRun_AcquireFailureIsFatal(t *testing.T) {
	gw := newMemGateway()
	gw.acquireErr = errBoom
	c := newCoordinator(gw, &fakeFetcher{}, newMemStore())

	_, err := c.Run(context.Background(), &sliceSource{recs: []domain.SourceRecord{item("hotel_id", "1")}})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected acquire error, got %v", err)
	}
}

func TestRun_StopsBetweenRecordsOnCancel(t *testing.T) {
	gw := newMemGateway()
	c := newCoordinator(gw, &fakeFetcher{}, newMemStore())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var recs []domain.SourceRecord
	for i := 0; i < 10; i++ {
		recs = append(recs, item("hotel_id", fmt.Sprintf("H-%d", i), "property_title", "t", "city_name", "c"))
	}
	// cancel while the third record is in flight
	src := &sliceSource{recs: recs, onNext: func(i int) {
		if i == 3 {
			cancel()
		}
	}}

	rep, err := c.Run(ctx, src)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !rep.Interrupted {
		t.Fatalf("expected interrupted report")
	}
	if rep.Persisted != 3 || gw.count() != 3 {
		t.Fatalf("in-flight record must complete and no more: persisted=%d rows=%d", rep.Persisted, gw.count())
	}
	if gw.closed != 1 {
		t.Fatalf("session must be released")
	}
}

// blockingFetcher hangs until its context ends.
type blockingFetcher struct{}

func (blockingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// stallSession blocks its first n inserts until the context ends, then
// behaves like the wrapped session.
type stallSession struct {
	domain.ListingSession
	n int
}

func (s *stallSession) Insert(ctx context.Context, l domain.Listing) (int64, error) {
	if s.n > 0 {
		s.n--
		<-ctx.Done()
		return 0, &domain.PersistenceError{ExternalID: l.ExternalID, Op: "insert", Err: ctx.Err()}
	}
	return s.ListingSession.Insert(ctx, l)
}

func TestProcess_FetchTimeoutFallsBackToNoImage(t *testing.T) {
	gw := newMemGateway()
	c := app.NewCoordinator(gw, app.NewAssetResolver(blockingFetcher{}, newMemStore()),
		app.WithTimeouts(50*time.Millisecond, time.Second))
	sess, _ := gw.Acquire(context.Background())

	l := domain.Listing{ExternalID: "HTL-1", Title: "A", City: "B", ImageURL: ptr("https://c/slow.jpg")}
	start := time.Now()
	out := c.Process(context.Background(), sess, &l)
	if out.State != domain.StatePersisted || out.Asset != domain.AssetFailed {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if !errors.Is(out.AssetErr, context.DeadlineExceeded) {
		t.Fatalf("expected deadline in asset error, got %v", out.AssetErr)
	}
	if took := time.Since(start); took > 2*time.Second {
		t.Fatalf("fetch not bounded: %v", took)
	}
	if row, _ := gw.row("HTL-1"); row.ImagePath != nil {
		t.Fatalf("image path must stay unset: %v", *row.ImagePath)
	}
}

func TestProcess_PersistTimeoutRejectsAndSessionRecovers(t *testing.T) {
	gw := newMemGateway()
	c := newCoordinator(gw, &fakeFetcher{}, newMemStore(), app.WithTimeouts(time.Second, 50*time.Millisecond))
	inner, _ := gw.Acquire(context.Background())
	sess := &stallSession{ListingSession: inner, n: 1}

	a := domain.Listing{ExternalID: "A", Title: "t", City: "c"}
	start := time.Now()
	out := c.Process(context.Background(), sess, &a)
	if out.State != domain.StateRejected || out.Reason != domain.RejectPersistence {
		t.Fatalf("expected persistence reject: %+v", out)
	}
	if took := time.Since(start); took > 2*time.Second {
		t.Fatalf("persist not bounded: %v", took)
	}

	b := domain.Listing{ExternalID: "B", Title: "t", City: "c"}
	if out := c.Process(context.Background(), sess, &b); out.State != domain.StatePersisted {
		t.Fatalf("next record must persist: %+v", out)
	}
	if _, ok := gw.row("A"); ok {
		t.Fatalf("timed out record must not be stored")
	}
}
