package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/searchsync/internal/db"
	"github.com/kailas-cloud/searchsync/internal/db/dbtest"
	"github.com/kailas-cloud/searchsync/internal/db/memory"
	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/document/patch"
	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
)

// --- Mocks ---

// flakyBackend fails the first connectFailures Connect calls and records index calls.
type flakyBackend struct {
	*memory.Store
	connectFailures int
	connectCalls    int
	createCalls     int
	countErr        error
}

func (f *flakyBackend) Connect(ctx context.Context) error {
	f.connectCalls++
	if f.connectCalls <= f.connectFailures {
		return domain.ConnectionError(db.OpConnect, errors.New("refused"))
	}
	return f.Store.Connect(ctx)
}

func (f *flakyBackend) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	f.createCalls++
	return f.Store.CreateIndex(ctx, def)
}

func (f *flakyBackend) Count(ctx context.Context, index string, fl filter.Filters) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.Store.Count(ctx, index, fl)
}

func newService(t *testing.T, b *flakyBackend) *Service {
	t.Helper()
	svc := New(b, "docs", nil, WithConnectRetry(3, time.Millisecond))
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return svc
}

// --- Tests ---

func TestInitialize_RetriesThenCreatesIndex(t *testing.T) {
	b := &flakyBackend{Store: memory.New(), connectFailures: 2}
	svc := newService(t, b)

	if b.connectCalls != 3 {
		t.Errorf("connect calls = %d, want 3", b.connectCalls)
	}
	if b.createCalls != 1 {
		t.Errorf("create calls = %d, want 1", b.createCalls)
	}
	if ok, _ := b.IndexExists(context.Background(), svc.IndexName()); !ok {
		t.Error("index should exist after Initialize")
	}

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	if b.createCalls != 1 {
		t.Errorf("existing index must not be recreated, create calls = %d", b.createCalls)
	}
}

func TestInitialize_GivesUp(t *testing.T) {
	b := &flakyBackend{Store: memory.New(), connectFailures: 10}
	svc := New(b, "docs", nil, WithConnectRetry(2, time.Millisecond))

	err := svc.Initialize(context.Background())
	if !errors.Is(err, domain.ErrConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
	if b.connectCalls != 2 {
		t.Errorf("connect calls = %d, want 2", b.connectCalls)
	}
}

func TestDelegatesWithBoundIndex(t *testing.T) {
	b := &flakyBackend{Store: memory.New()}
	svc := newService(t, b)
	ctx := context.Background()

	doc := dbtest.Doc(t, "p1", document.TypeProject, "Apollo", "moon launch")
	if err := svc.IndexDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if _, err := b.GetDocument(ctx, "docs", "p1"); err != nil {
		t.Errorf("document not stored under bound index: %v", err)
	}

	title := "Apollo 11"
	if err := svc.UpdateDocument(ctx, "p1", patch.Patch{Title: &title}); err != nil {
		t.Fatal(err)
	}
	got, err := svc.GetDocument(ctx, "p1")
	if err != nil || got.Title != title {
		t.Errorf("GetDocument = %+v, %v", got, err)
	}

	res, err := svc.Search(ctx, request.Query{Text: "moon"})
	if err != nil || res.Total != 1 {
		t.Errorf("Search = %+v, %v", res, err)
	}
	sugg, err := svc.Suggest(ctx, "apo", 5)
	if err != nil || len(sugg) != 1 {
		t.Errorf("Suggest = %v, %v", sugg, err)
	}

	if err := svc.DeleteDocument(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetDocument(ctx, "p1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("after delete = %v", err)
	}
}

func TestBulkIndex_ReportsPerItem(t *testing.T) {
	svc := newService(t, &flakyBackend{Store: memory.New()})
	docs := []document.Document{
		dbtest.Doc(t, "a", document.TypeTask, "t", "c"),
		{ID: "bad"},
	}
	res, err := svc.BulkIndex(context.Background(), docs)
	if err != nil {
		t.Fatal(err)
	}
	if res.Success != 1 || res.Failed != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestGetStats(t *testing.T) {
	b := &flakyBackend{Store: memory.New()}
	svc := newService(t, b)
	ctx := context.Background()
	for _, d := range []document.Document{
		dbtest.Doc(t, "1", document.TypeProject, "a", "a"),
		dbtest.Doc(t, "2", document.TypeArticle, "b", "b"),
		dbtest.Doc(t, "3", document.TypeArticle, "c", "c"),
	} {
		_ = svc.IndexDocument(ctx, d)
	}

	st, err := svc.GetStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 3 || st.ByType[document.TypeArticle] != 2 || st.ByType[document.TypeProject] != 1 {
		t.Errorf("stats = %+v", st)
	}
	if len(st.ByType) != len(document.Types()) {
		t.Errorf("every known type must be reported, got %v", st.ByType)
	}

	b.countErr = domain.SearchError(db.OpCount, errors.New("boom"))
	if _, err := svc.GetStats(ctx); !errors.Is(err, domain.ErrSearch) {
		t.Errorf("GetStats with failing count = %v", err)
	}
}

func TestRebuildIndex_DropsDocuments(t *testing.T) {
	svc := newService(t, &flakyBackend{Store: memory.New()})
	ctx := context.Background()
	_ = svc.IndexDocument(ctx, dbtest.Doc(t, "x", document.TypePage, "t", "c"))

	if err := svc.RebuildIndex(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := svc.Count(ctx, filter.Filters{}); n != 0 {
		t.Errorf("count after rebuild = %d", n)
	}
}

func TestPingAndClose(t *testing.T) {
	svc := newService(t, &flakyBackend{Store: memory.New()})
	if !svc.Ping(context.Background()) {
		t.Error("expected healthy backend")
	}
	_ = svc.Close()
	if svc.Ping(context.Background()) {
		t.Error("expected ping to fail after Close")
	}
}
