package indexsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/searchsync/internal/db/memory"
	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/batch"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/event"
	"github.com/kailas-cloud/searchsync/internal/domain/record"
	"github.com/kailas-cloud/searchsync/internal/usecase/search"
)

// --- Mocks ---

// fakeIndexer stores documents in a map and fails ids listed in failures.
// A failure count of -1 fails forever.
type fakeIndexer struct {
	mu        sync.Mutex
	docs      map[string]document.Document
	calls     []string
	failures  map[string]int
	err       error
	bulkCalls int
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{
		docs:     make(map[string]document.Document),
		failures: make(map[string]int),
		err:      domain.ConnectionError("index", errors.New("connection refused")),
	}
}

func (f *fakeIndexer) failLocked(id string) bool {
	n := f.failures[id]
	if n == 0 {
		return false
	}
	if n > 0 {
		f.failures[id] = n - 1
	}
	return true
}

func (f *fakeIndexer) IndexDocument(_ context.Context, doc document.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "index:"+doc.ID)
	if f.failLocked(doc.ID) {
		return f.err
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeIndexer) DeleteDocument(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete:"+id)
	if f.failLocked(id) {
		return f.err
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeIndexer) BulkIndex(_ context.Context, docs []document.Document) (batch.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkCalls++
	var res batch.Result
	for _, d := range docs {
		if f.failLocked(d.ID) {
			res.Fail(d.ID, f.err)
			continue
		}
		f.docs[d.ID] = d
		res.OK(d.ID)
	}
	return res, nil
}

func (f *fakeIndexer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeIndexer) doc(id string) (document.Document, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	return d, ok
}

// manualTimers records retry delays and fires callbacks on demand.
type manualTimers struct {
	mu     sync.Mutex
	delays []time.Duration
	fns    []func()
}

func (m *manualTimers) after(d time.Duration, fn func()) *time.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays = append(m.delays, d)
	m.fns = append(m.fns, fn)
	return time.NewTimer(time.Hour)
}

func (m *manualTimers) fire(t *testing.T, i int) {
	t.Helper()
	m.mu.Lock()
	if i >= len(m.fns) {
		m.mu.Unlock()
		t.Fatalf("timer %d not scheduled (have %d)", i, len(m.fns))
	}
	fn := m.fns[i]
	m.mu.Unlock()
	fn()
}

func (m *manualTimers) scheduled() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.delays...)
}

func newEngine(t *testing.T, ix Indexer, cfg Config) (*Engine, *manualTimers) {
	t.Helper()
	e, err := New(ix, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	timers := &manualTimers{}
	e.after = timers.after
	t.Cleanup(e.Stop)
	return e, timers
}

func queuedConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryInterval = 10 * time.Millisecond
	return cfg
}

func realtimeConfig() Config {
	cfg := queuedConfig()
	cfg.Mode = ModeRealtime
	return cfg
}

func newDoc(id, title string) *document.Document {
	return &document.Document{
		ID:        id,
		Type:      document.TypeTask,
		Title:     title,
		Content:   "body of " + id,
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// --- Tests ---

func TestRealtime_AppliesSynchronously(t *testing.T) {
	ix := newFakeIndexer()
	e, _ := newEngine(t, ix, realtimeConfig())

	res := e.OnCreate(context.Background(), newDoc("a", "Alpha"))
	if !res.Success || res.SyncedAt == nil {
		t.Fatalf("result = %+v", res)
	}
	if _, ok := ix.doc("a"); !ok {
		t.Error("document not indexed")
	}
	rec, ok := e.Record("a")
	if !ok || rec.Status != record.StatusSynced || rec.LastSyncedAt == nil {
		t.Errorf("record = %+v, %v", rec, ok)
	}

	res = e.OnDelete(context.Background(), "a", document.TypeTask)
	if !res.Success {
		t.Fatalf("delete result = %+v", res)
	}
	if rec, _ := e.Record("a"); rec.Status != record.StatusDeleted {
		t.Errorf("status = %q, want deleted", rec.Status)
	}
}

func TestOnCreate_MissingPayload(t *testing.T) {
	ix := newFakeIndexer()
	e, timers := newEngine(t, ix, realtimeConfig())

	res := e.OnCreate(context.Background(), nil)
	if res.Success {
		t.Fatal("create without document must fail")
	}
	if !errors.Is(res.Cause, domain.ErrDocumentMissing) {
		t.Errorf("cause = %v, want ErrDocumentMissing", res.Cause)
	}
	if domain.IsRetryable(res.Cause) {
		t.Error("missing document must not be retryable")
	}
	if ix.callCount() != 0 || len(timers.scheduled()) != 0 {
		t.Error("nothing should reach the indexer or be retried")
	}
}

func TestQueued_AcceptsThenDrains(t *testing.T) {
	ix := newFakeIndexer()
	e, _ := newEngine(t, ix, queuedConfig())

	res := e.OnCreate(context.Background(), newDoc("a", "Alpha"))
	if !res.Success || res.SyncedAt != nil {
		t.Fatalf("accepted result = %+v", res)
	}
	if rec, _ := e.Record("a"); rec.Status != record.StatusPending {
		t.Errorf("status before drain = %q, want pending", rec.Status)
	}
	if ix.callCount() != 0 {
		t.Error("queued mode must not call the indexer on submit")
	}

	if n := e.ProcessQueue(context.Background()); n != 1 {
		t.Fatalf("processed = %d", n)
	}
	if rec, _ := e.Record("a"); rec.Status != record.StatusSynced {
		t.Errorf("status after drain = %q", rec.Status)
	}
}

func TestQueued_CoalescesUpdates(t *testing.T) {
	ix := newFakeIndexer()
	e, _ := newEngine(t, ix, queuedConfig())
	ctx := context.Background()

	e.OnCreate(ctx, newDoc("a", "v1"))
	e.OnUpdate(ctx, newDoc("a", "v2"))
	e.OnUpdate(ctx, newDoc("a", "v3"))

	if e.QueueLen() != 1 {
		t.Fatalf("queue len = %d, want 1", e.QueueLen())
	}
	e.ProcessQueue(ctx)

	if ix.callCount() != 1 {
		t.Errorf("indexer calls = %d, want 1", ix.callCount())
	}
	d, _ := ix.doc("a")
	if d.Title != "v3" {
		t.Errorf("indexed title = %q, want v3", d.Title)
	}
}

func TestQueued_CreateThenDeleteLeavesDocumentAbsent(t *testing.T) {
	store := memory.New()
	svc := search.New(store, "docs", nil)
	ctx := context.Background()
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	e, _ := newEngine(t, svc, queuedConfig())

	e.OnCreate(ctx, newDoc("a", "Alpha"))
	e.OnDelete(ctx, "a", document.TypeTask)
	e.Flush(ctx)

	if _, err := svc.GetDocument(ctx, "a"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetDocument err = %v, want ErrNotFound", err)
	}
	if rec, _ := e.Record("a"); rec.Status != record.StatusDeleted {
		t.Errorf("status = %q, want deleted", rec.Status)
	}
}

func TestQueued_OverflowEvictsOldest(t *testing.T) {
	ix := newFakeIndexer()
	cfg := queuedConfig()
	cfg.MaxQueueSize = 2
	e, _ := newEngine(t, ix, cfg)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if res := e.OnCreate(ctx, newDoc(id, id)); !res.Success {
			t.Fatalf("OnCreate(%s) = %+v", id, res)
		}
	}
	// Coalescing into a queued id never evicts.
	e.OnUpdate(ctx, newDoc("c", "c2"))

	if e.QueueLen() != 2 {
		t.Fatalf("queue len = %d, want 2", e.QueueLen())
	}
	if got := e.DeadLetters(); len(got) != 1 || got[0] != "a" {
		t.Errorf("dead letters = %v, want [a]", got)
	}
	rec, _ := e.Record("a")
	if rec.Status != record.StatusFailed || rec.LastError == "" {
		t.Errorf("evicted record = %+v", rec)
	}

	e.Flush(ctx)
	if _, ok := ix.doc("a"); ok {
		t.Error("evicted event must not be applied")
	}
	for _, id := range []string{"b", "c"} {
		if _, ok := ix.doc(id); !ok {
			t.Errorf("%s not indexed", id)
		}
	}

	// Evicted entries can be replayed on demand.
	res := e.RetryFailed(ctx)
	if res.Success != 1 {
		t.Errorf("retry result = %+v", res)
	}
	if _, ok := ix.doc("a"); !ok {
		t.Error("a not indexed after RetryFailed")
	}
}

func TestQueued_RejectPolicy(t *testing.T) {
	ix := newFakeIndexer()
	cfg := queuedConfig()
	cfg.MaxQueueSize = 1
	cfg.Overflow = OverflowReject
	e, _ := newEngine(t, ix, cfg)
	ctx := context.Background()

	e.OnCreate(ctx, newDoc("a", "a"))
	res := e.OnCreate(ctx, newDoc("b", "b"))
	if res.Success {
		t.Fatal("second event should be rejected")
	}
	if !errors.Is(res.Cause, domain.ErrQueueFull) {
		t.Errorf("cause = %v, want ErrQueueFull", res.Cause)
	}
	if _, ok := e.Record("b"); ok {
		t.Error("rejected event must not create a ledger entry")
	}
}

func TestRetry_BackoffAndExhaustion(t *testing.T) {
	ix := newFakeIndexer()
	ix.failures["a"] = -1
	cfg := queuedConfig()
	cfg.MaxRetries = 2
	e, timers := newEngine(t, ix, cfg)
	ctx := context.Background()

	e.OnCreate(ctx, newDoc("a", "Alpha"))
	e.ProcessQueue(ctx)

	rec, _ := e.Record("a")
	if rec.Status != record.StatusPending || rec.RetryCount != 1 {
		t.Fatalf("after first failure = %+v", rec)
	}

	timers.fire(t, 0)
	if e.QueueLen() != 1 {
		t.Fatalf("retry not requeued")
	}
	e.ProcessQueue(ctx)
	timers.fire(t, 1)
	e.ProcessQueue(ctx)

	delays := timers.scheduled()
	if len(delays) != 2 {
		t.Fatalf("scheduled retries = %v, want 2", delays)
	}
	if delays[1] <= delays[0] {
		t.Errorf("backoff not increasing: %v", delays)
	}
	if delays[0] != cfg.RetryInterval {
		t.Errorf("first delay = %v, want %v", delays[0], cfg.RetryInterval)
	}

	rec, _ = e.Record("a")
	if rec.Status != record.StatusFailed || rec.RetryCount != 2 {
		t.Errorf("final record = %+v, want failed with retryCount 2", rec)
	}
	if rec.LastError == "" {
		t.Error("last error not recorded")
	}
	if ix.callCount() != 3 {
		t.Errorf("attempts = %d, want 3", ix.callCount())
	}
	if e.pendingRetries() != 0 || e.QueueLen() != 0 {
		t.Error("exhausted event must not be retried again")
	}
}

func TestRetry_RealtimeRecovers(t *testing.T) {
	ix := newFakeIndexer()
	ix.failures["a"] = 1
	e, timers := newEngine(t, ix, realtimeConfig())
	ctx := context.Background()

	if res := e.OnCreate(ctx, newDoc("a", "Alpha")); res.Success {
		t.Fatal("first attempt should fail")
	}
	timers.fire(t, 0)

	rec, _ := e.Record("a")
	if rec.Status != record.StatusSynced || rec.RetryCount != 0 || rec.LastError != "" {
		t.Errorf("record after retry = %+v", rec)
	}
}

func TestRetry_FreshEventSupersedesScheduledRetry(t *testing.T) {
	ix := newFakeIndexer()
	ix.failures["a"] = 1
	e, timers := newEngine(t, ix, queuedConfig())
	ctx := context.Background()

	e.OnCreate(ctx, newDoc("a", "v1"))
	e.ProcessQueue(ctx)
	if e.pendingRetries() != 1 {
		t.Fatalf("pending retries = %d", e.pendingRetries())
	}

	e.OnUpdate(ctx, newDoc("a", "v2"))
	if e.pendingRetries() != 0 {
		t.Error("fresh event should cancel the scheduled retry")
	}
	timers.fire(t, 0) // stale callback is a no-op
	if e.QueueLen() != 1 {
		t.Errorf("queue len = %d, want 1", e.QueueLen())
	}

	e.ProcessQueue(ctx)
	d, _ := ix.doc("a")
	if d.Title != "v2" {
		t.Errorf("title = %q, want v2", d.Title)
	}
}

func TestRetry_NonRetryableFailsImmediately(t *testing.T) {
	ix := newFakeIndexer()
	ix.failures["a"] = -1
	ix.err = fmt.Errorf("%w: bad shape", domain.ErrInvalidDocument)
	e, timers := newEngine(t, ix, realtimeConfig())

	e.OnCreate(context.Background(), newDoc("a", "Alpha"))

	if len(timers.scheduled()) != 0 {
		t.Error("non-retryable failure must not schedule a retry")
	}
	if rec, _ := e.Record("a"); rec.Status != record.StatusFailed {
		t.Errorf("status = %q", rec.Status)
	}
	if res := e.RetryFailed(context.Background(), WithResetBudget()); res.Total() != 0 {
		t.Errorf("non-retryable entry retried: %+v", res)
	}
}

func TestRetryFailed_Budget(t *testing.T) {
	ix := newFakeIndexer()
	ix.failures["a"] = 1
	cfg := realtimeConfig()
	cfg.MaxRetries = 0
	e, timers := newEngine(t, ix, cfg)
	ctx := context.Background()

	e.OnCreate(ctx, newDoc("a", "Alpha"))
	if len(timers.scheduled()) != 0 {
		t.Fatal("zero retries must disable automatic retry")
	}

	if res := e.RetryFailed(ctx); res.Total() != 0 {
		t.Errorf("exhausted entry retried without reset: %+v", res)
	}
	res := e.RetryFailed(ctx, WithResetBudget())
	if res.Success != 1 {
		t.Fatalf("retry result = %+v", res)
	}
	if rec, _ := e.Record("a"); rec.Status != record.StatusSynced {
		t.Errorf("status = %q, want synced", rec.Status)
	}
	if len(e.DeadLetters()) != 0 {
		t.Error("dead letters should be empty")
	}
}

func TestListeners_IsolatedFromFailures(t *testing.T) {
	ix := newFakeIndexer()
	e, _ := newEngine(t, ix, realtimeConfig())

	var got []event.Result
	e.AddListener(event.Create, func(context.Context, event.Event, event.Result) error {
		panic("boom")
	})
	e.AddListener(event.Create, func(context.Context, event.Event, event.Result) error {
		return errors.New("listener error")
	})
	id := e.AddListener(event.Create, func(_ context.Context, _ event.Event, r event.Result) error {
		got = append(got, r)
		return nil
	})
	e.AddListener(event.Delete, func(context.Context, event.Event, event.Result) error {
		t.Error("delete listener called for create")
		return nil
	})

	res := e.OnCreate(context.Background(), newDoc("a", "Alpha"))
	if !res.Success {
		t.Fatalf("listener failure leaked into result: %+v", res)
	}
	if len(got) != 1 || got[0].DocumentID != "a" {
		t.Errorf("listener saw %+v", got)
	}

	if !e.RemoveListener(event.Create, id) {
		t.Fatal("RemoveListener = false")
	}
	e.OnUpdate(context.Background(), newDoc("a", "Beta"))
	e.OnCreate(context.Background(), newDoc("b", "Beta"))
	if len(got) != 1 {
		t.Errorf("removed listener still called: %d", len(got))
	}
}

func TestBulkSync_PerItemLedger(t *testing.T) {
	ix := newFakeIndexer()
	ix.failures["c"] = -1
	cfg := queuedConfig()
	cfg.BatchSize = 2
	e, _ := newEngine(t, ix, cfg)

	var docs []document.Document
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		docs = append(docs, *newDoc(id, id))
	}
	res, err := e.BulkSync(context.Background(), docs)
	if err != nil {
		t.Fatalf("BulkSync: %v", err)
	}
	if res.Success != 4 || res.Failed != 1 || !res.IsFailed("c") {
		t.Errorf("result = %+v", res)
	}
	if ix.bulkCalls != 3 {
		t.Errorf("bulk calls = %d, want 3", ix.bulkCalls)
	}

	counts := e.StatusCounts()
	if counts[record.StatusSynced] != 4 || counts[record.StatusFailed] != 1 {
		t.Errorf("counts = %v", counts)
	}
	if counts[record.StatusDeleted] != 0 {
		t.Errorf("deleted count = %d", counts[record.StatusDeleted])
	}
}

func TestStart_DrainsPeriodically(t *testing.T) {
	ix := newFakeIndexer()
	cfg := queuedConfig()
	cfg.DrainInterval = 5 * time.Millisecond
	e, _ := newEngine(t, ix, cfg)

	e.Start(context.Background())
	e.OnCreate(context.Background(), newDoc("a", "Alpha"))

	deadline := time.Now().Add(2 * time.Second)
	for {
		if rec, _ := e.Record("a"); rec.Status == record.StatusSynced {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("drain loop never applied the event")
		}
		time.Sleep(5 * time.Millisecond)
	}
	e.Stop()
	e.Stop()
}

func TestReset(t *testing.T) {
	ix := newFakeIndexer()
	e, _ := newEngine(t, ix, realtimeConfig())
	ctx := context.Background()
	e.OnCreate(ctx, newDoc("a", "a"))
	e.OnCreate(ctx, newDoc("b", "b"))

	e.Reset("a")
	if _, ok := e.Record("a"); ok {
		t.Error("a should be forgotten")
	}
	if len(e.Records()) != 1 {
		t.Errorf("records = %v", e.Records())
	}
	e.Reset()
	if len(e.Records()) != 0 {
		t.Error("ledger should be empty")
	}
}

func TestSubmit_RejectsInvalidDocument(t *testing.T) {
	ix := newFakeIndexer()
	e, _ := newEngine(t, ix, queuedConfig())

	doc := newDoc("a", "")
	res := e.OnCreate(context.Background(), doc)
	if res.Success || !errors.Is(res.Cause, domain.ErrInvalidDocument) {
		t.Fatalf("result = %+v", res)
	}
	if e.QueueLen() != 0 {
		t.Error("invalid document must not be queued")
	}
	if res := e.OnDelete(context.Background(), "", document.TypeTask); res.Success {
		t.Error("delete without id must fail")
	}
}

// interleavingIndexer runs hook once, inside the first IndexDocument call.
// With fail set, that interrupted call returns the fake's error.
type interleavingIndexer struct {
	*fakeIndexer
	once sync.Once
	hook func()
	fail bool
}

func (h *interleavingIndexer) IndexDocument(ctx context.Context, doc document.Document) error {
	interrupted := false
	h.once.Do(func() {
		interrupted = true
		h.hook()
	})
	if interrupted && h.fail {
		return h.err
	}
	return h.fakeIndexer.IndexDocument(ctx, doc)
}

func TestQueued_DeleteDuringFailingCreateWins(t *testing.T) {
	ix := &interleavingIndexer{fakeIndexer: newFakeIndexer(), fail: true}
	e, timers := newEngine(t, ix, queuedConfig())
	ctx := context.Background()
	ix.hook = func() { e.OnDelete(ctx, "a", document.TypeTask) }

	e.OnCreate(ctx, newDoc("a", "Alpha"))
	e.ProcessQueue(ctx)
	if got := timers.scheduled(); len(got) != 0 {
		t.Fatalf("overtaken create scheduled retries: %v", got)
	}
	if e.QueueLen() != 1 {
		t.Fatalf("queue len = %d, want the delete", e.QueueLen())
	}

	e.ProcessQueue(ctx)
	if _, ok := ix.doc("a"); ok {
		t.Error("document resurrected")
	}
	if rec, _ := e.Record("a"); rec.Status != record.StatusDeleted {
		t.Errorf("status = %q, want deleted", rec.Status)
	}
	if len(e.DeadLetters()) != 0 {
		t.Errorf("dead letters = %v", e.DeadLetters())
	}
}

func TestRealtime_DeleteDuringFailingCreateWins(t *testing.T) {
	ix := &interleavingIndexer{fakeIndexer: newFakeIndexer(), fail: true}
	e, timers := newEngine(t, ix, realtimeConfig())
	ctx := context.Background()
	ix.hook = func() {
		if res := e.OnDelete(ctx, "a", document.TypeTask); !res.Success {
			t.Errorf("delete result = %+v", res)
		}
	}

	if res := e.OnCreate(ctx, newDoc("a", "Alpha")); res.Success {
		t.Fatalf("create result = %+v", res)
	}
	if got := timers.scheduled(); len(got) != 0 {
		t.Fatalf("overtaken create scheduled retries: %v", got)
	}
	if rec, _ := e.Record("a"); rec.Status != record.StatusDeleted {
		t.Errorf("status = %q, want deleted", rec.Status)
	}
	if len(e.DeadLetters()) != 0 {
		t.Errorf("dead letters = %v", e.DeadLetters())
	}
}

func TestQueued_UpdateDuringSucceedingCreateKeepsPending(t *testing.T) {
	ix := &interleavingIndexer{fakeIndexer: newFakeIndexer()}
	e, _ := newEngine(t, ix, queuedConfig())
	ctx := context.Background()
	ix.hook = func() { e.OnUpdate(ctx, newDoc("a", "Beta")) }

	e.OnCreate(ctx, newDoc("a", "Alpha"))
	e.ProcessQueue(ctx)
	if rec, _ := e.Record("a"); rec.Status != record.StatusPending {
		t.Fatalf("status = %q, want pending until the update lands", rec.Status)
	}
	e.ProcessQueue(ctx)
	if d, _ := ix.doc("a"); d.Title != "Beta" {
		t.Errorf("title = %q, want Beta", d.Title)
	}
	if rec, _ := e.Record("a"); rec.Status != record.StatusSynced {
		t.Errorf("status = %q, want synced", rec.Status)
	}
}

func TestBulkSync_SupersedesQueuedAndRetrying(t *testing.T) {
	ix := newFakeIndexer()
	ix.failures["a"] = 1
	e, timers := newEngine(t, ix, queuedConfig())
	ctx := context.Background()

	e.OnCreate(ctx, newDoc("a", "Old"))
	e.ProcessQueue(ctx)
	if len(timers.scheduled()) != 1 {
		t.Fatalf("retries = %v, want one", timers.scheduled())
	}
	e.OnUpdate(ctx, newDoc("b", "Old"))

	docs := []document.Document{*newDoc("a", "New"), *newDoc("b", "New")}
	if _, err := e.BulkSync(ctx, docs); err != nil {
		t.Fatalf("BulkSync: %v", err)
	}
	if e.QueueLen() != 0 {
		t.Errorf("queue len = %d, want 0", e.QueueLen())
	}
	if n := e.pendingRetries(); n != 0 {
		t.Errorf("pending retries = %d, want 0", n)
	}

	timers.fire(t, 0)
	e.ProcessQueue(ctx)
	for _, id := range []string{"a", "b"} {
		if d, _ := ix.doc(id); d.Title != "New" {
			t.Errorf("%s title = %q, want New", id, d.Title)
		}
		if rec, _ := e.Record(id); rec.Status != record.StatusSynced {
			t.Errorf("%s status = %q, want synced", id, rec.Status)
		}
	}
}

func TestBulkSync_FailedItemsCanBeRetried(t *testing.T) {
	ix := newFakeIndexer()
	ix.failures["c"] = 1
	e, _ := newEngine(t, ix, queuedConfig())
	ctx := context.Background()

	if _, err := e.BulkSync(ctx, []document.Document{*newDoc("c", "Gamma")}); err != nil {
		t.Fatalf("BulkSync: %v", err)
	}
	if got := e.DeadLetters(); len(got) != 1 || got[0] != "c" {
		t.Fatalf("dead letters = %v", got)
	}

	res := e.RetryFailed(ctx)
	if res.Success != 1 {
		t.Fatalf("retry result = %+v", res)
	}
	if d, _ := ix.doc("c"); d.Title != "Gamma" {
		t.Errorf("title = %q", d.Title)
	}
	if rec, _ := e.Record("c"); rec.Status != record.StatusSynced {
		t.Errorf("status = %q, want synced", rec.Status)
	}
}

func TestRetryFailed_AfterNewerEvent(t *testing.T) {
	ix := newFakeIndexer()
	ix.failures["a"] = 1
	cfg := queuedConfig()
	cfg.MaxRetries = 0
	e, _ := newEngine(t, ix, cfg)
	ctx := context.Background()

	e.OnCreate(ctx, newDoc("a", "Alpha"))
	e.ProcessQueue(ctx)
	if len(e.DeadLetters()) != 1 {
		t.Fatalf("dead letters = %v", e.DeadLetters())
	}
	e.OnDelete(ctx, "a", document.TypeTask)

	if res := e.RetryFailed(ctx, WithResetBudget()); res.Total() != 0 {
		t.Errorf("retry result = %+v, want nothing retried", res)
	}
	e.ProcessQueue(ctx)
	if _, ok := ix.doc("a"); ok {
		t.Error("document resurrected")
	}
}

func TestSubmit_RejectionNotifiesListeners(t *testing.T) {
	ix := newFakeIndexer()
	e, _ := newEngine(t, ix, queuedConfig())

	var got []event.Result
	e.AddListener(event.Create, func(_ context.Context, _ event.Event, r event.Result) error {
		got = append(got, r)
		return nil
	})
	e.AddListener(event.Delete, func(_ context.Context, _ event.Event, r event.Result) error {
		got = append(got, r)
		return nil
	})

	e.OnCreate(context.Background(), newDoc("a", ""))
	e.OnDelete(context.Background(), "", document.TypeTask)
	if len(got) != 2 {
		t.Fatalf("listener calls = %d, want 2", len(got))
	}
	for _, r := range got {
		if r.Success || !errors.Is(r.Cause, domain.ErrInvalidDocument) {
			t.Errorf("result = %+v", r)
		}
	}
}
