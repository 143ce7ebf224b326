// Package dbtest holds the behavioural contract every db.Adapter must satisfy.
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/searchsync/internal/db"
	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/document/patch"
	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
)

// Factory returns a fresh, disconnected adapter.
type Factory func(t *testing.T) db.Adapter

// Options tune the suite for backends with eventual visibility.
type Options struct {
	// IndexPrefix isolates runs sharing one backend.
	IndexPrefix string
	// Settle waits after writes before reads; zero for synchronous backends.
	Settle time.Duration
}

// RunContract runs the adapter contract as subtests.
func RunContract(t *testing.T, newAdapter Factory, opts Options) {
	t.Helper()
	if opts.IndexPrefix == "" {
		opts.IndexPrefix = "contract"
	}
	tests := []struct {
		name string
		fn   func(*testing.T, *harness)
	}{
		{"CreateIndexIdempotent", testCreateIndexIdempotent},
		{"RoundTrip", testRoundTrip},
		{"ReplaceByID", testReplaceByID},
		{"DeleteThenGet", testDeleteThenGet},
		{"DeleteAbsent", testDeleteAbsent},
		{"UpdatePatch", testUpdatePatch},
		{"BulkCounts", testBulkCounts},
		{"FilterByType", testFilterByType},
		{"HighlightMatch", testHighlightMatch},
		{"SortAndPaginate", testSortAndPaginate},
		{"Count", testCount},
		{"Suggest", testSuggest},
		{"Aggregations", testAggregations},
		{"DeleteIndexIdempotent", testDeleteIndexIdempotent},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, newAdapter(t), fmt.Sprintf("%s-%d-%d", opts.IndexPrefix, time.Now().UnixNano()%1e6, i), opts)
			tt.fn(t, h)
		})
	}
}

type harness struct {
	a     db.Adapter
	index string
	opts  Options
	ctx   context.Context
}

func newHarness(t *testing.T, a db.Adapter, index string, opts Options) *harness {
	t.Helper()
	ctx := context.Background()
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !a.IsConnected() || !a.Ping(ctx) {
		t.Fatal("adapter not healthy after Connect")
	}
	def, err := db.CanonicalIndex(index)
	if err != nil {
		t.Fatalf("CanonicalIndex: %v", err)
	}
	if err := a.CreateIndex(ctx, def); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	t.Cleanup(func() {
		_ = a.DeleteIndex(ctx, index)
		_ = a.Close()
	})
	return &harness{a: a, index: index, opts: opts, ctx: ctx}
}

func (h *harness) settle() {
	if h.opts.Settle > 0 {
		time.Sleep(h.opts.Settle)
	}
}

func (h *harness) put(t *testing.T, docs ...document.Document) {
	t.Helper()
	for i := range docs {
		if err := h.a.IndexDocument(h.ctx, h.index, docs[i]); err != nil {
			t.Fatalf("IndexDocument(%s): %v", docs[i].ID, err)
		}
	}
	h.settle()
}

func (h *harness) search(t *testing.T, q request.Query) result.Result {
	t.Helper()
	res, err := h.a.Search(h.ctx, h.index, q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	return res
}

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// Doc builds a valid document for contract tests.
func Doc(t *testing.T, id string, typ document.Type, title, content string, opts ...document.Option) document.Document {
	t.Helper()
	d, err := document.New(id, typ, title, content, base, opts...)
	if err != nil {
		t.Fatalf("document.New(%s): %v", id, err)
	}
	return d
}

func testCreateIndexIdempotent(t *testing.T, h *harness) {
	def, _ := db.CanonicalIndex(h.index)
	if err := h.a.CreateIndex(h.ctx, def); err != nil {
		t.Fatalf("second CreateIndex: %v", err)
	}
	ok, err := h.a.IndexExists(h.ctx, h.index)
	if err != nil || !ok {
		t.Fatalf("IndexExists = %v, %v", ok, err)
	}
}

func testRoundTrip(t *testing.T, h *harness) {
	want := Doc(t, "rt-1", document.TypeArticle, "Round trip", "Body text",
		document.WithDescription("desc"),
		document.WithAuthor("Ann", "u-1"),
		document.WithTags("beta", "alpha"),
		document.WithCategory("eng"),
		document.WithStatus("published"),
		document.WithUpdatedAt(base.Add(90*time.Minute+123*time.Millisecond)),
		document.WithMetadata(map[string]any{"source": "crm", "lang": "en"}),
	)
	h.put(t, want)

	got, err := h.a.GetDocument(h.ctx, h.index, want.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func testReplaceByID(t *testing.T, h *harness) {
	h.put(t, Doc(t, "r-1", document.TypeTask, "First", "one"))
	h.put(t, Doc(t, "r-1", document.TypeTask, "Second", "two"))

	got, err := h.a.GetDocument(h.ctx, h.index, "r-1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Title != "Second" {
		t.Errorf("Title = %q, want Second", got.Title)
	}
	n, err := h.a.Count(h.ctx, h.index, filter.Filters{})
	if err != nil || n != 1 {
		t.Errorf("Count = %d, %v; want 1", n, err)
	}
}

func testDeleteThenGet(t *testing.T, h *harness) {
	h.put(t, Doc(t, "d-1", document.TypePage, "Gone", "soon"))
	if err := h.a.DeleteDocument(h.ctx, h.index, "d-1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	h.settle()
	_, err := h.a.GetDocument(h.ctx, h.index, "d-1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetDocument after delete = %v, want ErrNotFound", err)
	}
}

func testDeleteAbsent(t *testing.T, h *harness) {
	if err := h.a.DeleteDocument(h.ctx, h.index, "never-there"); err != nil {
		t.Errorf("DeleteDocument(absent) = %v", err)
	}
}

func testUpdatePatch(t *testing.T, h *harness) {
	h.put(t, Doc(t, "u-1", document.TypeProject, "Plan", "draft", document.WithStatus("draft")))
	status := "active"
	if err := h.a.UpdateDocument(h.ctx, h.index, "u-1", patch.Patch{Status: &status}); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	h.settle()
	got, err := h.a.GetDocument(h.ctx, h.index, "u-1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Status != "active" || got.Title != "Plan" {
		t.Errorf("after patch = %+v", got)
	}
	err = h.a.UpdateDocument(h.ctx, h.index, "missing", patch.Patch{Status: &status})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdateDocument(missing) = %v, want ErrNotFound", err)
	}
}

func testBulkCounts(t *testing.T, h *harness) {
	docs := []document.Document{
		Doc(t, "b-1", document.TypeFile, "One", "x"),
		Doc(t, "b-2", document.TypeFile, "Two", "y"),
		{ID: "b-bad", Type: document.TypeFile}, // missing title, content, createdAt
	}
	res, err := h.a.BulkIndexDocuments(h.ctx, h.index, docs)
	if err != nil {
		t.Fatalf("BulkIndexDocuments: %v", err)
	}
	if res.Success != 2 || res.Failed != 1 || !res.IsFailed("b-bad") {
		t.Errorf("bulk result = %+v, want 2 ok / 1 failed (b-bad)", res)
	}
	h.settle()
	n, err := h.a.Count(h.ctx, h.index, filter.Filters{})
	if err != nil || n != 2 {
		t.Errorf("Count = %d, %v; want 2", n, err)
	}
}

func testFilterByType(t *testing.T, h *harness) {
	h.put(t,
		Doc(t, "f-1", document.TypeProject, "Apollo", "project body"),
		Doc(t, "f-2", document.TypeArticle, "News", "article body"),
		Doc(t, "f-3", document.TypeArticle, "More news", "article body"),
	)
	res := h.search(t, request.Query{Filters: filter.Filters{Types: []document.Type{document.TypeArticle}}})
	if len(res.Hits) != 2 || res.Total != 2 {
		t.Fatalf("hits = %d total = %d, want 2", len(res.Hits), res.Total)
	}
	for _, hit := range res.Hits {
		if hit.Document.Type != document.TypeArticle {
			t.Errorf("hit %s has type %q", hit.Document.ID, hit.Document.Type)
		}
	}
}

func testHighlightMatch(t *testing.T, h *harness) {
	h.put(t,
		Doc(t, "h-1", document.TypeArticle, "Quarterly Report", "This quarter revenue increased by ten percent."),
		Doc(t, "h-2", document.TypeArticle, "Team offsite", "Agenda and logistics."),
	)
	res := h.search(t, request.Query{Text: "revenue", Highlight: true})
	if len(res.Hits) != 1 || res.Hits[0].Document.ID != "h-1" {
		t.Fatalf("hits = %v, want [h-1]", res.IDs())
	}
	snips := res.Hits[0].Highlights[document.FieldContent]
	if len(snips) == 0 {
		t.Fatalf("no content highlight: %+v", res.Hits[0].Highlights)
	}
	marked := result.HighlightPre + "revenue" + result.HighlightPost
	if !strings.Contains(strings.ToLower(strings.Join(snips, " ")), marked) {
		t.Errorf("snippets %q lack %q", snips, marked)
	}
	if res.Hits[0].Score <= 0 {
		t.Errorf("score = %v, want > 0", res.Hits[0].Score)
	}
}

func testSortAndPaginate(t *testing.T, h *harness) {
	for i := 0; i < 5; i++ {
		d := Doc(t, fmt.Sprintf("s-%d", i), document.TypeTask, fmt.Sprintf("Task %d", i), "work")
		d.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		h.put(t, d)
	}
	q := request.Query{
		Page:     2,
		PageSize: 2,
		Sort:     []request.SortField{{Field: document.FieldCreatedAt, Direction: request.Desc}},
	}
	res := h.search(t, q)
	if res.Total != 5 || res.TotalPages != 3 || res.Page != 2 {
		t.Fatalf("total=%d pages=%d page=%d", res.Total, res.TotalPages, res.Page)
	}
	ids := res.IDs()
	if len(ids) != 2 || ids[0] != "s-2" || ids[1] != "s-1" {
		t.Errorf("page 2 = %v, want [s-2 s-1]", ids)
	}
}

func testCount(t *testing.T, h *harness) {
	h.put(t,
		Doc(t, "c-1", document.TypeUser, "Ann", "profile", document.WithStatus("active")),
		Doc(t, "c-2", document.TypeUser, "Bob", "profile", document.WithStatus("inactive")),
		Doc(t, "c-3", document.TypeComment, "Re", "nice", document.WithStatus("active")),
	)
	n, err := h.a.Count(h.ctx, h.index, filter.Filters{
		Types:    []document.Type{document.TypeUser},
		Statuses: []string{"active"},
	})
	if err != nil || n != 1 {
		t.Errorf("Count = %d, %v; want 1", n, err)
	}
}

func testSuggest(t *testing.T, h *harness) {
	h.put(t,
		Doc(t, "g-1", document.TypePage, "Revenue forecast", "x"),
		Doc(t, "g-2", document.TypePage, "Quarterly revenue", "y"),
		Doc(t, "g-3", document.TypePage, "Hiring plan", "z"),
	)
	got, err := h.a.Suggest(h.ctx, h.index, "reve", 10)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Suggest = %v, want 2 titles", got)
	}
	for _, s := range got {
		if !strings.Contains(strings.ToLower(s), "revenue") {
			t.Errorf("unexpected suggestion %q", s)
		}
	}
}

func testAggregations(t *testing.T, h *harness) {
	h.put(t,
		Doc(t, "a-1", document.TypeArticle, "A", "x", document.WithTags("go")),
		Doc(t, "a-2", document.TypeArticle, "B", "x", document.WithTags("go", "db")),
		Doc(t, "a-3", document.TypeTask, "C", "x"),
	)
	res := h.search(t, request.Query{Aggregations: []string{document.FieldType}})
	buckets := res.Aggregations[document.FieldType]
	if len(buckets) != 2 || buckets[0].Key != "article" || buckets[0].Count != 2 {
		t.Errorf("type buckets = %+v", buckets)
	}
}

func testDeleteIndexIdempotent(t *testing.T, h *harness) {
	if err := h.a.DeleteIndex(h.ctx, h.index); err != nil {
		t.Fatalf("DeleteIndex: %v", err)
	}
	if err := h.a.DeleteIndex(h.ctx, h.index); err != nil {
		t.Fatalf("second DeleteIndex: %v", err)
	}
	ok, err := h.a.IndexExists(h.ctx, h.index)
	if err != nil || ok {
		t.Errorf("IndexExists after delete = %v, %v", ok, err)
	}
}
