package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/searchsync/internal/db"
	"github.com/kailas-cloud/searchsync/internal/db/dbtest"
	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
)

func TestContract(t *testing.T) {
	dbtest.RunContract(t, func(*testing.T) db.Adapter { return New() }, dbtest.Options{})
}

func TestClosedStore_FailsWithConnectionError(t *testing.T) {
	s := New()
	ctx := context.Background()

	if s.Ping(ctx) {
		t.Fatal("Ping before Connect should be false")
	}
	err := s.IndexDocument(ctx, "idx", dbtest.Doc(t, "x", document.TypeTask, "t", "c"))
	if !errors.Is(err, domain.ErrConnection) || !errors.Is(err, domain.ErrNotConnected) {
		t.Errorf("IndexDocument on closed store = %v", err)
	}
	if !domain.IsRetryable(err) {
		t.Error("connection errors must be retryable")
	}
	if _, err := s.Search(ctx, "idx", request.Query{}); !errors.Is(err, domain.ErrConnection) {
		t.Errorf("Search on closed store = %v", err)
	}
}

func TestCloseConnect_KeepsData(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Connect(ctx)
	if err := s.IndexDocument(ctx, "idx", dbtest.Doc(t, "keep", document.TypePage, "t", "c")); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	_ = s.Close()
	_ = s.Close()
	_ = s.Connect(ctx)

	if _, err := s.GetDocument(ctx, "idx", "keep"); err != nil {
		t.Errorf("GetDocument after reconnect: %v", err)
	}
}

func TestIndexDocument_RejectsInvalid(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Connect(ctx)

	err := s.IndexDocument(ctx, "idx", document.Document{ID: "x"})
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Fatalf("error = %v, want ErrInvalidDocument", err)
	}
	if domain.IsRetryable(err) {
		t.Error("invalid documents must not be retryable")
	}
}

func TestSearch_MatchAllOrdersNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Connect(ctx)

	older := dbtest.Doc(t, "old", document.TypeTask, "Old", "c")
	newer := dbtest.Doc(t, "new", document.TypeTask, "New", "c")
	newer.CreatedAt = older.CreatedAt.Add(time.Second)
	_ = s.IndexDocument(ctx, "idx", older)
	_ = s.IndexDocument(ctx, "idx", newer)

	res, err := s.Search(ctx, "idx", request.Query{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if ids := res.IDs(); len(ids) != 2 || ids[0] != "new" {
		t.Errorf("IDs = %v, want new first", ids)
	}
}

func TestSearch_TitleOutranksContent(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Connect(ctx)

	_ = s.IndexDocument(ctx, "idx", dbtest.Doc(t, "body", document.TypeArticle, "Notes", "about kafka"))
	_ = s.IndexDocument(ctx, "idx", dbtest.Doc(t, "head", document.TypeArticle, "Kafka guide", "intro"))

	res, _ := s.Search(ctx, "idx", request.Query{Text: "KAFKA"})
	if ids := res.IDs(); len(ids) != 2 || ids[0] != "head" {
		t.Errorf("IDs = %v, want head first", ids)
	}
}

func TestSearch_SuggestionsAttached(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Connect(ctx)
	_ = s.IndexDocument(ctx, "idx", dbtest.Doc(t, "1", document.TypePage, "Roadmap 2025", "plan"))

	res, _ := s.Search(ctx, "idx", request.Query{Text: "road", Suggest: true})
	if len(res.Suggestions) != 1 || res.Suggestions[0] != "Roadmap 2025" {
		t.Errorf("Suggestions = %v", res.Suggestions)
	}
}

func TestSnippet(t *testing.T) {
	text := strings.Repeat("a", 50) + " revenue " + strings.Repeat("b", 50)
	got, ok := snippet(text, "revenue", 20)
	if !ok {
		t.Fatal("expected snippet")
	}
	if !strings.Contains(got, "<em>revenue</em>") {
		t.Errorf("snippet = %q", got)
	}
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Errorf("snippet should be elided on both sides: %q", got)
	}
	if _, ok := snippet("nothing here", "revenue", 20); ok {
		t.Error("no match should give no snippet")
	}
}

func TestSnippet_LowercaseChangesLength(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		needle string
		want   string
	}{
		{"match on dotted capital", "İstanbul office", "istanbul", "<em>İstanbul</em> office"},
		{"match after dotted capital", "İİİ quarterly revenue", "revenue", "İİİ quarterly <em>revenue</em>"},
		{"kelvin sign", "200 \u212a limit", "200 k", "<em>200 \u212a</em> limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := snippet(tt.text, tt.needle, 100)
			if !ok {
				t.Fatal("expected snippet")
			}
			if got != tt.want {
				t.Errorf("snippet = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSearch_HighlightsDottedCapital(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Connect(ctx)
	_ = s.IndexDocument(ctx, "idx", dbtest.Doc(t, "d1", document.TypeArticle, "İstanbul roadmap", "plans"))

	res, err := s.Search(ctx, "idx", request.Query{Text: "istanbul", Highlight: true, FragmentSize: 100})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(res.Hits))
	}
	got := res.Hits[0].Highlights[document.FieldTitle]
	if len(got) != 1 || got[0] != "<em>İstanbul</em> roadmap" {
		t.Errorf("title highlight = %v", got)
	}
}

func TestSuggest_EmptyPrefix(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Connect(ctx)
	got, err := s.Suggest(ctx, "idx", "  ", 5)
	if err != nil || len(got) != 0 {
		t.Errorf("Suggest(blank) = %v, %v", got, err)
	}
}
