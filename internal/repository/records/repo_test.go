package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	domdoc "github.com/kailas-cloud/searchsync/internal/domain/document"
)

var columns = []string{
	"id", "type", "title", "content", "description", "author", "author_id", "tags",
	"category", "status", "created_at", "updated_at", "metadata",
}

func strPtr(s string) *string { return &s }

func row(id string, created time.Time) []any {
	return []any{
		id, "task", "Title " + id, "Body", nil, strPtr("Ann"), nil, []string{"b", "a"},
		nil, strPtr("open"), created, (*time.Time)(nil), []byte(`{"priority":2}`),
	}
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestStream_KeysetPages(t *testing.T) {
	mock := newMock(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC)

	mock.ExpectQuery("SELECT id, type").
		WithArgs(time.Unix(0, 0).UTC(), "", 2).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(row("a", base)...).
			AddRow(row("b", base.Add(time.Second))...))
	// The cursor keeps microsecond precision from the last raw row.
	mock.ExpectQuery("SELECT id, type").
		WithArgs(base.Add(time.Second), "b", 2).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(row("c", base.Add(2*time.Second))...))

	repo := New(mock, Config{BatchSize: 2}, nil)
	var batches [][]domdoc.Document
	n, err := repo.Stream(context.Background(), func(b []domdoc.Document) error {
		batches = append(batches, b)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if n != 3 || len(batches) != 2 {
		t.Fatalf("n = %d, batches = %d", n, len(batches))
	}

	d := batches[0][0]
	if d.ID != "a" || d.Type != domdoc.TypeTask || d.Author != "Ann" || d.Status != "open" {
		t.Errorf("document = %+v", d)
	}
	if d.Tags[0] != "a" || d.Tags[1] != "b" {
		t.Errorf("tags not normalized: %v", d.Tags)
	}
	if d.CreatedAt.Nanosecond() != 123000000 {
		t.Errorf("createdAt not truncated to ms: %v", d.CreatedAt)
	}
	if d.Metadata["priority"] != float64(2) {
		t.Errorf("metadata = %v", d.Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStream_SkipsUnreadableRows(t *testing.T) {
	mock := newMock(t)
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	bad := row("x", created)
	bad[1] = "invoice"

	mock.ExpectQuery("SELECT id, type").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), 10).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(bad...).
			AddRow(row("y", created)...))

	docs, err := New(mock, Config{BatchSize: 10}, nil).All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "y" {
		t.Errorf("docs = %+v", docs)
	}
}

func TestStream_Errors(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("relation does not exist"))

		_, err := New(mock, Config{}, nil).Stream(context.Background(), func([]domdoc.Document) error { return nil })
		if err == nil {
			t.Fatal("expected query error")
		}
	})

	t.Run("consumer", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("SELECT").
			WillReturnRows(pgxmock.NewRows(columns).AddRow(row("a", time.Now().UTC())...))

		sentinel := errors.New("index down")
		_, err := New(mock, Config{}, nil).Stream(context.Background(), func([]domdoc.Document) error {
			return sentinel
		})
		if !errors.Is(err, sentinel) {
			t.Errorf("err = %v, want consumer error", err)
		}
	})
}

func TestNew_CustomQuery(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("FROM items").
		WillReturnRows(pgxmock.NewRows(columns))

	repo := New(mock, Config{Query: "SELECT * FROM items WHERE (created_at, id) > ($1, $2) LIMIT $3"}, nil)
	n, err := repo.Stream(context.Background(), func([]domdoc.Document) error { return nil })
	if err != nil || n != 0 {
		t.Errorf("n = %d, err = %v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
