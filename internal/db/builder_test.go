package db

import (
	"slices"
	"strings"
	"testing"

	"github.com/kailas-cloud/searchsync/internal/domain/document"
)

func TestIndexBuilder_Simple(t *testing.T) {
	idx := NewIndex("test-idx").
		Prefix("doc:").
		Tag("category").
		Numeric("price").
		MustBuild()

	if idx.Name != "test-idx" {
		t.Errorf("name = %q, want test-idx", idx.Name)
	}
	if idx.StorageType != StorageHash {
		t.Errorf("storage = %q, want HASH", idx.StorageType)
	}
	if len(idx.Fields) != 2 {
		t.Fatalf("fields count = %d, want 2", len(idx.Fields))
	}
	if idx.Fields[0].Name != "category" || idx.Fields[0].Type != IndexFieldTag {
		t.Errorf("field[0] = %+v, want category TAG", idx.Fields[0])
	}
	if idx.Fields[1].Name != "price" || idx.Fields[1].Type != IndexFieldNumeric {
		t.Errorf("field[1] = %+v, want price NUMERIC", idx.Fields[1])
	}
}

func TestIndexBuilder_TextWeightAndSortable(t *testing.T) {
	idx := NewIndex("w-idx").
		OnJSON().
		Text("title", 3).Sortable().
		Text("body", 1).
		Date("createdAt").Sortable().
		MustBuild()

	if idx.StorageType != StorageJSON {
		t.Errorf("storage = %q, want JSON", idx.StorageType)
	}
	if idx.Fields[0].Weight != 3 || !idx.Fields[0].Sortable {
		t.Errorf("title = %+v", idx.Fields[0])
	}
	if idx.Fields[1].Sortable {
		t.Error("body should not be sortable")
	}
	if !slices.Equal(idx.SortFields(), []string{"title", "createdAt"}) {
		t.Errorf("SortFields() = %v", idx.SortFields())
	}
	if !slices.Equal(idx.TextFields(), []string{"title", "body"}) {
		t.Errorf("TextFields() = %v", idx.TextFields())
	}
	if !slices.Equal(idx.FilterFields(), []string{"createdAt"}) {
		t.Errorf("FilterFields() = %v", idx.FilterFields())
	}
}

func TestIndexBuilder_TagOptions(t *testing.T) {
	idx := NewIndex("tag-idx").
		Prefix("t:").
		TagWithOpts("tags", "|", true).
		MustBuild()

	f := idx.Fields[0]
	if f.TagSeparator != "|" {
		t.Errorf("separator = %q, want |", f.TagSeparator)
	}
	if !f.TagCaseSensitive {
		t.Error("expected TagCaseSensitive=true")
	}
}

func TestIndexBuilder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder func() (*IndexDefinition, error)
		wantErr string
	}{
		{
			name: "empty name",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("").Tag("x").Build()
			},
			wantErr: "index name is required",
		},
		{
			name: "no fields",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").Build()
			},
			wantErr: "at least one field",
		},
		{
			name: "negative weight",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").Text("t", -1).Build()
			},
			wantErr: "negative weight",
		},
		{
			name: "invalid characters",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx with spaces").Tag("x").Build()
			},
			wantErr: "invalid characters",
		},
		{
			name: "duplicate fields",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").Tag("f").Numeric("f").Build()
			},
			wantErr: "duplicate field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got error %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestCanonicalIndex(t *testing.T) {
	idx, err := CanonicalIndex("documents")
	if err != nil {
		t.Fatalf("CanonicalIndex: %v", err)
	}
	if idx.Language != LanguageMixedScript {
		t.Errorf("language = %q", idx.Language)
	}
	if !slices.Equal(idx.Prefixes, []string{"documents:"}) {
		t.Errorf("prefixes = %v", idx.Prefixes)
	}
	for _, f := range document.SearchableFields() {
		fd, ok := idx.Field(f)
		if !ok || fd.Type != IndexFieldText {
			t.Errorf("searchable field %q = %+v, %v", f, fd, ok)
		}
	}
	for _, f := range document.DateFields() {
		fd, ok := idx.Field(f)
		if !ok || fd.Type != IndexFieldDate || !fd.Sortable {
			t.Errorf("date field %q = %+v, %v", f, fd, ok)
		}
	}
	title, _ := idx.Field(document.FieldTitle)
	content, _ := idx.Field(document.FieldContent)
	if title.Weight <= content.Weight {
		t.Errorf("title weight %v should exceed content %v", title.Weight, content.Weight)
	}
}

func TestIndexDefinition_String(t *testing.T) {
	idx := NewIndex("my-idx").
		Prefix("doc:").
		Language("chinese").
		Tag("cat").
		Date("createdAt").Sortable().
		MustBuild()

	s := idx.String()
	if !strings.HasPrefix(s, "FT.CREATE my-idx") {
		t.Errorf("expected FT.CREATE prefix, got %q", s)
	}
	for _, want := range []string{"PREFIX 1 doc:", "LANGUAGE chinese", "createdAt NUMERIC SORTABLE"} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %q in %q", want, s)
		}
	}
}
