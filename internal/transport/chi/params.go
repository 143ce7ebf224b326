package chi

import (
	"errors"
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
)

// bindSearchParams decodes the search query string the way generated
// oapi-codegen wrappers do: one BindQueryParameter call per parameter.
func bindSearchParams(r *http.Request) (SearchParams, error) {
	var p SearchParams
	query := r.URL.Query()

	binds := []struct {
		name string
		dest any
	}{
		{"q", &p.Q},
		{"type", &p.Type},
		{"status", &p.Status},
		{"category", &p.Category},
		{"tags", &p.Tags},
		{"author", &p.Author},
		{"authorId", &p.AuthorID},
		{"dateField", &p.DateField},
		{"from", &p.From},
		{"to", &p.To},
		{"page", &p.Page},
		{"pageSize", &p.PageSize},
		{"sort", &p.Sort},
		{"highlight", &p.Highlight},
		{"fragmentSize", &p.FragmentSize},
		{"fragments", &p.Fragments},
		{"aggs", &p.Aggs},
		{"suggest", &p.Suggest},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", false, false, b.name, query, b.dest); err != nil {
			return SearchParams{}, errors.New(invalidParam(b.name, err))
		}
	}
	return p, nil
}

// toQuery converts bound parameters into a normalized, validated query.
func (p SearchParams) toQuery() (request.Query, error) {
	q := request.Query{
		Page:         deref(p.Page),
		PageSize:     deref(p.PageSize),
		Highlight:    deref(p.Highlight),
		FragmentSize: deref(p.FragmentSize),
		Fragments:    deref(p.Fragments),
		Suggest:      deref(p.Suggest),
		Filters: filter.Filters{
			Statuses:   deref(p.Status),
			Categories: deref(p.Category),
			Tags:       deref(p.Tags),
			Author:     deref(p.Author),
			AuthorID:   deref(p.AuthorID),
		},
		Text:         deref(p.Q),
		Aggregations: deref(p.Aggs),
	}

	for _, raw := range deref(p.Type) {
		t, err := document.ParseType(raw)
		if err != nil {
			return request.Query{}, err
		}
		q.Filters.Types = append(q.Filters.Types, t)
	}

	if p.From != nil || p.To != nil || p.DateField != nil {
		field := document.FieldCreatedAt
		if p.DateField != nil && *p.DateField != "" {
			field = *p.DateField
		}
		q.Filters.DateRange = &filter.DateRange{Field: field, From: p.From, To: p.To}
	}

	if p.Sort != nil && *p.Sort != "" {
		sort, err := request.ParseSort(*p.Sort)
		if err != nil {
			return request.Query{}, err
		}
		q.Sort = sort
	}

	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return request.Query{}, err
	}
	return q, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
