package meili

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"github.com/kailas-cloud/searchsync/internal/db"
	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
)

// avgWordLen converts a character fragment budget to a crop length in words.
const avgWordLen = 6

type searchResponse struct {
	Hits               []json.RawMessage           `json:"hits"`
	TotalHits          *int64                      `json:"totalHits"`
	EstimatedTotalHits int64                       `json:"estimatedTotalHits"`
	FacetDistribution  map[string]map[string]int64 `json:"facetDistribution"`
}

func (r *searchResponse) total() int64 {
	if r.TotalHits != nil {
		return *r.TotalHits
	}
	return r.EstimatedTotalHits
}

type rawHit struct {
	wireDoc
	Formatted    map[string]any `json:"_formatted"`
	RankingScore float64        `json:"_rankingScore"`
}

// Search translates q into one page-mode search request. Suggestions, when
// asked for, cost a second request.
func (s *Store) Search(ctx context.Context, index string, q request.Query) (result.Result, error) {
	start := time.Now()
	c, err := s.conn(db.OpSearch)
	if err != nil {
		return result.Result{}, err
	}
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return result.Result{}, domain.SearchError(db.OpSearch, err)
	}

	req := buildSearchRequest(q)
	raw, err := c.Search(index, req)
	if err != nil {
		return result.Result{}, wrapErr(domain.KindSearch, db.OpSearch, err)
	}
	var resp searchResponse
	if err := decodeJSON(raw, &resp); err != nil {
		return result.Result{}, domain.SearchError(db.OpSearch, err)
	}

	hits := make([]result.Hit, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		var rh rawHit
		if err := json.Unmarshal(h, &rh); err != nil {
			return result.Result{}, domain.SearchError(db.OpSearch, fmt.Errorf("decode hit: %w", err))
		}
		hit := result.Hit{Document: fromWire(&rh.wireDoc), Score: rh.RankingScore}
		if q.Highlight && q.Text != "" {
			hit.Highlights = collectHighlights(rh.Formatted)
		}
		hits = append(hits, hit)
	}

	res := result.New(hits, resp.total(), q.Page, q.PageSize, 0)
	if len(q.Aggregations) > 0 {
		res.Aggregations = make(map[string][]result.Bucket, len(q.Aggregations))
		for _, field := range q.Aggregations {
			dist := resp.FacetDistribution[field]
			buckets := make([]result.Bucket, 0, len(dist))
			for k, n := range dist {
				buckets = append(buckets, result.Bucket{Key: k, Count: n})
			}
			result.SortBuckets(buckets)
			res.Aggregations[field] = buckets
		}
	}
	if q.Suggest && q.Text != "" {
		if sugg, err := s.Suggest(ctx, index, q.Text, request.DefaultSuggestSize); err == nil {
			res.Suggestions = sugg
		}
	}
	res.Took = time.Since(start)
	return res, nil
}

// Suggest runs a title-only prefix search and returns distinct titles.
func (s *Store) Suggest(_ context.Context, index, prefix string, size int) ([]string, error) {
	c, err := s.conn(db.OpSuggest)
	if err != nil {
		return nil, err
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []string{}, nil
	}
	size = request.ClampSuggestSize(size)

	raw, err := c.Search(index, &meilisearch.SearchRequest{
		Query:                prefix,
		AttributesToSearchOn: []string{document.FieldTitle},
		AttributesToRetrieve: []string{document.FieldTitle},
		Limit:                int64(size * 2),
	})
	if err != nil {
		return nil, wrapErr(domain.KindSearch, db.OpSuggest, err)
	}
	var resp struct {
		Hits []struct {
			Title string `json:"title"`
		} `json:"hits"`
	}
	if err := decodeJSON(raw, &resp); err != nil {
		return nil, domain.SearchError(db.OpSuggest, err)
	}

	terms := strings.Fields(strings.ToLower(prefix))
	last := terms[len(terms)-1]
	out := []string{}
	seen := make(map[string]bool)
	for _, h := range resp.Hits {
		if len(out) == size {
			break
		}
		if h.Title == "" || seen[h.Title] || !hasWordPrefix(h.Title, last) {
			continue
		}
		seen[h.Title] = true
		out = append(out, h.Title)
	}
	return out, nil
}

// Count returns the exact number of documents matching f.
func (s *Store) Count(_ context.Context, index string, f filter.Filters) (int64, error) {
	c, err := s.conn(db.OpCount)
	if err != nil {
		return 0, err
	}
	if err := f.Validate(); err != nil {
		return 0, domain.SearchError(db.OpCount, err)
	}
	req := &meilisearch.SearchRequest{
		Page:                 1,
		HitsPerPage:          1,
		AttributesToRetrieve: []string{primaryKey},
	}
	if expr := buildFilter(f); expr != "" {
		req.Filter = expr
	}
	raw, err := c.Search(index, req)
	if err != nil {
		return 0, wrapErr(domain.KindSearch, db.OpCount, err)
	}
	var resp searchResponse
	if err := decodeJSON(raw, &resp); err != nil {
		return 0, domain.SearchError(db.OpCount, err)
	}
	return resp.total(), nil
}

func buildSearchRequest(q request.Query) *meilisearch.SearchRequest {
	req := &meilisearch.SearchRequest{
		Query:            q.Text,
		Page:             int64(q.Page),
		HitsPerPage:      int64(q.PageSize),
		ShowRankingScore: true,
	}
	if expr := buildFilter(q.Filters); expr != "" {
		req.Filter = expr
	}
	if sf, ok := q.PrimarySort(); ok {
		req.Sort = []string{sf.Field + ":" + string(sf.Direction)}
	} else if q.IsMatchAll() {
		req.Sort = []string{document.FieldCreatedAt + ":desc"}
	}
	if len(q.Aggregations) > 0 {
		req.Facets = q.Aggregations
	}
	if q.Highlight && q.Text != "" {
		req.AttributesToHighlight = document.SearchableFields()
		req.AttributesToCrop = []string{document.FieldContent, document.FieldDescription}
		req.CropLength = int64(max(1, q.FragmentSize/avgWordLen))
		req.CropMarker = "..."
		req.HighlightPreTag = result.HighlightPre
		req.HighlightPostTag = result.HighlightPost
	}
	return req
}

// buildFilter renders Filters as a Meilisearch filter expression.
func buildFilter(f filter.Filters) string {
	var parts []string
	if len(f.Types) > 0 {
		vals := make([]string, len(f.Types))
		for i, t := range f.Types {
			vals[i] = string(t)
		}
		parts = append(parts, inClause(document.FieldType, vals))
	}
	if len(f.Statuses) > 0 {
		parts = append(parts, inClause(document.FieldStatus, f.Statuses))
	}
	if len(f.Categories) > 0 {
		parts = append(parts, inClause(document.FieldCategory, f.Categories))
	}
	if len(f.Tags) > 0 {
		parts = append(parts, inClause(document.FieldTags, f.Tags))
	}
	if f.Author != "" {
		parts = append(parts, document.FieldAuthor+" = "+quote(f.Author))
	}
	if f.AuthorID != "" {
		parts = append(parts, document.FieldAuthorID+" = "+quote(f.AuthorID))
	}
	if r := f.DateRange; r != nil {
		if r.From != nil {
			parts = append(parts, r.Field+" >= "+strconv.FormatInt(r.From.UnixMilli(), 10))
		}
		if r.To != nil {
			parts = append(parts, r.Field+" <= "+strconv.FormatInt(r.To.UnixMilli(), 10))
		}
	}
	return strings.Join(parts, " AND ")
}

func inClause(field string, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	return fmt.Sprintf("%s IN [%s]", field, strings.Join(quoted, ", "))
}

var filterEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(s string) string { return `"` + filterEscaper.Replace(s) + `"` }

func collectHighlights(formatted map[string]any) map[string][]string {
	var out map[string][]string
	for _, f := range document.SearchableFields() {
		v, ok := formatted[f].(string)
		if !ok || !strings.Contains(v, result.HighlightPre) {
			continue
		}
		if out == nil {
			out = make(map[string][]string)
		}
		out[f] = []string{v}
	}
	return out
}

func hasWordPrefix(title, prefix string) bool {
	for _, w := range strings.Fields(strings.ToLower(title)) {
		if strings.HasPrefix(w, prefix) {
			return true
		}
	}
	return false
}
