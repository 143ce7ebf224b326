package memory

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/searchsync/internal/db"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
)

// Search runs a case-insensitive substring match over the searchable fields,
// then filters, sorts on a single field and paginates.
func (s *Store) Search(_ context.Context, index string, q request.Query) (result.Result, error) {
	start := time.Now()
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return result.Result{}, db.SearchOp(db.OpSearch, err)
	}
	docs, err := s.snapshot(db.OpSearch, index)
	if err != nil {
		return result.Result{}, err
	}

	needle := strings.ToLower(q.Text)
	var hits []result.Hit
	for i := range docs {
		d := &docs[i]
		if !q.Filters.Matches(d) {
			continue
		}
		score, ok := score(d, needle)
		if !ok {
			continue
		}
		hits = append(hits, result.Hit{Document: *d, Score: score})
	}

	sortHits(hits, q)

	var aggs map[string][]result.Bucket
	if len(q.Aggregations) > 0 {
		aggs = aggregate(hits, q.Aggregations)
	}

	total := int64(len(hits))
	page := paginate(hits, q.Offset(), q.PageSize)
	if q.Highlight && needle != "" {
		for i := range page {
			page[i].Highlights = highlight(&page[i].Document, needle, q.FragmentSize)
		}
	}

	res := result.New(page, total, q.Page, q.PageSize, 0)
	res.Aggregations = aggs
	if q.Suggest && q.Text != "" {
		res.Suggestions = suggestFrom(docs, needle, request.DefaultSuggestSize)
	}
	res.Took = time.Since(start)
	return res, nil
}

// Suggest returns distinct titles with a word starting with prefix.
func (s *Store) Suggest(_ context.Context, index, prefix string, size int) ([]string, error) {
	docs, err := s.snapshot(db.OpSuggest, index)
	if err != nil {
		return nil, err
	}
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return []string{}, nil
	}
	return suggestFrom(docs, prefix, request.ClampSuggestSize(size)), nil
}

// Count returns the number of documents matching f.
func (s *Store) Count(_ context.Context, index string, f filter.Filters) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, db.SearchOp(db.OpCount, err)
	}
	docs, err := s.snapshot(db.OpCount, index)
	if err != nil {
		return 0, err
	}
	var n int64
	for i := range docs {
		if f.Matches(&docs[i]) {
			n++
		}
	}
	return n, nil
}

func searchableText(d *document.Document, field string) string {
	switch field {
	case document.FieldTitle:
		return d.Title
	case document.FieldContent:
		return d.Content
	case document.FieldDescription:
		return d.Description
	}
	return ""
}

// score sums the weights of fields containing needle. An empty needle matches with score 1.
func score(d *document.Document, needle string) (float64, bool) {
	if needle == "" {
		return 1, true
	}
	var total float64
	for _, f := range document.SearchableFields() {
		if strings.Contains(strings.ToLower(searchableText(d, f)), needle) {
			total += document.FieldWeight(f)
		}
	}
	return total, total > 0
}

func sortHits(hits []result.Hit, q request.Query) {
	sf, ok := q.PrimarySort()
	if !ok {
		sort.SliceStable(hits, func(i, j int) bool {
			a, b := &hits[i], &hits[j]
			if a.Score != b.Score {
				return a.Score > b.Score
			}
			if !a.Document.CreatedAt.Equal(b.Document.CreatedAt) {
				return a.Document.CreatedAt.After(b.Document.CreatedAt)
			}
			return a.Document.ID < b.Document.ID
		})
		return
	}
	desc := sf.Direction == request.Desc
	sort.SliceStable(hits, func(i, j int) bool {
		c := compareField(&hits[i].Document, &hits[j].Document, sf.Field)
		if c == 0 {
			return hits[i].Document.ID < hits[j].Document.ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareField(a, b *document.Document, field string) int {
	switch field {
	case document.FieldTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case document.FieldCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case document.FieldUpdatedAt:
		return compareOptionalTime(a.UpdatedAt, b.UpdatedAt)
	}
	return 0
}

// compareOptionalTime orders missing timestamps first.
func compareOptionalTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func paginate(hits []result.Hit, offset, size int) []result.Hit {
	if offset >= len(hits) {
		return nil
	}
	end := offset + size
	if end > len(hits) {
		end = len(hits)
	}
	out := make([]result.Hit, end-offset)
	copy(out, hits[offset:end])
	return out
}

// highlight extracts one snippet per matching field, centered on the first match.
func highlight(d *document.Document, needle string, size int) map[string][]string {
	out := make(map[string][]string)
	for _, f := range document.SearchableFields() {
		if snip, ok := snippet(searchableText(d, f), needle, size); ok {
			out[f] = []string{snip}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func snippet(text, needle string, size int) (string, bool) {
	lower, offsets := lowerWithOffsets(text)
	i := strings.Index(lower, needle)
	if i < 0 {
		return "", false
	}
	pos, end := offsets[i], offsets[i+len(needle)]

	from := pos - (size-(end-pos))/2
	if from < 0 {
		from = 0
	}
	to := from + size
	if to < end {
		to = end
	}
	if to > len(text) {
		to = len(text)
	}
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}

	var b strings.Builder
	if from > 0 {
		b.WriteString("...")
	}
	b.WriteString(text[from:pos])
	b.WriteString(result.HighlightPre)
	b.WriteString(text[pos:end])
	b.WriteString(result.HighlightPost)
	b.WriteString(text[end:to])
	if to < len(text) {
		b.WriteString("...")
	}
	return b.String(), true
}

// lowerWithOffsets lowercases text like strings.ToLower and maps each byte
// of the result to the offset of the source rune in text. Lowercasing can
// change a rune's byte length, as with U+0130. The trailing entry is len(text).
func lowerWithOffsets(text string) (string, []int) {
	var b strings.Builder
	b.Grow(len(text))
	offsets := make([]int, 0, len(text)+1)
	for i, r := range text {
		b.WriteRune(unicode.ToLower(r))
		for len(offsets) < b.Len() {
			offsets = append(offsets, i)
		}
	}
	return b.String(), append(offsets, len(text))
}

func aggregate(hits []result.Hit, fields []string) map[string][]result.Bucket {
	out := make(map[string][]result.Bucket, len(fields))
	for _, f := range fields {
		counts := make(map[string]int64)
		for i := range hits {
			for _, v := range keywordValues(&hits[i].Document, f) {
				if v != "" {
					counts[v]++
				}
			}
		}
		buckets := make([]result.Bucket, 0, len(counts))
		for k, n := range counts {
			buckets = append(buckets, result.Bucket{Key: k, Count: n})
		}
		result.SortBuckets(buckets)
		out[f] = buckets
	}
	return out
}

func keywordValues(d *document.Document, field string) []string {
	switch field {
	case document.FieldType:
		return []string{string(d.Type)}
	case document.FieldStatus:
		return []string{d.Status}
	case document.FieldCategory:
		return []string{d.Category}
	case document.FieldAuthor:
		return []string{d.Author}
	case document.FieldTags:
		return d.Tags
	}
	return nil
}

func suggestFrom(docs []document.Document, prefix string, size int) []string {
	seen := make(map[string]bool)
	var out []string
	for i := range docs {
		title := docs[i].Title
		if seen[title] || !hasWordPrefix(title, prefix) {
			continue
		}
		seen[title] = true
		out = append(out, title)
	}
	sort.Strings(out)
	if len(out) > size {
		out = out[:size]
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func hasWordPrefix(s, prefix string) bool {
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if strings.HasPrefix(w, prefix) {
			return true
		}
	}
	return false
}
