package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/searchsync/internal/db"
	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
)

const (
	// minFuzzyTermLen is the shortest term that also gets a Levenshtein-1 alternative.
	minFuzzyTermLen = 4
	// avgWordLen converts a character fragment budget to SUMMARIZE LEN tokens.
	avgWordLen   = 6
	maxAggValues = 50
	jsonRoot     = "$"
)

// Search runs FT.SEARCH plus one FT.AGGREGATE per requested aggregation and an
// optional title-prefix suggestion query, pipelined in one DoMulti round-trip.
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

	query := buildQuery(q.Text, q.Filters)
	cmds := []rueidis.Completed{
		c.B().Arbitrary("FT.SEARCH").Args(buildSearchArgs(index, query, q)...).Build(),
	}
	for _, field := range q.Aggregations {
		cmds = append(cmds, c.B().Arbitrary("FT.AGGREGATE").Args(buildAggregateArgs(index, query, field)...).Build())
	}
	suggestAt := -1
	if q.Suggest && q.Text != "" {
		suggestAt = len(cmds)
		cmds = append(cmds, c.B().Arbitrary("FT.SEARCH").Args(buildSuggestArgs(index, q.Text, request.DefaultSuggestSize)...).Build())
	}

	replies := c.DoMulti(ctx, cmds...)

	raw, err := replies[0].ToArray()
	if err != nil {
		return result.Result{}, wrapErr(domain.KindSearch, db.OpSearch, err)
	}
	hits, total, err := parseSearchResult(raw, q.Highlight && q.Text != "")
	if err != nil {
		return result.Result{}, domain.SearchError(db.OpSearch, err)
	}

	res := result.New(hits, total, q.Page, q.PageSize, 0)
	if len(q.Aggregations) > 0 {
		res.Aggregations = make(map[string][]result.Bucket, len(q.Aggregations))
		for i, field := range q.Aggregations {
			rows, err := replies[1+i].ToArray()
			if err != nil {
				return result.Result{}, wrapErr(domain.KindSearch, db.OpSearch, fmt.Errorf("aggregate %s: %w", field, err))
			}
			res.Aggregations[field] = parseAggregateResult(rows, aggKey(field))
		}
	}
	if suggestAt >= 0 {
		if rows, err := replies[suggestAt].ToArray(); err == nil {
			res.Suggestions = parseTitles(rows, request.DefaultSuggestSize)
		}
	}
	res.Took = time.Since(start)
	return res, nil
}

// Suggest matches title words against prefix.
func (s *Store) Suggest(ctx context.Context, index, prefix string, size int) ([]string, error) {
	c, err := s.conn(db.OpSuggest)
	if err != nil {
		return nil, err
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []string{}, nil
	}
	size = request.ClampSuggestSize(size)
	cmd := c.B().Arbitrary("FT.SEARCH").Args(buildSuggestArgs(index, prefix, size)...).Build()
	raw, err := c.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, wrapErr(domain.KindSearch, db.OpSuggest, err)
	}
	return parseTitles(raw, size), nil
}

// Count returns the number of matches via FT.SEARCH with LIMIT 0 0.
func (s *Store) Count(ctx context.Context, index string, f filter.Filters) (int64, error) {
	c, err := s.conn(db.OpCount)
	if err != nil {
		return 0, err
	}
	if err := f.Validate(); err != nil {
		return 0, domain.SearchError(db.OpCount, err)
	}
	cmd := c.B().Arbitrary("FT.SEARCH").Args(index, buildQuery("", f), "LIMIT", "0", "0", "DIALECT", "2").Build()
	raw, err := c.Do(ctx, cmd).ToArray()
	if err != nil {
		return 0, wrapErr(domain.KindSearch, db.OpCount, err)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, domain.SearchError(db.OpCount, fmt.Errorf("parse count: %w", err))
	}
	return total, nil
}

// --- Query building ---

// buildQuery combines filter clauses and the full-text clause; "*" matches all.
func buildQuery(text string, f filter.Filters) string {
	parts := buildFilter(f)
	if t := buildTextClause(text); t != "" {
		parts = append(parts, t)
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

// buildTextClause searches every term across the text fields; longer terms
// also match with one edit of tolerance.
func buildTextClause(text string) string {
	terms := strings.Fields(text)
	if len(terms) == 0 {
		return ""
	}
	groups := make([]string, 0, len(terms))
	for _, t := range terms {
		e := escapeQuery(t)
		if len([]rune(t)) >= minFuzzyTermLen {
			groups = append(groups, fmt.Sprintf("(%s|%%%s%%)", e, e))
		} else {
			groups = append(groups, e)
		}
	}
	fields := strings.Join(document.SearchableFields(), "|")
	return fmt.Sprintf("@%s:(%s)", fields, strings.Join(groups, " "))
}

// buildFilter translates Filters into AND-joined FT.SEARCH clauses.
func buildFilter(f filter.Filters) []string {
	var parts []string
	if len(f.Types) > 0 {
		vals := make([]string, len(f.Types))
		for i, t := range f.Types {
			vals[i] = string(t)
		}
		parts = append(parts, buildTagFilter(document.FieldType, vals))
	}
	if len(f.Statuses) > 0 {
		parts = append(parts, buildTagFilter(document.FieldStatus, f.Statuses))
	}
	if len(f.Categories) > 0 {
		parts = append(parts, buildTagFilter(document.FieldCategory, f.Categories))
	}
	if len(f.Tags) > 0 {
		parts = append(parts, buildTagFilter(document.FieldTags, f.Tags))
	}
	if f.Author != "" {
		parts = append(parts, buildTagFilter(document.FieldAuthor, []string{f.Author}))
	}
	if f.AuthorID != "" {
		parts = append(parts, buildTagFilter(document.FieldAuthorID, []string{f.AuthorID}))
	}
	if r := f.DateRange; r != nil {
		parts = append(parts, buildDateFilter(*r))
	}
	return parts
}

func buildTagFilter(key string, values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = tagEscaper.Replace(v)
	}
	return fmt.Sprintf("@%s:{%s}", key, strings.Join(escaped, " | "))
}

func buildDateFilter(r filter.DateRange) string {
	minBound := "-inf"
	maxBound := "+inf"
	if r.From != nil {
		minBound = strconv.FormatInt(r.From.UnixMilli(), 10)
	}
	if r.To != nil {
		maxBound = strconv.FormatInt(r.To.UnixMilli(), 10)
	}
	return fmt.Sprintf("@%s:[%s %s]", r.Field, minBound, maxBound)
}

func buildSearchArgs(index, query string, q request.Query) []string {
	textFields := document.SearchableFields()
	args := []string{index, query, "WITHSCORES"}

	args = append(args, "RETURN", strconv.Itoa(1+len(textFields)), jsonRoot)
	args = append(args, textFields...)

	if sf, ok := q.PrimarySort(); ok {
		args = append(args, "SORTBY", sf.Field, strings.ToUpper(string(sf.Direction)))
	} else if q.IsMatchAll() {
		args = append(args, "SORTBY", document.FieldCreatedAt, "DESC")
	}

	if q.Highlight && q.Text != "" {
		// Summarize the long fields; the title is highlighted whole.
		long := []string{document.FieldContent, document.FieldDescription}
		args = append(args, "SUMMARIZE", "FIELDS", strconv.Itoa(len(long)))
		args = append(args, long...)
		args = append(args,
			"FRAGS", strconv.Itoa(q.Fragments),
			"LEN", strconv.Itoa(max(1, q.FragmentSize/avgWordLen)),
			"SEPARATOR", "... ",
		)
		args = append(args, "HIGHLIGHT", "FIELDS", strconv.Itoa(len(textFields)))
		args = append(args, textFields...)
		args = append(args, "TAGS", result.HighlightPre, result.HighlightPost)
	}

	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset()), strconv.Itoa(q.PageSize),
		"DIALECT", "2",
	)
	return args
}

func aggKey(field string) string {
	if field == document.FieldTags {
		return "tag"
	}
	return field
}

func buildAggregateArgs(index, query, field string) []string {
	args := []string{index, query, "LOAD", "1", "@" + field}
	if field == document.FieldTags {
		args = append(args, "APPLY", "split(@tags)", "AS", "tag")
	}
	return append(args,
		"GROUPBY", "1", "@"+aggKey(field),
		"REDUCE", "COUNT", "0", "AS", "count",
		"SORTBY", "2", "@count", "DESC",
		"MAX", strconv.Itoa(maxAggValues),
		"DIALECT", "2",
	)
}

func buildSuggestArgs(index, prefix string, size int) []string {
	terms := strings.Fields(prefix)
	for i := range terms {
		terms[i] = escapeQuery(terms[i])
	}
	terms[len(terms)-1] += "*"
	query := fmt.Sprintf("@%s:(%s)", document.FieldTitle, strings.Join(terms, " "))
	// Over-fetch so duplicate titles do not starve the result.
	return []string{
		index, query,
		"RETURN", "1", document.FieldTitle,
		"LIMIT", "0", strconv.Itoa(size * 2),
		"DIALECT", "2",
	}
}

// --- Result parsing ---

// parseSearchResult reads a WITHSCORES reply: [total, key1, score1, fields1, ...].
func parseSearchResult(raw []rueidis.RedisMessage, withHighlights bool) ([]result.Hit, int64, error) {
	if len(raw) == 0 {
		return nil, 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, 0, fmt.Errorf("parse total: %w", err)
	}

	hits := make([]result.Hit, 0, (len(raw)-1)/3)
	for i := 1; i+2 < len(raw); i += 3 {
		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}
		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}
		pairs := parseFieldPairs(fields)
		doc, err := decodeDoc(pairs[jsonRoot])
		if err != nil {
			return nil, 0, err
		}
		hit := result.Hit{Document: doc, Score: score}
		if withHighlights {
			hit.Highlights = collectHighlights(pairs)
		}
		hits = append(hits, hit)
	}
	return hits, total, nil
}

func collectHighlights(pairs map[string]string) map[string][]string {
	var out map[string][]string
	for _, f := range document.SearchableFields() {
		v, ok := pairs[f]
		if !ok || !strings.Contains(v, result.HighlightPre) {
			continue
		}
		if out == nil {
			out = make(map[string][]string)
		}
		var frags []string
		for _, frag := range strings.Split(v, "... ") {
			if strings.Contains(frag, result.HighlightPre) {
				frags = append(frags, strings.TrimSpace(frag))
			}
		}
		out[f] = frags
	}
	return out
}

// parseAggregateResult reads [total, [key, value, "count", n], ...].
func parseAggregateResult(raw []rueidis.RedisMessage, key string) []result.Bucket {
	buckets := make([]result.Bucket, 0, len(raw))
	for i := 1; i < len(raw); i++ {
		row, err := raw[i].ToArray()
		if err != nil {
			continue
		}
		pairs := parseFieldPairs(row)
		val := pairs[key]
		if val == "" {
			continue
		}
		n, err := strconv.ParseInt(pairs["count"], 10, 64)
		if err != nil {
			continue
		}
		buckets = append(buckets, result.Bucket{Key: val, Count: n})
	}
	result.SortBuckets(buckets)
	return buckets
}

// parseTitles reads a 2-stride reply [total, key1, fields1, ...] and dedupes titles.
func parseTitles(raw []rueidis.RedisMessage, size int) []string {
	out := []string{}
	seen := make(map[string]bool)
	for i := 1; i+1 < len(raw) && len(out) < size; i += 2 {
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		title := parseFieldPairs(fields)[document.FieldTitle]
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true
		out = append(out, title)
	}
	return out
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Escaping ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
	`,`, `\,`,
	`.`, `\.`,
)
