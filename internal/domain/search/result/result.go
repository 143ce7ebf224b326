package result

import (
	"sort"
	"time"

	"github.com/kailas-cloud/searchsync/internal/domain/document"
)

// Highlight markup wrapped around matched terms by every backend.
const (
	HighlightPre  = "<em>"
	HighlightPost = "</em>"
)

// Hit is one matching document.
type Hit struct {
	Document   document.Document   `json:"document"`
	Score      float64             `json:"score"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// Bucket is one term aggregation entry.
type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Result is a page of hits plus optional suggestions and aggregations.
type Result struct {
	Hits         []Hit               `json:"hits"`
	Total        int64               `json:"total"`
	Page         int                 `json:"page"`
	PageSize     int                 `json:"pageSize"`
	TotalPages   int                 `json:"totalPages"`
	Took         time.Duration       `json:"took"`
	Suggestions  []string            `json:"suggestions,omitempty"`
	Aggregations map[string][]Bucket `json:"aggregations,omitempty"`
}

// New builds a Result and derives TotalPages.
func New(hits []Hit, total int64, page, pageSize int, took time.Duration) Result {
	if hits == nil {
		hits = []Hit{}
	}
	return Result{
		Hits:       hits,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: TotalPages(total, pageSize),
		Took:       took,
	}
}

// TotalPages is ceil(total/pageSize), zero when either is non-positive.
func TotalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// SortBuckets orders buckets by count descending, then key ascending.
func SortBuckets(b []Bucket) {
	sort.Slice(b, func(i, j int) bool {
		if b[i].Count != b[j].Count {
			return b[i].Count > b[j].Count
		}
		return b[i].Key < b[j].Key
	})
}

// IDs returns the document ids of the hits in order.
func (r *Result) IDs() []string {
	ids := make([]string, len(r.Hits))
	for i := range r.Hits {
		ids[i] = r.Hits[i].Document.ID
	}
	return ids
}
