package meili

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/meilisearch/meilisearch-go"
)

// errNotFound marks a 404 from the Meilisearch API.
var errNotFound = errors.New("meilisearch: not found")

// backend is the slice of the Meilisearch API the store uses, keyed by index uid.
// The production implementation wraps meilisearch.ServiceManager; tests use a fake.
type backend interface {
	Health() error
	CreateIndex(uid, primaryKey string) (int64, error)
	DeleteIndex(uid string) (int64, error)
	IndexExists(uid string) (bool, error)
	UpdateFilterable(uid string, attrs []string) (int64, error)
	UpdateSortable(uid string, attrs []string) (int64, error)
	UpdateSearchable(uid string, attrs []string) (int64, error)
	AddDocuments(uid string, docs any) (int64, error)
	DeleteDocument(uid, key string) (int64, error)
	GetDocument(uid, key string, dst any) error
	Search(uid string, req *meilisearch.SearchRequest) ([]byte, error)
	// WaitTask blocks until the task finishes or ctx is done and returns the
	// task failure, if any.
	WaitTask(ctx context.Context, taskUID int64, interval time.Duration) error
}

type sdk struct {
	sm meilisearch.ServiceManager
}

func newSDK(host, apiKey string) *sdk {
	return &sdk{sm: meilisearch.New(host, meilisearch.WithAPIKey(apiKey))}
}

func (c *sdk) Health() error {
	_, err := c.sm.Health()
	return err
}

func (c *sdk) CreateIndex(uid, primaryKey string) (int64, error) {
	task, err := c.sm.CreateIndex(&meilisearch.IndexConfig{Uid: uid, PrimaryKey: primaryKey})
	if err != nil {
		return 0, err
	}
	return task.TaskUID, nil
}

func (c *sdk) DeleteIndex(uid string) (int64, error) {
	task, err := c.sm.DeleteIndex(uid)
	if err != nil {
		return 0, notFound(err)
	}
	return task.TaskUID, nil
}

func (c *sdk) IndexExists(uid string) (bool, error) {
	if _, err := c.sm.Index(uid).FetchInfo(); err != nil {
		if errors.Is(notFound(err), errNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *sdk) UpdateFilterable(uid string, attrs []string) (int64, error) {
	list := make([]interface{}, len(attrs))
	for i, a := range attrs {
		list[i] = a
	}
	task, err := c.sm.Index(uid).UpdateFilterableAttributes(&list)
	if err != nil {
		return 0, err
	}
	return task.TaskUID, nil
}

func (c *sdk) UpdateSortable(uid string, attrs []string) (int64, error) {
	task, err := c.sm.Index(uid).UpdateSortableAttributes(&attrs)
	if err != nil {
		return 0, err
	}
	return task.TaskUID, nil
}

func (c *sdk) UpdateSearchable(uid string, attrs []string) (int64, error) {
	task, err := c.sm.Index(uid).UpdateSearchableAttributes(&attrs)
	if err != nil {
		return 0, err
	}
	return task.TaskUID, nil
}

func (c *sdk) AddDocuments(uid string, docs any) (int64, error) {
	pk := primaryKey
	task, err := c.sm.Index(uid).AddDocuments(docs, &meilisearch.DocumentOptions{PrimaryKey: &pk})
	if err != nil {
		return 0, err
	}
	return task.TaskUID, nil
}

func (c *sdk) DeleteDocument(uid, key string) (int64, error) {
	task, err := c.sm.Index(uid).DeleteDocument(key, nil)
	if err != nil {
		return 0, notFound(err)
	}
	return task.TaskUID, nil
}

func (c *sdk) GetDocument(uid, key string, dst any) error {
	return notFound(c.sm.Index(uid).GetDocument(key, nil, dst))
}

func (c *sdk) Search(uid string, req *meilisearch.SearchRequest) ([]byte, error) {
	raw, err := c.sm.Index(uid).SearchRaw(req.Query, req)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []byte("{}"), nil
	}
	return *raw, nil
}

func (c *sdk) WaitTask(ctx context.Context, taskUID int64, interval time.Duration) error {
	task, err := c.sm.WaitForTaskWithContext(ctx, taskUID, interval)
	if err != nil {
		return err
	}
	if task.Status != meilisearch.TaskStatusSucceeded {
		return fmt.Errorf("task %d %s: %+v", taskUID, task.Status, task.Error)
	}
	return nil
}

func isAPIError(err error) bool {
	var me *meilisearch.Error
	return errors.As(err, &me) && me.StatusCode > 0
}

// notFound maps a 404 API error to errNotFound.
func notFound(err error) error {
	var me *meilisearch.Error
	if errors.As(err, &me) && me.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", errNotFound, err)
	}
	return err
}

// decodeJSON is a small helper shared by search parsing.
func decodeJSON(raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
