// Package searchsync is an embeddable client for keeping a full-text search
// index in step with a record store.
//
// A Client owns one search backend (Redis with RediSearch, Meilisearch, or an
// in-process store), the index bound to it, and a synchronization engine that
// turns record lifecycle events into index writes.
//
// # Synchronization
//
//	client, _ := searchsync.New(
//	    searchsync.WithRedis("localhost:6379", ""),
//	    searchsync.WithQueued(50, 5*time.Second),
//	)
//	defer client.Close()
//	client.Start(ctx)
//
//	doc, _ := searchsync.NewDocument("42", searchsync.TypeArticle, "Title", "Body", time.Now())
//	res := client.OnCreate(ctx, &doc)
//
// # Search
//
//	q, _ := searchsync.NewQuery("deploy").
//	    Types(searchsync.TypeArticle, searchsync.TypePage).
//	    Tags("ops").
//	    Since(searchsync.FieldCreatedAt, lastWeek).
//	    SortBy("createdAt", searchsync.Desc).
//	    Page(1, 20).
//	    Build()
//	res, _ := client.Search(ctx, q)
//
// A process-wide client can be installed with SetDefault and fetched with
// Default by code that does not carry one around.
package searchsync
