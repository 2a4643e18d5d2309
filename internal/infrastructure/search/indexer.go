// Package search pushes newly created messages to an external full-text
// index. Indexing is best-effort: a failure is logged and never blocks or
// rolls back message persistence. The query side lives in another service.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// MessageDocument is the indexed projection of a message.
type MessageDocument struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Indexer writes message documents to the index.
type Indexer interface {
	IndexMessage(ctx context.Context, doc MessageDocument) error
}

// HTTPIndexer talks to an Elasticsearch-compatible endpoint.
type HTTPIndexer struct {
	client *resty.Client
	index  string
}

func NewHTTPIndexer(baseURL, index string) *HTTPIndexer {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second).
		SetRetryCount(2)
	return &HTTPIndexer{client: c, index: index}
}

var _ Indexer = (*HTTPIndexer)(nil)

func (i *HTTPIndexer) IndexMessage(ctx context.Context, doc MessageDocument) error {
	resp, err := i.client.R().
		SetContext(ctx).
		SetBody(doc).
		Put(fmt.Sprintf("/%s/_doc/%s", i.index, doc.ID))
	if err != nil {
		return fmt.Errorf("search: index message: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("search: index message: status %d", resp.StatusCode())
	}
	return nil
}

// NopIndexer is used when no search endpoint is configured.
type NopIndexer struct{}

var _ Indexer = NopIndexer{}

func (NopIndexer) IndexMessage(context.Context, MessageDocument) error { return nil }
