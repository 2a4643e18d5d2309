package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPIndexerPutsDocument(t *testing.T) {
	var gotPath string
	var gotDoc MessageDocument
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotDoc))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	idx := NewHTTPIndexer(srv.URL, "messages")
	doc := MessageDocument{
		ID:             "msg-1",
		ConversationID: "conv-1",
		SenderID:       "u1",
		Content:        "hello",
		CreatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, idx.IndexMessage(context.Background(), doc))
	require.Equal(t, "/messages/_doc/msg-1", gotPath)
	require.Equal(t, doc, gotDoc)
}

func TestHTTPIndexerSurfacesErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	idx := NewHTTPIndexer(srv.URL, "messages")
	err := idx.IndexMessage(context.Background(), MessageDocument{ID: "msg-1"})
	require.Error(t, err)
}

func TestNopIndexer(t *testing.T) {
	require.NoError(t, NopIndexer{}.IndexMessage(context.Background(), MessageDocument{}))
}
