// Package docstore abstracts the remote per-user document store: a
// key-value store with merge-write semantics and per-collection change
// subscriptions, with Redis and Postgres backends plus an in-memory
// implementation for tests and offline runs.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Well-known error conditions callers match with errors.Is.
var (
	// ErrPermissionDenied indicates the backend rejected a write for lack of
	// access rights. This is a configuration problem, not a transient one,
	// and is surfaced to the user distinctly.
	ErrPermissionDenied = errors.New("docstore: permission denied")

	// ErrSubscribeUnsupported is returned by backends without change
	// notification support.
	ErrSubscribeUnsupported = errors.New("docstore: subscribe not supported")
)

// Event is one document change delivered by Subscribe. Delivery is
// server-confirmed but carries no ordering guarantee across documents.
type Event struct {
	ID    string `json:"id"`
	Value []byte `json:"value"`
}

// Store is the remote document store contract.
type Store interface {
	// Get returns the raw document value, or ok=false when absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set writes the document. With merge set, top-level JSON object fields
	// of value overlay the existing document instead of replacing it whole.
	Set(ctx context.Context, key string, value []byte, merge bool) error

	// Subscribe streams changes to documents under the given collection key.
	// The channel closes when ctx is cancelled.
	Subscribe(ctx context.Context, collection string) (<-chan Event, error)

	Close() error
}

// Document keys follow the dashboard's layout: users/{id} holds the
// portfolio document, users/{id}/portfolioAnalysis/{ticker} the per-ticker
// quote snapshots.

// UserDocKey returns the key of the user's portfolio document.
func UserDocKey(userID string) string {
	return "users/" + userID
}

// AnalysisCollection returns the per-ticker analysis collection key for a user.
func AnalysisCollection(userID string) string {
	return "users/" + userID + "/portfolioAnalysis"
}

// AnalysisDocKey returns the key of one ticker's analysis snapshot document.
func AnalysisDocKey(userID, ticker string) string {
	return AnalysisCollection(userID) + "/" + ticker
}

// collectionOf derives the collection key from a document key.
func collectionOf(key string) string {
	if i := strings.LastIndex(key, "/"); i > 0 {
		return key[:i]
	}
	return key
}

// docID derives the document id (last path segment) from a document key.
func docID(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return fmt.Errorf("docstore: invalid key %q", key)
	}
	return nil
}
