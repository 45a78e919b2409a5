package domain

import "errors"

var (
	// ErrDocumentNotFound reports that a requested document id has no
	// records in the store. Recoverable: callers treat it as an empty
	// result.
	ErrDocumentNotFound = errors.New("document not found in store")

	// ErrEmptyCorpus reports that the store holds no embeddings at all.
	ErrEmptyCorpus = errors.New("no embeddings available")

	// ErrDimensionMismatch reports vectors of different lengths inside one
	// retrieval scope. Fatal for the query: the store is corrupt or was
	// written by mixed embedding models.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrThrottled reports that the generation service kept rate-limiting
	// us past the configured retry budget.
	ErrThrottled = errors.New("generation service throttled")

	// ErrStoreCorrupt reports an unreadable persisted store. Recoverable:
	// the store is treated as empty.
	ErrStoreCorrupt = errors.New("embedding store corrupt")
)
