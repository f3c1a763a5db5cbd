package domain

import (
	"context"
	"time"
)

// ListingGateway hands out one session per pipeline run.
type ListingGateway interface {
	Acquire(ctx context.Context) (ListingSession, error)
}

// ListingSession holds a single pooled connection; each Insert runs in its own transaction.
type ListingSession interface {
	Insert(ctx context.Context, l Listing) (int64, error)
	Close() error
}

type ListingReader interface {
	GetByExternalID(ctx context.Context, externalID string) (Listing, error)
	GetByID(ctx context.Context, id int64) (Listing, error)
	List(ctx context.Context, q ListQuery) (ListingsPage, error)
}

type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ContentStore is addressed by exact path. Put creates or overwrites.
type ContentStore interface {
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	// Stat returns the modification time, or ok=false when nothing is stored at path.
	Stat(ctx context.Context, path string) (mod time.Time, ok bool, err error)
}

// SourceRecord is one item handed over by the upstream extractor.
// Err is set when the payload could not be decoded into fields.
type SourceRecord struct {
	Fields map[string]any
	Err    error
	Ack    func() error
}

// RecordSource returns io.EOF once exhausted.
type RecordSource interface {
	Next(ctx context.Context) (SourceRecord, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
