package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"trip_hotel/internal/domain"
	"trip_hotel/internal/shared"
	"trip_hotel/internal/storage"
)

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	st, err := storage.Open(ctx, shared.Config{
		StoreDriver:   "sqlite",
		SQLitePath:    filepath.Join(t.TempDir(), "hotels.db"),
		IngestWorkers: 2,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	if err := st.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	sess, err := st.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer sess.Close()
	if _, err := sess.Insert(ctx, domain.Listing{ExternalID: "HTL-1", Title: "Inn", City: "Rome"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	// pool covers the session plus a reader
	if _, err := st.GetByExternalID(ctx, "HTL-1"); err != nil {
		t.Fatalf("GetByExternalID: %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := storage.Open(context.Background(), shared.Config{StoreDriver: "oracle"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
