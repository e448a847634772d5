package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amitakki/ocr-chatqa/core"
	"github.com/amitakki/ocr-chatqa/storage"
)

func TestDocumentRegistryBasics(t *testing.T) {
	registry, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer func() { registry.Close(); backend.Close() }()

	ctx := context.Background()

	doc := &core.Document{
		Filename: "report.pdf",
		Format:   core.FormatPDF,
		Status:   core.StatusQueued,
		FileSize: 2048,
	}

	created, err := registry.Create(ctx, doc)
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	if created.Id == 0 {
		t.Fatal("Expected non-zero ID")
	}
	if created.UploadedAt.IsZero() {
		t.Fatal("Expected UploadedAt to be set")
	}

	retrieved, err := registry.Get(ctx, created.Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if retrieved.Filename != "report.pdf" {
		t.Fatalf("Expected 'report.pdf', got '%s'", retrieved.Filename)
	}
	if retrieved.Status != core.StatusQueued {
		t.Fatalf("Expected queued status, got %v", retrieved.Status)
	}
}

func TestDocumentRegistryGetMissing(t *testing.T) {
	registry, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer func() { registry.Close(); backend.Close() }()

	_, err = registry.Get(context.Background(), core.ID(12345))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestDocumentRegistryListOrder(t *testing.T) {
	registry, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer func() { registry.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	// Create with explicit, out-of-order upload timestamps
	docs := []*core.Document{
		{Filename: "b.pdf", Format: core.FormatPDF, Status: core.StatusQueued, UploadedAt: now.Add(-1 * time.Hour)},
		{Filename: "c.pdf", Format: core.FormatPDF, Status: core.StatusQueued, UploadedAt: now},
		{Filename: "a.pdf", Format: core.FormatPDF, Status: core.StatusQueued, UploadedAt: now.Add(-2 * time.Hour)},
	}
	for _, doc := range docs {
		if _, err := registry.Create(ctx, doc); err != nil {
			t.Fatalf("Failed to create document: %v", err)
		}
	}

	listed, err := registry.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list documents: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("Expected 3 documents, got %d", len(listed))
	}

	// Newest first
	want := []string{"c.pdf", "b.pdf", "a.pdf"}
	for i, name := range want {
		if listed[i].Filename != name {
			t.Fatalf("Position %d: expected %s, got %s", i, name, listed[i].Filename)
		}
	}
}

func TestDocumentRegistryUpdateStatus(t *testing.T) {
	registry, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer func() { registry.Close(); backend.Close() }()

	ctx := context.Background()

	created, err := registry.Create(ctx, &core.Document{
		Filename: "scan.pdf",
		Format:   core.FormatPDF,
		Status:   core.StatusQueued,
	})
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	// Forward transitions succeed
	updated, err := registry.UpdateStatus(ctx, created.Id, core.StatusClassifying, "")
	if err != nil {
		t.Fatalf("Failed to update status: %v", err)
	}
	if updated.Status != core.StatusClassifying {
		t.Fatalf("Expected classifying, got %v", updated.Status)
	}
	if updated.StartedAt.IsZero() {
		t.Fatal("Expected StartedAt to be set on leaving queued")
	}

	// Backward transitions are rejected
	_, err = registry.UpdateStatus(ctx, created.Id, core.StatusQueued, "")
	if !errors.Is(err, core.ErrStatusRegression) {
		t.Fatalf("Expected ErrStatusRegression, got %v", err)
	}

	// Stored record is unchanged after the rejected transition
	stored, err := registry.Get(ctx, created.Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if stored.Status != core.StatusClassifying {
		t.Fatalf("Expected classifying after rejected regression, got %v", stored.Status)
	}
}

func TestDocumentRegistryFailureReason(t *testing.T) {
	registry, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer func() { registry.Close(); backend.Close() }()

	ctx := context.Background()

	created, err := registry.Create(ctx, &core.Document{
		Filename: "broken.pdf",
		Format:   core.FormatPDF,
		Status:   core.StatusQueued,
	})
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	failed, err := registry.UpdateStatus(ctx, created.Id, core.StatusFailed, "extraction failed: malformed xref table")
	if err != nil {
		t.Fatalf("Failed to mark document failed: %v", err)
	}
	if failed.FailureReason == "" {
		t.Fatal("Expected failure reason to be stored")
	}
	if failed.CompletedAt.IsZero() {
		t.Fatal("Expected CompletedAt to be set on terminal status")
	}

	// Terminal states admit no further transitions
	_, err = registry.UpdateStatus(ctx, created.Id, core.StatusCompleted, "")
	if err == nil {
		t.Fatal("Expected error transitioning out of failed")
	}
}

func TestDocumentRegistryDeleteIdempotent(t *testing.T) {
	registry, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer func() { registry.Close(); backend.Close() }()

	ctx := context.Background()

	created, err := registry.Create(ctx, &core.Document{
		Filename: "temp.html",
		Format:   core.FormatHTML,
		Status:   core.StatusQueued,
	})
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	if err := registry.Delete(ctx, created.Id); err != nil {
		t.Fatalf("Failed to delete document: %v", err)
	}

	_, err = registry.Get(ctx, created.Id)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}

	// Deleting again is a no-op
	if err := registry.Delete(ctx, created.Id); err != nil {
		t.Fatalf("Expected no-op on repeated delete, got %v", err)
	}

	listed, err := registry.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list documents: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("Expected empty list after delete, got %d records", len(listed))
	}
}
