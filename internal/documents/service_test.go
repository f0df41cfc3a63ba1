package documents

import (
	"context"
	"strings"
	"testing"

	"proposal-backend/internal/progress"
	"proposal-backend/internal/shared/storage/object/local"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return &Service{
		Store: local.New(t.TempDir()),
		Repo:  NewMemoryRepo(),
		Bus:   progress.NewBus(),
	}
}

func TestUploadTextFileBecomesReady(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, "sess-1", RoleProposal, "offer.txt", strings.NewReader("delivery in 30 days"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if doc.Status != StatusReady {
		t.Fatalf("expected status %q, got %q (%s)", StatusReady, doc.Status, doc.ErrorMessage)
	}
	if doc.ExtractedText != "delivery in 30 days" {
		t.Fatalf("unexpected extracted text %q", doc.ExtractedText)
	}
	if doc.StorageKey == "" {
		t.Fatal("expected storage key to be set")
	}
}

func TestUploadRejectsUnsupportedExtensionWithoutMutation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, "sess-1", RoleProposal, "malware.exe", strings.NewReader("x")); err == nil {
		t.Fatal("expected validation error")
	}

	docs, err := svc.List(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected empty session after rejected upload, got %d documents", len(docs))
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Upload(context.Background(), "sess-1", RoleProposal, "empty.txt", strings.NewReader("")); err == nil {
		t.Fatal("expected validation error for empty file")
	}
}

func TestUploadTechnicalSpecIsSingleInstance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, "sess-1", RoleTechnicalSpec, "tz-v1.txt", strings.NewReader("requirements v1")); err != nil {
		t.Fatalf("first upload: %v", err)
	}
	if _, err := svc.Upload(ctx, "sess-1", RoleTechnicalSpec, "tz-v2.txt", strings.NewReader("requirements v2")); err != nil {
		t.Fatalf("second upload: %v", err)
	}

	docs, err := svc.List(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected exactly one technical spec, got %d documents", len(docs))
	}
	if docs[0].FileName != "tz-v2.txt" {
		t.Fatalf("expected replacement to win, got %q", docs[0].FileName)
	}
}

func TestUploadProposalDedupedByNameKeepsPosition(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		if _, err := svc.Upload(ctx, "sess-1", RoleProposal, name, strings.NewReader("proposal "+name)); err != nil {
			t.Fatalf("upload %s: %v", name, err)
		}
	}
	// Re-upload the middle proposal under the same name.
	if _, err := svc.Upload(ctx, "sess-1", RoleProposal, "b.txt", strings.NewReader("proposal b updated")); err != nil {
		t.Fatalf("re-upload: %v", err)
	}

	docs, err := svc.List(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 proposals after dedup, got %d", len(docs))
	}
	if docs[1].FileName != "b.txt" {
		t.Fatalf("expected b.txt to keep its position, got %q", docs[1].FileName)
	}
	if docs[1].ExtractedText != "proposal b updated" {
		t.Fatalf("expected replaced content, got %q", docs[1].ExtractedText)
	}
}

func TestRemoveDeletesEntry(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, "sess-1", RoleProposal, "offer.txt", strings.NewReader("content"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := svc.Remove(ctx, "sess-1", doc.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	docs, err := svc.List(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected empty session, got %d documents", len(docs))
	}
}

func TestRemoveUnknownDocumentReturnsNotFound(t *testing.T) {
	svc := newTestService(t)

	err := svc.Remove(context.Background(), "sess-1", "missing")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
