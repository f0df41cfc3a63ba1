package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"proposal-backend/internal/extract"
	"proposal-backend/internal/progress"
	"proposal-backend/internal/shared/metrics"
	"proposal-backend/internal/shared/storage/object"
	"proposal-backend/internal/shared/telemetry"
	"proposal-backend/internal/shared/util"
)

// MaxUploadSize caps a single document upload.
const MaxUploadSize = 10 << 20 // 10MB

var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".docx": {},
	".txt":  {},
}

// Service contains business logic for session documents.
type Service struct {
	Store object.ObjectStore
	Repo  Repo
	Bus   *progress.Bus
}

// Upload validates, stores and extracts an uploaded file. Validation happens
// before any state changes, so a rejected upload leaves the session's document
// list untouched. Extraction failures are recorded on the document itself
// rather than returned as an error.
func (s *Service) Upload(ctx context.Context, sessionID, role, fileName string, r io.Reader) (Document, error) {
	if sessionID == "" {
		return Document{}, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}
	if !ValidRole(role) {
		return Document{}, fmt.Errorf("%w: role must be %q or %q", ErrInvalidInput, RoleTechnicalSpec, RoleProposal)
	}
	cleanName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	ext := strings.ToLower(filepath.Ext(cleanName))
	if _, ok := allowedExtensions[ext]; !ok {
		return Document{}, fmt.Errorf("%w: unsupported file type %q", ErrInvalidInput, ext)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	if len(data) > MaxUploadSize {
		return Document{}, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidInput, MaxUploadSize)
	}

	s.publish(progress.TopicUploadStarted, sessionID, cleanName, role)

	doc := Document{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		FileName:  cleanName,
		SizeBytes: int64(len(data)),
		Status:    StatusProcessing,
		CreatedAt: time.Now().UTC(),
	}
	doc, err = s.Repo.Upsert(ctx, doc)
	if err != nil {
		s.publish(progress.TopicUploadFailed, sessionID, cleanName, role)
		return Document{}, fmt.Errorf("record document: %w", err)
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, sessionID, cleanName, bytes.NewReader(data))
	if err != nil {
		doc.Status = StatusError
		doc.ErrorMessage = "failed to store file"
		if updateErr := s.Repo.Update(ctx, doc); updateErr != nil {
			telemetry.Error("documents.upload.update", map[string]any{
				"session_id":  sessionID,
				"document_id": doc.ID,
				"error":       updateErr.Error(),
			})
		}
		s.publish(progress.TopicUploadFailed, sessionID, cleanName, role)
		return Document{}, fmt.Errorf("store document: %w", err)
	}
	doc.StorageKey = storageKey
	doc.SizeBytes = size
	doc.MimeType = mimeType

	text, err := extract.TextFromBytes(ctx, data, mimeType, cleanName)
	if err != nil {
		doc.Status = StatusError
		doc.ErrorMessage = err.Error()
	} else if strings.TrimSpace(text) == "" {
		doc.Status = StatusError
		doc.ErrorMessage = "no text could be extracted"
	} else {
		doc.ExtractedText = text
		doc.Status = StatusReady
	}

	if err := s.Repo.Update(ctx, doc); err != nil {
		return Document{}, fmt.Errorf("record extraction: %w", err)
	}

	if doc.Status == StatusReady {
		metrics.IncDocumentUploaded()
		s.publish(progress.TopicUploadSucceeded, sessionID, cleanName, role)
	} else {
		s.publish(progress.TopicUploadFailed, sessionID, cleanName, role)
	}
	return doc, nil
}

// Remove deletes a document and best-effort removes its stored bytes.
func (s *Service) Remove(ctx context.Context, sessionID, docID string) error {
	if sessionID == "" || docID == "" {
		return fmt.Errorf("%w: session id and document id are required", ErrInvalidInput)
	}
	doc, err := s.Repo.GetByID(ctx, sessionID, docID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, sessionID, docID); err != nil {
		return err
	}
	if doc.StorageKey != "" {
		if err := s.Store.Delete(ctx, doc.StorageKey); err != nil {
			telemetry.Error("documents.remove.store", map[string]any{
				"session_id":  sessionID,
				"document_id": docID,
				"error":       err.Error(),
			})
		}
	}
	return nil
}

// List returns the session's documents in upload order.
func (s *Service) List(ctx context.Context, sessionID string) ([]Document, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}
	return s.Repo.ListBySession(ctx, sessionID)
}

// Purge drops every document of a session, including stored bytes.
func (s *Service) Purge(ctx context.Context, sessionID string) error {
	docs, err := s.Repo.ListBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if doc.StorageKey == "" {
			continue
		}
		if err := s.Store.Delete(ctx, doc.StorageKey); err != nil {
			telemetry.Error("documents.purge.store", map[string]any{
				"session_id":  sessionID,
				"document_id": doc.ID,
				"error":       err.Error(),
			})
		}
	}
	return s.Repo.DeleteBySession(ctx, sessionID)
}

func (s *Service) publish(topic progress.Topic, sessionID, fileName, role string) {
	if s.Bus == nil {
		return
	}
	s.Bus.Publish(topic, map[string]any{
		"sessionId": sessionID,
		"fileName":  fileName,
		"role":      role,
	})
}
