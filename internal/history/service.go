package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"proposal-backend/internal/documents"
	"proposal-backend/internal/progress"
	"proposal-backend/internal/session"
	"proposal-backend/internal/shared/metrics"
	"proposal-backend/internal/shared/telemetry"
)

// Service snapshots completed analyses into the persisted history list.
type Service struct {
	Repo     Repo
	Sessions *session.Service
	Docs     *documents.Service
	Bus      *progress.Bus
}

// Save snapshots the session's current results into a history item and
// prepends it to the list. At least one resolved result is required.
func (s *Service) Save(ctx context.Context, sessionID, name string) (Item, error) {
	if sessionID == "" {
		return Item{}, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}
	res, err := s.Sessions.GetResults(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return Item{}, fmt.Errorf("%w: unknown session", ErrInvalidInput)
		}
		return Item{}, err
	}
	if len(res.Results) == 0 {
		return Item{}, fmt.Errorf("%w: session has no results to save", ErrInvalidInput)
	}

	tzName := ""
	if docs, err := s.Docs.List(ctx, sessionID); err == nil {
		for _, doc := range docs {
			if doc.Role == documents.RoleTechnicalSpec {
				tzName = doc.FileName
				break
			}
		}
	}

	var sum float64
	for _, r := range res.Results {
		sum += r.ComplianceScore
	}
	avg := sum / float64(len(res.Results))

	status := "partial"
	if res.Comparison != nil {
		status = "completed"
	}
	now := time.Now().UTC()
	if name == "" {
		name = fmt.Sprintf("Analysis %s", now.Format("2006-01-02 15:04"))
	}

	item := Item{
		ID:         uuid.NewString(),
		Name:       name,
		Date:       now,
		TZName:     tzName,
		KPCount:    len(res.Results),
		AvgScore:   avg,
		Status:     status,
		Results:    res.Results,
		Comparison: res.Comparison,
	}
	if err := s.Repo.Insert(ctx, item); err != nil {
		return Item{}, fmt.Errorf("save history: %w", err)
	}

	metrics.IncHistorySaved()
	telemetry.Info("history.saved", map[string]any{
		"history_id": item.ID,
		"session_id": sessionID,
		"kp_count":   item.KPCount,
	})
	if s.Bus != nil {
		s.Bus.Publish(progress.TopicAnalysisSaved, map[string]any{
			"historyId": item.ID,
			"sessionId": sessionID,
		})
	}
	return item, nil
}

// Load returns a deep copy of one saved item. A missing id yields nil rather
// than an error.
func (s *Service) Load(ctx context.Context, id string) (*Item, error) {
	item, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	copied := item.Clone()
	return &copied, nil
}

// List returns the saved items, newest first. Storage failures degrade to an
// empty list so a corrupt store never takes the endpoint down.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	items, err := s.Repo.List(ctx)
	if err != nil {
		telemetry.Error("history.list", map[string]any{"error": err.Error()})
		return []Item{}, nil
	}
	if s.Bus != nil {
		s.Bus.Publish(progress.TopicSynced, map[string]any{"count": len(items)})
	}
	return items, nil
}

// Clear unconditionally wipes the history.
func (s *Service) Clear(ctx context.Context) error {
	return s.Repo.Clear(ctx)
}
