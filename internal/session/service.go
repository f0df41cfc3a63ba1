package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"proposal-backend/internal/documents"
	"proposal-backend/internal/llm"
	"proposal-backend/internal/progress"
	"proposal-backend/internal/shared/metrics"
	"proposal-backend/internal/shared/telemetry"
)

// Overall percent is split into stage sub-ranges; per-proposal completion
// advances within the analysis band only.
const (
	progressAnalysisStart = 10
	progressAnalysisEnd   = 90
	progressComparison    = 95
	progressDone          = 100
)

// CachedResults is the completed-session snapshot kept in the LRU cache.
type CachedResults struct {
	Results    []AnalysisResult
	Comparison *ComparisonResult
}

// Service drives the analysis state machine.
type Service struct {
	Sessions  *Store
	Docs      *documents.Service
	LLM       llm.Client
	Reporter  progress.Reporter
	Bus       *progress.Bus
	Announcer *progress.Announcer
	Results   *lru.Cache[string, CachedResults]

	DefaultModels SelectedModels
}

// Create starts a fresh session at the upload step.
func (s *Service) Create(ctx context.Context, models SelectedModels) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	if models.Analysis == "" {
		models.Analysis = s.DefaultModels.Analysis
	}
	if models.Comparison == "" {
		models.Comparison = s.DefaultModels.Comparison
	}
	sess := Session{
		ID:             uuid.NewString(),
		SelectedModels: models,
		CurrentStep:    StepUpload,
		CreatedAt:      time.Now().UTC(),
	}
	s.Sessions.Put(sess)
	if s.Bus != nil {
		s.Bus.Publish(progress.TopicProjectCreated, map[string]any{"sessionId": sess.ID})
	}
	return sess, nil
}

// Get returns a deep copy of the session state.
func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	return s.Sessions.Get(id)
}

// StartAnalysis runs the upload -> analyze -> results transition. The guard
// requires an extracted technical spec and at least one ready proposal; a
// failed guard records an error on the session and attempts no external call.
// Proposals are analyzed strictly one after another in upload order.
func (s *Service) StartAnalysis(ctx context.Context, id string) error {
	sess, err := s.Sessions.Get(id)
	if err != nil {
		return err
	}
	if sess.IsProcessing {
		return ErrAlreadyRunning
	}

	docs, err := s.Docs.List(ctx, id)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	tz, proposals := splitByRole(docs)
	if tz == nil || len(proposals) == 0 {
		msg := "upload a technical specification and at least one commercial proposal before starting analysis"
		_ = s.Sessions.Update(id, func(st *Session) {
			st.ErrorMessage = msg
		})
		s.announce(msg, progress.PriorityAssertive)
		return ErrNotReady
	}

	started := time.Now()
	model := sess.SelectedModels.Analysis
	if model == "" {
		model = s.DefaultModels.Analysis
	}

	if err := s.Sessions.Transition(id, func(st *Session) error {
		if st.IsProcessing {
			return ErrAlreadyRunning
		}
		st.CurrentStep = StepAnalyze
		st.IsProcessing = true
		st.ErrorMessage = ""
		st.Results = nil
		st.Comparison = nil
		st.CancelRequested = false
		return nil
	}); err != nil {
		return err
	}
	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.started", map[string]any{
		"session_id": id,
		"proposals":  len(proposals),
		"model":      model,
	})

	total := len(proposals)
	results := make([]AnalysisResult, 0, total)
	for i, kp := range proposals {
		if s.cancelRequested(id) {
			s.finishCanceled(id, len(results))
			return nil
		}

		s.report(id, progress.Update{
			Stage:         progress.StageAnalysis,
			Progress:      scaleAnalysisProgress(i, total),
			Message:       fmt.Sprintf("Analyzing %s (%d of %d)", kp.FileName, i+1, total),
			TimeElapsedMs: time.Since(started).Milliseconds(),
		})

		raw, err := s.LLM.AnalyzeProposal(ctx, llm.AnalyzeInput{
			ProposalText:  kp.ExtractedText,
			ProposalName:  kp.FileName,
			ReferenceText: tz.ExtractedText,
			Model:         model,
		})
		if err != nil {
			return s.failAnalysis(id, kp.FileName, fmt.Errorf("analyze %s: %w", kp.FileName, err))
		}
		result, err := ParseAnalysisResult(raw, kp.ID, model)
		if err != nil {
			return s.failAnalysis(id, kp.FileName, fmt.Errorf("analyze %s: %w", kp.FileName, err))
		}

		// A cancel can land while the call above is in flight. The re-check
		// shares the critical section with the append so the completed
		// result is dropped instead of recorded after the fact.
		resolved := cloneResult(result)
		dropped := false
		_ = s.Sessions.Update(id, func(st *Session) {
			if st.CancelRequested {
				dropped = true
				return
			}
			st.Results = append(st.Results, resolved)
		})
		if dropped {
			s.finishCanceled(id, len(results))
			return nil
		}
		results = append(results, result)
		s.report(id, progress.Update{
			Stage:         progress.StageAnalysis,
			Progress:      scaleAnalysisProgress(i+1, total),
			Message:       fmt.Sprintf("Finished %s", kp.FileName),
			TimeElapsedMs: time.Since(started).Milliseconds(),
		})
	}

	if s.cancelRequested(id) {
		s.finishCanceled(id, len(results))
		return nil
	}

	s.report(id, progress.Update{
		Stage:         progress.StageComparison,
		Progress:      progressComparison,
		Message:       "Ranking proposals",
		TimeElapsedMs: time.Since(started).Milliseconds(),
	})
	cmp := BuildComparison(results)

	if err := s.Sessions.Update(id, func(st *Session) {
		st.Comparison = &cmp
		st.CurrentStep = StepResults
		st.IsProcessing = false
		st.Progress = nil
	}); err != nil {
		return err
	}
	if s.Results != nil {
		s.Results.Add(id, CachedResults{Results: results, Comparison: &cmp})
	}

	elapsed := time.Since(started)
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(float64(elapsed.Milliseconds()))
	telemetry.Info("analysis.completed", map[string]any{
		"session_id":  id,
		"proposals":   total,
		"duration_ms": elapsed.Milliseconds(),
	})
	if s.Reporter != nil {
		s.Reporter.Report(id, progress.Update{
			Stage:         progress.StageDone,
			Progress:      progressDone,
			Message:       "Analysis complete",
			TimeElapsedMs: elapsed.Milliseconds(),
		})
	}
	s.announce("Analysis complete", progress.PriorityPolite)
	return nil
}

// Cancel flips the cancellation flag and clears the processing state. The
// flag is only checked between sequential calls, so a call already in flight
// still runs to completion; its result is simply never acted on.
func (s *Service) Cancel(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Sessions.Update(id, func(st *Session) {
		st.CancelRequested = true
		st.IsProcessing = false
		st.Progress = nil
	})
}

// Reset returns the session to its initial defaults, purges its documents and
// drops its cached results. This is the only cache-invalidation path.
func (s *Service) Reset(ctx context.Context, id string) error {
	sess, err := s.Sessions.Get(id)
	if err != nil {
		return err
	}
	if err := s.Docs.Purge(ctx, id); err != nil {
		return fmt.Errorf("purge documents: %w", err)
	}
	if s.Results != nil {
		s.Results.Remove(id)
	}
	return s.Sessions.Update(id, func(st *Session) {
		*st = Session{
			ID:             sess.ID,
			SelectedModels: s.DefaultModels,
			CurrentStep:    StepUpload,
			CreatedAt:      sess.CreatedAt,
		}
	})
}

// GetResults returns the session's results, preferring the completed-session
// cache. Partial results of a failed run remain readable here.
func (s *Service) GetResults(ctx context.Context, id string) (CachedResults, error) {
	if err := ctx.Err(); err != nil {
		return CachedResults{}, err
	}
	if s.Results != nil {
		if cached, ok := s.Results.Get(id); ok {
			return cached, nil
		}
	}
	sess, err := s.Sessions.Get(id)
	if err != nil {
		return CachedResults{}, err
	}
	return CachedResults{Results: sess.Results, Comparison: sess.Comparison}, nil
}

func (s *Service) failAnalysis(id, fileName string, cause error) error {
	metrics.IncAnalysisFailed()
	telemetry.Error("analysis.failed", map[string]any{
		"session_id": id,
		"document":   fileName,
		"error":      cause.Error(),
	})
	_ = s.Sessions.Update(id, func(st *Session) {
		st.ErrorMessage = cause.Error()
		st.IsProcessing = false
		st.Progress = nil
	})
	s.announce("Analysis failed", progress.PriorityAssertive)
	return cause
}

// finishCanceled settles the session after a cancellation took effect:
// processing and progress are cleared so the state the caller observes matches
// what Cancel promised, even when a report raced in after the flag was set.
func (s *Service) finishCanceled(id string, completed int) {
	metrics.IncAnalysisCanceled()
	telemetry.Info("analysis.canceled", map[string]any{
		"session_id": id,
		"completed":  completed,
	})
	_ = s.Sessions.Update(id, func(st *Session) {
		st.IsProcessing = false
		st.Progress = nil
	})
	s.announce("Analysis canceled", progress.PriorityPolite)
}

func (s *Service) cancelRequested(id string) bool {
	sess, err := s.Sessions.Get(id)
	if err != nil {
		return true
	}
	return sess.CancelRequested
}

func (s *Service) report(id string, u progress.Update) {
	_ = s.Sessions.Update(id, func(st *Session) {
		copied := u
		st.Progress = &copied
	})
	if s.Reporter != nil {
		s.Reporter.Report(id, u)
	}
}

func (s *Service) announce(message string, priority progress.Priority) {
	if s.Announcer != nil {
		s.Announcer.Announce(message, priority)
	}
}

func scaleAnalysisProgress(completed, total int) int {
	if total <= 0 {
		return progressAnalysisStart
	}
	span := progressAnalysisEnd - progressAnalysisStart
	return progressAnalysisStart + completed*span/total
}

func splitByRole(docs []documents.Document) (*documents.Document, []documents.Document) {
	var tz *documents.Document
	proposals := make([]documents.Document, 0, len(docs))
	for i := range docs {
		doc := docs[i]
		if doc.Status != documents.StatusReady || doc.ExtractedText == "" {
			continue
		}
		switch doc.Role {
		case documents.RoleTechnicalSpec:
			tz = &docs[i]
		case documents.RoleProposal:
			proposals = append(proposals, doc)
		}
	}
	return tz, proposals
}
