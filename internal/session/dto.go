package session

import (
	"time"

	"proposal-backend/internal/progress"
)

type sessionResponse struct {
	SessionID      string            `json:"sessionId"`
	SelectedModels SelectedModels    `json:"selectedModels"`
	CurrentStep    string            `json:"currentStep"`
	IsProcessing   bool              `json:"isProcessing"`
	Progress       *progress.Update  `json:"progress,omitempty"`
	Error          string            `json:"error,omitempty"`
	Results        []AnalysisResult  `json:"results,omitempty"`
	Comparison     *ComparisonResult `json:"comparisonResult,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

func toResponse(sess Session) sessionResponse {
	return sessionResponse{
		SessionID:      sess.ID,
		SelectedModels: sess.SelectedModels,
		CurrentStep:    sess.CurrentStep,
		IsProcessing:   sess.IsProcessing,
		Progress:       sess.Progress,
		Error:          sess.ErrorMessage,
		Results:        sess.Results,
		Comparison:     sess.Comparison,
		CreatedAt:      sess.CreatedAt,
	}
}
