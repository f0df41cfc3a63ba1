package session

import (
	"time"

	"proposal-backend/internal/progress"
)

// Steps of the analysis state machine.
const (
	StepUpload  = "upload"
	StepAnalyze = "analyze"
	StepResults = "results"
)

// SelectedModels names the LLM models used by a session.
type SelectedModels struct {
	Analysis   string `json:"analysis"`
	Comparison string `json:"comparison"`
}

// Ratings holds per-dimension scores on a 0..10 scale.
type Ratings struct {
	Technical float64 `json:"technical"`
	Financial float64 `json:"financial"`
	Timeline  float64 `json:"timeline"`
	Overall   float64 `json:"overall"`
}

// AnalysisResult is the evaluation of one commercial proposal against the
// technical specification. Immutable once created; a re-run produces a fresh
// result rather than patching in place.
type AnalysisResult struct {
	ID                  string   `json:"id"`
	KPID                string   `json:"kpId"`
	CompanyName         string   `json:"companyName"`
	ComplianceScore     float64  `json:"complianceScore"`
	Strengths           []string `json:"strengths"`
	Weaknesses          []string `json:"weaknesses"`
	MissingRequirements []string `json:"missingRequirements"`
	Ratings             Ratings  `json:"ratings"`
	DetailedAnalysis    string   `json:"detailedAnalysis"`
	Model               string   `json:"model"`
}

// RankingEntry is one row of the comparison ranking.
type RankingEntry struct {
	KPID       string  `json:"kpId"`
	Rank       int     `json:"rank"`
	TotalScore float64 `json:"totalScore"`
}

// MatrixRow is one proposal's row in the comparison matrix, in ranked order.
type MatrixRow struct {
	KPID            string  `json:"kpId"`
	CompanyName     string  `json:"companyName"`
	ComplianceScore float64 `json:"complianceScore"`
	Ratings         Ratings `json:"ratings"`
}

// ComparisonResult ranks every analyzed proposal. It is recomputed as a whole
// whenever the result set changes, never partially updated.
type ComparisonResult struct {
	ID               string         `json:"id"`
	Summary          string         `json:"summary"`
	Ranking          []RankingEntry `json:"ranking"`
	Recommendations  []string       `json:"recommendations"`
	BestChoice       string         `json:"bestChoice"`
	ComparisonMatrix []MatrixRow    `json:"comparisonMatrix"`
}

// Session is the mutable state of one analysis run. Documents themselves live
// in the documents repository; the session tracks the state machine, the
// produced results and the in-flight progress.
type Session struct {
	ID              string
	SelectedModels  SelectedModels
	CurrentStep     string
	IsProcessing    bool
	Progress        *progress.Update
	ErrorMessage    string
	Results         []AnalysisResult
	Comparison      *ComparisonResult
	CancelRequested bool
	CreatedAt       time.Time
}

// Clone returns a deep copy safe to hand outside the store's lock.
func (s Session) Clone() Session {
	out := s
	if s.Progress != nil {
		p := *s.Progress
		out.Progress = &p
	}
	if s.Results != nil {
		out.Results = make([]AnalysisResult, len(s.Results))
		for i, r := range s.Results {
			out.Results[i] = cloneResult(r)
		}
	}
	if s.Comparison != nil {
		c := cloneComparison(*s.Comparison)
		out.Comparison = &c
	}
	return out
}

func cloneResult(r AnalysisResult) AnalysisResult {
	out := r
	out.Strengths = cloneSlice(r.Strengths)
	out.Weaknesses = cloneSlice(r.Weaknesses)
	out.MissingRequirements = cloneSlice(r.MissingRequirements)
	return out
}

func cloneComparison(c ComparisonResult) ComparisonResult {
	out := c
	out.Ranking = cloneSlice(c.Ranking)
	out.Recommendations = cloneSlice(c.Recommendations)
	out.ComparisonMatrix = cloneSlice(c.ComparisonMatrix)
	return out
}

// cloneSlice keeps nil and empty distinct so copies compare deep-equal to
// their source.
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
