package session

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// rawAnalysis mirrors the JSON shape the LLM is instructed to return. Pointer
// fields distinguish absent from zero so validation can reject incomplete
// payloads instead of trusting them.
type rawAnalysis struct {
	CompanyName         *string     `json:"companyName"`
	ComplianceScore     *float64    `json:"complianceScore"`
	Strengths           []string    `json:"strengths"`
	Weaknesses          []string    `json:"weaknesses"`
	MissingRequirements []string    `json:"missingRequirements"`
	Ratings             *rawRatings `json:"ratings"`
	DetailedAnalysis    *string     `json:"detailedAnalysis"`
}

type rawRatings struct {
	Technical *float64 `json:"technical"`
	Financial *float64 `json:"financial"`
	Timeline  *float64 `json:"timeline"`
	Overall   *float64 `json:"overall"`
}

// ParseAnalysisResult validates the raw LLM payload into an AnalysisResult.
// Any missing required field or out-of-range score is a hard rejection.
func ParseAnalysisResult(raw json.RawMessage, kpID, model string) (AnalysisResult, error) {
	var payload rawAnalysis
	if err := json.Unmarshal(raw, &payload); err != nil {
		return AnalysisResult{}, fmt.Errorf("decode analysis payload: %w", err)
	}

	if payload.CompanyName == nil || strings.TrimSpace(*payload.CompanyName) == "" {
		return AnalysisResult{}, fmt.Errorf("analysis payload: companyName is required")
	}
	if payload.ComplianceScore == nil {
		return AnalysisResult{}, fmt.Errorf("analysis payload: complianceScore is required")
	}
	score := *payload.ComplianceScore
	if score < 0 || score > 100 {
		return AnalysisResult{}, fmt.Errorf("analysis payload: complianceScore %v out of range 0..100", score)
	}
	if payload.Ratings == nil {
		return AnalysisResult{}, fmt.Errorf("analysis payload: ratings are required")
	}
	ratings, err := validateRatings(*payload.Ratings)
	if err != nil {
		return AnalysisResult{}, err
	}

	detailed := ""
	if payload.DetailedAnalysis != nil {
		detailed = *payload.DetailedAnalysis
	}

	return AnalysisResult{
		ID:                  uuid.NewString(),
		KPID:                kpID,
		CompanyName:         strings.TrimSpace(*payload.CompanyName),
		ComplianceScore:     score,
		Strengths:           emptyIfNil(payload.Strengths),
		Weaknesses:          emptyIfNil(payload.Weaknesses),
		MissingRequirements: emptyIfNil(payload.MissingRequirements),
		Ratings:             ratings,
		DetailedAnalysis:    detailed,
		Model:               model,
	}, nil
}

func validateRatings(raw rawRatings) (Ratings, error) {
	fields := []struct {
		name  string
		value *float64
	}{
		{"technical", raw.Technical},
		{"financial", raw.Financial},
		{"timeline", raw.Timeline},
		{"overall", raw.Overall},
	}
	var out [4]float64
	for i, f := range fields {
		if f.value == nil {
			return Ratings{}, fmt.Errorf("analysis payload: ratings.%s is required", f.name)
		}
		if *f.value < 0 || *f.value > 10 {
			return Ratings{}, fmt.Errorf("analysis payload: ratings.%s %v out of range 0..10", f.name, *f.value)
		}
		out[i] = *f.value
	}
	return Ratings{
		Technical: out[0],
		Financial: out[1],
		Timeline:  out[2],
		Overall:   out[3],
	}, nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
