package history

import (
	"time"

	"proposal-backend/internal/session"
)

// MaxItems caps the persisted history list. Insertion always prepends and the
// list is truncated to the cap afterwards.
const MaxItems = 50

// Item is the persisted summary of a completed analysis session.
type Item struct {
	ID         string                    `json:"id"`
	Name       string                    `json:"name"`
	Date       time.Time                 `json:"date"`
	TZName     string                    `json:"tzName"`
	KPCount    int                       `json:"kpCount"`
	AvgScore   float64                   `json:"avgScore"`
	Status     string                    `json:"status"`
	Results    []session.AnalysisResult  `json:"results"`
	Comparison *session.ComparisonResult `json:"comparisonResult"`
}

// Clone returns a deep copy of the item. Nil and empty slices stay distinct
// so copies compare deep-equal to their source.
func (it Item) Clone() Item {
	out := it
	if it.Results != nil {
		out.Results = make([]session.AnalysisResult, len(it.Results))
		for i, r := range it.Results {
			copied := r
			copied.Strengths = cloneStrings(r.Strengths)
			copied.Weaknesses = cloneStrings(r.Weaknesses)
			copied.MissingRequirements = cloneStrings(r.MissingRequirements)
			out.Results[i] = copied
		}
	}
	if it.Comparison != nil {
		c := *it.Comparison
		if it.Comparison.Ranking != nil {
			c.Ranking = make([]session.RankingEntry, len(it.Comparison.Ranking))
			copy(c.Ranking, it.Comparison.Ranking)
		}
		c.Recommendations = cloneStrings(it.Comparison.Recommendations)
		if it.Comparison.ComparisonMatrix != nil {
			c.ComparisonMatrix = make([]session.MatrixRow, len(it.Comparison.ComparisonMatrix))
			copy(c.ComparisonMatrix, it.Comparison.ComparisonMatrix)
		}
		out.Comparison = &c
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
