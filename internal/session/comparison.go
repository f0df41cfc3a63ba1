package session

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// BuildComparison ranks every analysis result locally. Stable sort descending
// by compliance score keeps the upload order for ties; the best choice is the
// top of the ranking. No external call is involved.
func BuildComparison(results []AnalysisResult) ComparisonResult {
	ranked := make([]AnalysisResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ComplianceScore > ranked[j].ComplianceScore
	})

	cmp := ComparisonResult{
		ID:               uuid.NewString(),
		Ranking:          make([]RankingEntry, 0, len(ranked)),
		Recommendations:  []string{},
		ComparisonMatrix: make([]MatrixRow, 0, len(ranked)),
	}
	for i, r := range ranked {
		cmp.Ranking = append(cmp.Ranking, RankingEntry{
			KPID:       r.KPID,
			Rank:       i + 1,
			TotalScore: r.ComplianceScore,
		})
		cmp.ComparisonMatrix = append(cmp.ComparisonMatrix, MatrixRow{
			KPID:            r.KPID,
			CompanyName:     r.CompanyName,
			ComplianceScore: r.ComplianceScore,
			Ratings:         r.Ratings,
		})
	}
	if len(ranked) == 0 {
		cmp.Summary = "No proposals were analyzed."
		return cmp
	}

	best := ranked[0]
	cmp.BestChoice = best.KPID
	cmp.Summary = fmt.Sprintf(
		"%d proposal(s) evaluated. %s leads with a compliance score of %.0f.",
		len(ranked), best.CompanyName, best.ComplianceScore,
	)
	cmp.Recommendations = append(cmp.Recommendations,
		fmt.Sprintf("Proceed with %s (score %.0f).", best.CompanyName, best.ComplianceScore))
	for _, r := range ranked {
		if len(r.MissingRequirements) > 0 {
			cmp.Recommendations = append(cmp.Recommendations,
				fmt.Sprintf("Clarify %d missing requirement(s) with %s before contracting.",
					len(r.MissingRequirements), r.CompanyName))
		}
	}
	return cmp
}
