package progress

// Stage names for a session analysis run.
const (
	StageUpload     = "upload"
	StageExtraction = "extraction"
	StageAnalysis   = "analysis"
	StageComparison = "comparison"
	StageDone       = "done"
)

// Update is one transient progress report for a running analysis.
type Update struct {
	Stage                string `json:"stage"`
	Progress             int    `json:"progress"`
	Message              string `json:"message"`
	TimeElapsedMs        int64  `json:"timeElapsedMs"`
	EstimatedRemainingMs *int64 `json:"estimatedRemainingMs,omitempty"`
}

// Reporter receives every progress update immediately; implementations must
// not buffer or coalesce.
type Reporter interface {
	Report(sessionID string, u Update)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(sessionID string, u Update)

// Report calls f.
func (f ReporterFunc) Report(sessionID string, u Update) {
	f(sessionID, u)
}

// Discard is a Reporter that drops every update.
var Discard Reporter = ReporterFunc(func(string, Update) {})
