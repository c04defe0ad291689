package check

import "fmt"

// RiskLevel is the pre-edit risk bucket produced for the `check` command
// (§4.5 "Pre-edit risk scoring").
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskDanger   RiskLevel = "DANGER"
)

// RiskSummary is the result of scoring a node before an edit.
type RiskSummary struct {
	Level         RiskLevel
	CallerCount   int
	FileCount     int
	ViolationCount int
	Summary       string
}

// ScoreRisk combines caller count (structural risk), the node's current
// violation count (health), and cross-module fan-out into a qualitative
// risk bucket, following the teacher's churn-scoring shape of bucketing
// aggregate counts into a qualitative signal (see DESIGN.md internal/check).
func ScoreRisk(callerCount, callerFileCount, violationCount, fanOutModules int) RiskSummary {
	score := callerCount + 2*violationCount + 3*fanOutModules

	var level RiskLevel
	switch {
	case score == 0:
		level = RiskLow
	case score <= 4:
		level = RiskModerate
	case score <= 12:
		level = RiskHigh
	default:
		level = RiskDanger
	}

	summary := summarizeCallers(callerCount, callerFileCount)
	return RiskSummary{
		Level:          level,
		CallerCount:    callerCount,
		FileCount:      callerFileCount,
		ViolationCount: violationCount,
		Summary:        summary,
	}
}

// summarizeCallers matches §4.5's display contract: "Summarizes >=20
// callers as 'N callers across M files, top K shown'".
func summarizeCallers(callerCount, fileCount int) string {
	if callerCount == 0 {
		return "no known callers"
	}
	if callerCount >= 20 {
		top := 10
		return fmt.Sprintf("%d callers across %d files, top %d shown", callerCount, fileCount, top)
	}
	return fmt.Sprintf("%d caller(s) across %d file(s)", callerCount, fileCount)
}
