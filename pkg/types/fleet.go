package types

import "time"

// DiagnosticReason explains why a plant is missing from a fleet summary.
type DiagnosticReason string

const (
	DiagnosticSourceUnreadable      DiagnosticReason = "sourceUnreadable"
	DiagnosticColumnNotFound        DiagnosticReason = "columnNotFound"
	DiagnosticIrradianceUnavailable DiagnosticReason = "irradianceUnavailable"
	DiagnosticCanceled              DiagnosticReason = "canceled"
	DiagnosticFailed                DiagnosticReason = "failed"
	DiagnosticQualityGate           DiagnosticReason = "qualityGate"
)

// PlantDiagnostic records a plant that did not make it into the results.
type PlantDiagnostic struct {
	PlantID string           `json:"plantID"`
	Reason  DiagnosticReason `json:"reason"`
	Error   string           `json:"error,omitempty"`
	// PerformanceRatio is only set for plants discarded by the quality gate.
	PerformanceRatio float64 `json:"performanceRatio,omitempty"`
}

// FleetSummary is the ordered collection of results produced by one fleet run.
type FleetSummary struct {
	Month      Month                   `json:"month"`
	TiltFactor float64                 `json:"tiltFactor"`
	SystemLoss float64                 `json:"systemLoss"`
	Results    []MonthlyAnalysisResult `json:"results"`
	Skipped    []PlantDiagnostic       `json:"skipped,omitempty"`
	Discarded  []PlantDiagnostic       `json:"discarded,omitempty"`
}

// Empty reports whether no plant produced a result, in which case there is
// nothing to report.
func (s FleetSummary) Empty() bool {
	return len(s.Results) == 0
}

// FleetRun is an archived FleetSummary.
type FleetRun struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	FleetSummary
}
