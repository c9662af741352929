package types

// Classification is the label given to a plant based on its performance ratio.
type Classification string

const (
	ClassificationExcellent    Classification = "Excellent"
	ClassificationStandard     Classification = "Standard"
	ClassificationReviewNeeded Classification = "Review Needed"
)

// MonthlyAnalysisResult is the outcome of analyzing one plant for one month.
type MonthlyAnalysisResult struct {
	PlantID          string         `json:"plantID"`
	CapacityKWp      float64        `json:"capacityKWp"`
	ActualKWh        float64        `json:"actualKWh"`
	ExpectedKWh      float64        `json:"expectedKWh"`
	PerformanceRatio float64        `json:"performanceRatio"`
	Classification   Classification `json:"classification"`
	// MatchedDays is the number of dates present in both the yield and the
	// irradiance series.
	MatchedDays int `json:"matchedDays"`
}
