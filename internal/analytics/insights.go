package analytics

// Insight thresholds.
const (
	// HighFailureRate is the failure fraction above which failures are flagged.
	HighFailureRate = 0.05
	// HighServiceLoad is the mean per-row load ratio above which load is flagged.
	HighServiceLoad = 1.2
)

// Insight statements, as (flagged, default) pairs in output order.
const (
	InsightUpdateDemand    = "Update demand exceeds enrolments."
	InsightEnrolmentDemand = "Enrolments dominate demand."
	InsightFailureHigh     = "Failure rate is high."
	InsightFailureOK       = "Failure rate acceptable."
	InsightLoadHigh        = "Operational load is high."
	InsightLoadBalanced    = "Operational load balanced."
)

// GenerateInsights evaluates the three fixed rules over v. It always returns exactly three
// statements: demand mix, failure rate, operational load.
func GenerateInsights(v View) []string {
	enrolments := v.Sum(NewEnrolments)
	updates := v.Sum(UpdateRequests)
	failures := v.Sum(Failures)
	load, _ := v.Mean(LoadRatio)

	insights := make([]string, 0, 3)

	if updates > enrolments {
		insights = append(insights, InsightUpdateDemand)
	} else {
		insights = append(insights, InsightEnrolmentDemand)
	}

	if failureRate(failures, enrolments, updates) > HighFailureRate {
		insights = append(insights, InsightFailureHigh)
	} else {
		insights = append(insights, InsightFailureOK)
	}

	if load > HighServiceLoad {
		insights = append(insights, InsightLoadHigh)
	} else {
		insights = append(insights, InsightLoadBalanced)
	}

	return insights
}
