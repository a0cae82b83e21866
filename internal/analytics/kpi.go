package analytics

// Summary holds raw totals over a view.
type Summary struct {
	TotalEnrolments int64 `json:"total_enrolments" yaml:"total_enrolments"`
	TotalUpdates    int64 `json:"total_updates" yaml:"total_updates"`
	TotalFailures   int64 `json:"total_failures" yaml:"total_failures"`
	Records         int   `json:"records" yaml:"records"`
}

// KPIs holds the three operational metrics of a view.
type KPIs struct {
	AvgDailyEnrolments float64 `json:"avg_daily_enrolments" yaml:"avg_daily_enrolments"`
	FailureRate        float64 `json:"failure_rate" yaml:"failure_rate"`
	AvgServiceLoad     float64 `json:"avg_service_load" yaml:"avg_service_load"`
}

// Distribution is the enrolment/update split of a view.
type Distribution struct {
	Enrolments int64 `json:"enrolments" yaml:"enrolments"`
	Updates    int64 `json:"updates" yaml:"updates"`
}

// Summarize totals the count fields of v.
func Summarize(v View) Summary {
	return Summary{
		TotalEnrolments: RoundInt(v.Sum(NewEnrolments)),
		TotalUpdates:    RoundInt(v.Sum(UpdateRequests)),
		TotalFailures:   RoundInt(v.Sum(Failures)),
		Records:         v.Len(),
	}
}

// Distribute returns the enrolment and update totals of v.
func Distribute(v View) Distribution {
	return Distribution{
		Enrolments: RoundInt(v.Sum(NewEnrolments)),
		Updates:    RoundInt(v.Sum(UpdateRequests)),
	}
}

// ComputeKPIs derives the operational metrics of v.
//
// avg_service_load is the mean of per-row load ratios, not the ratio of sums: every row
// weighs the same regardless of its volume.
func ComputeKPIs(v View) KPIs {
	enrolments := v.Sum(NewEnrolments)
	updates := v.Sum(UpdateRequests)
	failures := v.Sum(Failures)

	load, _ := v.Mean(LoadRatio)

	return KPIs{
		AvgDailyEnrolments: Round2(SafeRatio(enrolments, float64(v.DistinctDates()))),
		FailureRate:        Round2(failureRate(failures, enrolments, updates) * 100),
		AvgServiceLoad:     Round2(load),
	}
}

// failureRate is failures over total demand as a fraction.
func failureRate(failures, enrolments, updates float64) float64 {
	return SafeRatio(failures, enrolments+updates)
}
