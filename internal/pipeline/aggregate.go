package pipeline

import (
	"math"

	"github.com/sells-group/permit-leads/internal/model"
)

// Summarize computes the aggregate statistics for the final permit sequence:
// total count, frequency distributions over lead priority / contractor type /
// permit type / value range, the application-date range, and total and mean
// construction value. The empty sequence yields zero counts and empty
// distributions; the mean is guarded so it never divides by zero.
func Summarize(permits []model.Permit) model.Summary {
	summary := model.Summary{
		TotalPermits:           len(permits),
		PriorityDistribution:   make(map[string]int),
		ContractorDistribution: make(map[string]int),
		PermitTypeDistribution: make(map[string]int),
		ValueRangeDistribution: make(map[string]int),
	}

	if len(permits) == 0 {
		return summary
	}

	minDate := permits[0].ApplicationDate.Time
	maxDate := permits[0].ApplicationDate.Time

	for _, p := range permits {
		summary.PriorityDistribution[string(p.LeadPriority)]++
		summary.ContractorDistribution[string(p.ContractorType)]++
		summary.PermitTypeDistribution[p.PermitType]++
		summary.ValueRangeDistribution[p.ValueRange]++
		summary.TotalValue += p.ConstructionValue

		d := p.ApplicationDate.Time
		if d.Before(minDate) {
			minDate = d
		}
		if d.After(maxDate) {
			maxDate = d
		}
	}

	summary.DateRange = model.DateRange{
		Start: minDate.Format(model.DateLayout),
		End:   maxDate.Format(model.DateLayout),
	}
	summary.TotalValue = roundCents(summary.TotalValue)
	summary.AverageValue = roundCents(summary.TotalValue / float64(len(permits)))

	return summary
}

// roundCents rounds a dollar amount to two decimal places so totals computed
// from coerced floats stay presentable.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
