package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/permit-leads/internal/model"
)

func summaryPermit(num, date string, value float64, priority model.LeadPriority, contractor model.ContractorType) model.Permit {
	d, _ := time.Parse(model.DateLayout, date)
	return model.Permit{
		PermitNumber:      num,
		PermitType:        "Residential",
		ApplicationDate:   model.NewDate(d),
		ConstructionValue: value,
		ValueRange:        model.ValueRangeFor(value),
		LeadPriority:      priority,
		ContractorType:    contractor,
	}
}

func TestSummarize(t *testing.T) {
	permits := []model.Permit{
		summaryPermit("BP-1", "2025-01-10", 2000000, model.PriorityHigh, model.ContractorGeneralContractors),
		summaryPermit("BP-2", "2025-03-20", 60000, model.PriorityMedium, model.ContractorPlumbers),
		summaryPermit("BP-3", "2024-11-05", 40000.555, model.PriorityLow, model.ContractorGeneral),
	}

	s := Summarize(permits)

	assert.Equal(t, 3, s.TotalPermits)
	assert.Equal(t, 1, s.PriorityDistribution["High"])
	assert.Equal(t, 1, s.PriorityDistribution["Medium"])
	assert.Equal(t, 1, s.PriorityDistribution["Low"])
	assert.Equal(t, 1, s.ContractorDistribution["General Contractors"])
	assert.Equal(t, 1, s.ContractorDistribution["Plumbers"])
	assert.Equal(t, 3, s.PermitTypeDistribution["Residential"])
	assert.Equal(t, 1, s.ValueRangeDistribution["$1,000,000+"])
	assert.Equal(t, 1, s.ValueRangeDistribution["$50,000 - $100,000"])
	assert.Equal(t, 1, s.ValueRangeDistribution["$0 - $50,000"])

	assert.Equal(t, "2024-11-05", s.DateRange.Start)
	assert.Equal(t, "2025-03-20", s.DateRange.End)

	assert.InDelta(t, 2100000.56, s.TotalValue, 0.001)
	assert.InDelta(t, 700000.19, s.AverageValue, 0.001)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)

	assert.Zero(t, s.TotalPermits)
	assert.Zero(t, s.TotalValue)
	assert.Zero(t, s.AverageValue) // guarded mean, no NaN
	assert.NotNil(t, s.PriorityDistribution)
	assert.Empty(t, s.PriorityDistribution)
	assert.Empty(t, s.DateRange.Start)
	assert.Empty(t, s.DateRange.End)
}

func TestSummarizeSingle(t *testing.T) {
	s := Summarize([]model.Permit{
		summaryPermit("BP-1", "2025-02-01", 123456.78, model.PriorityMedium, model.ContractorGeneral),
	})

	assert.Equal(t, 1, s.TotalPermits)
	assert.Equal(t, s.DateRange.Start, s.DateRange.End)
	assert.InDelta(t, 123456.78, s.AverageValue, 0.001)
	assert.InDelta(t, s.TotalValue, s.AverageValue, 0.001)
}
