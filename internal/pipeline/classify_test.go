package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/permit-leads/internal/model"
)

func TestDeterminePriority(t *testing.T) {
	tests := []struct {
		name       string
		workType   string
		permitType string
		value      float64
		want       model.LeadPriority
	}{
		{"million dollar repair", "Repair", "Commercial", 1500000, model.PriorityHigh},
		{"exactly one million", "Repair", "Commercial", 1000000, model.PriorityHigh},
		{"renovation work", "Renovation", "Commercial", 20000, model.PriorityHigh},
		{"alteration work", "Interior Alteration", "Commercial", 5000, model.PriorityHigh},
		{"addition work", "Addition To Building", "Commercial", 5000, model.PriorityHigh},
		{"new residential construction", "New Construction", "Residential", 20000, model.PriorityHigh},
		{"new commercial construction mid value", "New Construction", "Commercial", 600000, model.PriorityMedium},
		{"exactly half million", "Repair", "Commercial", 500000, model.PriorityMedium},
		{"residential repair", "Repair", "Residential Single Detached", 20000, model.PriorityMedium},
		{"small commercial repair", "Repair", "Commercial", 20000, model.PriorityLow},
		{"case insensitive", "RENOVATION", "commercial", 1000, model.PriorityHigh},
		{"empty fields", "", "", 0, model.PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeterminePriority(tt.workType, tt.permitType, tt.value)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetermineContractorType(t *testing.T) {
	tests := []struct {
		name        string
		workType    string
		description string
		subWorkType string
		want        model.ContractorType
	}{
		{"garden suite", "Garden Suite", "", "", model.ContractorGeneralContractors},
		{"addition to building", "Addition To Building", "", "", model.ContractorGeneralContractors},
		{"plain addition", "Addition", "", "", model.ContractorGeneralContractors},
		{"bathroom in description", "Repair", "bathroom remodel", "", model.ContractorPlumbers},
		{"plumbing in sub work type", "Repair", "", "Plumbing Rough-In", model.ContractorPlumbers},
		{"interior finish work type", "Interior Finish", "", "", model.ContractorElectricians},
		{"interior finish sub work type", "Repair", "", "Interior Finish", model.ContractorElectricians},
		{"no match", "Repair", "roof replacement", "Shingles", model.ContractorGeneral},
		{"empty fields", "", "", "", model.ContractorGeneral},

		// Rule order: work-type addition beats a bathroom mention.
		{"addition wins over bathroom", "Addition To Building", "bathroom remodel", "", model.ContractorGeneralContractors},
		// Plumber rule beats the electrician rule.
		{"bathroom wins over interior finish", "Repair", "bathroom", "Interior Finish", model.ContractorPlumbers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetermineContractorType(tt.workType, tt.description, tt.subWorkType)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyRecord(t *testing.T) {
	rec := record{
		fieldPermitNumber:    "BP-2025-042",
		fieldPermitType:      "Residential",
		fieldStatus:          "Issued",
		fieldApplicationDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		fieldValue:           float64(750000),
		fieldWorkType:        "Renovation",
		fieldSubWorkType:     "Interior Finish",
		fieldDescription:     "full gut renovation",
		fieldAddress:         "10 Queen St",
		fieldTotalUnits:      "2",
	}

	p := classifyRecord(rec)
	assert.Equal(t, "BP-2025-042", p.PermitNumber)
	assert.Equal(t, "2025-04-01", p.ApplicationDate.String())
	assert.Equal(t, float64(750000), p.ConstructionValue)
	assert.Equal(t, "$500,000 - $1,000,000", p.ValueRange)
	assert.Equal(t, model.PriorityHigh, p.LeadPriority)
	assert.Equal(t, model.ContractorElectricians, p.ContractorType)
	if assert.NotNil(t, p.TotalUnits) {
		assert.Equal(t, 2, *p.TotalUnits)
	}
	assert.Nil(t, p.UnitsCreated)
	assert.True(t, p.LeadPriority.Valid())
	assert.True(t, p.ContractorType.Valid())
}
