package pipeline

import (
	"strings"
	"time"

	"github.com/sells-group/permit-leads/internal/model"
)

// Priority value thresholds. A permit at or above highValueThreshold is a
// high-priority lead regardless of work type.
const (
	highValueThreshold   = 1_000_000
	mediumValueThreshold = 500_000
)

// highPriorityWorkTerms mark work types that signal an active renovation lead.
var highPriorityWorkTerms = []string{"renovation", "alteration", "addition"}

// generalContractorTerms, plumberTerms, and electricianTerm drive the
// contractor-type rules. Rule order is significant: the rules are not
// mutually exclusive and the ordering encodes which trade wins.
var (
	generalContractorTerms = []string{"garden suite", "addition to building", "addition"}
	plumberTerms           = []string{"bathroom", "plumbing"}
	electricianTerm        = "interior finish"
)

// containsAny reports whether the haystack contains any of the terms.
func containsAny(haystack string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

// DeterminePriority derives the lead-priority tier from the work type, permit
// type, and construction value. Matching is case-insensitive substring,
// evaluated in fixed order; the first matching rule wins:
//
//  1. value >= $1,000,000                                 -> High
//  2. work type mentions renovation/alteration/addition   -> High
//  3. new construction on a residential permit            -> High
//  4. value >= $500,000                                   -> Medium
//  5. residential permit                                  -> Medium
//  6. otherwise                                           -> Low
func DeterminePriority(workType, permitType string, constructionValue float64) model.LeadPriority {
	work := strings.ToLower(workType)
	permit := strings.ToLower(permitType)

	switch {
	case constructionValue >= highValueThreshold:
		return model.PriorityHigh
	case containsAny(work, highPriorityWorkTerms):
		return model.PriorityHigh
	case strings.Contains(work, "new construction") && strings.Contains(permit, "residential"):
		return model.PriorityHigh
	case constructionValue >= mediumValueThreshold:
		return model.PriorityMedium
	case strings.Contains(permit, "residential"):
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// DetermineContractorType derives the trade category from the work
// description fields. Case-insensitive substring matching in fixed order,
// first match wins:
//
//  1. work type mentions garden suite / addition to building / addition
//     -> General Contractors
//  2. description or sub work type mentions bathroom / plumbing -> Plumbers
//  3. work type or sub work type mentions interior finish -> Electricians
//  4. otherwise -> General
func DetermineContractorType(workType, description, subWorkType string) model.ContractorType {
	work := strings.ToLower(workType)
	desc := strings.ToLower(description)
	sub := strings.ToLower(subWorkType)

	switch {
	case containsAny(work, generalContractorTerms):
		return model.ContractorGeneralContractors
	case containsAny(desc, plumberTerms) || containsAny(sub, plumberTerms):
		return model.ContractorPlumbers
	case strings.Contains(work, electricianTerm) || strings.Contains(sub, electricianTerm):
		return model.ContractorElectricians
	default:
		return model.ContractorGeneral
	}
}

// classifyRecord builds the final canonical permit from a fully normalized
// and coerced record, attaching the derived classification fields. The
// derived enums are always one of their defined values.
func classifyRecord(rec record) model.Permit {
	value := rec[fieldValue].(float64)
	workType := stringField(rec, fieldWorkType)
	permitType := stringField(rec, fieldPermitType)
	subWorkType := stringField(rec, fieldSubWorkType)
	description := stringField(rec, fieldDescription)

	return model.Permit{
		PermitNumber:      stringField(rec, fieldPermitNumber),
		PermitType:        permitType,
		Status:            stringField(rec, fieldStatus),
		ApplicationDate:   model.NewDate(rec[fieldApplicationDate].(time.Time)),
		ConstructionValue: value,
		ValueRange:        model.ValueRangeFor(value),
		WorkType:          workType,
		SubWorkType:       subWorkType,
		Description:       description,
		Address:           stringField(rec, fieldAddress),
		TotalUnits:        parseOptionalUnits(rec[fieldTotalUnits]),
		UnitsCreated:      parseOptionalUnits(rec[fieldUnitsCreated]),
		LeadPriority:      DeterminePriority(workType, permitType, value),
		ContractorType:    DetermineContractorType(workType, description, subWorkType),
	}
}
