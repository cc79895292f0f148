// Package pipeline normalizes raw building-permit records into canonical
// permits, derives lead-qualification attributes, and aggregates summary
// statistics. The whole package is a pure transformation: one input batch in,
// one result out, no I/O and no shared mutable state.
package pipeline

import (
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/permit-leads/internal/model"
)

// Canonical field keys used between stages. Output labels live in model.
const (
	fieldPermitNumber    = "permit_number"
	fieldPermitType      = "permit_type"
	fieldStatus          = "permit_status"
	fieldApplicationDate = "application_date"
	fieldValue           = "construction_value"
	fieldWorkType        = "work_type"
	fieldSubWorkType     = "sub_work_type"
	fieldDescription     = "description"
	fieldAddress         = "property_address"
	fieldTotalUnits      = "total_units"
	fieldUnitsCreated    = "units_created"
)

// missingText is the sentinel filled into absent text fields. Construction
// value defaults to 0 instead; application_date is never defaulted.
const missingText = "Not Available"

// canonicalFields lists each canonical key with the upstream names it accepts,
// in priority order. The aliases cover both the feature-service attribute
// names and the bulk-CSV headers, which disagree on several fields (PERMITNO
// vs PERMIT_NO, PERMIT_DESCRIPTION vs DESCRIPTION). When one record carries
// two names for the same field, the earlier alias with a non-empty value wins,
// so resolution never depends on map iteration order. Matching is
// case-insensitive via model.NormalizeKey.
var canonicalFields = []struct {
	key     string
	aliases []string
}{
	{fieldPermitNumber, []string{"PERMITNO", "PERMIT_NO", "PERMIT_NUMBER"}},
	{fieldPermitType, []string{"PERMIT_TYPE"}},
	{fieldStatus, []string{"PERMIT_STATUS", "STATUS"}},
	{fieldApplicationDate, []string{"APPLICATION_DATE", "PERMIT_DATE"}},
	{fieldValue, []string{"CONSTRUCTION_VALUE"}},
	{fieldWorkType, []string{"WORK_TYPE"}},
	{fieldSubWorkType, []string{"SUB_WORK_TYPE"}},
	{fieldDescription, []string{"PERMIT_DESCRIPTION", "DESCRIPTION"}},
	{fieldAddress, []string{"PROPERTY_ADDRESS", "ADDRESS"}},
	{fieldTotalUnits, []string{"TOTAL_UNITS"}},
	{fieldUnitsCreated, []string{"UNITS_CREATED"}},
}

// textFields are the canonical fields defaulted with the missingText sentinel.
var textFields = []string{
	fieldPermitNumber,
	fieldPermitType,
	fieldStatus,
	fieldWorkType,
	fieldSubWorkType,
	fieldDescription,
	fieldAddress,
}

// record is an intermediate row keyed by canonical field names.
type record map[string]any

// normalizeResult is the output of the field-normalizer stage.
type normalizeResult struct {
	records []record
	missing map[string]int
}

// normalizeFields maps each raw record's upstream field names onto canonical
// keys and fills defaults for absent fields. No record is dropped here; rows
// with an unusable application date are handled by the date stage. Per-field
// missing counts are reported for the data-quality block.
func normalizeFields(raw []model.RawPermit) normalizeResult {
	out := normalizeResult{
		records: make([]record, 0, len(raw)),
		missing: make(map[string]int),
	}

	for _, rp := range raw {
		keys := make([]string, 0, len(rp))
		for k := range rp {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		// Unrecognized upstream columns carry nothing over; duplicate raw
		// keys normalizing to the same name resolve in sorted-key order.
		upstream := make(map[string]any, len(rp))
		for _, k := range keys {
			nk := model.NormalizeKey(k)
			if _, ok := upstream[nk]; ok {
				continue
			}
			if v := rp[k]; !isEmptyValue(v) {
				upstream[nk] = v
			}
		}

		rec := make(record, len(canonicalFields))
		for _, cf := range canonicalFields {
			for _, alias := range cf.aliases {
				if v, ok := upstream[alias]; ok {
					rec[cf.key] = v
					break
				}
			}
		}

		for _, f := range textFields {
			if _, ok := rec[f]; !ok {
				rec[f] = missingText
				out.missing[f]++
			}
		}
		if _, ok := rec[fieldValue]; !ok {
			rec[fieldValue] = float64(0)
			out.missing[fieldValue]++
		}
		if _, ok := rec[fieldApplicationDate]; !ok {
			out.missing[fieldApplicationDate]++
		}

		out.records = append(out.records, rec)
	}

	if len(out.missing) > 0 {
		zap.L().Debug("normalize: missing field counts",
			zap.Int("records", len(out.records)),
			zap.Any("missing_by_field", out.missing),
		)
	}

	return out
}

// isEmptyValue reports whether an upstream value carries no information.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}

// stringField returns the canonical field as a string, or the missing
// sentinel. Numeric upstream values (a numeric permit number from the
// feature service) are rendered without an exponent.
func stringField(rec record, key string) string {
	v, ok := rec[key]
	if !ok {
		return missingText
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return missingText
		}
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return missingText
}
