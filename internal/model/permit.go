package model

import (
	"strconv"
	"strings"
	"time"
)

// RawPermit is an upstream permit attribute map. Key space depends on the
// source: uppercase snake_case keys from a feature-service query (e.g.
// APPLICATION_DATE) or CSV-header-driven keys from a bulk download. Date
// fields may arrive as epoch-millisecond numbers or date-like strings.
type RawPermit map[string]any

// LeadPriority is the derived urgency tier used to rank permits as leads.
type LeadPriority string

const (
	PriorityHigh   LeadPriority = "High"
	PriorityMedium LeadPriority = "Medium"
	PriorityLow    LeadPriority = "Low"
)

// AllPriorities returns the priority tiers in rank order.
func AllPriorities() []LeadPriority {
	return []LeadPriority{PriorityHigh, PriorityMedium, PriorityLow}
}

// Valid reports whether p is one of the defined tiers.
func (p LeadPriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ContractorType is the derived trade category inferred from work description.
type ContractorType string

const (
	ContractorGeneralContractors ContractorType = "General Contractors"
	ContractorPlumbers           ContractorType = "Plumbers"
	ContractorElectricians       ContractorType = "Electricians"
	ContractorGeneral            ContractorType = "General"
)

// AllContractorTypes returns the contractor categories in rule order.
func AllContractorTypes() []ContractorType {
	return []ContractorType{
		ContractorGeneralContractors,
		ContractorPlumbers,
		ContractorElectricians,
		ContractorGeneral,
	}
}

// Valid reports whether c is one of the defined categories.
func (c ContractorType) Valid() bool {
	switch c {
	case ContractorGeneralContractors, ContractorPlumbers, ContractorElectricians, ContractorGeneral:
		return true
	}
	return false
}

// DateLayout is the calendar-date format used in all canonical output.
const DateLayout = "2006-01-02"

// Date is a calendar date that marshals as "2006-01-02".
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date in UTC.
func NewDate(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// MarshalJSON renders the date as a quoted "2006-01-02" string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.Format(DateLayout))), nil
}

// UnmarshalJSON parses a quoted "2006-01-02" string.
func (d *Date) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return err
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// String returns the date as "2006-01-02".
func (d Date) String() string {
	return d.Format(DateLayout)
}

// Permit is the canonical, normalized permit record. Field names in JSON use
// the human-readable label set, distinct from upstream keys.
type Permit struct {
	PermitNumber      string         `json:"Permit Number"`
	PermitType        string         `json:"Permit Type"`
	Status            string         `json:"Status"`
	ApplicationDate   Date           `json:"Application Date"`
	ConstructionValue float64        `json:"Construction Value"`
	ValueRange        string         `json:"Value Range"`
	WorkType          string         `json:"Work Type"`
	SubWorkType       string         `json:"Sub Work Type"`
	Description       string         `json:"Description"`
	Address           string         `json:"Property Address"`
	TotalUnits        *int           `json:"Total Units,omitempty"`
	UnitsCreated      *int           `json:"Units Created,omitempty"`
	LeadPriority      LeadPriority   `json:"Lead Priority"`
	ContractorType    ContractorType `json:"Contractor Type"`
}

// CSVHeader returns the canonical label set as a flat-table header row.
func CSVHeader() []string {
	return []string{
		"Permit Number",
		"Permit Type",
		"Status",
		"Application Date",
		"Construction Value",
		"Value Range",
		"Work Type",
		"Sub Work Type",
		"Description",
		"Property Address",
		"Total Units",
		"Units Created",
		"Lead Priority",
		"Contractor Type",
	}
}

// CSVRecord returns the permit as one flat-table row, aligned with CSVHeader.
// Values are formatted so re-parsing reproduces the same fields: dates as
// "2006-01-02" and construction value as a plain decimal without currency
// symbols or thousands separators.
func (p Permit) CSVRecord() []string {
	return []string{
		p.PermitNumber,
		p.PermitType,
		p.Status,
		p.ApplicationDate.String(),
		strconv.FormatFloat(p.ConstructionValue, 'f', 2, 64),
		p.ValueRange,
		p.WorkType,
		p.SubWorkType,
		p.Description,
		p.Address,
		formatOptionalInt(p.TotalUnits),
		formatOptionalInt(p.UnitsCreated),
		string(p.LeadPriority),
		string(p.ContractorType),
	}
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// valueRangeBuckets defines the labeled construction-value bands, lowest first.
var valueRangeBuckets = []struct {
	max   float64
	label string
}{
	{50_000, "$0 - $50,000"},
	{100_000, "$50,000 - $100,000"},
	{500_000, "$100,000 - $500,000"},
	{1_000_000, "$500,000 - $1,000,000"},
}

const valueRangeTop = "$1,000,000+"

// ValueRangeFor returns the labeled band containing the given construction value.
func ValueRangeFor(value float64) string {
	for _, b := range valueRangeBuckets {
		if value < b.max {
			return b.label
		}
	}
	return valueRangeTop
}

// AllValueRanges returns the band labels, lowest first.
func AllValueRanges() []string {
	labels := make([]string, 0, len(valueRangeBuckets)+1)
	for _, b := range valueRangeBuckets {
		labels = append(labels, b.label)
	}
	return append(labels, valueRangeTop)
}

// NormalizeKey uppercases and trims an upstream field name so both
// feature-service keys (APPLICATION_DATE) and CSV headers (Application_Date,
// "application date") match the same alias entry.
func NormalizeKey(key string) string {
	key = strings.ToUpper(strings.TrimSpace(key))
	return strings.ReplaceAll(key, " ", "_")
}
