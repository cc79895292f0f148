package model

import "time"

// Status is the terminal outcome of a transform run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// ErrorType classifies a failed or degraded transform run.
type ErrorType string

const (
	ErrValidation     ErrorType = "validation_error"
	ErrTransformation ErrorType = "transformation_error"
	ErrDataFetch      ErrorType = "data_fetch_error"
	ErrNoData         ErrorType = "no_data"
)

// DataQuality carries per-stage record counts for observability. Every run
// reports how many records each stage received, dropped, and passed on.
type DataQuality struct {
	RecordsReceived int            `json:"records_received"`
	MissingByField  map[string]int `json:"missing_by_field,omitempty"`
	InvalidDates    int            `json:"invalid_dates"`
	OutsideWindow   int            `json:"outside_window"`
	BelowMinValue   int            `json:"below_min_value"`
	DefaultedValues int            `json:"defaulted_values"`
	RecordsRetained int            `json:"records_retained"`
}

// DateRange holds the min/max application dates as calendar-date strings.
// Both are empty when the permit set is empty.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Summary holds the aggregate statistics over the final permit set.
type Summary struct {
	TotalPermits           int            `json:"total_permits"`
	PriorityDistribution   map[string]int `json:"priority_distribution"`
	ContractorDistribution map[string]int `json:"contractor_distribution"`
	PermitTypeDistribution map[string]int `json:"permit_type_distribution"`
	ValueRangeDistribution map[string]int `json:"value_range_distribution"`
	DateRange              DateRange      `json:"date_range"`
	TotalValue             float64        `json:"total_construction_value"`
	AverageValue           float64        `json:"average_construction_value"`
	DataQuality            DataQuality    `json:"data_quality"`
}

// Filters describes the filters a transform run applied, for the metadata block.
type Filters struct {
	DateRange string   `json:"date_range"`
	MinValue  float64  `json:"min_value,omitempty"`
	Fields    []string `json:"fields_selected"`
}

// Metadata describes when and how a result was produced.
type Metadata struct {
	Timestamp      time.Time `json:"timestamp"`
	Source         string    `json:"source,omitempty"`
	BatchID        string    `json:"batch_id,omitempty"`
	FiltersApplied Filters   `json:"filters_applied"`
}

// TransformResult is the pipeline's output envelope. Permits are ordered
// most-recent application date first; ties break on permit number so the
// sequence is stable and randomly indexable for pagination.
type TransformResult struct {
	Status    Status    `json:"status"`
	ErrorType ErrorType `json:"error_type,omitempty"`
	Message   string    `json:"message,omitempty"`
	Summary   Summary   `json:"summary"`
	Permits   []Permit  `json:"permits"`
	Metadata  Metadata  `json:"metadata"`
}
