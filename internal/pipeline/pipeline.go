package pipeline

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/permit-leads/internal/model"
)

// Options configures a Transformer.
type Options struct {
	// WindowMonths is the recency window; permits older than the latest
	// application date in the batch minus this many months are filtered out.
	WindowMonths int

	// MinValue drops permits below this construction value after coercion.
	// Zero disables the threshold.
	MinValue float64

	// Source labels the result metadata ("feature_service", "csv").
	Source string
}

// DefaultWindowMonths is the recency window applied when none is configured.
const DefaultWindowMonths = 12

// Transformer runs the permit transformation pipeline. It owns no
// cross-invocation state; Transform is a pure function of its input batch,
// so concurrent runs over different batches need no coordination.
type Transformer struct {
	opts Options
	now  func() time.Time
}

// New creates a Transformer with the given options.
func New(opts Options) *Transformer {
	if opts.WindowMonths <= 0 {
		opts.WindowMonths = DefaultWindowMonths
	}
	return &Transformer{opts: opts, now: time.Now}
}

// Transform sequences the pipeline stages over one raw batch:
// normalize fields -> validate dates -> recency filter -> coerce values ->
// classify -> sort -> aggregate. Per-row failures are recovered locally
// (drop or default) and recorded in the data-quality block; batch-level
// failures surface as a structured error result, never as a panic.
func (t *Transformer) Transform(raw []model.RawPermit) (result *model.TransformResult) {
	dq := model.DataQuality{RecordsReceived: len(raw)}

	// A stage bug must degrade to a transformation_error result rather than
	// leak a panic to the caller.
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("pipeline: stage panic recovered", zap.Any("panic", r))
			result = t.errorResult(model.ErrTransformation,
				fmt.Sprintf("error transforming permit data: %v", r), dq)
		}
	}()

	if len(raw) == 0 {
		return t.warningResult(model.ErrNoData, "no permit data available from the source", dq)
	}

	normalized := normalizeFields(raw)
	dq.MissingByField = normalized.missing

	valid, invalid := validateDates(normalized.records)
	dq.InvalidDates = invalid
	if len(valid) == 0 {
		return t.errorResult(model.ErrValidation, "no valid records after date validation", dq)
	}

	recent, outside, cutoff := filterRecent(valid, t.opts.WindowMonths)
	dq.OutsideWindow = outside
	// With the cutoff anchored to the latest record, the anchoring record
	// always survives; this terminal only fires under an absolute-cutoff
	// policy.
	if len(recent) == 0 {
		res := t.warningResult(model.ErrNoData,
			fmt.Sprintf("no permits found within the last %d months", t.opts.WindowMonths), dq)
		res.Metadata.FiltersApplied.DateRange = windowLabel(t.opts.WindowMonths, cutoff)
		return res
	}

	dq.DefaultedValues = coerceValues(recent)

	if t.opts.MinValue > 0 {
		kept := recent[:0]
		for _, rec := range recent {
			if rec[fieldValue].(float64) < t.opts.MinValue {
				dq.BelowMinValue++
				continue
			}
			kept = append(kept, rec)
		}
		recent = kept
		if len(recent) == 0 {
			return t.warningResult(model.ErrNoData,
				fmt.Sprintf("no permits at or above $%.2f", t.opts.MinValue), dq)
		}
	}

	permits := make([]model.Permit, 0, len(recent))
	for _, rec := range recent {
		permits = append(permits, classifyRecord(rec))
	}

	// Most-recent application date first; permit-number tiebreak keeps the
	// order deterministic and safe to paginate.
	sort.SliceStable(permits, func(i, j int) bool {
		di, dj := permits[i].ApplicationDate.Time, permits[j].ApplicationDate.Time
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return permits[i].PermitNumber < permits[j].PermitNumber
	})

	dq.RecordsRetained = len(permits)

	summary := Summarize(permits)
	summary.DataQuality = dq

	zap.L().Info("pipeline: transform complete",
		zap.Int("records_received", dq.RecordsReceived),
		zap.Int("invalid_dates", dq.InvalidDates),
		zap.Int("outside_window", dq.OutsideWindow),
		zap.Int("permits", len(permits)),
	)

	return &model.TransformResult{
		Status:  model.StatusSuccess,
		Summary: summary,
		Permits: permits,
		Metadata: model.Metadata{
			Timestamp: t.now().UTC(),
			Source:    t.opts.Source,
			FiltersApplied: model.Filters{
				DateRange: windowLabel(t.opts.WindowMonths, cutoff),
				MinValue:  t.opts.MinValue,
				Fields:    model.CSVHeader(),
			},
		},
	}
}

// FetchError wraps an upstream fetch failure as a structured error result.
// The fetch itself happens outside the pipeline; this keeps the error
// taxonomy in one place.
func (t *Transformer) FetchError(err error) *model.TransformResult {
	return t.errorResult(model.ErrDataFetch, fmt.Sprintf("error fetching permit data: %v", err),
		model.DataQuality{})
}

func (t *Transformer) errorResult(errType model.ErrorType, msg string, dq model.DataQuality) *model.TransformResult {
	zap.L().Error("pipeline: terminating with error result",
		zap.String("error_type", string(errType)),
		zap.String("message", msg),
	)
	return t.terminalResult(model.StatusError, errType, msg, dq)
}

func (t *Transformer) warningResult(errType model.ErrorType, msg string, dq model.DataQuality) *model.TransformResult {
	zap.L().Warn("pipeline: terminating with empty result",
		zap.String("message", msg),
	)
	return t.terminalResult(model.StatusWarning, errType, msg, dq)
}

// terminalResult builds a non-success envelope: zero permits, zeroed summary
// carrying the diagnostics accumulated so far.
func (t *Transformer) terminalResult(status model.Status, errType model.ErrorType, msg string, dq model.DataQuality) *model.TransformResult {
	summary := Summarize(nil)
	summary.DataQuality = dq
	return &model.TransformResult{
		Status:    status,
		ErrorType: errType,
		Message:   msg,
		Summary:   summary,
		Permits:   []model.Permit{},
		Metadata: model.Metadata{
			Timestamp: t.now().UTC(),
			Source:    t.opts.Source,
			FiltersApplied: model.Filters{
				DateRange: fmt.Sprintf("Last %d months", t.opts.WindowMonths),
				MinValue:  t.opts.MinValue,
				Fields:    []string{},
			},
		},
	}
}

func windowLabel(months int, cutoff time.Time) string {
	if cutoff.IsZero() {
		return fmt.Sprintf("Last %d months", months)
	}
	return fmt.Sprintf("Last %d months (from %s)", months, cutoff.Format(model.DateLayout))
}
