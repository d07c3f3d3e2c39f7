package model

import "fmt"

// WarningKind classifies a per-symbol failure.
type WarningKind string

const (
	WarnDataUnavailable WarningKind = "DATA_UNAVAILABLE"
	WarnInvalidSeries   WarningKind = "INVALID_SERIES"
	WarnAnalysisFailed  WarningKind = "ANALYSIS_FAILED"
)

// Stage is the step that produced a warning.
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageValidate Stage = "validate"
	StageFall     Stage = "fall"
	StageDrawdown Stage = "drawdown"
)

// Warning is a per-symbol failure reported beside the results instead of
// aborting the batch.
type Warning struct {
	Symbol string
	Kind   WarningKind
	Stage  Stage
	Err    error
}

func (w Warning) Error() string {
	if w.Err == nil {
		return fmt.Sprintf("%s [%s/%s]", w.Symbol, w.Stage, w.Kind)
	}
	return fmt.Sprintf("%s [%s/%s]: %v", w.Symbol, w.Stage, w.Kind, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }
