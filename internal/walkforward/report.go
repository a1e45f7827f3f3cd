package walkforward

import (
	"time"

	"github.com/google/uuid"
)

// Report is a completed run together with its gate decision.
type Report struct {
	RunID       string         `json:"run_id"`
	Symbol      string         `json:"symbol"`
	Timeframe   string         `json:"timeframe"`
	Lookback    time.Duration  `json:"lookback"`
	Step        time.Duration  `json:"step"`
	MinScore    float64        `json:"min_score"`
	Records     []WindowRecord `json:"records"`
	Median      float64        `json:"median"`
	Passed      bool           `json:"passed"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// NewReport applies the gate to records.
func NewReport(symbol, timeframe string, cfg Config, minScore float64, records []WindowRecord) Report {
	// Median stays 0 for an empty run; Passed is what matters.
	median, _ := Median(Scores(records))
	return Report{
		RunID:       uuid.NewString(),
		Symbol:      symbol,
		Timeframe:   timeframe,
		Lookback:    cfg.Lookback,
		Step:        cfg.Step,
		MinScore:    minScore,
		Records:     records,
		Median:      median,
		Passed:      Gate(records, minScore),
		GeneratedAt: time.Now().UTC(),
	}
}

// Latest returns the thresholds fitted on the most recent window, which is
// what an orchestrator would persist after a passing run.
func (r Report) Latest() (WindowRecord, bool) {
	if len(r.Records) == 0 {
		return WindowRecord{}, false
	}
	return r.Records[len(r.Records)-1], true
}
