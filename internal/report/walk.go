package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/husnusametd/spectra/internal/walkforward"
)

// Verdict returns PASS or FAIL.
func Verdict(rep walkforward.Report) string {
	if rep.Passed {
		return "PASS"
	}
	return "FAIL"
}

// WriteWalkTable prints one line per window followed by the gate result.
func WriteWalkTable(w io.Writer, rep walkforward.Report) error {
	fmt.Fprintf(w, "walk-forward %s %s lookback=%s step=%s run=%s\n",
		rep.Symbol, rep.Timeframe, days(rep.Lookback), days(rep.Step), rep.RunID)
	if len(rep.Records) == 0 {
		fmt.Fprintln(w, "no window fits in the available history")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "#\tTRAIN START\tTRAIN END\tTEST START\tTEST END\tTRAIN ROWS\tTEST ROWS\tOOS SCORE\t")
		for _, r := range rep.Records {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%.3f\t\n",
				r.Index, date(r.TrainStart), date(r.TrainEnd), date(r.TestStart), date(r.TestEnd),
				r.TrainRows, r.TestRows, r.OOSScore)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "median OOS score %.3f (min %.2f): %s\n", rep.Median, rep.MinScore, Verdict(rep))
	return err
}

// WriteWalkCSV writes the window records with their fitted thresholds
// flattened to key=value pairs.
func WriteWalkCSV(w io.Writer, records []walkforward.WindowRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"index", "train_start", "train_end", "test_start", "test_end", "train_rows", "test_rows", "oos_score", "thresholds"}); err != nil {
		return err
	}
	for _, r := range records {
		var th string
		for i, k := range r.Thresholds.Keys() {
			if i > 0 {
				th += ";"
			}
			th += k + "=" + strconv.FormatFloat(r.Thresholds[k], 'g', -1, 64)
		}
		if err := cw.Write([]string{
			strconv.Itoa(r.Index),
			r.TrainStart.UTC().Format(time.RFC3339),
			r.TrainEnd.UTC().Format(time.RFC3339),
			r.TestStart.UTC().Format(time.RFC3339),
			r.TestEnd.UTC().Format(time.RFC3339),
			strconv.Itoa(r.TrainRows),
			strconv.Itoa(r.TestRows),
			strconv.FormatFloat(r.OOSScore, 'f', 6, 64),
			th,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func date(t time.Time) string { return t.UTC().Format(time.DateOnly) }

func days(d time.Duration) string {
	if d%walkforward.Day == 0 {
		return fmt.Sprintf("%dd", int(d/walkforward.Day))
	}
	return d.String()
}
