// Package report renders scan results and walk-forward runs for people:
// chat Markdown, mail HTML, terminal tables, CSV and an HTML chart.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/husnusametd/spectra/internal/gateway/notifier"
)

// NoSignals is the body sent when a scan produced no rows.
const NoSignals = "No qualifying signals this run."

// Row is one qualifying asset of a scan.
type Row struct {
	Rank       int       `json:"rank"`
	Ticker     string    `json:"ticker"`
	Signal     string    `json:"signal"`
	Conviction string    `json:"conviction"`
	Entry      float64   `json:"entry"`
	SL         float64   `json:"sl"`
	TP1        float64   `json:"tp1"`
	TP2        float64   `json:"tp2"`
	TS         time.Time `json:"ts"`
}

var rowsTemplate = template.Must(template.New("rows").Funcs(template.FuncMap{
	"price": FormatPrice,
	"ts":    formatTS,
}).Parse(`<table border="1" cellpadding="4" cellspacing="0">
  <tr>
    <th>Rank</th><th>Ticker</th><th>Signal</th><th>Conviction</th>
    <th>Entry</th><th>SL</th><th>TP1</th><th>TP2</th><th>TS</th>
  </tr>
{{- range .}}
  <tr>
    <td>{{.Rank}}</td><td>{{.Ticker}}</td><td>{{.Signal}}</td><td>{{.Conviction}}</td>
    <td>{{price .Entry}}</td><td>{{price .SL}}</td><td>{{price .TP1}}</td><td>{{price .TP2}}</td><td>{{ts .TS}}</td>
  </tr>
{{- end}}
</table>
`))

// HTMLTable renders rows as the mail body.
func HTMLTable(rows []Row) (string, error) {
	if len(rows) == 0 {
		return NoSignals, nil
	}
	var buf bytes.Buffer
	if err := rowsTemplate.Execute(&buf, rows); err != nil {
		return "", fmt.Errorf("render rows: %w", err)
	}
	return buf.String(), nil
}

// Markdown renders rows for chat channels.
func Markdown(subject string, rows []Row, at time.Time) string {
	msg := notifier.StructuredMessage{
		Icon:      "📡",
		Title:     subject,
		Timestamp: at,
		MoreLabel: "signal(s)",
	}
	if len(rows) == 0 {
		msg.Footer = NoSignals
		return msg.RenderMarkdown()
	}
	for _, r := range rows {
		msg.Sections = append(msg.Sections, notifier.MessageSection{
			Title: fmt.Sprintf("#%d %s  %s (%s)", r.Rank, r.Ticker, r.Signal, r.Conviction),
			Lines: []string{
				"entry " + FormatPrice(r.Entry),
				fmt.Sprintf("sl %s  tp1 %s  tp2 %s", FormatPrice(r.SL), FormatPrice(r.TP1), FormatPrice(r.TP2)),
			},
		})
	}
	msg.Footer = fmt.Sprintf("%d signal(s)", len(rows))
	return msg.RenderMarkdown()
}

// ScanMessage builds the notification for one scan.
func ScanMessage(subject string, rows []Row, at time.Time) (notifier.Message, error) {
	html, err := HTMLTable(rows)
	if err != nil {
		return notifier.Message{}, err
	}
	return notifier.Message{
		Subject: subject,
		Text:    Markdown(subject, rows, at),
		HTML:    html,
	}, nil
}

// WriteRows prints rows as an aligned table.
func WriteRows(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, NoSignals)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tTICKER\tSIGNAL\tCONVICTION\tENTRY\tSL\tTP1\tTP2\tTS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Rank, r.Ticker, r.Signal, r.Conviction,
			FormatPrice(r.Entry), FormatPrice(r.SL), FormatPrice(r.TP1), FormatPrice(r.TP2), formatTS(r.TS))
	}
	return tw.Flush()
}

// FormatPrice prints the shortest exact decimal form.
func FormatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTS(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
