package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"osnma/osnma"
)

var (
	colorHeader  = text.Colors{text.FgCyan, text.Bold}
	colorLabel   = text.Colors{text.FgYellow}
	colorSuccess = text.Colors{text.FgGreen}
	colorError   = text.Colors{text.FgRed}
	colorWarn    = text.Colors{text.FgYellow}
)

func tableStyle() table.Style {
	style := table.StyleRounded
	style.Color.Header = colorHeader
	style.Color.Row = text.Colors{text.FgWhite}
	style.Color.RowAlternate = text.Colors{text.FgHiWhite}
	style.Options.SeparateRows = false
	return style
}

// TableSink renders each subframe's authentication attempts as a
// colorized table, one render per SendSubframeReport call.
type TableSink struct {
	w io.Writer
}

// NewTableSink wraps w (normally os.Stdout) as a Sink.
func NewTableSink(w io.Writer) *TableSink {
	return &TableSink{w: w}
}

func (s *TableSink) Info(msg string) {
	fmt.Fprintln(s.w, colorLabel.Sprintf("[info] %s", msg))
}

func (s *TableSink) Exception(err error) {
	fmt.Fprintln(s.w, colorError.Sprintf("✗ %s", err))
}

func (s *TableSink) SubframeReport(attempts []osnma.AuthAttempt) {
	if len(attempts) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(s.w)
	t.SetStyle(tableStyle())
	t.SetTitle("SUBFRAME AUTHENTICATION REPORT")
	t.AppendHeader(table.Row{"PRND", "PRNA", "WN", "TOW", "ADKD", "Outcome"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 6},
		{Number: 2, WidthMin: 6},
		{Number: 3, WidthMin: 6},
		{Number: 4, WidthMin: 8},
		{Number: 5, WidthMin: 6},
		{Number: 6, Colors: colorLabel, WidthMin: 20},
	})

	for _, a := range attempts {
		outcome := a.Outcome.String()
		if a.IsOK() {
			outcome = colorSuccess.Sprint(outcome)
		} else {
			outcome = colorError.Sprint(outcome)
		}
		t.AppendRow(table.Row{a.PRND, a.PRNA, a.WN, a.TOW, a.ADKD, outcome})
	}
	t.Render()
}
