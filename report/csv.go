package report

import (
	"fmt"
	"io"
	"strings"

	"osnma/osnma"
)

// CSVSink serializes AuthAttempts as "PRND;PRNA;WN;TOW;ADKD;Outcome" rows
// (or any separator the caller chooses), writing the header once before
// the first row. All fields are integers, Outcome included: the ICD-style
// status code (0/1/2/90/91/92), not its name, matching the original
// receiver's CSV sink. PRND and PRNA are always a concrete satellite id in
// this engine's AuthAttempt (never the "-1 for missing" case the original
// schema allows for): every attempt is built from an actual tag/info entry
// with both ids already known, so there is no code path that needs -1.
type CSVSink struct {
	w           io.Writer
	sep         string
	wroteHeader bool
}

// NewCSVSink wraps w as a CSV Sink using sep as the field separator.
func NewCSVSink(w io.Writer, sep string) *CSVSink {
	if sep == "" {
		sep = ","
	}
	return &CSVSink{w: w, sep: sep}
}

func (c *CSVSink) Info(string) {}

func (c *CSVSink) Exception(error) {}

func (c *CSVSink) SubframeReport(attempts []osnma.AuthAttempt) {
	if !c.wroteHeader {
		fmt.Fprintln(c.w, strings.Join([]string{"PRND", "PRNA", "WN", "TOW", "ADKD", "Outcome"}, c.sep))
		c.wroteHeader = true
	}
	for _, a := range attempts {
		fields := []string{
			fmt.Sprint(a.PRND),
			fmt.Sprint(a.PRNA),
			fmt.Sprint(a.WN),
			fmt.Sprint(a.TOW),
			fmt.Sprint(a.ADKD),
			fmt.Sprint(int(a.Outcome)),
		}
		fmt.Fprintln(c.w, strings.Join(fields, c.sep))
	}
}
