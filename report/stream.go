package report

import (
	"fmt"
	"io"

	"osnma/osnma"
)

// StreamSink writes plain-text lines to an io.Writer (stdout, a file, a
// TCP connection). Write failures are swallowed: a sink must never cause
// the engine to abort subframe processing.
type StreamSink struct {
	w io.Writer
}

// NewStreamSink wraps w as a Sink.
func NewStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{w: w}
}

func (s *StreamSink) Info(msg string) {
	fmt.Fprintf(s.w, "[info] %s\n", msg)
}

func (s *StreamSink) SubframeReport(attempts []osnma.AuthAttempt) {
	for _, a := range attempts {
		fmt.Fprintf(s.w, "[auth] PRND=%d PRNA=%d WN=%d TOW=%d ADKD=%d outcome=%s\n",
			a.PRND, a.PRNA, a.WN, a.TOW, a.ADKD, a.Outcome)
	}
}

func (s *StreamSink) Exception(err error) {
	fmt.Fprintf(s.w, "[error] %s\n", err)
}
