// Package report implements osnma.Subscriber sinks: a human-readable
// stream writer, a CSV serializer, and a colorized table view built on
// github.com/jedib0t/go-pretty/v6, in the teacher's output/table.go style.
package report

import (
	"osnma/osnma"
)

// Sink receives one kind of processing notification. StreamSink, CSVSink,
// and TableSink each implement it over a different rendering.
type Sink interface {
	Info(msg string)
	SubframeReport(attempts []osnma.AuthAttempt)
	Exception(err error)
}

// Multicast fans every notification out to its registered sinks and
// implements osnma.Subscriber so it can be installed directly via
// Engine.SetSubscriber. A sink whose underlying writer fails (e.g. a
// broken TCP pipe) must not abort the others or propagate back to the
// engine; sinks are expected to swallow their own I/O errors.
type Multicast struct {
	sinks []Sink
}

// NewMulticast combines any number of sinks into a single osnma.Subscriber.
func NewMulticast(sinks ...Sink) *Multicast {
	return &Multicast{sinks: sinks}
}

func (m *Multicast) SendInfo(msg string) {
	for _, s := range m.sinks {
		s.Info(msg)
	}
}

func (m *Multicast) SendSubframeReport(attempts []osnma.AuthAttempt) {
	for _, s := range m.sinks {
		s.SubframeReport(attempts)
	}
}

func (m *Multicast) SendException(err error) {
	for _, s := range m.sinks {
		s.Exception(err)
	}
}
