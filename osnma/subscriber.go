package osnma

// Subscriber receives notifications from the engine as it processes
// subframes: informational progress notices, per-subframe authentication
// reports, and non-fatal exceptions (e.g. a subframe with no OSNMA bits).
// Implementations (see the report package) must not block or panic; a
// misbehaving subscriber must never interrupt subframe processing.
type Subscriber interface {
	SendInfo(msg string)
	SendSubframeReport(attempts []AuthAttempt)
	SendException(err error)
}

// noopSubscriber discards everything; used until a real Subscriber is set.
type noopSubscriber struct{}

func (noopSubscriber) SendInfo(string)                 {}
func (noopSubscriber) SendSubframeReport([]AuthAttempt) {}
func (noopSubscriber) SendException(error)             {}

// multicastSubscriber fans calls out to every registered Subscriber.
type multicastSubscriber struct {
	subs []Subscriber
}

// NewMulticastSubscriber combines several subscribers into one.
func NewMulticastSubscriber(subs ...Subscriber) Subscriber {
	return &multicastSubscriber{subs: subs}
}

func (m *multicastSubscriber) SendInfo(msg string) {
	for _, s := range m.subs {
		s.SendInfo(msg)
	}
}

func (m *multicastSubscriber) SendSubframeReport(attempts []AuthAttempt) {
	for _, s := range m.subs {
		s.SendSubframeReport(attempts)
	}
}

func (m *multicastSubscriber) SendException(err error) {
	for _, s := range m.subs {
		s.SendException(err)
	}
}
