package log

// MultiLogger fans each event out to several loggers, typically a
// FileLogger capture alongside SlogAdapter console output.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger combines the given loggers into one.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log delivers the event to every configured logger in order.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
