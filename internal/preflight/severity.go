package preflight

// Severity is how serious a finding is.
type Severity int

const (
	// Warning is reported but never blocks apply.
	Warning Severity = iota
	// Error blocks apply unless preflight is skipped.
	Error
)

// String returns the uppercase label for the severity level.
func (s Severity) String() string {
	switch s {
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
