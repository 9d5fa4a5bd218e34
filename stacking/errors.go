// Error and severity types for the stacking engine. Configuration errors are
// setup bugs and are never swallowed; policy inconsistencies are diagnostics
// reported at a configured severity.

package stacking

import "fmt"

// ConfigurationError reports setup-time misuse of the coordinator: an
// unregistered waiting tier, an unregistered sub-batch type, an out-of-range
// tier count, or a registration made after processing began. It indicates a
// bug in run setup, not a runtime data condition.
type ConfigurationError struct {
	Op     string // the operation that was misused
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("stacking configuration error in %s: %s", e.Op, e.Detail)
}

func configErrorf(op, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Op: op, Detail: fmt.Sprintf(format, args...)}
}

// Severity controls how a PolicyInconsistency diagnostic is reported: a
// default-classification override matched a track but the explicit policy
// decision disagreed. Below SeverityFatal the diagnostic never blocks
// execution.
type Severity string

const (
	SeverityIgnore Severity = "ignore"
	SeverityWarn   Severity = "warn"
	SeverityFatal  Severity = "fatal"
)

// ValidSeverities is the set of recognized severity names.
var ValidSeverities = map[string]bool{
	"":                     true,
	string(SeverityIgnore): true,
	string(SeverityWarn):   true,
	string(SeverityFatal):  true,
}
