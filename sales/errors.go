package sales

import "github.com/pkg/errors"

var (
	// ErrRead is returned when an input file cannot be opened or read.
	ErrRead = errors.New("read sales data")

	// ErrParse is returned when an input file is malformed.
	ErrParse = errors.New("parse sales data")
)

// parseError wraps ErrParse with the offending line.
func parseError(line int, format string, args ...interface{}) error {
	return errors.Wrapf(ErrParse, "line %d: "+format, append([]interface{}{line}, args...)...)
}
