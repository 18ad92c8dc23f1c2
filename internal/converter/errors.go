package converter

import "errors"

// Error kinds for the conversion pipeline. Every failure returned by
// Convert wraps exactly one of these, so callers select behavior with
// errors.Is instead of parsing messages.
var (
	// ErrIO covers a source file that is missing, unreadable, or not a
	// valid NetCDF container.
	ErrIO = errors.New("source file unreadable or malformed")

	// ErrSchema covers a required variable that is absent or has the
	// wrong shape or type.
	ErrSchema = errors.New("required variable missing or malformed")

	// ErrAlignment covers source arrays with mismatched lengths.
	ErrAlignment = errors.New("source arrays misaligned")

	// ErrWrite covers an output path that cannot be written.
	ErrWrite = errors.New("output not writable")
)

// Kind returns the metric label for a conversion error.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrSchema):
		return "schema"
	case errors.Is(err, ErrAlignment):
		return "alignment"
	case errors.Is(err, ErrWrite):
		return "write"
	case errors.Is(err, ErrIO):
		return "io"
	default:
		return "internal"
	}
}
