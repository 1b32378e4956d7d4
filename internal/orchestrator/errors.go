package orchestrator

import "errors"

// Input errors surfaced directly to the caller.
var (
	errContentRequired = errors.New("content is required")
	errQueryRequired   = errors.New("query is required")
	errIDRequired      = errors.New("id is required")
	errIDOrQuery       = errors.New("id or query is required")
	errNoUpdates       = errors.New("no updates provided")
	errNoMatch         = errors.New("no matching memory found")
)

// IsInputError reports whether err is a caller mistake rather than a
// dependency failure. The CLI keeps exit code 0 for these and reports
// them in the JSON payload.
func IsInputError(err error) bool {
	switch {
	case errors.Is(err, errContentRequired),
		errors.Is(err, errQueryRequired),
		errors.Is(err, errIDRequired),
		errors.Is(err, errIDOrQuery),
		errors.Is(err, errNoUpdates),
		errors.Is(err, errNoMatch):
		return true
	}
	return false
}
