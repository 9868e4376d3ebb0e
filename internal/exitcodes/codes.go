package exitcodes

import "errors"

// Standard exit codes for simplefx-update
const (
	// Success indicates successful command completion
	Success = 0

	// GeneralError indicates a general/unknown error
	GeneralError = 1

	// InvalidArgs indicates invalid command-line arguments or flags
	InvalidArgs = 2

	// PreconditionFailed indicates a precondition was not met
	// (e.g., running artifact name does not match the rename contract)
	PreconditionFailed = 3

	// ProcessError indicates the next generation could not be spawned
	ProcessError = 5

	// ValidationError indicates invalid configuration
	ValidationError = 6

	// HandoffFailed is the only failure code a relaunched generation
	// reports: invalid handoff arguments or a failed pre-flight check.
	HandoffFailed = 1
)

// CodeForError returns the appropriate exit code for an error.
// Unwraps to the outermost ErrorWithCode, otherwise returns GeneralError.
func CodeForError(err error) int {
	if err == nil {
		return Success
	}

	var ec *ErrorWithCode
	if errors.As(err, &ec) {
		return ec.Code
	}

	return GeneralError
}

// HeadlessCode collapses err to the relay contract: 0 or HandoffFailed.
func HeadlessCode(err error) int {
	if err == nil {
		return Success
	}
	return HandoffFailed
}
