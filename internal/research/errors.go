package research

import "github.com/rotisserie/eris"

// Typed rejections surfaced synchronously to callers. Failures that happen
// inside background execution are recorded on the job row instead.
var (
	// ErrNotRunnable is returned when a job is not in a state that permits
	// the requested transition.
	ErrNotRunnable = eris.New("job is not in a runnable state")

	// ErrJobActive is returned when deleting a job that is pending or running.
	ErrJobActive = eris.New("job is active and cannot be deleted")

	// ErrNoRawResult is returned by Reprocess when the job has no stored raw
	// response to re-parse.
	ErrNoRawResult = eris.New("job has no raw result to reprocess")

	// ErrAgentCall marks a failed create-interaction call. The job is already
	// moved to failed when this is returned; re-queueing is the only retry
	// path.
	ErrAgentCall = eris.New("research agent call failed")

	// ErrParseFailed marks exhaustion of all parse strategies.
	ErrParseFailed = eris.New("could not parse research result")
)
