package transcribe

import "fmt"

// Steps of a submission that talk to a remote service.
const (
	StepUpload      = "upload"
	StepGetMetadata = "get-metadata"
	StepSetMetadata = "set-metadata"
	StepStart       = "start"
)

// InputError is a problem with what the client sent. Its message is
// safe to show to the user.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

var (
	ErrNoInput         = &InputError{Msg: "No URL or file provided"}
	ErrInvalidFileType = &InputError{Msg: "Invalid file type"}
)

// UpstreamError wraps a storage or compute failure with the step that hit it.
type UpstreamError struct {
	Step  string
	JobID string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed for job %s: %v", e.Step, e.JobID, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
