package models

import "time"

// Metadata keys read by the worker image on boot.
const (
	MetaInputPath     = "gcs-input-path"
	MetaOutputBucket  = "gcs-output-bucket"
	MetaWorkerToken   = "huggingface-token"
	MetaTranscription = "transcription-id"
)

// InputKind tells whether a job was fed by an upload or an external URL.
type InputKind string

const (
	InputFile InputKind = "file"
	InputURL  InputKind = "url"
)

// SubmissionStatus is the outcome of handing a job to the worker VM.
type SubmissionStatus string

const (
	StatusDispatched SubmissionStatus = "dispatched"
	StatusFailed     SubmissionStatus = "failed"
)

// Job carries the parameters injected into the worker VM metadata.
type Job struct {
	ID           string    `json:"id"`
	Kind         InputKind `json:"kind"`
	InputSource  string    `json:"input_source"`
	OutputBucket string    `json:"output_bucket"`
	Token        string    `json:"-"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// MetadataItems returns the key/value pairs the worker expects.
func (j *Job) MetadataItems() map[string]string {
	return map[string]string{
		MetaInputPath:     j.InputSource,
		MetaOutputBucket:  j.OutputBucket,
		MetaWorkerToken:   j.Token,
		MetaTranscription: j.ID,
	}
}

// Transcription is one finished result found in the bucket.
type Transcription struct {
	Name        string `json:"name"`
	DownloadURL string `json:"download_url"`
}

// Submission is the local record of one submit attempt. Error holds the
// upstream cause for operators and is never serialized.
type Submission struct {
	ID          string           `json:"id"`
	JobID       string           `json:"job_id"`
	Kind        InputKind        `json:"kind"`
	InputSource string           `json:"input_source"`
	Status      SubmissionStatus `json:"status"`
	Step        string           `json:"step,omitempty"`
	Error       string           `json:"-"`
	CreatedAt   time.Time        `json:"created_at"`
}

// SubmissionEvent is sent to clients over WebSocket.
type SubmissionEvent struct {
	JobID   string           `json:"job_id"`
	Status  SubmissionStatus `json:"status"`
	Message string           `json:"message,omitempty"`
}
