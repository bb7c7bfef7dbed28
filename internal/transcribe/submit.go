package transcribe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"transcribeAnything/internal/compute"
	"transcribeAnything/internal/config"
	"transcribeAnything/internal/models"
	"transcribeAnything/internal/objectstore"
)

// Upload is a media file received from the client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Request is one submission. At least one of URL and File must be set;
// File wins when both are.
type Request struct {
	URL  string
	File *Upload
}

// Recorder keeps a history of submissions.
type Recorder interface {
	Record(ctx context.Context, s *models.Submission) error
}

// Notifier fans submission outcomes out to live clients.
type Notifier interface {
	Notify(evt models.SubmissionEvent)
}

// Submitter hands transcription jobs to the worker VM.
type Submitter struct {
	logger  *slog.Logger
	store   objectstore.Store
	compute compute.Controller

	bucket         string
	token          string
	maxUploadBytes int64

	recorder Recorder
	notifier Notifier
	now      func() time.Time

	// dispatchMu serializes metadata writes and starts: the VM holds one
	// job's parameters at a time.
	dispatchMu sync.Mutex
}

// NewSubmitter builds a Submitter. recorder and notifier may be nil.
func NewSubmitter(logger *slog.Logger, cfg *config.Config, store objectstore.Store, ctrl compute.Controller, recorder Recorder, notifier Notifier) *Submitter {
	return &Submitter{
		logger:         logger,
		store:          store,
		compute:        ctrl,
		bucket:         cfg.BucketName,
		token:          cfg.WorkerToken,
		maxUploadBytes: cfg.MaxUploadBytes,
		recorder:       recorder,
		notifier:       notifier,
		now:            time.Now,
	}
}

// Submit validates req, uploads its file if any, loads the job into the
// VM metadata and starts the VM. Steps are not rolled back on failure.
func (s *Submitter) Submit(ctx context.Context, req Request) (*models.Job, error) {
	job, securedName, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	if req.File != nil {
		objectName := ObjectName(job.ID, securedName)
		uri, err := s.store.Upload(ctx, objectName, req.File.Body, req.File.ContentType)
		if err != nil {
			return nil, s.fail(ctx, job, StepUpload, err)
		}
		job.InputSource = uri
		s.logger.Info("file uploaded", "job_id", job.ID, "object", objectName)
	} else {
		s.logger.Info("url submitted", "job_id", job.ID, "url", job.InputSource)
	}

	if step, err := s.dispatch(ctx, job); err != nil {
		return nil, s.fail(ctx, job, step, err)
	}

	s.logger.Info("instance start command sent", "job_id", job.ID)
	s.record(ctx, job, models.StatusDispatched, "", nil)
	s.notify(models.SubmissionEvent{
		JobID:   job.ID,
		Status:  models.StatusDispatched,
		Message: fmt.Sprintf("Transcription job '%s' initiated. The VM is spinning up.", job.ID),
	})
	return job, nil
}

func (s *Submitter) prepare(req Request) (*models.Job, string, error) {
	url := req.URL
	if strings.TrimSpace(url) == "" && req.File == nil {
		return nil, "", ErrNoInput
	}

	job := &models.Job{
		OutputBucket: s.bucket,
		Token:        s.token,
		SubmittedAt:  s.now(),
	}

	if req.File == nil {
		job.Kind = models.InputURL
		job.InputSource = url
		job.ID = JobID(URLBaseName(url), job.SubmittedAt)
		return job, "", nil
	}

	if s.maxUploadBytes > 0 && req.File.Size > s.maxUploadBytes {
		return nil, "", &InputError{Msg: FormatLimitExceeded(s.maxUploadBytes)}
	}
	if !AllowedFile(req.File.Filename) {
		return nil, "", ErrInvalidFileType
	}
	secured := UploadName(req.File.Filename)
	job.Kind = models.InputFile
	job.ID = JobID(FileBaseName(secured), job.SubmittedAt)
	return job, secured, nil
}

// dispatch returns the step that failed along with its error.
func (s *Submitter) dispatch(ctx context.Context, job *models.Job) (string, error) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	md, err := s.compute.Metadata(ctx)
	if err != nil {
		return StepGetMetadata, err
	}

	s.logger.Info("setting instance metadata", "job_id", job.ID)
	items := compute.Merge(md.Items, job.MetadataItems())
	if err := s.compute.SetMetadata(ctx, md.Fingerprint, items); err != nil {
		return StepSetMetadata, err
	}

	s.logger.Info("starting instance", "job_id", job.ID)
	if err := s.compute.Start(ctx); err != nil {
		return StepStart, err
	}
	return "", nil
}

func (s *Submitter) fail(ctx context.Context, job *models.Job, step string, err error) error {
	s.logger.Error("submission failed", "job_id", job.ID, "step", step, "error", err)
	s.record(ctx, job, models.StatusFailed, step, err)
	s.notify(models.SubmissionEvent{
		JobID:   job.ID,
		Status:  models.StatusFailed,
		Message: fmt.Sprintf("Failed to initiate transcription (%s).", step),
	})
	return &UpstreamError{Step: step, JobID: job.ID, Err: err}
}

func (s *Submitter) record(ctx context.Context, job *models.Job, status models.SubmissionStatus, step string, cause error) {
	if s.recorder == nil {
		return
	}
	sub := &models.Submission{
		JobID:       job.ID,
		Kind:        job.Kind,
		InputSource: job.InputSource,
		Status:      status,
		Step:        step,
		CreatedAt:   job.SubmittedAt.UTC(),
	}
	if cause != nil {
		sub.Error = cause.Error()
	}
	if err := s.recorder.Record(context.WithoutCancel(ctx), sub); err != nil {
		s.logger.Warn("failed to record submission", "job_id", job.ID, "error", err)
	}
}

func (s *Submitter) notify(evt models.SubmissionEvent) {
	if s.notifier != nil {
		s.notifier.Notify(evt)
	}
}

// FormatLimitExceeded is the client message for an upload over limit bytes.
func FormatLimitExceeded(limit int64) string {
	return fmt.Sprintf("File size exceeds %s limit.", formatLimit(limit))
}

func formatLimit(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}
