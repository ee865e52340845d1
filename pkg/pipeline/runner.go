package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	pferrors "github.com/otherjamesbrown/meeting-insights/pkg/errors"
	"github.com/otherjamesbrown/meeting-insights/pkg/insights"
	"github.com/otherjamesbrown/meeting-insights/pkg/logging"
	"github.com/otherjamesbrown/meeting-insights/pkg/transcript"
)

// DefaultPipelineTimeout bounds one meeting's end-to-end processing.
const DefaultPipelineTimeout = 30 * time.Minute

// Transcriber turns a recording into a transcript. Implementations report
// sub-stage progress through the callback when it is non-nil.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, progress func(pct float64, stage string)) (*transcript.Transcript, error)
}

// InsightGenerator produces the insight bundle for a transcript.
type InsightGenerator interface {
	Run(ctx context.Context, meetingID string, t *transcript.Transcript) *insights.InsightBundle
}

// Ingester adds a processed meeting to the search index.
type Ingester interface {
	IngestMeeting(ctx context.Context, meetingID, projectID string, t *transcript.Transcript, bundle *insights.InsightBundle) (int, error)
}

// Result is everything one pipeline run produces.
type Result struct {
	MeetingID  string                  `json:"meeting_id"`
	ProjectID  string                  `json:"project_id,omitempty"`
	Transcript *transcript.Transcript  `json:"transcript"`
	Insights   *insights.InsightBundle `json:"insights"`
}

// ResultsStore persists pipeline results.
type ResultsStore interface {
	SaveResult(ctx context.Context, result *Result) error
	LoadResult(ctx context.Context, meetingID string) (*Result, error)
}

// RunnerConfig tunes the runner.
type RunnerConfig struct {
	// PipelineTimeout bounds one meeting end to end.
	PipelineTimeout time.Duration `yaml:"pipeline_timeout"`
}

// Runner drives one meeting through the pipeline stages, keeping the tracker
// current as it goes. Transcription failure is the only fatal stage; insight
// degradation, storage, and indexing problems leave the job completable.
type Runner struct {
	tracker     *Tracker
	transcriber Transcriber
	generator   InsightGenerator
	store       ResultsStore
	ingester    Ingester
	timeout     time.Duration
	logger      logging.Logger
	tracer      trace.Tracer
}

// NewRunner wires the pipeline stages together.
func NewRunner(tracker *Tracker, transcriber Transcriber, generator InsightGenerator, store ResultsStore, ingester Ingester, cfg RunnerConfig, logger logging.Logger) *Runner {
	timeout := cfg.PipelineTimeout
	if timeout <= 0 {
		timeout = DefaultPipelineTimeout
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Runner{
		tracker:     tracker,
		transcriber: transcriber,
		generator:   generator,
		store:       store,
		ingester:    ingester,
		timeout:     timeout,
		logger:      logger.With(logging.F("component", "runner")),
		tracer:      otel.Tracer("pipeline"),
	}
}

// Handle follows one background pipeline run.
type Handle struct {
	MeetingID string

	done   chan struct{}
	err    error
	result *Result
}

// Done closes when the run finishes, successfully or not.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the run's terminal error. Valid once Done is closed.
func (h *Handle) Err() error { return h.err }

// Result returns the run's output. Valid once Done is closed.
func (h *Handle) Result() *Result { return h.result }

// Wait blocks until the run finishes or ctx expires.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Process registers a job for the meeting and runs the pipeline in the
// background. It fails fast with ErrAlreadyProcessing when the meeting has
// an active job.
func (r *Runner) Process(ctx context.Context, meetingID, jobUUID, projectID, audioPath string) (*Handle, error) {
	if _, err := r.tracker.Create(meetingID, jobUUID); err != nil {
		return nil, err
	}

	handle := &Handle{MeetingID: meetingID, done: make(chan struct{})}
	go func() {
		defer close(handle.done)
		handle.result, handle.err = r.run(ctx, meetingID, projectID, audioPath)
	}()
	return handle, nil
}

func (r *Runner) run(ctx context.Context, meetingID, projectID, audioPath string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("meeting_id", meetingID)))
	defer span.End()

	logger := r.logger.With(logging.F("meeting_id", meetingID))

	fail := func(err error) (*Result, error) {
		pe := pferrors.ClassifyError(err, "pipeline")
		if ferr := r.tracker.Fail(meetingID, pe); ferr != nil {
			logger.Error("failed to record job failure", logging.Err(ferr))
		}
		return nil, pe
	}

	// Transcription: the only stage whose failure kills the job.
	if err := r.tracker.Advance(meetingID, StatusTranscribing, 5, "Transcribing audio"); err != nil {
		return fail(err)
	}
	tr, err := r.transcriber.Transcribe(ctx, audioPath, func(pct float64, stage string) {
		// Transcription sub-stages occupy the 5-75 band.
		scaled := 5 + pct*0.70
		if perr := r.tracker.Progress(meetingID, scaled, stage); perr != nil {
			logger.Warn("progress update failed", logging.Err(perr))
		}
	})
	if err != nil {
		logger.Error("transcription failed", logging.Err(err))
		return fail(err)
	}
	if tr.IsEmpty() {
		logger.Warn("transcription produced no content")
	} else {
		logger.Info("transcription complete",
			logging.F("segments", len(tr.Segments)),
			logging.F("speakers", len(tr.Speakers())),
			logging.F("duration_s", tr.DurationSeconds()))
	}

	// Insight generation never fails the job: individual agents degrade to
	// their fallbacks inside the orchestrator.
	if err := r.tracker.Advance(meetingID, StatusGeneratingInsights, 80, "Running insight agents"); err != nil {
		return fail(err)
	}
	bundle := r.generator.Run(ctx, meetingID, tr)
	if degraded := bundle.DegradedAgents(); len(degraded) > 0 {
		logger.Warn("insights degraded", logging.F("agents", degraded))
	}

	result := &Result{
		MeetingID:  meetingID,
		ProjectID:  projectID,
		Transcript: tr,
		Insights:   bundle,
	}

	if err := r.tracker.Advance(meetingID, StatusSavingResults, 95, "Saving results"); err != nil {
		return fail(err)
	}
	if r.store != nil {
		if err := r.store.SaveResult(ctx, result); err != nil {
			logger.Warn("saving results failed", logging.Err(err))
		}
	}

	if r.ingester != nil {
		if perr := r.tracker.Progress(meetingID, 98, "Indexing for search"); perr != nil {
			logger.Warn("progress update failed", logging.Err(perr))
		}
		if _, err := r.ingester.IngestMeeting(ctx, meetingID, projectID, tr, bundle); err != nil {
			logger.Warn("search indexing failed", logging.Err(err))
		}
	}

	if err := r.tracker.Complete(meetingID); err != nil {
		return fail(err)
	}
	return result, nil
}
