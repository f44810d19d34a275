package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papyrushq/papyrus/internal/eventlog"
	"github.com/papyrushq/papyrus/internal/metrics"
	"github.com/papyrushq/papyrus/internal/model"
)

// ErrInterrupted is returned by Dispatch when an extractor was terminated
// mid-run. The dispatch must be re-run by some worker; nothing terminal has
// been recorded for the interrupted extractor.
var ErrInterrupted = errors.New("extraction interrupted")

// ErrMissingParameter is returned when an extractor is invoked without a
// parameter it requires. This is a configuration error, not a runtime
// extraction failure, and must not be retried.
var ErrMissingParameter = errors.New("missing required extraction parameter")

// Dispatcher selects the extractors capable of processing a blob and runs
// them in deterministic cost order, recording every state transition in the
// event log.
type Dispatcher struct {
	registry *Registry
	recorder eventlog.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewDispatcher builds a dispatcher.
func NewDispatcher(registry *Registry, recorder eventlog.Recorder, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, recorder: recorder, logger: logger, now: time.Now}
}

// Dispatch runs every capable extractor against the request, cheapest first.
// Terminal failures are recorded and dispatch moves on to the next
// candidate; they are never returned as errors. A returned error means one
// of: an extractor was interrupted (ErrInterrupted, re-run the dispatch), a
// required parameter was missing (ErrMissingParameter, do not retry), or a
// terminal event could not be written to the event log (retry, since losing
// it would corrupt status reconstruction).
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) error {
	candidates := d.registry.CandidatesFor(req.Blob.MediaType, req.Blob.Size)
	names := make([]string, len(candidates))
	for i, e := range candidates {
		names[i] = e.Name()
	}

	detected, err := model.NewDetectedEvent(req.Blob.ID, req.IngestID, model.DetectedDetails{
		MediaType:  req.Blob.MediaType,
		Workspace:  req.Params.Workspace,
		Extractors: names,
	}, d.now())
	if err != nil {
		return err
	}
	if err := d.recorder.AppendEvent(ctx, detected); err != nil {
		return fmt.Errorf("record media type detection: %w", err)
	}
	d.logger.Info("dispatching extraction",
		"blob", req.Blob.ID, "ingest", req.IngestID,
		"mediaType", req.Blob.MediaType, "extractors", names)

	failures := 0
	for _, ex := range candidates {
		if err := d.recordStatus(ctx, req, ex.Name(), model.StatusStarted, ""); err != nil {
			return err
		}

		outcome := ex.Extract(ctx, req)
		metrics.ObserveOutcome(ex.Name(), string(outcome.Kind))

		switch {
		case outcome.IsInterrupt():
			// Leave no terminal event so the extractor still looks
			// unattempted when another worker picks the task up.
			d.logger.Info("extractor interrupted", "blob", req.Blob.ID, "extractor", ex.Name())
			return fmt.Errorf("%s: %w", ex.Name(), ErrInterrupted)

		case outcome.IsFailure() && outcome.Failure == FailureMissingParameter:
			if err := d.recordStatus(ctx, req, ex.Name(), model.StatusFailure, outcome.Detail); err != nil {
				return err
			}
			return fmt.Errorf("%s: %s: %w", ex.Name(), outcome.Detail, ErrMissingParameter)

		case outcome.IsFailure():
			failures++
			d.logger.Warn("extractor failed",
				"blob", req.Blob.ID, "extractor", ex.Name(),
				"kind", outcome.Failure, "detail", outcome.Detail)
			detail := fmt.Sprintf("%s: %s", outcome.Failure, outcome.Detail)
			if err := d.recordStatus(ctx, req, ex.Name(), model.StatusFailure, detail); err != nil {
				return err
			}

		default:
			d.logger.Info("extractor succeeded", "blob", req.Blob.ID, "extractor", ex.Name())
			if err := d.recordStatus(ctx, req, ex.Name(), model.StatusSuccess, ""); err != nil {
				return err
			}
		}
	}

	if failures == len(candidates) && failures > 0 {
		d.logger.Warn("all extractors failed", "blob", req.Blob.ID, "ingest", req.IngestID)
	}
	return nil
}

func (d *Dispatcher) recordStatus(ctx context.Context, req Request, extractor string, status model.ExtractionStatus, detail string) error {
	ev, err := model.NewExtractionEvent(req.Blob.ID, req.IngestID, extractor, status, detail, d.now())
	if err != nil {
		return err
	}
	if err := d.recorder.AppendEvent(ctx, ev); err != nil {
		return fmt.Errorf("record %s for %s: %w", status, extractor, err)
	}
	return nil
}
