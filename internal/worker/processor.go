// Package worker plugs the extraction dispatcher into the asynq worker
// loop. Workers coordinate only through the durable event log and the
// queue; there is no shared in-memory scheduler state, so a dispatch must
// be safe to run more than once for the same blob.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"

	"github.com/papyrushq/papyrus/internal/extract"
	"github.com/papyrushq/papyrus/internal/model"
	"github.com/papyrushq/papyrus/internal/queue"
	"github.com/papyrushq/papyrus/internal/s3storage"
)

// Processor handles extraction tasks.
type Processor struct {
	store      *s3storage.Storage
	dispatcher *extract.Dispatcher
	scratchDir string
	languages  []string
	logger     *slog.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(store *s3storage.Storage, dispatcher *extract.Dispatcher, scratchDir string, languages []string, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		store:      store,
		dispatcher: dispatcher,
		scratchDir: scratchDir,
		languages:  languages,
		logger:     logger,
	}
}

// Handler registers the extract job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ExtractBlobTask, p.handleExtract)
	return mux
}

// handleExtract downloads the blob to scratch and dispatches it. The
// returned error drives asynq's retry policy: an interrupted dispatch and a
// failed terminal-event write are retryable; a missing required parameter
// is a configuration error and skips retry.
func (p *Processor) handleExtract(ctx context.Context, task *asynq.Task) error {
	var payload queue.ExtractPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	localPath := filepath.Join(p.scratchDir, fmt.Sprintf("%s.blob", payload.BlobID))
	if err := p.store.DownloadRawToFile(ctx, payload.ObjectKey, localPath); err != nil {
		return fmt.Errorf("download %s: %w", payload.BlobID, err)
	}
	defer os.Remove(localPath)

	req := extract.Request{
		Blob: model.Blob{
			ID:        payload.BlobID,
			MediaType: payload.MediaType,
			Size:      payload.Size,
		},
		IngestID:  payload.IngestID,
		LocalPath: localPath,
		Params: extract.Params{
			ScratchDir: p.scratchDir,
			Languages:  p.languages,
			Workspace:  payload.Workspace,
		},
	}

	err := p.dispatcher.Dispatch(ctx, req)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, extract.ErrMissingParameter):
		p.logger.Error("extraction misconfigured", "blob", payload.BlobID, "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	case errors.Is(err, extract.ErrInterrupted):
		// Requeue: the interrupted extractor left no terminal event, so the
		// next run picks it back up without penalty.
		p.logger.Info("dispatch interrupted, requeueing", "blob", payload.BlobID)
		return err
	default:
		p.logger.Error("dispatch failed", "blob", payload.BlobID, "error", err)
		return err
	}
}
