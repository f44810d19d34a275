package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// ExtractBlobTask is scheduled each time a blob is ingested.
	ExtractBlobTask = "blob:extract"
)

// ExtractPayload is serialized into the task payload so a worker knows
// which object to download and how to dispatch it.
type ExtractPayload struct {
	BlobID    string `json:"blob_id"`
	IngestID  string `json:"ingest_id"`
	ObjectKey string `json:"object_key"`
	MediaType string `json:"media_type"`
	Size      int64  `json:"size"`
	Workspace string `json:"workspace"`
}

// EnqueueExtract enqueues an extraction job. The retry budget also covers
// recoverable interrupts: a worker killed mid-run surfaces as a retryable
// error so another worker picks the blob up.
func EnqueueExtract(ctx context.Context, client *asynq.Client, payload ExtractPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(ExtractBlobTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(10)); err != nil {
		return fmt.Errorf("enqueue extract task: %w", err)
	}
	return nil
}
