// Package model contains the data types shared across the write path
// (dispatcher, worker) and the read path (status reconstruction).
package model

import (
	"time"
)

// Blob is a single uploaded content item, identified by a content-derived
// id so re-uploads of identical bytes map to the same blob. A blob may be
// observed under several storage paths and may belong to several ingests.
type Blob struct {
	ID        string `json:"id"`
	MediaType string `json:"mediaType"`
	Size      int64  `json:"size"`
}

// Ingest is a named batch of files submitted together. Ingest ids are
// prefix-queryable: batches sharing an id prefix can be aggregated in one
// status query.
type Ingest struct {
	ID         string   `json:"id"`
	Workspace  string   `json:"workspace"`
	MediaTypes []string `json:"mediaTypes,omitempty"`
}

// BlobMetadata is one append-only row per (ingest, blob, path) observation.
type BlobMetadata struct {
	IngestID   string    `json:"ingestId"`
	BlobID     string    `json:"blobId"`
	FileSize   int64     `json:"fileSize"`
	Path       string    `json:"path"`
	InsertTime time.Time `json:"insertTime"`
}
