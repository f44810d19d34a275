package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names a kind of ingestion event.
type EventType string

const (
	// EventMediaTypeDetected records the detected media type of a blob and
	// the extractors selected to run on it.
	EventMediaTypeDetected EventType = "media_type_detected"
	// EventExtraction records one state transition of a (blob, extractor)
	// pair: started, succeeded or failed.
	EventExtraction EventType = "extraction"
)

// ExtractionStatus is the per-update status carried by an extraction event.
type ExtractionStatus string

const (
	StatusStarted ExtractionStatus = "started"
	StatusSuccess ExtractionStatus = "success"
	StatusFailure ExtractionStatus = "failure"
	// StatusUnknown is derived, never stored: an extractor was selected but
	// no status update for it has been observed yet.
	StatusUnknown ExtractionStatus = "unknown"
)

// Event is one immutable row in the ingestion event log. Events are only
// ever appended; the same (blob, extractor) pair accrues new events across
// retries and re-ingestions.
type Event struct {
	BlobID    string           `json:"blobId"`
	IngestID  string           `json:"ingestId"`
	Type      EventType        `json:"type"`
	Status    ExtractionStatus `json:"status"`
	Details   json.RawMessage  `json:"details,omitempty"`
	EventTime time.Time        `json:"eventTime"`
}

// DetectedDetails is the payload of a media-type-detected event.
type DetectedDetails struct {
	MediaType  string   `json:"mediaType"`
	Workspace  string   `json:"workspace,omitempty"`
	Extractors []string `json:"extractors"`
}

// ExtractionDetails is the payload of an extraction event.
type ExtractionDetails struct {
	Extractor string `json:"extractor"`
	Error     string `json:"error,omitempty"`
}

// NewDetectedEvent builds a media-type-detected event for a blob.
func NewDetectedEvent(blobID, ingestID string, d DetectedDetails, at time.Time) (Event, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return Event{}, fmt.Errorf("marshal detected details: %w", err)
	}
	return Event{
		BlobID:    blobID,
		IngestID:  ingestID,
		Type:      EventMediaTypeDetected,
		Status:    StatusStarted,
		Details:   raw,
		EventTime: at,
	}, nil
}

// NewExtractionEvent builds an extraction status event for a (blob, extractor)
// pair. errDetail is only recorded for failures.
func NewExtractionEvent(blobID, ingestID, extractor string, status ExtractionStatus, errDetail string, at time.Time) (Event, error) {
	raw, err := json.Marshal(ExtractionDetails{Extractor: extractor, Error: errDetail})
	if err != nil {
		return Event{}, fmt.Errorf("marshal extraction details: %w", err)
	}
	return Event{
		BlobID:    blobID,
		IngestID:  ingestID,
		Type:      EventExtraction,
		Status:    status,
		Details:   raw,
		EventTime: at,
	}, nil
}

// DecodeDetected parses the payload of a media-type-detected event.
func (e Event) DecodeDetected() (DetectedDetails, error) {
	var d DetectedDetails
	if err := json.Unmarshal(e.Details, &d); err != nil {
		return DetectedDetails{}, fmt.Errorf("decode detected details: %w", err)
	}
	return d, nil
}

// DecodeExtraction parses the payload of an extraction event.
func (e Event) DecodeExtraction() (ExtractionDetails, error) {
	var d ExtractionDetails
	if err := json.Unmarshal(e.Details, &d); err != nil {
		return ExtractionDetails{}, fmt.Errorf("decode extraction details: %w", err)
	}
	return d, nil
}
