package eventlog

import (
	"context"
	"strings"
	"sync"

	"github.com/papyrushq/papyrus/internal/model"
)

// MemoryStore is an in-memory Store used by tests and the single-binary
// demo mode. It honors the same append-only semantics as the postgres store.
type MemoryStore struct {
	mu       sync.RWMutex
	events   []model.Event
	metadata []model.BlobMetadata
}

// NewMemoryStore constructs an empty in-memory event log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// AppendEvent appends one event row.
func (s *MemoryStore) AppendEvent(_ context.Context, ev model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// AppendMetadata appends one metadata row.
func (s *MemoryStore) AppendMetadata(_ context.Context, md model.BlobMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = append(s.metadata, md)
	return nil
}

// EventsForIngest returns the events matching the ingest id in insertion
// order.
func (s *MemoryStore) EventsForIngest(_ context.Context, ingestID string, prefix bool) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Event
	for _, ev := range s.events {
		if matches(ev.IngestID, ingestID, prefix) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// MetadataForIngest returns the metadata rows matching the ingest id.
func (s *MemoryStore) MetadataForIngest(_ context.Context, ingestID string, prefix bool) ([]model.BlobMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.BlobMetadata
	for _, md := range s.metadata {
		if matches(md.IngestID, ingestID, prefix) {
			out = append(out, md)
		}
	}
	return out, nil
}

// MetadataForBlob returns the metadata rows recorded for one blob.
func (s *MemoryStore) MetadataForBlob(_ context.Context, blobID string) ([]model.BlobMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.BlobMetadata
	for _, md := range s.metadata {
		if md.BlobID == blobID {
			out = append(out, md)
		}
	}
	return out, nil
}

// DeleteBlob removes every row for the blob and returns the removed count.
func (s *MemoryStore) DeleteBlob(_ context.Context, blobID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	kept := s.events[:0]
	for _, ev := range s.events {
		if ev.BlobID == blobID {
			total++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	keptMD := s.metadata[:0]
	for _, md := range s.metadata {
		if md.BlobID == blobID {
			total++
			continue
		}
		keptMD = append(keptMD, md)
	}
	s.metadata = keptMD
	return total, nil
}

func matches(got, want string, prefix bool) bool {
	if prefix {
		return strings.HasPrefix(got, want)
	}
	return got == want
}
