// Package status reconstructs per-file processing status by folding the
// ingestion event log. The fold is a pure function of the events and
// metadata handed to it; no cached status is ever authoritative.
package status

import (
	"sort"
	"time"

	"github.com/papyrushq/papyrus/internal/model"
)

// StuckEventThreshold is the per-file event count above which a file is
// reported as possibly stuck instead of fully aggregated. More than this
// many events for one file within one batch scope is taken as evidence of
// an extractor retry loop that never terminates. This is a heuristic, not a
// proven invariant: a large file legitimately re-ingested many times can
// trip it too.
const StuckEventThreshold = 100

// Update is one observed state transition of a (file, extractor) pair.
type Update struct {
	Status model.ExtractionStatus `json:"status"`
	At     time.Time              `json:"at"`
	Error  string                 `json:"error,omitempty"`
}

// ExtractorStatus is the time-ordered update history of one extractor for
// one file.
type ExtractorStatus struct {
	Extractor string   `json:"extractor"`
	Updates   []Update `json:"updates,omitempty"`
}

// Latest returns the most recent status, or StatusUnknown when the
// extractor was selected but no update has been observed.
func (s ExtractorStatus) Latest() model.ExtractionStatus {
	if len(s.Updates) == 0 {
		return model.StatusUnknown
	}
	return s.Updates[len(s.Updates)-1].Status
}

// PathSize is the most recently observed size of a file under one path.
type PathSize struct {
	Path     string `json:"path"`
	FileSize int64  `json:"fileSize"`
}

// FileStatus is the aggregate status of one file within the queried batch
// scope.
type FileStatus struct {
	BlobID       string            `json:"blobId"`
	Workspace    string            `json:"workspace,omitempty"`
	MediaTypes   []string          `json:"mediaTypes,omitempty"`
	Paths        []PathSize        `json:"paths,omitempty"`
	FirstEvent   time.Time         `json:"firstEvent"`
	LastEvent    time.Time         `json:"lastEvent"`
	Errors       []string          `json:"errors,omitempty"`
	InfiniteLoop bool              `json:"infiniteLoop"`
	Extractors   []ExtractorStatus `json:"extractors,omitempty"`
}

// Reconstruct folds events and metadata into one FileStatus per distinct
// file, ordered by first-event time, most recent first. Files over the
// stuck threshold are flagged and reported with empty histories instead of
// being fully aggregated.
func Reconstruct(events []model.Event, metadata []model.BlobMetadata) []FileStatus {
	grouped := groupByBlob(events)
	mdGrouped := groupMetadata(metadata)

	out := make([]FileStatus, 0, len(grouped.order))
	for _, blobID := range grouped.order {
		evs := grouped.events[blobID]
		if len(evs) > StuckEventThreshold {
			out = append(out, stuckStatus(blobID, evs))
			continue
		}
		out = append(out, aggregateFile(blobID, evs, mdGrouped[blobID]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FirstEvent.After(out[j].FirstEvent)
	})
	return out
}

type blobEvents struct {
	order  []string
	events map[string][]model.Event
}

func groupByBlob(events []model.Event) blobEvents {
	g := blobEvents{events: make(map[string][]model.Event)}
	for _, ev := range events {
		if _, seen := g.events[ev.BlobID]; !seen {
			g.order = append(g.order, ev.BlobID)
		}
		g.events[ev.BlobID] = append(g.events[ev.BlobID], ev)
	}
	return g
}

func groupMetadata(metadata []model.BlobMetadata) map[string][]model.BlobMetadata {
	g := make(map[string][]model.BlobMetadata)
	for _, md := range metadata {
		g[md.BlobID] = append(g[md.BlobID], md)
	}
	return g
}

// stuckStatus reports a file over the event threshold. Aggregating its full
// history would be unbounded work for a file caught in a retry loop, so
// only the flag and the time bounds are produced.
func stuckStatus(blobID string, events []model.Event) FileStatus {
	first, last := timeBounds(events)
	return FileStatus{
		BlobID:       blobID,
		FirstEvent:   first,
		LastEvent:    last,
		InfiniteLoop: true,
	}
}

// aggregateFile builds the full status of one file below the threshold.
func aggregateFile(blobID string, events []model.Event, metadata []model.BlobMetadata) FileStatus {
	evs := make([]model.Event, len(events))
	copy(evs, events)
	sort.SliceStable(evs, func(i, j int) bool {
		return evs[i].EventTime.Before(evs[j].EventTime)
	})

	fs := FileStatus{BlobID: blobID}
	fs.FirstEvent, fs.LastEvent = timeBounds(evs)

	var declared []string
	seenType := map[string]bool{}
	seenExtractor := map[string]bool{}
	for _, ev := range evs {
		if ev.Type != model.EventMediaTypeDetected {
			continue
		}
		d, err := ev.DecodeDetected()
		if err != nil {
			continue
		}
		if d.Workspace != "" {
			fs.Workspace = d.Workspace
		}
		if d.MediaType != "" && !seenType[d.MediaType] {
			seenType[d.MediaType] = true
			fs.MediaTypes = append(fs.MediaTypes, d.MediaType)
		}
		for _, name := range d.Extractors {
			if !seenExtractor[name] {
				seenExtractor[name] = true
				declared = append(declared, name)
			}
		}
	}

	for _, name := range declared {
		fs.Extractors = append(fs.Extractors, foldExtractor(name, evs))
	}

	seenErr := map[string]bool{}
	for _, ev := range evs {
		if ev.Type != model.EventExtraction || ev.Status != model.StatusFailure {
			continue
		}
		d, err := ev.DecodeExtraction()
		if err != nil || d.Error == "" || seenErr[d.Error] {
			continue
		}
		seenErr[d.Error] = true
		fs.Errors = append(fs.Errors, d.Error)
	}

	fs.Paths = foldPaths(metadata)
	return fs
}

// foldExtractor collects the time-ordered status updates of one extractor.
// A status event matches the extractor when its detail payload names it.
func foldExtractor(name string, events []model.Event) ExtractorStatus {
	es := ExtractorStatus{Extractor: name}
	for _, ev := range events {
		if ev.Type != model.EventExtraction {
			continue
		}
		d, err := ev.DecodeExtraction()
		if err != nil || d.Extractor != name {
			continue
		}
		es.Updates = append(es.Updates, Update{
			Status: ev.Status,
			At:     ev.EventTime,
			Error:  d.Error,
		})
	}
	return es
}

// foldPaths keeps the most recent size per observed path.
func foldPaths(metadata []model.BlobMetadata) []PathSize {
	md := make([]model.BlobMetadata, len(metadata))
	copy(md, metadata)
	sort.SliceStable(md, func(i, j int) bool {
		return md[i].InsertTime.Before(md[j].InsertTime)
	})
	latest := map[string]int64{}
	var order []string
	for _, row := range md {
		if _, seen := latest[row.Path]; !seen {
			order = append(order, row.Path)
		}
		latest[row.Path] = row.FileSize
	}
	out := make([]PathSize, 0, len(order))
	for _, path := range order {
		out = append(out, PathSize{Path: path, FileSize: latest[path]})
	}
	return out
}

func timeBounds(events []model.Event) (first, last time.Time) {
	for _, ev := range events {
		if first.IsZero() || ev.EventTime.Before(first) {
			first = ev.EventTime
		}
		if ev.EventTime.After(last) {
			last = ev.EventTime
		}
	}
	return first, last
}
