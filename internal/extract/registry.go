package extract

import (
	"sort"
)

// Registry holds the known extractors and answers which of them can process
// a given blob.
type Registry struct {
	extractors []Extractor
}

// NewRegistry builds a registry over the given extractors.
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds an extractor to the registry.
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// CandidatesFor returns the extractors accepting mediaType, ordered by
// ascending cost for (mediaType, size), ties broken by priority and then by
// name. The order is total, so repeated calls with the same inputs always
// produce the same sequence.
func (r *Registry) CandidatesFor(mediaType string, size int64) []Extractor {
	var out []Extractor
	for _, e := range r.extractors {
		if e.Accepts(mediaType) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := out[i].Cost(mediaType, size), out[j].Cost(mediaType, size)
		if ci != cj {
			return ci < cj
		}
		if out[i].Priority() != out[j].Priority() {
			return out[i].Priority() < out[j].Priority()
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}
