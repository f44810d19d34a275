package shell

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/facebookgo/clock"
)

// NoteFunc delivers one throttled progress note downstream. Notes are best
// effort: a delivery error is logged and the note is dropped.
type NoteFunc func(text string) error

// ProgressSink accumulates every stderr line of a subprocess run for later
// inclusion in failure detail, while forwarding at most one progress note
// per throttle window so long OCR runs produce a heartbeat without flooding
// the event store.
type ProgressSink struct {
	clock  clock.Clock
	window time.Duration
	note   NoteFunc
	logger *slog.Logger

	mu       sync.Mutex
	lines    []string
	lastNote time.Time
}

// NewProgressSink builds a sink on the wall clock.
func NewProgressSink(window time.Duration, note NoteFunc, logger *slog.Logger) *ProgressSink {
	return NewProgressSinkWithClock(clock.New(), window, note, logger)
}

// NewProgressSinkWithClock builds a sink with an injected clock.
func NewProgressSinkWithClock(c clock.Clock, window time.Duration, note NoteFunc, logger *slog.Logger) *ProgressSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressSink{clock: c, window: window, note: note, logger: logger}
}

// Line records one stderr line. The first line of a window triggers a note;
// further lines inside the same window are only accumulated.
func (s *ProgressSink) Line(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
	s.logger.Debug("subprocess stderr", "line", line)

	if s.note == nil {
		return
	}
	now := s.clock.Now()
	if !s.lastNote.IsZero() && now.Sub(s.lastNote) < s.window {
		return
	}
	s.lastNote = now
	if err := s.note(line); err != nil {
		s.logger.Warn("progress note dropped", "error", err)
	}
}

// Transcript returns all accumulated stderr lines joined by newlines.
func (s *ProgressSink) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.lines, "\n")
}
