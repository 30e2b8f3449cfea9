// Package sequencer advances a decoded document's event timeline and
// tracks which notes are currently sounding. It has no clock of its
// own in file mode: the audio pull path drives it by alternating
// TicksUntilNextEvent and Advance. In live mode elapsed time derives
// from a monotonic clock and events arrive through PlayEvent.
package sequencer

import (
	"errors"
	"time"

	"github.com/cbegin/smfplay-go/internal/smf"
)

// ErrEndOfSequence reports that every track has played to completion.
// It is the normal terminal signal, not a failure.
var ErrEndOfSequence = errors.New("sequencer: end of sequence")

// DefaultTicksPerSecond applies until a tempo event is seen. In live
// mode with no document attached it is effectively arbitrary; it only
// scales onset times and decay rates uniformly.
const DefaultTicksPerSecond = 960

// Mode selects how elapsed time advances.
type Mode int

const (
	// FilePlayback: ticks advance only when Advance consumes them.
	FilePlayback Mode = iota
	// LivePlayback: ticks derive from wall-clock time since Reset.
	LivePlayback
)

// NoteInfo describes one entry of the fixed note table.
type NoteInfo struct {
	On       bool
	Time     smf.Ticks // onset, in elapsed ticks
	Velocity uint8
}

// NoteTable holds the sounding state of all 128 note numbers. Indexed
// by note number; iteration is O(128) and allocation free.
type NoteTable [smf.MaxNote + 1]NoteInfo

type trackCursor struct {
	events []smf.Event
	next   int       // index of the next unapplied event
	ticks  smf.Ticks // ticks consumed toward the next event's delta
	done   bool
}

// Sequencer owns playback position and the note table for one playback
// unit. It is not safe for concurrent use; the owning playback unit
// serializes access (the synth reads the note table across many
// samples and must see a consistent snapshot).
type Sequencer struct {
	mode           Mode
	notes          NoteTable
	doc            *smf.Document
	cursors        []trackCursor
	start          time.Time
	ticksElapsed   smf.Ticks
	ticksPerSecond float64
	transpose      int
}

// New returns a sequencer in the given mode with no document attached.
func New(mode Mode) *Sequencer {
	return &Sequencer{
		mode:           mode,
		start:          time.Now(),
		ticksPerSecond: DefaultTicksPerSecond,
	}
}

// SetDocument binds doc for playback and resets all per-track cursors
// and the note table. The document is borrowed, never owned: it must
// stay alive and unmodified while the sequencer uses it.
func (s *Sequencer) SetDocument(doc *smf.Document) {
	s.doc = doc
	s.ticksElapsed = 0
	s.notes = NoteTable{}
	s.cursors = s.cursors[:0]
	for i := range doc.Tracks {
		s.cursors = append(s.cursors, trackCursor{events: doc.Tracks[i].Events})
	}
	s.start = time.Now()
}

// Reset restarts the live clock and silences all notes.
func (s *Sequencer) Reset() {
	s.start = time.Now()
	s.ticksElapsed = 0
	s.notes = NoteTable{}
}

// TicksUntilNextEvent returns the smallest remaining tick distance to
// any track's next event, or ok=false when every track is done. The
// pull loop uses this to know how many samples are safe to synthesize
// before the note set can change.
func (s *Sequencer) TicksUntilNextEvent() (smf.Ticks, bool) {
	if s.doc == nil {
		return 0, false
	}
	var (
		shortest smf.Ticks
		found    bool
	)
	for i := range s.cursors {
		tc := &s.cursors[i]
		if tc.done || tc.next >= len(tc.events) {
			continue
		}
		remaining := smf.Ticks(tc.events[tc.next].Delta) - tc.ticks
		if !found || remaining < shortest {
			shortest = remaining
			found = true
		}
	}
	return shortest, found
}

// Advance consumes the ticks reported by TicksUntilNextEvent and
// applies every event whose delta is exactly satisfied. Tracks still
// short of their next event accumulate the consumed ticks instead.
// Returns ErrEndOfSequence once no events remain anywhere.
func (s *Sequencer) Advance() error {
	ticks, ok := s.TicksUntilNextEvent()
	if !ok {
		return ErrEndOfSequence
	}
	s.ticksElapsed += ticks

	for i := range s.cursors {
		tc := &s.cursors[i]
		if tc.done || tc.next >= len(tc.events) {
			continue
		}
		ev := tc.events[tc.next]
		if smf.Ticks(ev.Delta) > ticks+tc.ticks {
			tc.ticks += ticks
			continue
		}
		tc.ticks = 0
		s.apply(ev, tc)
		tc.next++
	}
	return nil
}

func (s *Sequencer) apply(ev smf.Event, tc *trackCursor) {
	switch ev.Kind {
	case smf.KindNoteOn:
		s.notes[clampNote(ev.Note)] = NoteInfo{On: true, Time: s.ticksElapsed, Velocity: clampVelocity(ev.Velocity)}
	case smf.KindNoteOff:
		s.notes[clampNote(ev.Note)] = NoteInfo{}
	case smf.KindEndOfTrack:
		tc.done = true
	case smf.KindTempo:
		division := uint16(0)
		if s.doc != nil {
			division = s.doc.Division
		}
		if division > 0 && ev.USecPerQuarter > 0 {
			s.ticksPerSecond = 1 / (float64(ev.USecPerQuarter) / float64(division) / 1e6)
		}
	}
}

// PlayEvent applies a note event immediately against wall-clock time,
// bypassing the tick scheduler. Live mode's injection entry point for
// externally sourced input.
func (s *Sequencer) PlayEvent(ev smf.Event) {
	elapsed := time.Since(s.start).Seconds()
	s.ticksElapsed = smf.Ticks(s.ticksPerSecond * elapsed)
	switch ev.Kind {
	case smf.KindNoteOn:
		s.notes[clampNote(ev.Note)] = NoteInfo{On: true, Time: s.ticksElapsed, Velocity: clampVelocity(ev.Velocity)}
	case smf.KindNoteOff:
		s.notes[clampNote(ev.Note)] = NoteInfo{}
	}
}

// Injected events come from outside the decoder's validation; clamp
// instead of rejecting so the note table index stays in range.
func clampNote(note uint8) uint8 {
	if note > smf.MaxNote {
		return smf.MaxNote
	}
	return note
}

func clampVelocity(velocity uint8) uint8 {
	if velocity > smf.MaxVelocity {
		return smf.MaxVelocity
	}
	return velocity
}

// Notes exposes the live note table. Callers must not retain the
// pointer beyond their critical section.
func (s *Sequencer) Notes() *NoteTable {
	return &s.notes
}

// TicksElapsed reports playback position: clock-derived in live mode,
// accumulated by Advance in file mode.
func (s *Sequencer) TicksElapsed() smf.Ticks {
	if s.mode == LivePlayback {
		return smf.Ticks(s.ticksPerSecond * time.Since(s.start).Seconds())
	}
	return s.ticksElapsed
}

// TicksPerSecond is the conversion factor between tick time and wall
// time under the most recent tempo.
func (s *Sequencer) TicksPerSecond() float64 {
	return s.ticksPerSecond
}

// Done reports whether an attached document has played every track to
// its end-of-track marker.
func (s *Sequencer) Done() bool {
	if s.doc == nil {
		return false
	}
	for i := range s.cursors {
		if !s.cursors[i].done {
			return false
		}
	}
	return true
}

// SetTranspose sets the semitone offset applied to notes at synthesis
// time. Out-of-range results are clamped by the synthesizer.
func (s *Sequencer) SetTranspose(semitones int) {
	s.transpose = semitones
}

// Transpose returns the current semitone offset.
func (s *Sequencer) Transpose() int {
	return s.transpose
}
