// Package smf decodes Standard MIDI Files into an immutable in-memory
// document of tracks and timed events. Only the event kinds that matter
// for playback (note on/off, tempo, end of track) are retained; other
// channel messages are consumed for their timing and discarded.
package smf

// Ticks counts document time units. The real-world duration of a tick
// depends on the current tempo and the document's Division.
type Ticks = uint64

// MaxNote is the highest valid MIDI note number.
const MaxNote = 127

// MaxVelocity is the highest valid note velocity.
const MaxVelocity = 127

// Format is the SMF format tag from the file header.
type Format uint16

const (
	SingleTrack           Format = 0
	MultiTrack            Format = 1
	MultiTrackIndependent Format = 2
)

func (f Format) String() string {
	switch f {
	case SingleTrack:
		return "single track"
	case MultiTrack:
		return "multi track"
	case MultiTrackIndependent:
		return "independent multi track"
	default:
		return "unknown"
	}
}

// EventKind discriminates the Event payload. Note and Velocity are
// meaningful only for KindNoteOn/KindNoteOff, USecPerQuarter only for
// KindTempo.
type EventKind int

const (
	KindNoteOn EventKind = iota + 1
	KindNoteOff
	KindTempo
	KindEndOfTrack
)

// Event is a single track event. Delta is the tick distance from the
// previous event on the same track, not an absolute time.
type Event struct {
	Delta          uint32
	Kind           EventKind
	Note           uint8
	Velocity       uint8
	USecPerQuarter uint32
}

// NoteOn builds a note-on event. A zero velocity yields a note-off,
// matching the wire-level normalization the decoder applies.
func NoteOn(note, velocity uint8) Event {
	kind := KindNoteOn
	if velocity == 0 {
		kind = KindNoteOff
	}
	return Event{Kind: kind, Note: note, Velocity: velocity}
}

// NoteOff builds a note-off event.
func NoteOff(note uint8) Event {
	return Event{Kind: KindNoteOff, Note: note}
}

// Track is an ordered event sequence. A decoded track always ends with
// a KindEndOfTrack event.
type Track struct {
	Events []Event
}

// NoteSeries returns the note numbers of every note-on in track order.
// Exercise logic compares played input against this series.
func (t Track) NoteSeries() []uint8 {
	var notes []uint8
	for _, ev := range t.Events {
		if ev.Kind == KindNoteOn {
			notes = append(notes, ev.Note)
		}
	}
	return notes
}

// Document is a decoded sequence. It is immutable after decoding; the
// sequencer borrows it for the duration of playback and never owns it.
type Document struct {
	Format   Format
	Division uint16 // ticks per quarter note
	Tracks   []Track
}
