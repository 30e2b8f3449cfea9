package smf

import (
	"bytes"
	"fmt"
	"os"
)

// ErrorKind classifies decode failures.
type ErrorKind int

const (
	ErrFileNotFound ErrorKind = iota
	ErrNoHeader
	ErrIncompleteHeader
	ErrInvalidFormat
	ErrMissingTrack
	ErrMissingEvent
	ErrBadEvent
)

func (k ErrorKind) String() string {
	switch k {
	case ErrFileNotFound:
		return "file not found"
	case ErrNoHeader:
		return "no header found"
	case ErrIncompleteHeader:
		return "incomplete header"
	case ErrInvalidFormat:
		return "invalid format"
	case ErrMissingTrack:
		return "missing track"
	case ErrMissingEvent:
		return "missing event"
	case ErrBadEvent:
		return "bad event"
	default:
		return "unknown error"
	}
}

// DecodeError reports what went wrong and the byte offset at which the
// problem was detected. A failed decode yields no partial Document.
type DecodeError struct {
	Kind   ErrorKind
	Offset int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("smf: %s at offset %d", e.Kind, e.Offset)
}

const (
	statusNoteOff         = 0x80
	statusNoteOn          = 0x90
	statusPolyPressure    = 0xA0
	statusController      = 0xB0
	statusProgramChange   = 0xC0
	statusChannelPressure = 0xD0
	statusPitchBend       = 0xE0
	statusSysEx           = 0xF0
	statusSysExEscape     = 0xF7
	statusMeta            = 0xFF

	metaEndOfTrack = 0x2F
	metaTempo      = 0x51
)

var (
	headerMagic = []byte("MThd")
	trackMagic  = []byte("MTrk")
)

// reader walks a byte slice while tracking the absolute offset so
// decode errors can point at the failing byte.
type reader struct {
	data []byte
	off  int
}

func (r *reader) take(n int) ([]byte, bool) {
	if r.off+n > len(r.data) {
		r.off = len(r.data)
		return nil, false
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, true
}

func (r *reader) u8() (uint8, bool) {
	b, ok := r.take(1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

func (r *reader) u16() (uint16, bool) {
	b, ok := r.take(2)
	if !ok {
		return 0, false
	}
	return uint16(b[0])<<8 | uint16(b[1]), true
}

func (r *reader) u24() (uint32, bool) {
	b, ok := r.take(3)
	if !ok {
		return 0, false
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), true
}

func (r *reader) u32() (uint32, bool) {
	b, ok := r.take(4)
	if !ok {
		return 0, false
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), true
}

// vlq reads a variable-length quantity: big-endian groups of 7 bits,
// high bit set on every byte but the last, at most 4 bytes.
func (r *reader) vlq() (uint32, bool) {
	var v uint32
	for i := 0; i < 4; i++ {
		b, ok := r.u8()
		if !ok {
			return 0, false
		}
		v = v<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			break
		}
	}
	return v, true
}

func (r *reader) skip(n int) bool {
	_, ok := r.take(n)
	return ok
}

// unread steps back one byte. Used when a running-status data byte was
// consumed as a status byte.
func (r *reader) unread() {
	if r.off > 0 {
		r.off--
	}
}

// DecodeFile reads and decodes the file at path.
func DecodeFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DecodeError{Kind: ErrFileNotFound}
	}
	return Decode(data)
}

// Decode parses a Standard MIDI File from data. On failure it returns a
// *DecodeError carrying the kind of problem and the byte offset at
// which it was detected.
func Decode(data []byte) (*Document, error) {
	r := &reader{data: data}

	magic, ok := r.take(4)
	if !ok || !bytes.Equal(magic, headerMagic) {
		return nil, &DecodeError{Kind: ErrNoHeader}
	}

	// Header chunk length is read but not trusted; the fields below
	// are fixed-size regardless.
	if _, ok := r.u32(); !ok {
		return nil, &DecodeError{Kind: ErrIncompleteHeader, Offset: r.off}
	}
	format, ok := r.u16()
	if !ok {
		return nil, &DecodeError{Kind: ErrIncompleteHeader, Offset: r.off}
	}
	trackCount, ok := r.u16()
	if !ok {
		return nil, &DecodeError{Kind: ErrIncompleteHeader, Offset: r.off}
	}
	division, ok := r.u16()
	if !ok {
		return nil, &DecodeError{Kind: ErrIncompleteHeader, Offset: r.off}
	}
	if format > 2 {
		return nil, &DecodeError{Kind: ErrInvalidFormat, Offset: r.off}
	}
	// SMPTE time division (top bit set) is not supported.
	if division&0x8000 != 0 {
		return nil, &DecodeError{Kind: ErrInvalidFormat, Offset: r.off}
	}

	doc := &Document{
		Format:   Format(format),
		Division: division,
		Tracks:   make([]Track, 0, trackCount),
	}
	for i := 0; i < int(trackCount); i++ {
		magic, ok := r.take(4)
		if !ok || !bytes.Equal(magic, trackMagic) {
			return nil, &DecodeError{Kind: ErrMissingTrack, Offset: r.off}
		}
		// Declared track length; truncation is detected from the
		// event stream itself, not from this value.
		if _, ok := r.u32(); !ok {
			return nil, &DecodeError{Kind: ErrMissingTrack, Offset: r.off}
		}
		track, err := decodeTrack(r)
		if err != nil {
			return nil, err
		}
		doc.Tracks = append(doc.Tracks, track)
	}
	return doc, nil
}

func decodeTrack(r *reader) (Track, error) {
	var (
		track   Track
		running uint8
	)
	for {
		delta, ok := r.vlq()
		if !ok {
			return Track{}, &DecodeError{Kind: ErrMissingEvent, Offset: r.off}
		}
		status, ok := r.u8()
		if !ok {
			return Track{}, &DecodeError{Kind: ErrMissingEvent, Offset: r.off}
		}

		if status == statusMeta {
			done, err := decodeMeta(r, &track, delta)
			if err != nil {
				return Track{}, err
			}
			if done {
				return track, nil
			}
			continue
		}

		if status < 0x80 {
			// Running status: this byte is data for the previous
			// status, which stays in effect.
			r.unread()
			status = running
		} else if status < statusSysEx {
			running = status
		}

		switch status & 0xF0 {
		case statusNoteOff, statusNoteOn:
			data, ok := r.take(2)
			if !ok {
				return Track{}, &DecodeError{Kind: ErrBadEvent, Offset: r.off}
			}
			note, velocity := data[0], data[1]
			// Data bytes never carry the high bit; a value >= 0x80 here
			// means the stream is corrupt, not a 255-velocity note.
			if note > MaxNote || velocity > MaxVelocity {
				return Track{}, &DecodeError{Kind: ErrBadEvent, Offset: r.off}
			}
			kind := KindNoteOn
			// Note-on with velocity zero is a note-off on the wire.
			if status&0xF0 == statusNoteOff || velocity == 0 {
				kind = KindNoteOff
			}
			track.Events = append(track.Events, Event{
				Delta:    delta,
				Kind:     kind,
				Note:     note,
				Velocity: velocity,
			})
		case statusPolyPressure, statusController, statusPitchBend:
			if !r.skip(2) {
				return Track{}, &DecodeError{Kind: ErrBadEvent, Offset: r.off}
			}
		case statusProgramChange, statusChannelPressure:
			if !r.skip(1) {
				return Track{}, &DecodeError{Kind: ErrBadEvent, Offset: r.off}
			}
		case statusSysEx:
			if status != statusSysEx && status != statusSysExEscape {
				return Track{}, &DecodeError{Kind: ErrBadEvent, Offset: r.off}
			}
			length, ok := r.vlq()
			if !ok || !r.skip(int(length)) {
				return Track{}, &DecodeError{Kind: ErrBadEvent, Offset: r.off}
			}
		default:
			return Track{}, &DecodeError{Kind: ErrBadEvent, Offset: r.off}
		}
	}
}

// decodeMeta handles one meta event. It reports done=true when the
// end-of-track marker terminates the track, regardless of any bytes the
// declared length would still allow.
func decodeMeta(r *reader, track *Track, delta uint32) (done bool, err error) {
	metaType, ok := r.u8()
	if !ok {
		return false, &DecodeError{Kind: ErrBadEvent, Offset: r.off}
	}
	length, ok := r.vlq()
	if !ok {
		return false, &DecodeError{Kind: ErrBadEvent, Offset: r.off}
	}

	switch metaType {
	case metaEndOfTrack:
		track.Events = append(track.Events, Event{Delta: delta, Kind: KindEndOfTrack})
		return true, nil
	case metaTempo:
		usec, ok := r.u24()
		if !ok {
			return false, &DecodeError{Kind: ErrBadEvent, Offset: r.off}
		}
		track.Events = append(track.Events, Event{
			Delta:          delta,
			Kind:           KindTempo,
			USecPerQuarter: usec,
		})
	default:
		if !r.skip(int(length)) {
			return false, &DecodeError{Kind: ErrBadEvent, Offset: r.off}
		}
	}
	return false, nil
}
