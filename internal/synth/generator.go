// Package synth turns the sequencer's note table into mono float32 PCM.
// Each active note contributes a periodic waveform at its equal-tempered
// frequency, scaled by velocity and an exponential decay envelope. All
// notes share a single wrapping phase counter so the time base stays
// continuous across buffer boundaries.
package synth

import (
	"math"

	"github.com/cbegin/smfplay-go/internal/sequencer"
	"github.com/cbegin/smfplay-go/internal/smf"
)

// mixGain leaves headroom when several voices sum into one buffer.
const mixGain = 0.3

// noteFrequencies maps note numbers to equal-tempered frequencies:
// 8.175 Hz (C-1) times 2^(n/12).
var noteFrequencies = func() [smf.MaxNote + 1]float64 {
	const base = 8.175
	ratio := math.Pow(2, 1.0/12)
	var table [smf.MaxNote + 1]float64
	f := base
	for i := range table {
		table[i] = f
		f *= ratio
	}
	return table
}()

// NoteFrequency returns the frequency in Hz for a note number.
func NoteFrequency(note int) float64 {
	return noteFrequencies[clampNote(note)]
}

// NoteSource is the sequencer-side view the generator reads while
// filling a buffer. The caller must hold the playback unit's lock for
// the whole Generate call so the view stays consistent.
type NoteSource interface {
	Notes() *sequencer.NoteTable
	TicksElapsed() smf.Ticks
	TicksPerSecond() float64
	Transpose() int
}

// Generator produces samples for one playback unit. The phase counter
// is a fixed-width uint32 that wraps intentionally; differences between
// sample points are taken modulo 2^32.
type Generator struct {
	sampleRate  int
	samplePoint uint32
}

func NewGenerator(sampleRate int) *Generator {
	return &Generator{sampleRate: sampleRate}
}

func (g *Generator) SampleRate() int { return g.sampleRate }

// Generate mixes up to count samples into dst and returns how many it
// produced. count is truncated to len(dst); trimming to the next event
// boundary is the caller's job. sampleOffset corrects decay and phase
// for samples the backend already consumed since the note table was
// last advanced, keeping envelopes continuous across calls.
//
// Samples are added into dst, not assigned; callers zero the buffer.
func (g *Generator) Generate(dst []float32, count int, src NoteSource, sampleOffset int, patch Patch) int {
	if count > len(dst) {
		count = len(dst)
	}

	current := float64(src.TicksElapsed())
	tps := src.TicksPerSecond()
	rate := float64(g.sampleRate)
	decayRatio := math.Pow(2, -patch.DecayConstant/rate)
	transpose := src.Transpose()
	notes := src.Notes()
	start := g.samplePoint

	for note := 0; note <= smf.MaxNote; note++ {
		info := notes[note]
		if !info.On {
			continue
		}

		ticksDiff := current - float64(info.Time) + float64(sampleOffset)*tps/rate
		// A note whose onset lands after the current sample (possible at
		// buffer boundaries with a non-zero offset) must not blow up the
		// envelope; clamp instead.
		decay := clamp(math.Pow(2, ticksDiff*patch.DecayConstant/(-tps)), -1, 1)
		freq := noteFrequencies[clampNote(note+transpose)]
		gain := mixGain * float64(info.Velocity) / smf.MaxVelocity

		point := start
		for i := 0; i < count; i++ {
			point++
			decay *= decayRatio
			dst[i] += float32(patch.Wave(freq, point, g.sampleRate) * gain * decay)
		}
	}

	// One increment per produced sample, even when no note sounded.
	g.samplePoint = start + uint32(count)
	return count
}

func clampNote(note int) int {
	if note < 0 {
		return 0
	}
	if note > smf.MaxNote {
		return smf.MaxNote
	}
	return note
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
