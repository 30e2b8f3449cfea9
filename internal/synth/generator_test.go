package synth

import (
	"math"
	"testing"

	"github.com/cbegin/smfplay-go/internal/sequencer"
	"github.com/cbegin/smfplay-go/internal/smf"
)

// fixedSource is a NoteSource frozen at one playback instant.
type fixedSource struct {
	notes     sequencer.NoteTable
	ticks     smf.Ticks
	tps       float64
	transpose int
}

func (f *fixedSource) Notes() *sequencer.NoteTable { return &f.notes }
func (f *fixedSource) TicksElapsed() smf.Ticks     { return f.ticks }
func (f *fixedSource) TicksPerSecond() float64     { return f.tps }
func (f *fixedSource) Transpose() int              { return f.transpose }

func singleNoteSource(note uint8, velocity uint8) *fixedSource {
	src := &fixedSource{tps: 960}
	src.notes[note] = sequencer.NoteInfo{On: true, Time: 0, Velocity: velocity}
	return src
}

func TestNoteFrequencyEqualTempered(t *testing.T) {
	if got := NoteFrequency(69); math.Abs(got-440) > 0.5 {
		t.Errorf("NoteFrequency(69) = %v, want ~440", got)
	}
	if got := NoteFrequency(0); math.Abs(got-8.175) > 1e-9 {
		t.Errorf("NoteFrequency(0) = %v, want 8.175", got)
	}
	// One octave doubles the frequency.
	if got, want := NoteFrequency(81), 2*NoteFrequency(69); math.Abs(got-want) > 1e-6 {
		t.Errorf("NoteFrequency(81) = %v, want %v", got, want)
	}
	// Out-of-range notes clamp instead of panicking.
	if got := NoteFrequency(-5); got != NoteFrequency(0) {
		t.Errorf("NoteFrequency(-5) = %v, want clamp to note 0", got)
	}
	if got := NoteFrequency(500); got != NoteFrequency(smf.MaxNote) {
		t.Errorf("NoteFrequency(500) = %v, want clamp to note 127", got)
	}
}

func TestGenerateTruncatesToBuffer(t *testing.T) {
	g := NewGenerator(4000)
	dst := make([]float32, 64)
	n := g.Generate(dst, 1000, singleNoteSource(60, 100), 0, DefaultPatch())
	if n != len(dst) {
		t.Fatalf("produced = %d, want %d", n, len(dst))
	}
}

func TestGenerateSilenceWhenNoNotes(t *testing.T) {
	g := NewGenerator(4000)
	src := &fixedSource{tps: 960}
	dst := make([]float32, 128)
	n := g.Generate(dst, len(dst), src, 0, DefaultPatch())
	if n != len(dst) {
		t.Fatalf("produced = %d, want %d", n, len(dst))
	}
	for i, s := range dst {
		if s != 0 {
			t.Fatalf("sample %d = %v, want 0", i, s)
		}
	}
	// The phase counter still advances so a later note stays in phase.
	if g.samplePoint != uint32(len(dst)) {
		t.Errorf("samplePoint = %d, want %d", g.samplePoint, len(dst))
	}
}

// constantWave isolates the envelope: every sample is gain * decay.
func constantWave(freq float64, samplePoint uint32, sampleRate int) float64 {
	return 1
}

func TestDecayStrictlyDecreases(t *testing.T) {
	g := NewGenerator(4000)
	patch := Patch{Wave: constantWave, DecayConstant: 2}
	dst := make([]float32, 512)
	g.Generate(dst, len(dst), singleNoteSource(60, 127), 0, patch)
	for i := 1; i < len(dst); i++ {
		prev := math.Abs(float64(dst[i-1]))
		cur := math.Abs(float64(dst[i]))
		if cur >= prev {
			t.Fatalf("envelope not strictly decreasing at %d: %v -> %v", i, prev, cur)
		}
	}
}

func TestDecayClampsFutureOnset(t *testing.T) {
	g := NewGenerator(4000)
	patch := Patch{Wave: constantWave, DecayConstant: 2}
	// Onset after the current elapsed time: the raw envelope would
	// exceed 1.
	src := &fixedSource{tps: 960}
	src.notes[60] = sequencer.NoteInfo{On: true, Time: 960 * 100, Velocity: 127}
	dst := make([]float32, 16)
	g.Generate(dst, len(dst), src, 0, patch)
	for i, s := range dst {
		if math.Abs(float64(s)) > mixGain+1e-6 {
			t.Fatalf("sample %d = %v exceeds clamped envelope", i, s)
		}
	}
}

func TestGenerateContinuityAcrossCalls(t *testing.T) {
	const n = 512
	src := singleNoteSource(69, 100)
	patch := DefaultPatch()

	whole := NewGenerator(4000)
	full := make([]float32, n)
	whole.Generate(full, n, src, 0, patch)

	split := NewGenerator(4000)
	first := make([]float32, n/2)
	second := make([]float32, n/2)
	split.Generate(first, n/2, src, 0, patch)
	split.Generate(second, n/2, src, n/2, patch)

	for i := 0; i < n; i++ {
		var got float64
		if i < n/2 {
			got = float64(first[i])
		} else {
			got = float64(second[i-n/2])
		}
		if math.Abs(got-float64(full[i])) > 1e-4 {
			t.Fatalf("sample %d: split = %v, whole = %v", i, got, full[i])
		}
	}
}

func TestGenerateMixesMultipleNotes(t *testing.T) {
	src := singleNoteSource(60, 100)
	src.notes[64] = sequencer.NoteInfo{On: true, Time: 0, Velocity: 100}

	one := NewGenerator(4000)
	solo := make([]float32, 256)
	one.Generate(solo, len(solo), singleNoteSource(60, 100), 0, DefaultPatch())

	two := NewGenerator(4000)
	duet := make([]float32, 256)
	two.Generate(duet, len(duet), src, 0, DefaultPatch())

	same := true
	for i := range solo {
		if solo[i] != duet[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("second active note contributed nothing to the mix")
	}
}

func TestTransposeShiftsFrequency(t *testing.T) {
	base := NewGenerator(4000)
	plain := make([]float32, 256)
	base.Generate(plain, len(plain), singleNoteSource(57, 100), 0, DefaultPatch())

	shifted := NewGenerator(4000)
	src := singleNoteSource(45, 100)
	src.transpose = 12
	up := make([]float32, 256)
	shifted.Generate(up, len(up), src, 0, DefaultPatch())

	// Note 45 transposed up an octave sounds like note 57.
	for i := range plain {
		if math.Abs(float64(plain[i]-up[i])) > 1e-6 {
			t.Fatalf("sample %d: transposed = %v, reference = %v", i, up[i], plain[i])
		}
	}
}
