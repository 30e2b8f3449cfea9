package smfplay

import (
	"encoding/binary"
	"math"
	"testing"

	intseq "github.com/cbegin/smfplay-go/internal/sequencer"
	intsmf "github.com/cbegin/smfplay-go/internal/smf"
	intsynth "github.com/cbegin/smfplay-go/internal/synth"
)

func shortDoc() *intsmf.Document {
	return &intsmf.Document{
		Format:   intsmf.SingleTrack,
		Division: 480,
		Tracks: []intsmf.Track{{Events: []intsmf.Event{
			{Delta: 0, Kind: intsmf.KindTempo, USecPerQuarter: 500000},
			{Delta: 0, Kind: intsmf.KindNoteOn, Note: 69, Velocity: 100},
			{Delta: 480, Kind: intsmf.KindNoteOff, Note: 69},
			{Delta: 0, Kind: intsmf.KindEndOfTrack},
		}}},
	}
}

func TestRenderDocumentProducesAudio(t *testing.T) {
	samples := RenderDocument(shortDoc(), 8000, intsynth.DefaultPatch())
	if len(samples) == 0 {
		t.Fatalf("no samples rendered")
	}
	var energy float64
	for _, s := range samples {
		energy += math.Abs(float64(s))
	}
	if energy == 0 {
		t.Fatalf("expected non-zero audio energy")
	}
}

func TestRenderDocumentEmptySequence(t *testing.T) {
	doc := &intsmf.Document{
		Division: 480,
		Tracks: []intsmf.Track{{Events: []intsmf.Event{
			{Delta: 0, Kind: intsmf.KindEndOfTrack},
		}}},
	}
	samples := RenderDocument(doc, 8000, intsynth.DefaultPatch())
	for i, s := range samples {
		if s != 0 {
			t.Fatalf("sample %d = %v, want silence", i, s)
		}
	}
}

func TestFileSourceContinuityAcrossPulls(t *testing.T) {
	const rate = 8000

	render := func(chunks []int) []float32 {
		u := newUnit(intseq.FilePlayback, rate, intsynth.DefaultPatch(), 0)
		u.seq.SetDocument(shortDoc())
		src := &fileSource{u: u}
		var out []float32
		for _, n := range chunks {
			buf := make([]float32, n)
			src.Process(buf)
			out = append(out, buf...)
		}
		return out
	}

	// One quarter note at 120 BPM and 8 kHz is 4000 samples.
	whole := render([]int{4096})
	split := render([]int{1000, 1000, 1000, 1096})

	if len(whole) != len(split) {
		t.Fatalf("lengths differ: %d vs %d", len(whole), len(split))
	}
	for i := range whole {
		if math.Abs(float64(whole[i]-split[i])) > 1e-4 {
			t.Fatalf("sample %d: whole = %v, split = %v", i, whole[i], split[i])
		}
	}
}

func TestFileSourceSignalsFinish(t *testing.T) {
	u := newUnit(intseq.FilePlayback, 8000, intsynth.DefaultPatch(), 0)
	u.seq.SetDocument(shortDoc())

	finished := 0
	src := &fileSource{u: u, onFinished: func() { finished++ }}

	buf := make([]float32, 4096)
	for i := 0; i < 10 && !src.Finished(); i++ {
		src.Process(buf)
	}
	if !src.Finished() {
		t.Fatalf("source never finished")
	}
	if finished != 1 {
		t.Fatalf("onFinished fired %d times, want 1", finished)
	}
	// Further pulls stay silent and do not re-fire.
	src.Process(buf)
	if finished != 1 {
		t.Fatalf("onFinished re-fired after finish")
	}
}

func TestEncodeWAVFloat32LEHeader(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1}
	wav := EncodeWAVFloat32LE(samples, 8000, 1)

	if got := string(wav[0:4]); got != "RIFF" {
		t.Errorf("magic = %q", got)
	}
	if got := string(wav[8:12]); got != "WAVE" {
		t.Errorf("wave tag = %q", got)
	}
	if got := binary.LittleEndian.Uint16(wav[20:]); got != 3 {
		t.Errorf("audio format = %d, want 3 (float)", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:]); got != 1 {
		t.Errorf("channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(wav[24:]); got != 8000 {
		t.Errorf("sample rate = %d, want 8000", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:]); got != uint32(len(samples)*4) {
		t.Errorf("data size = %d, want %d", got, len(samples)*4)
	}
	if len(wav) != 44+len(samples)*4 {
		t.Errorf("total size = %d, want %d", len(wav), 44+len(samples)*4)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(wav[48:])); got != 0.5 {
		t.Errorf("second sample = %v, want 0.5", got)
	}
}
