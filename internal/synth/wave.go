package synth

import "math"

// WaveFunc evaluates a periodic waveform at an absolute sample point.
// The sample point wraps at 2^32; any boundary discontinuity is a
// single sample every ~27 hours at 44.1 kHz.
type WaveFunc func(freq float64, samplePoint uint32, sampleRate int) float64

func wavePhase(freq float64, samplePoint uint32, sampleRate int) float64 {
	p := math.Mod(float64(samplePoint)*freq/float64(sampleRate), 1)
	if p < 0 {
		p += 1
	}
	return p
}

// Sine is the default voice.
func Sine(freq float64, samplePoint uint32, sampleRate int) float64 {
	return math.Sin(2 * math.Pi * wavePhase(freq, samplePoint, sampleRate))
}

func Square(freq float64, samplePoint uint32, sampleRate int) float64 {
	if wavePhase(freq, samplePoint, sampleRate) < 0.5 {
		return 1
	}
	return -1
}

func Triangle(freq float64, samplePoint uint32, sampleRate int) float64 {
	p := wavePhase(freq, samplePoint, sampleRate)
	if p < 0.5 {
		return 4*p - 1
	}
	return 3 - 4*p
}

func Sawtooth(freq float64, samplePoint uint32, sampleRate int) float64 {
	return 2*wavePhase(freq, samplePoint, sampleRate) - 1
}

// Patch configures the voice shared by every note of a playback unit.
type Patch struct {
	Wave WaveFunc
	// DecayConstant is the reciprocal of the envelope half-life in
	// seconds: amplitude halves every 1/DecayConstant seconds.
	DecayConstant float64
}

// DefaultPatch is a sine voice with a half-second half-life.
func DefaultPatch() Patch {
	return Patch{Wave: Sine, DecayConstant: 2}
}
