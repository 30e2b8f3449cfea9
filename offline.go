package smfplay

import (
	"encoding/binary"
	"math"

	intseq "github.com/cbegin/smfplay-go/internal/sequencer"
	intsmf "github.com/cbegin/smfplay-go/internal/smf"
	intsynth "github.com/cbegin/smfplay-go/internal/synth"
)

const renderChunk = 4096

// RenderDocument synthesizes doc offline and returns the mono sample
// stream, running the same pull loop the audio backend drives in real
// time.
func RenderDocument(doc *intsmf.Document, sampleRate int, patch intsynth.Patch) []float32 {
	u := newUnit(intseq.FilePlayback, sampleRate, patch, 0)
	u.seq.SetDocument(doc)
	src := &fileSource{u: u}

	var out []float32
	buf := make([]float32, renderChunk)
	for !src.Finished() {
		src.Process(buf)
		out = append(out, buf...)
	}
	return out
}

// EncodeWAVFloat32LE wraps samples in a RIFF/WAVE container with
// 32-bit float PCM encoding.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
