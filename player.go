// Package smfplay plays Standard MIDI Files and live note input through
// a small additive synthesizer. A Player runs two independent playback
// units, one driven by a decoded document and one by injected events;
// each unit pairs a sequencer with a sample generator behind its own
// lock and is pulled by the audio backend.
package smfplay

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	intaudio "github.com/cbegin/smfplay-go/internal/audio"
	intseq "github.com/cbegin/smfplay-go/internal/sequencer"
	intsmf "github.com/cbegin/smfplay-go/internal/smf"
	intsynth "github.com/cbegin/smfplay-go/internal/synth"
)

// PlaybackEvent carries playback notifications from Watch().
type PlaybackEvent struct {
	Kind int
}

const (
	// EventSequenceEnded fires when file playback exhausts all tracks.
	EventSequenceEnded int = iota
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	patch     intsynth.Patch
	transpose int
	log       *zap.Logger
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{patch: intsynth.DefaultPatch(), log: zap.NewNop()}
}

// WithPatch sets the waveform and decay envelope shared by all notes.
func WithPatch(patch intsynth.Patch) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.patch = patch
	}
}

// WithTranspose sets the semitone offset applied to all notes.
func WithTranspose(semitones int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.transpose = semitones
	}
}

// WithLogger installs a structured logger. The default discards logs.
func WithLogger(log *zap.Logger) PlayerOption {
	return func(cfg *playerConfig) {
		if log != nil {
			cfg.log = log
		}
	}
}

// unit is one playback unit: a sequencer and generator pair guarded by
// a single mutex. The audio pull path and the event-injection path both
// hold the lock for their entire critical section; the two units never
// contend with each other.
type unit struct {
	mu                    sync.Mutex
	seq                   *intseq.Sequencer
	gen                   *intsynth.Generator
	patch                 intsynth.Patch
	samplesSinceLastEvent int
}

func newUnit(mode intseq.Mode, sampleRate int, patch intsynth.Patch, transpose int) *unit {
	seq := intseq.New(mode)
	seq.SetTranspose(transpose)
	return &unit{
		seq:   seq,
		gen:   intsynth.NewGenerator(sampleRate),
		patch: patch,
	}
}

// liveSource fills the whole requested buffer from whatever notes are
// sounding right now; there is no event schedule to respect.
type liveSource struct {
	u *unit
}

func (s *liveSource) Process(dst []float32) {
	for i := range dst {
		dst[i] = 0
	}
	s.u.mu.Lock()
	defer s.u.mu.Unlock()
	s.u.gen.Generate(dst, len(dst), s.u.seq, 0, s.u.patch)
}

// fileSource alternates between asking the sequencer how many ticks are
// safe and filling exactly that many samples, advancing the sequencer
// at each event boundary. A buffer that ends mid-gap records the
// shortfall and resumes with a sample offset on the next pull.
type fileSource struct {
	u          *unit
	finished   atomic.Bool
	onFinished func()
}

func (s *fileSource) Process(dst []float32) {
	for i := range dst {
		dst[i] = 0
	}
	s.u.mu.Lock()
	produced, ended := 0, false
	for produced < len(dst) {
		ticks, ok := s.u.seq.TicksUntilNextEvent()
		if !ok {
			ended = true
			break
		}
		samplesPerTick := float64(s.u.gen.SampleRate()) / s.u.seq.TicksPerSecond()
		want := int(float64(ticks)*samplesPerTick) - s.u.samplesSinceLastEvent
		if want < 0 {
			want = 0
		}
		n := s.u.gen.Generate(dst[produced:], want, s.u.seq, s.u.samplesSinceLastEvent, s.u.patch)
		produced += n
		if n < want {
			// Buffer exhausted before the tick boundary; carry the
			// shortfall into the next pull's sample offset.
			s.u.samplesSinceLastEvent += n
			break
		}
		s.u.samplesSinceLastEvent = 0
		if err := s.u.seq.Advance(); err != nil {
			ended = true
			break
		}
		if s.u.seq.Done() {
			ended = true
			break
		}
	}
	s.u.mu.Unlock()

	// The callback may take the player lock; never fire it while the
	// unit lock is held.
	if ended {
		s.finish()
	}
}

func (s *fileSource) finish() {
	if !s.finished.Swap(true) && s.onFinished != nil {
		s.onFinished()
	}
}

func (s *fileSource) Finished() bool {
	return s.finished.Load()
}

// Player is the public playback facade.
type Player struct {
	mu         sync.Mutex
	sampleRate int
	patch      intsynth.Patch
	transpose  int
	log        *zap.Logger

	live      *unit
	liveAudio *intaudio.Player

	file      *unit
	fileAudio *intaudio.Player
	doc       *intsmf.Document

	done      chan struct{}
	eventCh   chan PlaybackEvent
	eventChMu sync.Mutex
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Player{
		sampleRate: sampleRate,
		patch:      cfg.patch,
		transpose:  cfg.transpose,
		log:        cfg.log,
		live:       newUnit(intseq.LivePlayback, sampleRate, cfg.patch, cfg.transpose),
	}, nil
}

// PlayFile decodes the file at path and starts playing it.
func (p *Player) PlayFile(path string) error {
	doc, err := intsmf.DecodeFile(path)
	if err != nil {
		p.log.Error("decode failed", zap.String("path", path), zap.Error(err))
		return err
	}
	return p.Play(doc)
}

// Play starts file playback of doc, replacing any playback in
// progress. The player borrows doc until playback ends or Stop is
// called; callers must not mutate it meanwhile.
func (p *Player) Play(doc *intsmf.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != nil {
		close(p.done)
	}
	done := make(chan struct{})
	p.done = done

	// Fresh sequencer and generator per Play so note and phase state
	// never leaks between documents.
	p.file = newUnit(intseq.FilePlayback, p.sampleRate, p.patch, p.transpose)
	p.file.seq.SetDocument(doc)
	p.doc = doc

	src := &fileSource{u: p.file}
	src.onFinished = func() {
		// A superseded playback's source may still be pulled by the old
		// backend; only the playback that owns done may end it.
		if !p.finishPlayback(done) {
			return
		}
		p.log.Info("sequence finished")
		p.sendEvent(PlaybackEvent{Kind: EventSequenceEnded})
	}

	backend, err := intaudio.NewPlayer(p.sampleRate, src)
	if err != nil {
		return err
	}
	if p.fileAudio != nil {
		_ = p.fileAudio.Stop()
	}
	p.fileAudio = backend
	p.fileAudio.Play()
	p.log.Info("file playback started",
		zap.String("format", doc.Format.String()),
		zap.Int("tracks", len(doc.Tracks)),
		zap.Uint16("division", doc.Division))
	return nil
}

// StartLive opens the live playback unit's audio stream. Injected
// events become audible once this has been called.
func (p *Player) StartLive() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.liveAudio != nil {
		p.liveAudio.Play()
		return nil
	}
	backend, err := intaudio.NewPlayer(p.sampleRate, &liveSource{u: p.live})
	if err != nil {
		return err
	}
	p.live.mu.Lock()
	p.live.seq.Reset()
	p.live.mu.Unlock()
	p.liveAudio = backend
	p.liveAudio.Play()
	p.log.Info("live playback started")
	return nil
}

// Inject feeds a note event into the live timeline. Safe to call from
// any goroutine, typically an input-delivery callback.
func (p *Player) Inject(ev intsmf.Event) {
	p.live.mu.Lock()
	p.live.seq.PlayEvent(ev)
	p.live.mu.Unlock()
}

// Stop halts both playback units.
func (p *Player) Stop() error {
	p.mu.Lock()
	var err error
	if p.fileAudio != nil {
		err = p.fileAudio.Stop()
		p.fileAudio = nil
	}
	if p.liveAudio != nil {
		if e := p.liveAudio.Stop(); err == nil {
			err = e
		}
		p.liveAudio = nil
	}
	p.doc = nil
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
	return err
}

// Wait blocks until the current file playback ends. Returns
// immediately if nothing is playing.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch returns a buffered channel receiving playback events. Only the
// most recent Watch channel receives events; call Watch before Play.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

// finishPlayback closes done if it still belongs to the current
// playback and reports whether it did.
func (p *Player) finishPlayback(done chan struct{}) bool {
	p.mu.Lock()
	if p.done != done {
		p.mu.Unlock()
		return false
	}
	p.done = nil
	p.mu.Unlock()
	close(done)
	return true
}

// SetTranspose shifts all notes by the given number of semitones.
// Applies to notes synthesized after the call.
func (p *Player) SetTranspose(semitones int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transpose = semitones
	p.live.mu.Lock()
	p.live.seq.SetTranspose(semitones)
	p.live.mu.Unlock()
	if p.file != nil {
		p.file.mu.Lock()
		p.file.seq.SetTranspose(semitones)
		p.file.mu.Unlock()
	}
}

// Transpose returns the current semitone offset.
func (p *Player) Transpose() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transpose
}

// PlaybackPosition returns the audio driver's output position for file
// playback in samples, or 0 if nothing is playing.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	a := p.fileAudio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	return int64(a.Position().Seconds() * float64(p.sampleRate))
}
