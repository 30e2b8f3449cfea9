// Command smfplay plays, renders, and inspects Standard MIDI Files,
// and turns live MIDI input into sound.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	smfplay "github.com/cbegin/smfplay-go"
	"github.com/cbegin/smfplay-go/internal/synth"
)

var (
	flagSampleRate int
	flagWave       string
	flagDecay      float64
	flagTranspose  int
	flagVerbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "smfplay",
	Short: "Standard MIDI File playback",
	Long:  "Decode SMF documents, play them through the default audio device,\nrender them to WAV, or sound live MIDI input.",
}

func init() {
	rootCmd.PersistentFlags().IntVar(&flagSampleRate, "sample-rate", 44100, "output sample rate")
	rootCmd.PersistentFlags().StringVar(&flagWave, "wave", "sine", "waveform: sine|square|triangle|saw")
	rootCmd.PersistentFlags().Float64Var(&flagDecay, "decay", 2, "envelope decay constant (1/half-life seconds)")
	rootCmd.PersistentFlags().IntVar(&flagTranspose, "transpose", 0, "semitone offset applied to all notes")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}

func newLogger() (*zap.Logger, error) {
	if flagVerbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	return cfg.Build()
}

func patchFromFlags() (synth.Patch, error) {
	patch := synth.Patch{DecayConstant: flagDecay}
	switch strings.ToLower(strings.TrimSpace(flagWave)) {
	case "sine":
		patch.Wave = synth.Sine
	case "square":
		patch.Wave = synth.Square
	case "triangle":
		patch.Wave = synth.Triangle
	case "saw", "sawtooth":
		patch.Wave = synth.Sawtooth
	default:
		return synth.Patch{}, fmt.Errorf("invalid --wave %q (expected sine|square|triangle|saw)", flagWave)
	}
	return patch, nil
}

func newPlayer(log *zap.Logger) (*smfplay.Player, error) {
	patch, err := patchFromFlags()
	if err != nil {
		return nil, err
	}
	return smfplay.NewPlayer(flagSampleRate,
		smfplay.WithPatch(patch),
		smfplay.WithTranspose(flagTranspose),
		smfplay.WithLogger(log),
	)
}
