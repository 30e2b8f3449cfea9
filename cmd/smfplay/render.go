package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	smfplay "github.com/cbegin/smfplay-go"
	"github.com/cbegin/smfplay-go/internal/smf"
)

var flagOutput string

func init() {
	renderCmd.Flags().StringVarP(&flagOutput, "output", "o", "out.wav", "output WAV path")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render <file.mid>",
	Short: "Render a MIDI file to a float32 WAV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		patch, err := patchFromFlags()
		if err != nil {
			return err
		}
		doc, err := smf.DecodeFile(args[0])
		if err != nil {
			return err
		}
		samples := smfplay.RenderDocument(doc, flagSampleRate, patch)
		wav := smfplay.EncodeWAVFloat32LE(samples, flagSampleRate, 1)
		if err := os.WriteFile(flagOutput, wav, 0o644); err != nil {
			return err
		}
		log.Info("rendered",
			zap.String("output", flagOutput),
			zap.Int("samples", len(samples)),
			zap.Float64("seconds", float64(len(samples))/float64(flagSampleRate)))
		return nil
	},
}
