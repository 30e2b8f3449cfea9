package main

import (
	"github.com/spf13/cobra"

	smfplay "github.com/cbegin/smfplay-go"
)

func init() {
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play <file.mid>",
	Short: "Play a MIDI file through the default audio device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		pl, err := newPlayer(log)
		if err != nil {
			return err
		}
		ch := pl.Watch()
		if err := pl.PlayFile(args[0]); err != nil {
			return err
		}
		for ev := range ch {
			if ev.Kind == smfplay.EventSequenceEnded {
				break
			}
		}
		pl.Wait()
		return pl.Stop()
	},
}
