package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // register MIDI driver
	"go.uber.org/zap"

	"github.com/cbegin/smfplay-go/internal/smf"
)

var flagPort string

func init() {
	liveCmd.Flags().StringVar(&flagPort, "port", "", "MIDI input port name (substring match; empty lists ports)")
	rootCmd.AddCommand(liveCmd)
}

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Sound note input from a MIDI device",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer gomidi.CloseDriver()

		ports := gomidi.GetInPorts()
		if strings.TrimSpace(flagPort) == "" {
			if len(ports) == 0 {
				return fmt.Errorf("no MIDI input ports found")
			}
			for _, p := range ports {
				fmt.Println(p.String())
			}
			return nil
		}

		in, err := gomidi.FindInPort(flagPort)
		if err != nil {
			return fmt.Errorf("find input port %q: %w", flagPort, err)
		}

		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		pl, err := newPlayer(log)
		if err != nil {
			return err
		}
		if err := pl.StartLive(); err != nil {
			return err
		}

		stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
			var channel, note, velocity uint8
			switch {
			case msg.GetNoteStart(&channel, &note, &velocity):
				pl.Inject(smf.NoteOn(note, velocity))
				log.Debug("note on",
					zap.String("note", smf.NoteName(note)),
					zap.Uint8("velocity", velocity))
			case msg.GetNoteEnd(&channel, &note):
				pl.Inject(smf.NoteOff(note))
				log.Debug("note off", zap.String("note", smf.NoteName(note)))
			}
		})
		if err != nil {
			return fmt.Errorf("listen on %q: %w", flagPort, err)
		}
		defer stop()

		log.Info("listening", zap.String("port", in.String()))
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		<-sig
		return pl.Stop()
	},
}
