package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbegin/smfplay-go/internal/smf"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mid>",
	Short: "Print the decoded structure of a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := smf.DecodeFile(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("format:   %s\n", doc.Format)
		fmt.Printf("division: %d ticks/quarter\n", doc.Division)
		fmt.Printf("tracks:   %d\n", len(doc.Tracks))
		for i, tr := range doc.Tracks {
			var ons, offs, tempos int
			for _, ev := range tr.Events {
				switch ev.Kind {
				case smf.KindNoteOn:
					ons++
				case smf.KindNoteOff:
					offs++
				case smf.KindTempo:
					tempos++
				}
			}
			fmt.Printf("track %d: %d events (%d note-on, %d note-off, %d tempo)\n",
				i, len(tr.Events), ons, offs, tempos)
			if series := tr.NoteSeries(); len(series) > 0 {
				names := make([]string, len(series))
				for j, n := range series {
					names[j] = smf.NoteName(n)
				}
				fmt.Printf("  notes: %s\n", strings.Join(names, " "))
			}
		}
		return nil
	},
}
