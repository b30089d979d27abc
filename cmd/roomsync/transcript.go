package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-roomsync/internal/store/sqlite"
)

func newTranscriptCmd(opts *options) *cobra.Command {
	var (
		limit     int
		listRooms bool
	)

	cmd := &cobra.Command{
		Use:   "transcript [room]",
		Short: "Print messages archived by earlier sessions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.TranscriptPath == "" {
				return errors.New("no transcript configured (set transcript_path or --transcript)")
			}
			if len(args) == 1 {
				cfg.Room = args[0]
			}

			st, err := sqlite.New(cfg.TranscriptPath)
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			if listRooms {
				rooms, err := st.ListRooms(cmd.Context())
				if err != nil {
					return err
				}
				for _, name := range rooms {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			msgs, err := st.ListMessages(cmd.Context(), cfg.Room, limit)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				line := fmt.Sprintf("%s %s: %s", m.CreatedAt.Local().Format("2006-01-02 15:04"), m.Username, m.Body)
				if m.Edited {
					line += " (edited)"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "newest messages to print, 0 for all")
	cmd.Flags().BoolVar(&listRooms, "rooms", false, "list archived rooms instead")
	return cmd
}
