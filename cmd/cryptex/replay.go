package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/cryptex/internal/level"
	"github.com/dshills/cryptex/internal/replay"
)

func newReplayCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "replay LEVEL LOG",
		Short: "Apply a replay log to a level's base layer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := level.Load(args[0])
			if err != nil {
				return err
			}
			log, err := replay.Load(args[1])
			if err != nil {
				return err
			}

			eng, err := a.newEngine(lvl.Base)
			if err != nil {
				return err
			}
			if err := eng.LoadReplay(log); err != nil {
				return err
			}

			edit := eng.SerializeEditLayer()
			hash, err := replay.Hash(edit)
			if err != nil {
				return err
			}
			costs, err := eng.Costs()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "records: %d\n", log.Len())
			fmt.Fprintf(w, "hash:    %s\n", hash)
			fmt.Fprintf(w, "costs:   %s\n", costs)

			if out != "" {
				return replay.WriteFile(out, edit)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the resulting layer to this file")
	return cmd
}
