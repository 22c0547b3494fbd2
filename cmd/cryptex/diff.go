package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/cryptex/internal/replay"
	"github.com/dshills/cryptex/internal/snapshot"
)

func newDiffCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "diff BASE EDITED",
		Short: "Reconcile two layer snapshots into a replay log",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var base, edited snapshot.Layer
			if err := replay.ReadFile(args[0], &base); err != nil {
				return err
			}
			if err := replay.ReadFile(args[1], &edited); err != nil {
				return err
			}
			log, err := replay.FromDiff(base, edited)
			if err != nil {
				return err
			}
			a.metrics.ObserveReconcile(log.Len())
			a.logger.Debug().Int("records", log.Len()).Msg("reconciled")

			if out != "" {
				return log.Save(out)
			}
			return replay.Encode(cmd.OutOrStdout(), log, replay.FormatForPath(args[1]))
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the log to this file")
	return cmd
}
