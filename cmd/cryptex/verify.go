package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/cryptex/internal/logging"
	"github.com/dshills/cryptex/internal/watcher"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify LEVEL...",
		Short: "Check that levels load and their reference solutions replay deterministically",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := watcher.NewVerifier(a.cfg.Verify.Runs, logging.Component(a.logger, "verify"))
			w := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				r := v.Check(path)
				if !r.OK() {
					failed++
					fmt.Fprintf(w, "FAIL %s: %v\n", path, r.Err)
					continue
				}
				fmt.Fprintf(w, "ok   %s %s (%d tests, %s)\n", path, r.Hash, r.Tests, r.Elapsed)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d levels failed", failed, len(args))
			}
			return nil
		},
	}
}
