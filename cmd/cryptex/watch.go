package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/cryptex/internal/logging"
	"github.com/dshills/cryptex/internal/watcher"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch DIR...",
		Short: "Re-verify level files whenever they change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := watcher.New(watcher.WithDebounce(a.cfg.Watch.Debounce.Std()))
			if err != nil {
				return err
			}
			defer w.Close()

			for _, dir := range args {
				if err := w.Watch(dir); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			v := watcher.NewVerifier(a.cfg.Verify.Runs, logging.Component(a.logger, "watch"))
			err = v.Run(cmd.Context(), w, func(r watcher.Report) {
				switch {
				case r.Removed:
					fmt.Fprintf(out, "gone %s\n", r.Path)
				case r.Err != nil:
					fmt.Fprintf(out, "FAIL %s: %v\n", r.Path, r.Err)
				default:
					fmt.Fprintf(out, "ok   %s %s\n", r.Path, r.Hash)
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
