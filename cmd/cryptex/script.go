package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dshills/cryptex/internal/engine"
	"github.com/dshills/cryptex/internal/level"
	"github.com/dshills/cryptex/internal/logging"
	"github.com/dshills/cryptex/internal/script"
)

func newScriptCmd(a *app) *cobra.Command {
	var (
		out   string
		name  string
		score int
		steps bool
	)
	cmd := &cobra.Command{
		Use:   "script LEVEL FILE.lua",
		Short: "Run a Lua script against a level and record its edits",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := level.Load(args[0])
			if err != nil {
				return err
			}
			eng, err := a.newEngine(lvl.Base)
			if err != nil {
				return err
			}

			runner := script.NewRunner(eng, logging.Component(a.logger, "script"),
				script.WithOutput(cmd.ErrOrStderr()))
			log, err := runner.RunFile(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if steps {
				printSteps(cmd.OutOrStdout(), eng)
			}

			sol := level.Solution{Name: name, LevelID: lvl.ID, Log: log}
			if cmd.Flags().Changed("score") {
				sol.Score = &score
			}
			if out != "" {
				return level.SaveSolution(out, sol, lvl)
			}
			if err := sol.Validate(lvl); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d records\n", log.Len())
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the solution to this file")
	cmd.Flags().StringVar(&name, "name", "script", "solution name")
	cmd.Flags().IntVar(&score, "score", 0, "solution score")
	cmd.Flags().BoolVar(&steps, "steps", false, "list the undo and redo steps the script left")
	return cmd
}

// printSteps lists the edit log's steps, oldest first.
func printSteps(w io.Writer, eng *engine.Engine) {
	for i, s := range eng.UndoSteps() {
		fmt.Fprintf(w, "undo %d\t%s\t%d\n", i+1, s.Name, s.Records)
	}
	for i, s := range eng.RedoSteps() {
		fmt.Fprintf(w, "redo %d\t%s\t%d\n", i+1, s.Name, s.Records)
	}
}
