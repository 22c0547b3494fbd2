package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/cryptex/internal/entity"
	"github.com/dshills/cryptex/internal/level"
	"github.com/dshills/cryptex/internal/store"
)

// ============================================================================
// solutions
// ============================================================================

func newSolutionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solutions",
		Short: "Manage saved solutions",
	}
	cmd.AddCommand(
		newSolutionsSaveCmd(a),
		newSolutionsListCmd(a),
		newSolutionsBestCmd(a),
		newSolutionsDeleteCmd(a),
	)
	return cmd
}

func newSolutionsSaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save LEVEL SOLUTION",
		Short: "Verify a solution and store it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := level.Load(args[0])
			if err != nil {
				return err
			}
			sol, err := level.LoadSolution(args[1], lvl)
			if err != nil {
				return err
			}
			s, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			e, err := s.Save(cmd.Context(), lvl, sol)
			if err != nil {
				return err
			}
			a.logger.Info().Stringer("level", lvl.ID).Str("name", sol.Name).Str("hash", e.Hash).Msg("solution saved")
			printEntry(cmd.OutOrStdout(), lvl, e)
			return nil
		},
	}
}

func newSolutionsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list LEVEL",
		Short: "List stored solutions for a level, best first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := level.Load(args[0])
			if err != nil {
				return err
			}
			s, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.List(cmd.Context(), lvl.ID)
			if err != nil {
				return err
			}
			for _, e := range entries {
				printEntry(cmd.OutOrStdout(), lvl, e)
			}
			return nil
		},
	}
}

func newSolutionsBestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "best LEVEL",
		Short: "Show the best scoring stored solution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := level.Load(args[0])
			if err != nil {
				return err
			}
			s, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			e, err := s.Best(cmd.Context(), lvl.ID)
			if err != nil {
				return err
			}
			printEntry(cmd.OutOrStdout(), lvl, e)
			return nil
		},
	}
}

func newSolutionsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete LEVEL_ID NAME",
		Short: "Delete a stored solution",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLevelID(args[0])
			if err != nil {
				return err
			}
			s, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Delete(cmd.Context(), id, args[1])
		},
	}
}

// parseLevelID accepts either a uuid or the small integer ids level files
// use.
func parseLevelID(s string) (entity.ID, error) {
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return entity.IDFromInt(n), nil
	}
	return entity.ParseID(s)
}

func printEntry(w io.Writer, lvl level.Level, e store.Entry) {
	score := "-"
	stars := 0
	if e.Solution.Score != nil {
		score = strconv.Itoa(*e.Solution.Score)
		stars = lvl.StarsFor(*e.Solution.Score)
	}
	fmt.Fprintf(w, "%-20s score=%-6s stars=%d records=%-4d %s %s\n",
		e.Solution.Name, score, stars, e.Solution.Log.Len(), e.Hash, e.SavedAt.Format(time.DateTime))
}
