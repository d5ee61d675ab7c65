package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/cobra"

	"github.com/jask/vareditor/internal/host"
	"github.com/jask/vareditor/internal/transfer"
	"github.com/jask/vareditor/internal/variables"
)

var listScope string

var varsCmd = &cobra.Command{
	Use:   "vars",
	Short: "Read and write variables",
}

var varsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List variables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scopes := variables.Scopes
		if listScope != "" && listScope != "all" {
			s, err := variables.ParseScope(listScope)
			if err != nil {
				return err
			}
			scopes = []variables.Scope{s}
		}
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close(ctx)
		store := variables.NewStore(e.rt)
		for _, s := range scopes {
			c, err := store.All(s)
			if err != nil {
				return err
			}
			printVars(cmd.OutOrStdout(), s, c.Map())
		}
		return nil
	},
}

var varsGetCmd = &cobra.Command{
	Use:   "get <scope> <key>",
	Short: "Print one value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := variables.ParseScope(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close(ctx)
		c, err := variables.NewStore(e.rt).All(scope)
		if err != nil {
			return err
		}
		v, ok := c.Get(args[1])
		if !ok {
			return notFound(scope, args[1], c.Keys())
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var varsSetCmd = &cobra.Command{
	Use:   "set <scope> <key> <value>",
	Short: "Create or update a variable",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := variables.ParseScope(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close(ctx)
		ctrl := e.controller()
		defer ctrl.Close()

		_, exists, err := variables.NewStore(e.rt).Get(scope, args[1])
		if err != nil {
			return err
		}
		if exists {
			err = ctrl.EditValue(ctx, scope, args[1], args[2])
		} else {
			err = ctrl.AddVariable(ctx, scope, args[1], args[2])
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s saved\n", scope, args[1])
		return nil
	},
}

var varsRmCmd = &cobra.Command{
	Use:   "rm <scope> <key>",
	Short: "Delete a variable",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := variables.ParseScope(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close(ctx)
		store := variables.NewStore(e.rt)
		c, err := store.All(scope)
		if err != nil {
			return err
		}
		if !c.Has(args[1]) {
			return notFound(scope, args[1], c.Keys())
		}
		if err := store.Delete(scope, args[1]); err != nil {
			return err
		}
		if err := persist(ctx, e.rt, scope); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s deleted\n", scope, args[1])
		return nil
	},
}

var varsExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write both scopes to a TOML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close(ctx)
		doc, err := transfer.Collect(variables.NewStore(e.rt))
		if err != nil {
			return err
		}
		if err := transfer.Export(args[0], doc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d variables to %s\n", doc.Len(), args[0])
		return nil
	},
}

var varsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge variables from a TOML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := transfer.Import(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close(ctx)
		if len(doc.Local) > 0 {
			if _, ok := e.rt.CurrentConversationID(); !ok {
				return fmt.Errorf("file has local variables: %w", host.ErrNoConversation)
			}
		}
		if err := transfer.Apply(variables.NewStore(e.rt), doc); err != nil {
			return err
		}
		if len(doc.Local) > 0 {
			if err := e.rt.PersistLocal(ctx); err != nil {
				return err
			}
		}
		if err := e.rt.SaveSettings(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d variables from %s\n", doc.Len(), args[0])
		return nil
	},
}

func init() {
	varsListCmd.Flags().StringVar(&listScope, "scope", "all", "local, global or all")

	varsCmd.AddCommand(varsListCmd)
	varsCmd.AddCommand(varsGetCmd)
	varsCmd.AddCommand(varsSetCmd)
	varsCmd.AddCommand(varsRmCmd)
	varsCmd.AddCommand(varsExportCmd)
	varsCmd.AddCommand(varsImportCmd)
}

// persist saves scope right away. Global saves skip the debounce since the
// process is about to exit.
func persist(ctx context.Context, rt *host.Runtime, scope variables.Scope) error {
	if scope == variables.Local {
		return rt.PersistLocal(ctx)
	}
	return rt.SaveSettings(ctx)
}

func printVars(w io.Writer, scope variables.Scope, vars map[string]string) {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%-6s %s = %s\n", scope, k, vars[k])
	}
}

var errNoSuchVariable = errors.New("no such variable")

func notFound(scope variables.Scope, key string, candidates []string) error {
	if s := closest(key, candidates); s != "" {
		return fmt.Errorf("%w: %s %s (did you mean %s?)", errNoSuchVariable, scope, key, s)
	}
	return fmt.Errorf("%w: %s %s", errNoSuchVariable, scope, key)
}

// closest returns the candidate nearest to key by edit distance, or "" when
// nothing is reasonably close.
func closest(key string, candidates []string) string {
	best, bestDist := "", -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(key, c)
		if bestDist < 0 || d < bestDist || (d == bestDist && c < best) {
			best, bestDist = c, d
		}
	}
	limit := len(key)/2 + 1
	if bestDist < 0 || bestDist > limit {
		return ""
	}
	return best
}
