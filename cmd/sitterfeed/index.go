package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"sitterfeed/internal/cache"
	"sitterfeed/internal/index"
	"sitterfeed/internal/parser"
	"sitterfeed/internal/scanner"

	"github.com/spf13/cobra"
)

var (
	indexForce bool
	indexPrune bool
)

var indexCmd = &cobra.Command{
	Use:   "index [root]",
	Short: "Index the symbols of every recognized file below root",
	Long: `Walk root, parse every file of a known language through a file provider
and store its symbols in the index database. Unchanged files are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <name>",
	Short: "Find indexed symbols by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "Re-index files even when unchanged")
	indexCmd.Flags().BoolVar(&indexPrune, "prune", true, "Drop indexed files that no longer exist")
}

func openCache() (*cache.Filecache, error) {
	fc, err := cache.NewFilecache(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening index %s: %w", cfg.DatabasePath(), err)
	}
	return fc, nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		cfg.Root = args[0]
	}

	fc, err := openCache()
	if err != nil {
		return err
	}
	defer fc.Close()

	pool := parser.NewPool(cfg.Workers, cfg.Timeout())
	defer pool.Close()

	ix := index.NewIndexer(fc, pool, cfg.Languages, scanner.Options{
		IgnoreDirs: cfg.IgnoreDirs,
		Workers:    cfg.Workers,
	})
	ix.Force = indexForce

	report, err := ix.Run(cmd.Context(), cfg.Root)
	if err != nil {
		return err
	}

	pruned := 0
	if indexPrune {
		pruned, err = ix.Prune(func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		})
		if err != nil {
			return fmt.Errorf("pruning index: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d, skipped %d, failed %d, pruned %d\n",
		report.Indexed, report.Skipped, report.Failed, pruned)
	for _, e := range report.Errors {
		fmt.Fprintln(cmd.ErrOrStderr(), e)
	}
	return nil
}

func runLookup(cmd *cobra.Command, args []string) error {
	fc, err := openCache()
	if err != nil {
		return err
	}
	defer fc.Close()

	found, err := fc.FindSymbols(args[0])
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return fmt.Errorf("no symbol named %q", args[0])
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, s := range found {
		fmt.Fprintf(w, "%s:%d:%d\t%s\t%s\n", s.Path, s.Row+1, s.Column+1, s.Kind, s.Name)
	}
	return w.Flush()
}
