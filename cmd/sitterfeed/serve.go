package main

import (
	"context"
	"time"

	"sitterfeed/internal/cache"
	"sitterfeed/internal/index"
	"sitterfeed/internal/parser"
	"sitterfeed/internal/scanner"
	"sitterfeed/internal/scheduler"
	"sitterfeed/internal/server"

	"github.com/spf13/cobra"
)

var (
	serveIndex   bool
	serveReindex time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server on stdin and stdout",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveIndex, "index", false, "Index the root in the background and answer workspace symbol queries")
	serveCmd.Flags().DurationVar(&serveReindex, "reindex", 0, "Re-index the root at this interval (0 indexes once)")
}

func runServe(cmd *cobra.Command, args []string) error {
	var fc *cache.Filecache
	if serveIndex {
		var err error
		fc, err = openCache()
		if err != nil {
			return err
		}
		defer fc.Close()

		pool := parser.NewPool(cfg.Workers, cfg.Timeout())
		defer pool.Close()

		sched := scheduler.NewScheduler(1)
		defer sched.Stop()

		task := indexTask(index.NewIndexer(fc, pool, cfg.Languages, scanner.Options{
			IgnoreDirs: cfg.IgnoreDirs,
			Workers:    cfg.Workers,
		}), cfg.Root)
		if serveReindex > 0 {
			sched.Every(serveReindex, task)
		} else {
			sched.Submit(task)
		}
	}
	return server.NewServer(cfg, fc).RunStdio()
}

func indexTask(ix *index.Indexer, root string) scheduler.Task {
	return scheduler.Task{
		Name: "index " + root,
		Execute: func(ctx context.Context) error {
			report, err := ix.Run(ctx, root)
			if err != nil {
				return err
			}
			log.Infof("indexed %d, skipped %d, failed %d", report.Indexed, report.Skipped, report.Failed)
			return nil
		},
	}
}
