package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"sitterfeed/internal/remote"
	"sitterfeed/internal/source"

	"github.com/spf13/cobra"
)

var feedAddr string

var feedCmd = &cobra.Command{
	Use:   "feed <file>",
	Short: "Serve a file to remote parsers over a websocket",
	Long: `Serve a file as a remote producer. Every websocket connection gets its
own file provider, so any number of "sitterfeed parse --remote" clients can
pull the same file concurrently.`,
	Args: cobra.ExactArgs(1),
	RunE: runFeed,
}

func init() {
	feedCmd.Flags().StringVar(&feedAddr, "addr", "", "Listen address (default: feed_addr from config)")
}

func runFeed(cmd *cobra.Command, args []string) error {
	path := args[0]

	// fail early on files that cannot be opened
	probe, err := source.OpenFile(path)
	if err != nil {
		return err
	}
	probe.Close()

	handler := remote.NewHandler(func(r *http.Request) (source.Producer, error) {
		provider, err := source.OpenFile(path)
		if err != nil {
			return nil, err
		}
		return source.ProviderProducer{Provider: provider}, nil
	})

	addr := feedAddr
	if addr == "" {
		addr = cfg.FeedAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ready := make(chan string, 1)
	go func() {
		if bound, ok := <-ready; ok {
			fmt.Fprintf(cmd.OutOrStdout(), "feeding %s on ws://%s\n", path, bound)
		}
	}()
	return remote.ListenAndServe(ctx, addr, handler, ready)
}
