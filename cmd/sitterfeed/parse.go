package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"sitterfeed/internal/parser"
	"sitterfeed/internal/remote"
	"sitterfeed/internal/source"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/spf13/cobra"
)

var (
	parseLanguage string
	parseRemote   string
	parseStats    bool
	symbolsFormat string
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a file and print its syntax tree",
	Long: `Parse a file line by line and print the S-expression of its syntax tree.
With --remote the text is pulled from a running "sitterfeed feed" instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols <file>",
	Short: "List the declarations in a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSymbols,
}

func init() {
	for _, cmd := range []*cobra.Command{parseCmd, symbolsCmd} {
		cmd.Flags().StringVarP(&parseLanguage, "language", "l", "", "Language name (default: from the file extension)")
		cmd.Flags().StringVar(&parseRemote, "remote", "", "Pull text from a feed at this websocket URL")
	}
	parseCmd.Flags().BoolVar(&parseStats, "stats", false, "Print provider statistics to stderr")
	symbolsCmd.Flags().StringVar(&symbolsFormat, "format", "table", "Output format: table, json")
}

// statser is implemented by every provider in source.
type statser interface {
	Stats() source.Stats
}

// openProvider returns the provider for args and the language to parse it as.
func openProvider(ctx context.Context, args []string) (source.Provider, *parser.Language, error) {
	var path string
	if len(args) > 0 {
		path = args[0]
	}

	var lang *parser.Language
	var err error
	switch {
	case parseLanguage != "":
		lang, err = parser.Lookup(parseLanguage)
	case path != "":
		lang, err = parser.ForPath(path, cfg.Languages)
	default:
		err = errors.New("a file or --language is required")
	}
	if err != nil {
		return nil, nil, err
	}

	if parseRemote != "" {
		client, err := remote.Dial(ctx, parseRemote, cfg.RemoteTimeout())
		if err != nil {
			return nil, nil, err
		}
		return &remoteProvider{CallbackProvider: source.NewCallbackProvider(client), client: client}, lang, nil
	}
	if path == "" {
		return nil, nil, errors.New("a file is required without --remote")
	}
	provider, err := source.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	return provider, lang, nil
}

// remoteProvider closes the websocket along with the provider.
type remoteProvider struct {
	*source.CallbackProvider
	client *remote.Client
}

func (p *remoteProvider) Close() error {
	err := p.CallbackProvider.Close()
	if cerr := p.client.Close(); err == nil {
		err = cerr
	}
	return err
}

// parseWith parses provider and checks for swallowed read errors.
func parseWith(ctx context.Context, session *parser.Session, provider source.Provider) (*sitter.Tree, error) {
	tree, err := session.Parse(ctx, provider)
	if err != nil {
		return nil, err
	}
	if fp, ok := provider.(*source.FileProvider); ok && fp.Err() != nil {
		return nil, fmt.Errorf("reading input: %w", fp.Err())
	}
	return tree, nil
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	provider, lang, err := openProvider(ctx, args)
	if err != nil {
		return err
	}
	defer provider.Close()

	session := parser.NewSession(lang, cfg.Timeout())
	defer session.Close()

	tree, err := parseWith(ctx, session, provider)
	if err != nil {
		return err
	}

	root := tree.RootNode()
	fmt.Fprintln(cmd.OutOrStdout(), root.String())

	stderr := cmd.ErrOrStderr()
	for _, e := range parser.SyntaxErrors(root, 0) {
		fmt.Fprintf(stderr, "%d:%d: %s\n", e.Start.Row+1, e.Start.Column+1, e.Message)
	}
	if parseStats {
		if s, ok := provider.(statser); ok {
			writeStats(stderr, s.Stats())
		}
	}
	return nil
}

func writeStats(w io.Writer, s source.Stats) {
	fmt.Fprintf(w, "calls=%d releases=%d eofs=%d failures=%d violations=%d\n",
		s.Calls, s.Releases, s.EOFs, s.Failures, s.Violations)
}

func runSymbols(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	provider, lang, err := openProvider(ctx, args)
	if err != nil {
		return err
	}
	defer provider.Close()

	session := parser.NewSession(lang, cfg.Timeout())
	defer session.Close()

	tree, err := parseWith(ctx, session, provider)
	if err != nil {
		return err
	}
	symbols, err := parser.Symbols(tree.RootNode(), lang, provider)
	if err != nil {
		return err
	}

	switch symbolsFormat {
	case "json":
		return outputSymbolsJSON(cmd, symbols)
	case "table":
		return outputSymbolsTable(cmd, symbols)
	default:
		return fmt.Errorf("unknown output format: %s", symbolsFormat)
	}
}

func outputSymbolsJSON(cmd *cobra.Command, symbols []parser.Symbol) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if symbols == nil {
		symbols = []parser.Symbol{}
	}
	return encoder.Encode(symbols)
}

func outputSymbolsTable(cmd *cobra.Command, symbols []parser.Symbol) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LINE\tCOL\tKIND\tNAME")
	for _, s := range symbols {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", s.NameStart.Row+1, s.NameStart.Column+1, s.Kind, s.Name)
	}
	return w.Flush()
}
