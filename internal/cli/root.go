// Package cli implements the rql command line tool.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	rql "github.com/nlstn/go-rql"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the rql tool.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rql",
		Short: "Inspect and compile resource query language strings",
		Long: `rql parses resource queries such as

  select=name&filter=and(eq(items.name,"pen"),gt(items.price,10))&option=sort(-name),limit(0,50)

prints their canonical form, reports syntax errors with their locations and
compiles them against a YAML schema into SQL or MongoDB filters.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log parse and compile details to stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewFmtCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewPagesCommand(opts))
	cmd.AddCommand(NewSQLCommand(opts))
	cmd.AddCommand(NewMongoCommand(opts))

	return cmd
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// logger writes debug records to stderr in verbose mode and discards them
// otherwise.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	if !o.Verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// readQuery returns the query given as argument, or stdin when there is none
// or it is "-".
func readQuery(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to read query", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// parseQuery parses the query and turns failures into exit errors.
func parseQuery(cmd *cobra.Command, opts *RootOptions, args []string) (*rql.QueryModel, error) {
	query, err := readQuery(cmd, args)
	if err != nil {
		return nil, err
	}
	m, err := rql.ParseContext(cmd.Context(), query, rql.WithLogger(opts.logger(cmd)))
	if err != nil {
		return nil, WrapExitError(ExitFailure, "invalid query", err)
	}
	return m, nil
}
