package cli

import (
	"strings"

	"github.com/spf13/cobra"

	rql "github.com/nlstn/go-rql"
)

// PagesResult is the JSON payload of the pages command.
type PagesResult struct {
	Pages     []string `json:"pages"`
	Truncated bool     `json:"truncated,omitempty"`
}

type pagesOptions struct {
	size int
	max  int
}

// NewPagesCommand creates the pages command.
func NewPagesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &pagesOptions{}
	cmd := &cobra.Command{
		Use:   "pages [query]",
		Short: "Split a query into bounded pages",
		Long: `Print the queries that read the rows of a query page by page. Each page
keeps the select, filter and sort of the query and covers at most --size rows
of its limit. A cursor is dropped and paging starts at offset 0. Queries
without a limit produce pages until --max is reached.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPages(rootOpts, opts, cmd, args)
		},
	}
	cmd.Flags().IntVar(&opts.size, "size", 100, "rows per page")
	cmd.Flags().IntVar(&opts.max, "max", 100, "maximum number of pages to print")
	return cmd
}

func runPages(rootOpts *RootOptions, opts *pagesOptions, cmd *cobra.Command, args []string) error {
	formatter := newFormatter(rootOpts, cmd)
	if opts.size <= 0 || opts.max <= 0 {
		return NewExitError(ExitCommandError, "--size and --max must be positive")
	}
	m, err := parseQuery(cmd, rootOpts, args)
	if err != nil {
		return reportError(formatter, err)
	}

	result := PagesResult{Pages: []string{}}
	pager := rql.NewPager(m, opts.size)
	for page, ok := pager.Next(); ok; page, ok = pager.Next() {
		if len(result.Pages) == opts.max {
			result.Truncated = true
			break
		}
		result.Pages = append(result.Pages, rql.String(page))
	}
	formatter.VerboseLog("%d page(s) of at most %d rows", len(result.Pages), opts.size)

	text := strings.Join(result.Pages, "\n")
	if result.Truncated {
		text += "\n..."
	}
	return formatter.Success(result, text)
}
