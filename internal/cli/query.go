package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	rql "github.com/nlstn/go-rql"
)

// FormatResult is the JSON payload of the fmt command.
type FormatResult struct {
	Query      string            `json:"query"`
	Parameters map[string]string `json:"parameters"`
}

// NewFmtCommand creates the fmt command.
func NewFmtCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fmt [query]",
		Short: "Print the canonical form of a query",
		Long: `Print the canonical form of a query. Whitespace is removed, duplicate
select attributes are dropped, numbers are normalized and the segments are
ordered select, filter, option. Reads the query from stdin when no argument
is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runFmt(opts *RootOptions, cmd *cobra.Command, args []string) error {
	formatter := newFormatter(opts, cmd)
	m, err := parseQuery(cmd, opts, args)
	if err != nil {
		return reportError(formatter, err)
	}
	canonical := rql.String(m)
	return formatter.Success(FormatResult{Query: canonical, Parameters: rql.ToQueryParameters(m)}, canonical)
}

// CheckResult is the JSON payload of the check command.
type CheckResult struct {
	Valid    bool           `json:"valid"`
	Problems []ProblemEntry `json:"problems,omitempty"`
}

// ProblemEntry is one reported problem. Line and Column are zero when the
// problem has no location.
type ProblemEntry struct {
	Class   string `json:"class"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

type checkOptions struct {
	schema string
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check [query]",
		Short: "Report every problem of a query",
		Long: `Parse a query and report every problem found, with line and column where
known. With --schema the query is also compiled against the schema, which
reports unknown fields and values of the wrong type.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, opts, cmd, args)
		},
	}
	cmd.Flags().StringVarP(&opts.schema, "schema", "s", "", "YAML schema to compile the query against")
	return cmd
}

func runCheck(rootOpts *RootOptions, opts *checkOptions, cmd *cobra.Command, args []string) error {
	formatter := newFormatter(rootOpts, cmd)
	query, err := readQuery(cmd, args)
	if err != nil {
		return err
	}

	var s *rql.ObjectSchema
	if opts.schema != "" {
		if s, err = loadSchema(opts.schema); err != nil {
			return reportError(formatter, err)
		}
	}

	logger := rootOpts.logger(cmd)
	problems := []ProblemEntry{}
	m, err := rql.ParseContext(cmd.Context(), query, rql.WithLogger(logger))
	if err == nil && s != nil {
		formatter.VerboseLog("compiling against schema %s", s.Name())
		_, _, err = rql.FilterSlice[any](cmd.Context(), nil, m, s, rql.WithLogger(logger))
	}
	if err != nil {
		problems = problemsOf(err)
	}

	result := CheckResult{Valid: len(problems) == 0, Problems: problems}
	if err := formatter.Success(result, checkText(result)); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("query has %d problem(s)", len(problems)))
	}
	return nil
}

// problemsOf lists every problem collected by a parse, or the single
// compile error.
func problemsOf(err error) []ProblemEntry {
	class := rql.ErrorClass(err)
	var se *rql.SyntaxError
	if errors.As(err, &se) && len(se.Problems) > 0 {
		out := make([]ProblemEntry, 0, len(se.Problems))
		for _, p := range se.Problems {
			e := ProblemEntry{Class: class, Message: p.Msg}
			if p.Located {
				e.Line, e.Column = p.Line, p.Column
			}
			out = append(out, e)
		}
		return out
	}
	return []ProblemEntry{{Class: class, Message: err.Error()}}
}

func checkText(r CheckResult) string {
	if r.Valid {
		return "ok"
	}
	var b strings.Builder
	for i, p := range r.Problems {
		if i > 0 {
			b.WriteByte('\n')
		}
		if p.Line > 0 {
			fmt.Fprintf(&b, "%d:%d: ", p.Line, p.Column)
		}
		fmt.Fprintf(&b, "%s (%s)", p.Message, p.Class)
	}
	return b.String()
}

// reportError writes err through the formatter and returns it as an exit
// error, keeping a code already attached to it.
func reportError(f *OutputFormatter, err error) error {
	cause := err
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err != nil {
		cause = exitErr.Err
	}
	if werr := f.Error(rql.ErrorClass(cause), cause.Error(), nil); werr != nil {
		return werr
	}
	if exitErr != nil {
		return exitErr
	}
	return WrapExitError(ExitFailure, "query rejected", err)
}
