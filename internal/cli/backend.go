package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	rql "github.com/nlstn/go-rql"
	"github.com/nlstn/go-rql/internal/backend/gormsql"
)

// ValidDialects lists the SQL dialects of the sql command.
var ValidDialects = []string{"sqlite", "postgres"}

func loadSchema(path string) (*rql.ObjectSchema, error) {
	s, err := rql.LoadSchemaFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	return s, nil
}

// openDryRun opens a database handle that builds statements without
// connecting to a server.
func openDryRun(dialect string) (*gorm.DB, error) {
	var d gorm.Dialector
	switch dialect {
	case "sqlite":
		d = sqlite.Open(":memory:")
	case "postgres":
		d = postgres.New(postgres.Config{
			DSN:                  "host=localhost dbname=rql sslmode=disable",
			PreferSimpleProtocol: true,
		})
	default:
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("invalid dialect %q: must be one of %v", dialect, ValidDialects))
	}
	db, err := gorm.Open(d, &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               gormlogger.Discard,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open "+dialect+" dialect", err)
	}
	return db, nil
}

// SQLResult is the JSON payload of the sql command.
type SQLResult struct {
	Statement string `json:"statement"`
	Where     string `json:"where,omitempty"`
	Args      []any  `json:"args,omitempty"`
}

type sqlOptions struct {
	schema  string
	dialect string
	batch   int
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &sqlOptions{}
	cmd := &cobra.Command{
		Use:   "sql [query]",
		Short: "Compile a query into a SQL statement",
		Long: `Compile a query against a YAML schema and print the SELECT statement GORM
would run, with the arguments inlined. Nothing is executed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(rootOpts, opts, cmd, args)
		},
	}
	cmd.Flags().StringVarP(&opts.schema, "schema", "s", "", "YAML schema of the queried table")
	cmd.Flags().StringVar(&opts.dialect, "dialect", "sqlite", "SQL dialect (sqlite|postgres)")
	cmd.Flags().IntVar(&opts.batch, "batch", rql.DefaultBatchSize, "largest number of values per IN list")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func runSQL(rootOpts *RootOptions, opts *sqlOptions, cmd *cobra.Command, args []string) error {
	formatter := newFormatter(rootOpts, cmd)
	s, err := loadSchema(opts.schema)
	if err != nil {
		return reportError(formatter, err)
	}
	db, err := openDryRun(opts.dialect)
	if err != nil {
		return reportError(formatter, err)
	}
	m, err := parseQuery(cmd, rootOpts, args)
	if err != nil {
		return reportError(formatter, err)
	}

	ctx := cmd.Context()
	logger := rootOpts.logger(cmd)
	rqlOpts := []rql.Option{rql.WithLogger(logger), rql.WithBatchSize(opts.batch)}

	res, err := rql.Compile[gormsql.Expr](ctx, m, s, gormsql.NewBuilder(opts.dialect, s.TableName()), rqlOpts...)
	if err != nil {
		return reportError(formatter, err)
	}

	var applyErr error
	statement := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		applied, err := rql.ApplyGORM(ctx, tx.Table(s.TableName()), m, s, rqlOpts...)
		if err != nil {
			applyErr = err
			return tx
		}
		var rows []map[string]any
		return applied.Find(&rows)
	})
	if applyErr != nil {
		return reportError(formatter, applyErr)
	}

	result := SQLResult{Statement: statement}
	if res.HasPredicate {
		result.Where = res.Predicate.SQL
		result.Args = res.Predicate.Args
		logger.Debug("rql predicate", slog.String("sql", res.Predicate.SQL), slog.Any("args", res.Predicate.Args))
	}
	return formatter.Success(result, statement)
}

// MongoResult is the JSON payload of the mongo command.
type MongoResult struct {
	Filter json.RawMessage `json:"filter"`
	Sort   json.RawMessage `json:"sort,omitempty"`
	Skip   *int64          `json:"skip,omitempty"`
	Limit  *int64          `json:"limit,omitempty"`
}

type mongoOptions struct {
	schema string
}

// NewMongoCommand creates the mongo command.
func NewMongoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &mongoOptions{}
	cmd := &cobra.Command{
		Use:   "mongo [query]",
		Short: "Compile a query into a MongoDB filter",
		Long: `Compile a query against a YAML schema and print the filter document and
find options as relaxed extended JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMongo(rootOpts, opts, cmd, args)
		},
	}
	cmd.Flags().StringVarP(&opts.schema, "schema", "s", "", "YAML schema of the queried collection")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func runMongo(rootOpts *RootOptions, opts *mongoOptions, cmd *cobra.Command, args []string) error {
	formatter := newFormatter(rootOpts, cmd)
	s, err := loadSchema(opts.schema)
	if err != nil {
		return reportError(formatter, err)
	}
	m, err := parseQuery(cmd, rootOpts, args)
	if err != nil {
		return reportError(formatter, err)
	}

	filter, find, err := rql.MongoQuery(cmd.Context(), m, s, rql.WithLogger(rootOpts.logger(cmd)))
	if err != nil {
		return reportError(formatter, err)
	}

	result := MongoResult{Skip: find.Skip, Limit: find.Limit}
	if result.Filter, err = bson.MarshalExtJSON(filter, false, false); err != nil {
		return WrapExitError(ExitFailure, "failed to encode filter", err)
	}
	if find.Sort != nil {
		if result.Sort, err = bson.MarshalExtJSON(find.Sort, false, false); err != nil {
			return WrapExitError(ExitFailure, "failed to encode sort", err)
		}
	}
	return formatter.Success(result, mongoText(result))
}

func mongoText(r MongoResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "filter: %s", r.Filter)
	if r.Sort != nil {
		fmt.Fprintf(&b, "\nsort: %s", r.Sort)
	}
	if r.Skip != nil {
		fmt.Fprintf(&b, "\nskip: %d", *r.Skip)
	}
	if r.Limit != nil {
		fmt.Fprintf(&b, "\nlimit: %d", *r.Limit)
	}
	return b.String()
}
