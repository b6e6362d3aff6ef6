// Package gormsql renders compiled queries as SQL conditions for gorm.
package gormsql

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nlstn/go-rql/internal/compile"
	"github.com/nlstn/go-rql/internal/model"
	"github.com/nlstn/go-rql/internal/rqlerrors"
)

const likeEscapeClause = "ESCAPE '\\'"

// Expr is a SQL fragment with positional arguments.
type Expr struct {
	SQL  string
	Args []any
}

// Builder implements compile.Builder for SQLite and PostgreSQL.
type Builder struct {
	dialect string
	table   string
}

var _ compile.Builder[Expr] = (*Builder)(nil)

// NewBuilder creates a builder for rows of table. dialect is the gorm
// dialector name.
func NewBuilder(dialect, table string) *Builder {
	return &Builder{dialect: dialect, table: table}
}

// quoteIdent quotes identifiers with double quotes, which sqlite and postgres
// both accept. Embedded double quotes are doubled.
func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (b *Builder) postgres() bool {
	return b.dialect == "postgres"
}

func (b *Builder) And(exprs ...Expr) Expr {
	return b.join(" AND ", exprs)
}

func (b *Builder) Or(exprs ...Expr) Expr {
	return b.join(" OR ", exprs)
}

func (b *Builder) join(sep string, exprs []Expr) Expr {
	parts := make([]string, len(exprs))
	var args []any
	for i, e := range exprs {
		parts[i] = "(" + e.SQL + ")"
		args = append(args, e.Args...)
	}
	return Expr{SQL: strings.Join(parts, sep), Args: args}
}

func (b *Builder) Not(e Expr) Expr {
	return Expr{SQL: "NOT (" + e.SQL + ")", Args: e.Args}
}

func (b *Builder) IsNull(p compile.Path) (Expr, error) {
	col, err := b.column(p)
	if err != nil {
		return Expr{}, err
	}
	return Expr{SQL: col.SQL + " IS NULL", Args: col.Args}, nil
}

func (b *Builder) IsNotNull(p compile.Path) (Expr, error) {
	col, err := b.column(p)
	if err != nil {
		return Expr{}, err
	}
	return Expr{SQL: col.SQL + " IS NOT NULL", Args: col.Args}, nil
}

func (b *Builder) Equals(p compile.Path, value any) (Expr, error) {
	return b.Compare(p, model.OpEq, value)
}

func (b *Builder) NotEquals(p compile.Path, value any) (Expr, error) {
	return b.Compare(p, model.OpNe, value)
}

var sqlOperators = map[model.Operator]string{
	model.OpEq: "=",
	model.OpNe: "<>",
	model.OpGt: ">",
	model.OpGe: ">=",
	model.OpLt: "<",
	model.OpLe: "<=",
}

func (b *Builder) Compare(p compile.Path, op model.Operator, value any) (Expr, error) {
	sqlOp, ok := sqlOperators[op]
	if !ok {
		return Expr{}, fmt.Errorf("operator %s has no SQL comparison", op)
	}
	col, err := b.column(p)
	if err != nil {
		return Expr{}, err
	}
	return Expr{
		SQL:  fmt.Sprintf("%s %s ?", col.SQL, sqlOp),
		Args: append(col.Args, bindable(value)),
	}, nil
}

func (b *Builder) Like(p compile.Path, pattern compile.Pattern, ignoreCase bool) (Expr, error) {
	col, err := b.column(p)
	if err != nil {
		return Expr{}, err
	}
	args := append(col.Args, pattern.SQL())
	switch {
	case !ignoreCase:
		return Expr{SQL: fmt.Sprintf("%s LIKE ? %s", col.SQL, likeEscapeClause), Args: args}, nil
	case b.postgres():
		return Expr{SQL: fmt.Sprintf("%s ILIKE ? %s", col.SQL, likeEscapeClause), Args: args}, nil
	default:
		return Expr{SQL: fmt.Sprintf("LOWER(%s) LIKE LOWER(?) %s", col.SQL, likeEscapeClause), Args: args}, nil
	}
}

func (b *Builder) In(p compile.Path, values []any) (Expr, error) {
	col, err := b.column(p)
	if err != nil {
		return Expr{}, err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	args := col.Args
	for _, v := range values {
		args = append(args, bindable(v))
	}
	return Expr{SQL: fmt.Sprintf("%s IN (%s)", col.SQL, placeholders), Args: args}, nil
}

// Exists correlates element with the rows of a collection: a child table
// joined by foreign key, or the elements of a JSON array column.
func (b *Builder) Exists(collection compile.Path, element Expr) (Expr, error) {
	owner := b.alias(collection.Scope)
	steps := collection.Steps
	coll := steps[len(steps)-1]
	prefix, err := embeddedPrefix(steps[:len(steps)-1])
	if err != nil {
		return Expr{}, err
	}
	depth := len(collection.Scope) + 1
	alias := quoteIdent(aliasName(coll, depth))

	if coll.Elem != nil {
		table := coll.Binding.Table
		if table == "" {
			return Expr{}, rqlerrors.Unsupported(collection.FullString(), "collection '%s' has no table", collection.FullString())
		}
		references := coll.Binding.References
		if references == "" {
			references = "id"
		}
		sql := fmt.Sprintf("EXISTS (SELECT 1 FROM %s AS %s WHERE %s.%s = %s.%s AND (%s))",
			quoteIdent(table), alias,
			alias, quoteIdent(coll.Binding.ForeignKey),
			owner, quoteIdent(prefix+references),
			element.SQL)
		return Expr{SQL: sql, Args: element.Args}, nil
	}

	source := owner + "." + quoteIdent(prefix+columnName(coll))
	var from string
	if b.postgres() {
		from = fmt.Sprintf("jsonb_array_elements_text(%s) AS %s(value)", source, alias)
	} else {
		from = fmt.Sprintf("json_each(%s) AS %s", source, alias)
	}
	return Expr{
		SQL:  fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s)", from, element.SQL),
		Args: element.Args,
	}, nil
}

// alias returns the quoted name rows are addressed by inside the given
// collection scopes.
func (b *Builder) alias(scope []*compile.Member) string {
	if len(scope) == 0 {
		return quoteIdent(b.table)
	}
	return quoteIdent(aliasName(scope[len(scope)-1], len(scope)))
}

func aliasName(coll *compile.Member, depth int) string {
	name := coll.Binding.Table
	if name == "" || coll.Elem == nil {
		name = columnName(coll)
	}
	return name + "_" + strconv.Itoa(depth)
}

func columnName(m *compile.Member) string {
	if m.Binding.Column != "" {
		return m.Binding.Column
	}
	return m.Name
}

func embeddedPrefix(steps []*compile.Member) (string, error) {
	var prefix string
	for _, m := range steps {
		if m.Kind != compile.Object || m.Binding.Table != "" {
			return "", rqlerrors.Unsupported(m.Name, "member '%s' cannot be traversed in a collection path", m.Name)
		}
		prefix += m.Binding.Prefix
	}
	return prefix, nil
}

// column renders the value addressed by p. Related objects are read through
// correlated scalar subqueries so that a missing relation yields NULL.
func (b *Builder) column(p compile.Path) (Expr, error) {
	owner := b.alias(p.Scope)
	if len(p.Steps) == 0 {
		return Expr{SQL: owner + ".value"}, nil
	}
	return b.walk(owner, p.Steps, p.Key, 0)
}

func (b *Builder) walk(owner string, steps []*compile.Member, key string, rel int) (Expr, error) {
	var prefix string
	for i, m := range steps {
		switch m.Kind {
		case compile.Object:
			if m.Binding.Table == "" {
				prefix += m.Binding.Prefix
				continue
			}
			rel++
			alias := quoteIdent(fmt.Sprintf("%s_r%d", m.Binding.Table, rel))
			inner, err := b.walk(alias, steps[i+1:], key, rel)
			if err != nil {
				return Expr{}, err
			}
			references := m.Binding.References
			if references == "" {
				references = "id"
			}
			sql := fmt.Sprintf("(SELECT %s FROM %s AS %s WHERE %s.%s = %s.%s)",
				inner.SQL, quoteIdent(m.Binding.Table), alias,
				alias, quoteIdent(references),
				owner, quoteIdent(prefix+m.Binding.ForeignKey))
			return Expr{SQL: sql, Args: inner.Args}, nil
		case compile.Map:
			col := owner + "." + quoteIdent(prefix+columnName(m))
			if b.postgres() {
				return Expr{SQL: fmt.Sprintf("(%s ->> ?)", col), Args: []any{key}}, nil
			}
			return Expr{SQL: fmt.Sprintf("json_extract(%s, ?)", col), Args: []any{jsonPath(key)}}, nil
		case compile.Scalar:
			if m.Virtual && m.Binding.Column == "" {
				return Expr{}, rqlerrors.Unsupported(m.Name, "virtual member '%s' has no column", m.Name)
			}
			return Expr{SQL: owner + "." + quoteIdent(prefix+columnName(m))}, nil
		default:
			return Expr{}, rqlerrors.UnsupportedFieldType(m.Name, m.Kind)
		}
	}
	name := ""
	if len(steps) > 0 {
		name = steps[len(steps)-1].Name
	}
	return Expr{}, rqlerrors.Unsupported(name, "path ends at an object")
}

func jsonPath(key string) string {
	return `$."` + strings.ReplaceAll(key, `"`, `\"`) + `"`
}

// bindable maps values the drivers cannot bind to ones they can.
func bindable(v any) any {
	if n, ok := v.(*big.Int); ok {
		return decimal.NewFromBigInt(n, 0)
	}
	return v
}
