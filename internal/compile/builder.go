package compile

import (
	"regexp"
	"strings"

	"github.com/nlstn/go-rql/internal/model"
)

// Builder is implemented by backends to receive compiled predicates.
//
// Leaf methods get values already converted to the member type. Exists
// receives the collection path and a predicate built for one element of it;
// paths inside that predicate carry the collection in their Scope.
type Builder[E any] interface {
	And(exprs ...E) E
	Or(exprs ...E) E
	Not(expr E) E
	IsNull(p Path) (E, error)
	IsNotNull(p Path) (E, error)
	Equals(p Path, value any) (E, error)
	NotEquals(p Path, value any) (E, error)
	Compare(p Path, op model.Operator, value any) (E, error)
	Like(p Path, pattern Pattern, ignoreCase bool) (E, error)
	In(p Path, values []any) (E, error)
	Exists(collection Path, element E) (E, error)
}

// Pattern is a like pattern. '*' and '%' match any sequence, '?' and '_'
// match a single character.
type Pattern string

var sqlLikeEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `%`,
	`?`, `_`,
)

// SQL renders the pattern for LIKE ... ESCAPE '\'.
func (p Pattern) SQL() string {
	return sqlLikeEscaper.Replace(string(p))
}

// Regexp renders the pattern as an anchored regular expression.
func (p Pattern) Regexp(ignoreCase bool) string {
	if ignoreCase {
		return "(?is)" + p.RegexpSource()
	}
	return "(?s)" + p.RegexpSource()
}

// RegexpSource renders the anchored expression without flags.
func (p Pattern) RegexpSource() string {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range string(p) {
		switch r {
		case '*', '%':
			b.WriteString(".*")
		case '?', '_':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return b.String()
}
