package schema

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlstn/go-rql/internal/compile"
)

type base struct {
	ID uint `json:"id"`
}

type lineItem struct {
	ID       uint
	PersonID uint
	Name     string `json:"name"`
	Qty      int    `json:"qty"`
}

type address struct {
	City string `json:"city" bson:"town"`
}

type person struct {
	base
	Name       string            `json:"name" rql:"wildcards:1;message:one wildcard only"`
	Email      string            `json:"email" gorm:"column:mail"`
	Code       string            `json:"code" rql:"pattern:^[A-Z]+\\*?$"`
	Tags       []string          `json:"tags"`
	Items      []lineItem        `json:"items" gorm:"foreignKey:PersonID"`
	Address    address           `json:"address" gorm:"embedded;embeddedPrefix:addr_"`
	Attributes map[string]string `json:"attributes"`
	Secret     string            `rql:"-"`
	Computed   string            `gorm:"-"`
	CreatedAt  time.Time         `json:"createdAt"`
	Balance    decimal.Decimal   `json:"balance"`
	ManagerID  *uint             `json:"managerId"`
	Manager    *person           `json:"manager" gorm:"foreignKey:ManagerID"`
	internal   string
}

func (p person) DisplayName() string { return p.Name + " <" + p.Email + ">" }

func member(t *testing.T, s compile.Schema, name string) *compile.Member {
	t.Helper()
	m, ok := s.Member(name)
	require.True(t, ok, "member %s", name)
	return m
}

func TestAnalyzeStruct(t *testing.T) {
	s, err := Analyze(&person{}, WithVirtual(person{}, "displayName", "DisplayName"))
	require.NoError(t, err)

	assert.Equal(t, "person", s.Name())
	assert.Equal(t, "people", s.TableName())

	id := member(t, s, "id")
	assert.Equal(t, compile.Scalar, id.Kind)
	assert.Equal(t, []int{0, 0}, id.Binding.Index)

	name := member(t, s, "name")
	require.NotNil(t, name.Wildcards)
	assert.Equal(t, 1, name.Wildcards.Max)
	assert.Equal(t, "one wildcard only", name.Wildcards.Message)

	code := member(t, s, "code")
	require.NotNil(t, code.Pattern)
	assert.Equal(t, `^[A-Z]+\*?$`, code.Pattern.Expr)

	assert.Equal(t, "mail", member(t, s, "email").Binding.Column)
	assert.Equal(t, "created_at", member(t, s, "createdAt").Binding.Column)

	tags := member(t, s, "tags")
	assert.Equal(t, compile.Collection, tags.Kind)
	assert.Equal(t, "string", tags.Type.String())
	assert.Nil(t, tags.Elem)

	items := member(t, s, "items")
	assert.Equal(t, compile.Collection, items.Kind)
	require.NotNil(t, items.Elem)
	assert.Equal(t, "line_items", items.Binding.Table)
	assert.Equal(t, "person_id", items.Binding.ForeignKey)
	assert.Equal(t, "id", items.Binding.References)
	member(t, items.Elem, "qty")

	addr := member(t, s, "address")
	assert.Equal(t, compile.Object, addr.Kind)
	assert.Equal(t, "addr_", addr.Binding.Prefix)
	assert.Equal(t, "town", member(t, addr.Elem, "city").DocumentKey())

	attrs := member(t, s, "attributes")
	assert.Equal(t, compile.Map, attrs.Kind)

	manager := member(t, s, "manager")
	assert.Equal(t, compile.Object, manager.Kind)
	assert.Same(t, s, manager.Elem)
	assert.Equal(t, "people", manager.Binding.Table)
	assert.Equal(t, "manager_id", manager.Binding.ForeignKey)

	_, ok := s.Member("Secret")
	assert.False(t, ok)
	_, ok = s.Member("Computed")
	assert.False(t, ok)
	_, ok = s.Member("internal")
	assert.False(t, ok)

	display := member(t, s, "displayName")
	assert.True(t, display.Virtual)
	assert.Equal(t, "DisplayName", display.Binding.Method)
	assert.Equal(t, "string", display.Type.String())
}

func TestAnalyzeErrors(t *testing.T) {
	_, err := Analyze(42)
	assert.ErrorContains(t, err, "entity must be a struct")

	type withChan struct {
		Events chan string
	}
	_, err = Analyze(withChan{})
	assert.ErrorContains(t, err, "unsupported type chan string")

	type withIntMap struct {
		Scores map[int]string
	}
	_, err = Analyze(withIntMap{})
	assert.ErrorContains(t, err, "map keys must be strings")

	_, err = Analyze(person{}, WithVirtual(person{}, "x", "Missing"))
	assert.ErrorContains(t, err, "has no method Missing")
}

func TestParseTag(t *testing.T) {
	tag := parseTag("name:title;wildcards:2;chars:*;message:nope;column:t")
	assert.Equal(t, "title", tag.name)
	assert.Equal(t, "t", tag.column)
	require.NotNil(t, tag.wildcards)
	assert.Equal(t, compile.WildcardLimit{Max: 2, Chars: "*", Message: "nope"}, *tag.wildcards)

	assert.True(t, parseTag("-").skip)
	assert.True(t, parseTag("virtual").virtual)
}
