package schema

import (
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlstn/go-rql/internal/compile"
)

func TestLoadFile(t *testing.T) {
	s, err := LoadFile("testdata/person.yaml")
	require.NoError(t, err)

	assert.Equal(t, "Person", s.Name())
	assert.Equal(t, "persons", s.TableName())

	name := member(t, s, "name")
	require.NotNil(t, name.Wildcards)
	assert.Equal(t, "only one wildcard allowed in name", name.Wildcards.Message)
	assert.Equal(t, reflect.TypeOf(decimal.Decimal{}), member(t, s, "balance").Type)

	items := member(t, s, "items")
	assert.Equal(t, compile.Collection, items.Kind)
	require.NotNil(t, items.Elem)
	assert.Equal(t, "Item", items.Elem.Name())
	assert.Equal(t, "items", items.Binding.Table)
	assert.Equal(t, "person_id", items.Binding.ForeignKey)
	assert.Equal(t, "id", items.Binding.References)
	assert.Equal(t, `^[A-Z]+\*?$`, member(t, items.Elem, "code").Pattern.Expr)

	addr := member(t, s, "address")
	assert.Equal(t, compile.Object, addr.Kind)
	assert.Equal(t, "Person.address", addr.Elem.Name())
	assert.Equal(t, reflect.TypeOf(""), member(t, addr.Elem, "city").Type)

	assert.Equal(t, "attrs", member(t, s, "attributes").DocumentKey())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing name", "members: []", "schema name is required"},
		{"unknown field", "name: A\ncolour: red", "invalid schema document"},
		{"unknown type", "name: A\nmembers:\n  - name: x\n    type: blob", "A.x: unknown type 'blob'"},
		{"unknown kind", "name: A\nmembers:\n  - name: x\n    kind: set", "A.x: unknown kind 'set'"},
		{"unknown ref", "name: A\nmembers:\n  - name: x\n    kind: collection\n    ref: B", "A.x: unknown ref 'B'"},
		{"object without schema", "name: A\nmembers:\n  - name: x\n    kind: object", "A.x: object members need a schema or ref"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
