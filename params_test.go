package rql

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToQueryParameters(t *testing.T) {
	tests := []struct {
		query string
		want  map[string]string
	}{
		{"", map[string]string{}},
		{"select=a,b", map[string]string{"select": "a,b"}},
		{
			`select=a&filter=eq(b,"x&y")&option=sort(+a),limit(0,5)`,
			map[string]string{"select": "a", "filter": `eq(b,"x&y")`, "option": "sort(+a),limit(0,5)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ToQueryParameters(MustParse(tt.query)))
		})
	}
	assert.Empty(t, ToQueryParameters(nil))
}

func TestFromQueryParameters(t *testing.T) {
	original := MustParse(`select=a&filter=and(eq(b,"x&y"),gt(c,1))&option=sort(-a),cursor("t",5)`)

	values := ToValues(original)
	encoded := values.Encode()
	decoded, err := url.ParseQuery(encoded)
	require.NoError(t, err)

	got, err := FromQueryParameters(decoded)
	require.NoError(t, err)
	assert.True(t, Equal(original, got), "%s != %s", String(original), String(got))
}

func TestFromQueryParametersMergesOptions(t *testing.T) {
	values := url.Values{
		"option": {"sort(+a)", "limit(0,10)"},
		"page":   {"3"},
	}
	m, err := FromQueryParameters(values)
	require.NoError(t, err)
	assert.Equal(t, "option=sort(+a),limit(0,10)", String(m))
}

func TestFromQueryParametersErrors(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
	}{
		{"repeated filter", url.Values{"filter": {"eq(a,1)", "eq(b,2)"}}},
		{"repeated sort", url.Values{"option": {"sort(+a)", "sort(-b)"}}},
		{"cursor and limit", url.Values{"option": {"limit(0,1)", "cursor(1)"}}},
		{"bad filter", url.Values{"filter": {"eq(a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromQueryParameters(tt.values)
			require.Error(t, err)
			assert.True(t, IsSyntaxError(err))
		})
	}
}
