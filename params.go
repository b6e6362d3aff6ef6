package rql

import (
	"net/url"
	"strings"
)

// Query parameter names used by ToQueryParameters and FromQueryParameters.
const (
	ParamSelect = "select"
	ParamFilter = "filter"
	ParamOption = "option"
)

// ToQueryParameters splits m into its sections, keyed by parameter name.
// Empty sections are left out, so the empty model yields an empty map.
func ToQueryParameters(m *QueryModel) map[string]string {
	params := make(map[string]string, 3)
	if m == nil {
		return params
	}
	if s := m.Select.String(); s != "" {
		params[ParamSelect] = s
	}
	if m.Filter != nil {
		params[ParamFilter] = FilterString(m.Filter)
	}
	if o := m.Options.String(); o != "" {
		params[ParamOption] = o
	}
	return params
}

// ToValues is ToQueryParameters as url.Values, ready for URL.RawQuery.
func ToValues(m *QueryModel) url.Values {
	values := url.Values{}
	for k, v := range ToQueryParameters(m) {
		values.Set(k, v)
	}
	return values
}

// FromQueryParameters parses the select, filter and option parameters of a
// request. Other parameters are ignored. Repeated option parameters are
// merged; a repeated select or filter is a syntax error, as in a query
// string.
func FromQueryParameters(values url.Values, opts ...Option) (*QueryModel, error) {
	var segments []string
	for _, key := range []string{ParamSelect, ParamFilter, ParamOption} {
		for _, v := range values[key] {
			segments = append(segments, key+"="+v)
		}
	}
	return Parse(strings.Join(segments, "&"), opts...)
}
