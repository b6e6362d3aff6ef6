package model

import "strings"

// Select lists the attribute paths a consumer should materialize. An empty
// select means all attributes.
type Select struct {
	Attributes []string
}

// NewSelect builds a select, dropping duplicate attributes.
func NewSelect(attributes ...string) Select {
	if len(attributes) == 0 {
		return Select{}
	}
	seen := make(map[string]struct{}, len(attributes))
	out := make([]string, 0, len(attributes))
	for _, a := range attributes {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return Select{Attributes: out}
}

func (s Select) IsEmpty() bool {
	return len(s.Attributes) == 0
}

// Contains reports whether attribute lies under one of the selected paths.
func (s Select) Contains(attribute string) bool {
	for _, a := range s.Attributes {
		if strings.HasPrefix(attribute, a) {
			return true
		}
	}
	return false
}

// HasAttributeStartingWith reports whether a selected path starts with prefix.
func (s Select) HasAttributeStartingWith(prefix string) bool {
	for _, a := range s.Attributes {
		if strings.HasPrefix(a, prefix) {
			return true
		}
	}
	return false
}

// IsExplicitSelected reports whether attribute is selected by name. Every
// attribute is selected when the select is empty.
func (s Select) IsExplicitSelected(attribute string) bool {
	if s.IsEmpty() {
		return true
	}
	for _, a := range s.Attributes {
		if a == attribute {
			return true
		}
	}
	return false
}

// IsImplicitSelected reports whether prefix is covered by a selected path.
// Every attribute is selected when the select is empty.
func (s Select) IsImplicitSelected(prefix string) bool {
	return s.IsEmpty() || s.Contains(prefix)
}

func (s Select) Equal(o Select) bool {
	if len(s.Attributes) != len(o.Attributes) {
		return false
	}
	for i := range s.Attributes {
		if s.Attributes[i] != o.Attributes[i] {
			return false
		}
	}
	return true
}
