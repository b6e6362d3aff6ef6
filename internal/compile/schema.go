package compile

import (
	"reflect"
	"strings"

	"golang.org/x/text/cases"
)

// Kind is the shape of a schema member.
type Kind int

const (
	Scalar Kind = iota
	Object
	Collection
	Map
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Object:
		return "object"
	case Collection:
		return "collection"
	case Map:
		return "map"
	default:
		return "unknown"
	}
}

// WildcardLimit restricts the wildcards a like pattern may contain.
type WildcardLimit struct {
	// Max is the number of wildcard characters allowed per value.
	Max int
	// Chars are the characters counted as wildcards. Defaults to "*%".
	Chars string
	// Message replaces the default error message.
	Message string
}

// PatternRule requires like patterns to match a regular expression.
type PatternRule struct {
	Expr    string
	Message string
}

// Binding tells backends where a member lives. Every field is optional.
type Binding struct {
	// Column is the SQL column of a scalar, map or scalar collection.
	Column string
	// Table is the SQL table holding the elements of a collection or the
	// target of a to-one relation.
	Table string
	// ForeignKey is the column on Table referencing the owner for
	// collections, and the owner column referencing Table for objects.
	ForeignKey string
	// References is the column ForeignKey points to: on the owner for
	// collections, on Table for objects. Defaults to "id".
	References string
	// Prefix is prepended to the columns of an embedded object.
	Prefix string
	// Document is the key of the member in documents and maps.
	Document string
	// Index is the struct field index of the member.
	Index []int
	// Method is the zero-argument method computing a virtual member.
	Method string
}

// Member describes one attribute of a schema.
type Member struct {
	Name string
	Kind Kind
	// Type is the value type of a scalar, of the elements of a scalar
	// collection, or of the values of a scalar map.
	Type reflect.Type
	// Elem describes nested objects, object collection elements and
	// object map values.
	Elem      Schema
	Wildcards *WildcardLimit
	Pattern   *PatternRule
	// Virtual members are computed rather than stored.
	Virtual bool
	Binding Binding
}

// DocumentKey returns the key of the member in documents.
func (m *Member) DocumentKey() string {
	if m.Binding.Document != "" {
		return m.Binding.Document
	}
	return m.Name
}

// Schema describes the members of one type.
type Schema interface {
	Name() string
	Members() []*Member
	// Member looks a member up by its exact name.
	Member(name string) (*Member, bool)
}

// ObjectSchema is a Schema backed by a member list.
type ObjectSchema struct {
	TypeName string
	Table    string
	members  []*Member
	byName   map[string]*Member
}

// NewObject creates a schema from members. Later members with the same name
// replace earlier ones.
func NewObject(name string, members ...*Member) *ObjectSchema {
	s := &ObjectSchema{TypeName: name, byName: make(map[string]*Member, len(members))}
	for _, m := range members {
		s.Add(m)
	}
	return s
}

// Add registers a member. Schemas may be built incrementally to allow
// self references.
func (s *ObjectSchema) Add(m *Member) {
	if prev, ok := s.byName[m.Name]; ok {
		for i, cur := range s.members {
			if cur == prev {
				s.members[i] = m
			}
		}
	} else {
		s.members = append(s.members, m)
	}
	s.byName[m.Name] = m
}

func (s *ObjectSchema) Name() string { return s.TypeName }

func (s *ObjectSchema) Members() []*Member { return s.members }

func (s *ObjectSchema) Member(name string) (*Member, bool) {
	m, ok := s.byName[name]
	return m, ok
}

// TableName returns the SQL table of the type.
func (s *ObjectSchema) TableName() string { return s.Table }

// fold builds a new caser per call; casers are not safe for concurrent use.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Lookup resolves name against s: stored members by exact name, then stored
// members ignoring case, then virtual members the same way.
func Lookup(s Schema, name string) (*Member, bool) {
	if m, ok := s.Member(name); ok && !m.Virtual {
		return m, true
	}
	folded := fold(name)
	for _, m := range s.Members() {
		if !m.Virtual && fold(m.Name) == folded {
			return m, true
		}
	}
	if m, ok := s.Member(name); ok {
		return m, true
	}
	for _, m := range s.Members() {
		if m.Virtual && fold(m.Name) == folded {
			return m, true
		}
	}
	return nil, false
}

// joinNames renders member names as a dotted path.
func joinNames(members []*Member) string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}
	return strings.Join(names, ".")
}
