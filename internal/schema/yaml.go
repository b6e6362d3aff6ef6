package schema

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/nlstn/go-rql/internal/compile"
)

// Document is the YAML form of a schema.
//
//	name: Person
//	table: people
//	members:
//	  - name: name
//	    type: string
//	    wildcards: {max: 1}
//	  - name: items
//	    kind: collection
//	    ref: Item
//	definitions:
//	  Item:
//	    members: [...]
type Document struct {
	Name        string               `yaml:"name"`
	Table       string               `yaml:"table"`
	Members     []MemberDocument     `yaml:"members"`
	Definitions map[string]*Document `yaml:"definitions"`
}

// MemberDocument is the YAML form of a member.
type MemberDocument struct {
	Name       string          `yaml:"name"`
	Kind       string          `yaml:"kind"`
	Type       string          `yaml:"type"`
	Column     string          `yaml:"column"`
	Table      string          `yaml:"table"`
	ForeignKey string          `yaml:"foreignKey"`
	References string          `yaml:"references"`
	Prefix     string          `yaml:"prefix"`
	Document   string          `yaml:"document"`
	Virtual    bool            `yaml:"virtual"`
	Ref        string          `yaml:"ref"`
	Schema     *Document       `yaml:"schema"`
	Wildcards  *WildcardsBlock `yaml:"wildcards"`
	Pattern    *PatternBlock   `yaml:"pattern"`
}

// WildcardsBlock limits the wildcards of like patterns on a member.
type WildcardsBlock struct {
	Max     int    `yaml:"max"`
	Chars   string `yaml:"chars"`
	Message string `yaml:"message"`
}

// PatternBlock requires like patterns on a member to match expr.
type PatternBlock struct {
	Expr    string `yaml:"expr"`
	Message string `yaml:"message"`
}

var yamlTypes = map[string]reflect.Type{
	"string":    reflect.TypeOf(""),
	"bool":      reflect.TypeOf(false),
	"boolean":   reflect.TypeOf(false),
	"int":       reflect.TypeOf(int64(0)),
	"integer":   reflect.TypeOf(int64(0)),
	"int32":     reflect.TypeOf(int32(0)),
	"int64":     reflect.TypeOf(int64(0)),
	"bigint":    reflect.TypeOf((*big.Int)(nil)),
	"float":     reflect.TypeOf(float64(0)),
	"double":    reflect.TypeOf(float64(0)),
	"decimal":   reflect.TypeOf(decimal.Decimal{}),
	"time":      reflect.TypeOf(time.Time{}),
	"timestamp": reflect.TypeOf(time.Time{}),
	"uuid":      reflect.TypeOf(uuid.UUID{}),
	"any":       reflect.TypeOf((*any)(nil)).Elem(),
}

var yamlKinds = map[string]compile.Kind{
	"":           compile.Scalar,
	"scalar":     compile.Scalar,
	"object":     compile.Object,
	"collection": compile.Collection,
	"map":        compile.Map,
}

// LoadFile reads a YAML schema from path.
func LoadFile(path string) (*compile.ObjectSchema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load reads a YAML schema.
func Load(r io.Reader) (*compile.ObjectSchema, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid schema document: %w", err)
	}
	return FromDocument(&doc)
}

// FromDocument builds a schema from a decoded document.
func FromDocument(doc *Document) (*compile.ObjectSchema, error) {
	if doc.Name == "" {
		return nil, fmt.Errorf("schema name is required")
	}
	b := &docBuilder{defs: doc.Definitions, built: make(map[string]*compile.ObjectSchema)}
	return b.build(doc.Name, doc)
}

type docBuilder struct {
	defs  map[string]*Document
	built map[string]*compile.ObjectSchema
}

func (b *docBuilder) build(name string, doc *Document) (*compile.ObjectSchema, error) {
	if s, ok := b.built[name]; ok {
		return s, nil
	}
	s := compile.NewObject(name)
	s.Table = doc.Table
	if s.Table == "" {
		s.Table = defaultTable(name)
	}
	b.built[name] = s

	for _, md := range doc.Members {
		m, err := b.member(name, md)
		if err != nil {
			return nil, err
		}
		s.Add(m)
	}
	return s, nil
}

func (b *docBuilder) member(owner string, md MemberDocument) (*compile.Member, error) {
	if md.Name == "" {
		return nil, fmt.Errorf("%s: member without name", owner)
	}
	kind, ok := yamlKinds[md.Kind]
	if !ok {
		return nil, fmt.Errorf("%s.%s: unknown kind '%s'", owner, md.Name, md.Kind)
	}
	m := &compile.Member{
		Name:    md.Name,
		Kind:    kind,
		Virtual: md.Virtual,
		Binding: compile.Binding{
			Column:     md.Column,
			Table:      md.Table,
			ForeignKey: md.ForeignKey,
			References: md.References,
			Prefix:     md.Prefix,
			Document:   md.Document,
		},
	}
	if m.Binding.Column == "" {
		m.Binding.Column = md.Name
	}
	if md.Wildcards != nil {
		m.Wildcards = &compile.WildcardLimit{Max: md.Wildcards.Max, Chars: md.Wildcards.Chars, Message: md.Wildcards.Message}
	}
	if md.Pattern != nil {
		m.Pattern = &compile.PatternRule{Expr: md.Pattern.Expr, Message: md.Pattern.Message}
	}

	nested, err := b.nested(owner, md)
	if err != nil {
		return nil, err
	}
	if nested != nil {
		m.Elem = nested
		related := kind == compile.Collection || md.ForeignKey != ""
		if related && m.Binding.Table == "" {
			m.Binding.Table = nested.Table
		}
	}

	switch {
	case kind == compile.Object && nested == nil:
		return nil, fmt.Errorf("%s.%s: object members need a schema or ref", owner, md.Name)
	case nested == nil:
		typ := md.Type
		if typ == "" {
			typ = "string"
		}
		t, ok := yamlTypes[typ]
		if !ok {
			return nil, fmt.Errorf("%s.%s: unknown type '%s'", owner, md.Name, md.Type)
		}
		m.Type = t
	}
	if kind == compile.Collection && nested != nil {
		if m.Binding.ForeignKey == "" {
			m.Binding.ForeignKey = defaultForeignKey(owner)
		}
		if m.Binding.References == "" {
			m.Binding.References = "id"
		}
	}
	return m, nil
}

func (b *docBuilder) nested(owner string, md MemberDocument) (*compile.ObjectSchema, error) {
	switch {
	case md.Ref != "":
		def, ok := b.defs[md.Ref]
		if !ok {
			return nil, fmt.Errorf("%s.%s: unknown ref '%s'", owner, md.Name, md.Ref)
		}
		return b.build(md.Ref, def)
	case md.Schema != nil:
		name := md.Schema.Name
		if name == "" {
			name = owner + "." + md.Name
		}
		return b.build(name, md.Schema)
	}
	return nil, nil
}

func defaultForeignKey(owner string) string {
	return defaultNamer.ColumnName("", owner+"ID")
}

func defaultTable(name string) string {
	return inflection.Plural(defaultNamer.ColumnName("", name))
}
