// Package schema derives compile schemas from Go structs and YAML documents.
package schema

import (
	"database/sql/driver"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	gormschema "gorm.io/gorm/schema"

	"github.com/nlstn/go-rql/internal/compile"
)

var (
	defaultNamer = gormschema.NamingStrategy{}
	valuerType  = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	scalarTypes = map[reflect.Type]bool{
		reflect.TypeOf(time.Time{}):       true,
		reflect.TypeOf(decimal.Decimal{}): true,
		reflect.TypeOf(uuid.UUID{}):       true,
		reflect.TypeOf(big.Int{}):         true,
	}
)

// Analyzer builds schemas from struct types. Results are cached per type, so
// self-referencing structs resolve to the same schema.
type Analyzer struct {
	naming   gormschema.Namer
	custom   bool
	mu       sync.Mutex
	cache    map[reflect.Type]*compile.ObjectSchema
	virtuals map[reflect.Type][]virtual
}

type virtual struct {
	name   string
	method string
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithNamer sets the strategy used for table and column names.
func WithNamer(n gormschema.Namer) AnalyzerOption {
	return func(a *Analyzer) {
		a.naming = n
		a.custom = true
	}
}

// WithVirtual exposes the zero-argument method of entity as the virtual
// member name.
func WithVirtual(entity any, name, method string) AnalyzerOption {
	return func(a *Analyzer) {
		t := structType(reflect.TypeOf(entity))
		a.virtuals[t] = append(a.virtuals[t], virtual{name: name, method: method})
	}
}

// NewAnalyzer creates an Analyzer using gorm's default naming.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		naming:   defaultNamer,
		cache:    make(map[reflect.Type]*compile.ObjectSchema),
		virtuals: make(map[reflect.Type][]virtual),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze extracts the schema of a struct using a new Analyzer.
func Analyze(entity any, opts ...AnalyzerOption) (*compile.ObjectSchema, error) {
	return NewAnalyzer(opts...).Analyze(entity)
}

// Analyze extracts the schema of entity, which must be a struct or a pointer
// to one.
func (a *Analyzer) Analyze(entity any) (*compile.ObjectSchema, error) {
	t := structType(reflect.TypeOf(entity))
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity must be a struct, got %T", entity)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.analyzeType(t)
}

func structType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func (a *Analyzer) analyzeType(t reflect.Type) (*compile.ObjectSchema, error) {
	if s, ok := a.cache[t]; ok {
		return s, nil
	}
	s := compile.NewObject(t.Name())
	s.Table = a.tableName(t)
	a.cache[t] = s

	if err := a.addFields(s, t, nil, ""); err != nil {
		delete(a.cache, t)
		return nil, err
	}
	if err := a.addVirtuals(s, t); err != nil {
		delete(a.cache, t)
		return nil, err
	}
	return s, nil
}

type tabler interface {
	TableName() string
}

func (a *Analyzer) tableName(t reflect.Type) string {
	if tn, ok := reflect.New(t).Interface().(tabler); ok {
		return tn.TableName()
	}
	if a.custom {
		return a.naming.TableName(t.Name())
	}
	return defaultTable(t.Name())
}

// addFields adds the exported fields of t. Anonymous struct fields are
// flattened into s.
func (a *Analyzer) addFields(s *compile.ObjectSchema, t reflect.Type, index []int, prefix string) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldIndex := append(append([]int(nil), index...), i)

		if field.Anonymous && structType(field.Type).Kind() == reflect.Struct && !isScalar(field.Type) {
			if err := a.addFields(s, structType(field.Type), fieldIndex, prefix); err != nil {
				return err
			}
			continue
		}
		if !field.IsExported() {
			continue
		}

		tag := parseTag(field.Tag.Get("rql"))
		if tag.skip {
			continue
		}
		member, err := a.analyzeField(t, field, tag, prefix)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name(), field.Name, err)
		}
		if member == nil {
			continue
		}
		member.Binding.Index = fieldIndex
		s.Add(member)
	}
	return nil
}

func (a *Analyzer) analyzeField(owner reflect.Type, field reflect.StructField, tag rqlTag, prefix string) (*compile.Member, error) {
	gorm := parseGormTag(field.Tag.Get("gorm"))
	if gorm.ignored && !tag.virtual {
		return nil, nil
	}

	m := &compile.Member{
		Name:      memberName(field, tag),
		Wildcards: tag.wildcards,
		Pattern:   tag.pattern,
		Virtual:   tag.virtual,
	}
	m.Binding.Document = documentKey(field)
	column := tag.column
	if column == "" {
		column = gorm.column
	}
	if column == "" {
		column = a.naming.ColumnName("", field.Name)
	}
	m.Binding.Column = prefix + column

	t := field.Type
	switch {
	case isScalar(t):
		m.Kind = compile.Scalar
		m.Type = t
	case t.Kind() == reflect.Slice || t.Kind() == reflect.Array:
		elem := t.Elem()
		m.Kind = compile.Collection
		if isScalar(elem) {
			m.Type = elem
			break
		}
		if structType(elem).Kind() != reflect.Struct {
			return nil, fmt.Errorf("unsupported element type %s", elem)
		}
		es, err := a.analyzeType(structType(elem))
		if err != nil {
			return nil, err
		}
		m.Elem = es
		m.Binding.Table = es.Table
		m.Binding.ForeignKey = a.foreignKey(owner, gorm.foreignKey)
		m.Binding.References = a.references(gorm.references)
	case t.Kind() == reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map keys must be strings, got %s", t.Key())
		}
		m.Kind = compile.Map
		if isScalar(t.Elem()) {
			m.Type = t.Elem()
			break
		}
		es, err := a.analyzeType(structType(t.Elem()))
		if err != nil {
			return nil, err
		}
		m.Elem = es
	case structType(t).Kind() == reflect.Struct:
		es, err := a.analyzeType(structType(t))
		if err != nil {
			return nil, err
		}
		m.Kind = compile.Object
		m.Elem = es
		switch {
		case gorm.embedded:
			m.Binding.Prefix = prefix + gorm.embeddedPrefix
		case gorm.foreignKey != "" || gorm.references != "":
			m.Binding.Table = es.Table
			m.Binding.ForeignKey = a.naming.ColumnName("", gorm.foreignKey)
			m.Binding.References = a.references(gorm.references)
		default:
			m.Binding.Prefix = prefix + column + "_"
		}
	default:
		return nil, fmt.Errorf("unsupported type %s", t)
	}
	return m, nil
}

func (a *Analyzer) foreignKey(owner reflect.Type, tagged string) string {
	if tagged != "" {
		return a.naming.ColumnName("", tagged)
	}
	return a.naming.ColumnName("", owner.Name()+"ID")
}

func (a *Analyzer) references(tagged string) string {
	if tagged != "" {
		return a.naming.ColumnName("", tagged)
	}
	return "id"
}

func (a *Analyzer) addVirtuals(s *compile.ObjectSchema, t reflect.Type) error {
	for _, v := range a.virtuals[t] {
		method, ok := t.MethodByName(v.method)
		if !ok {
			method, ok = reflect.PointerTo(t).MethodByName(v.method)
		}
		if !ok {
			return fmt.Errorf("%s has no method %s", t.Name(), v.method)
		}
		// The receiver is the first input.
		if method.Type.NumIn() != 1 || method.Type.NumOut() != 1 {
			return fmt.Errorf("%s.%s must take no arguments and return one value", t.Name(), v.method)
		}
		out := method.Type.Out(0)
		if !isScalar(out) {
			return fmt.Errorf("%s.%s returns unsupported type %s", t.Name(), v.method, out)
		}
		s.Add(&compile.Member{
			Name:    v.name,
			Kind:    compile.Scalar,
			Type:    out,
			Virtual: true,
			Binding: compile.Binding{Method: v.method, Column: a.naming.ColumnName("", v.name)},
		})
	}
	return nil
}

// isScalar reports whether values of t are compared as a whole.
func isScalar(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		if t.Elem() == reflect.TypeOf(big.Int{}) {
			return true
		}
		t = t.Elem()
	}
	if scalarTypes[t] {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Interface:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	case reflect.Struct:
		return t.Implements(valuerType) || reflect.PointerTo(t).Implements(valuerType)
	}
	return false
}

func memberName(field reflect.StructField, tag rqlTag) string {
	if tag.name != "" {
		return tag.name
	}
	if name := tagName(field.Tag.Get("json")); name != "" {
		return name
	}
	return field.Name
}

func documentKey(field reflect.StructField) string {
	if name := tagName(field.Tag.Get("bson")); name != "" {
		return name
	}
	if name := tagName(field.Tag.Get("json")); name != "" {
		return name
	}
	return field.Name
}

// tagName returns the name part of a json or bson style tag.
func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

type rqlTag struct {
	skip      bool
	virtual   bool
	name      string
	column    string
	wildcards *compile.WildcardLimit
	pattern   *compile.PatternRule
}

// parseTag reads `rql:"name:x;column:y;wildcards:1;chars:*;pattern:^a;message:m;virtual"`.
// A message applies to the wildcard limit and the pattern declared with it.
func parseTag(tag string) rqlTag {
	var t rqlTag
	if tag == "-" {
		t.skip = true
		return t
	}
	var message, chars string
	for _, part := range strings.Split(tag, ";") {
		key, value, _ := strings.Cut(strings.TrimSpace(part), ":")
		switch key {
		case "name":
			t.name = value
		case "column":
			t.column = value
		case "virtual":
			t.virtual = true
		case "wildcards":
			if n, err := strconv.Atoi(value); err == nil {
				t.wildcards = &compile.WildcardLimit{Max: n}
			}
		case "chars":
			chars = value
		case "pattern":
			t.pattern = &compile.PatternRule{Expr: value}
		case "message":
			message = value
		}
	}
	if t.wildcards != nil {
		t.wildcards.Chars = chars
		t.wildcards.Message = message
	}
	if t.pattern != nil {
		t.pattern.Message = message
	}
	return t
}

type gormTag struct {
	ignored        bool
	embedded       bool
	embeddedPrefix string
	column         string
	foreignKey     string
	references     string
}

func parseGormTag(tag string) gormTag {
	var g gormTag
	for key, value := range gormschema.ParseTagSetting(tag, ";") {
		switch key {
		case "-":
			g.ignored = true
		case "EMBEDDED":
			g.embedded = true
		case "EMBEDDEDPREFIX":
			g.embedded = true
			g.embeddedPrefix = value
		case "COLUMN":
			g.column = value
		case "FOREIGNKEY":
			g.foreignKey = value
		case "REFERENCES":
			g.references = value
		}
	}
	return g
}
