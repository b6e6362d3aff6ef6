// Package mongo renders compiled queries as MongoDB filter documents.
package mongo

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nlstn/go-rql/internal/compile"
	"github.com/nlstn/go-rql/internal/model"
)

// elementKey stands for the element itself inside predicates on scalar
// arrays. It never reaches the server.
const elementKey = "$element"

var errNotElementPredicate = errors.New("predicate cannot be applied to array elements")

// Builder implements compile.Builder with filter documents.
type Builder struct{}

var _ compile.Builder[bson.M] = Builder{}

func (Builder) And(exprs ...bson.M) bson.M {
	return bson.M{"$and": toArray(exprs)}
}

func (Builder) Or(exprs ...bson.M) bson.M {
	return bson.M{"$or": toArray(exprs)}
}

func (Builder) Not(expr bson.M) bson.M {
	return bson.M{"$nor": bson.A{expr}}
}

func toArray(exprs []bson.M) bson.A {
	a := make(bson.A, len(exprs))
	for i, e := range exprs {
		a[i] = e
	}
	return a
}

func (b Builder) IsNull(p compile.Path) (bson.M, error) {
	return bson.M{field(p): bson.M{"$eq": nil}}, nil
}

func (b Builder) IsNotNull(p compile.Path) (bson.M, error) {
	return bson.M{field(p): bson.M{"$ne": nil}}, nil
}

func (b Builder) Equals(p compile.Path, value any) (bson.M, error) {
	return b.Compare(p, model.OpEq, value)
}

func (b Builder) NotEquals(p compile.Path, value any) (bson.M, error) {
	return b.Compare(p, model.OpNe, value)
}

var mongoOperators = map[model.Operator]string{
	model.OpEq: "$eq",
	model.OpNe: "$ne",
	model.OpGt: "$gt",
	model.OpGe: "$gte",
	model.OpLt: "$lt",
	model.OpLe: "$lte",
}

func (Builder) Compare(p compile.Path, op model.Operator, value any) (bson.M, error) {
	name, ok := mongoOperators[op]
	if !ok {
		return nil, fmt.Errorf("operator %s has no query operator", op)
	}
	v, err := Value(value)
	if err != nil {
		return nil, err
	}
	return bson.M{field(p): bson.M{name: v}}, nil
}

func (Builder) Like(p compile.Path, pattern compile.Pattern, ignoreCase bool) (bson.M, error) {
	options := "s"
	if ignoreCase {
		options = "is"
	}
	re := primitive.Regex{Pattern: pattern.RegexpSource(), Options: options}
	return bson.M{field(p): bson.M{"$regex": re}}, nil
}

func (Builder) In(p compile.Path, values []any) (bson.M, error) {
	a := make(bson.A, len(values))
	for i, v := range values {
		converted, err := Value(v)
		if err != nil {
			return nil, err
		}
		a[i] = converted
	}
	return bson.M{field(p): bson.M{"$in": a}}, nil
}

// Exists matches documents with an array element satisfying element.
func (Builder) Exists(collection compile.Path, element bson.M) (bson.M, error) {
	name := field(collection)
	if collection.Target().Elem != nil {
		return bson.M{name: bson.M{"$elemMatch": element}}, nil
	}
	ops, err := elementOperators(element)
	if err == nil {
		return bson.M{name: bson.M{"$elemMatch": ops}}, nil
	}
	// Some element of the array satisfies a or b if some element
	// satisfies a or some element satisfies b.
	if or, ok := element["$or"].(bson.A); ok && len(element) == 1 {
		alternatives := make(bson.A, len(or))
		for i, alt := range or {
			e, err := Builder{}.Exists(collection, alt.(bson.M))
			if err != nil {
				return nil, err
			}
			alternatives[i] = e
		}
		return bson.M{"$or": alternatives}, nil
	}
	return nil, fmt.Errorf("%s: %w", collection.FullString(), err)
}

// elementOperators turns a predicate on elementKey into the operator
// document $elemMatch expects for arrays of scalars.
func elementOperators(expr bson.M) (bson.M, error) {
	if ops, ok := expr[elementKey].(bson.M); ok && len(expr) == 1 {
		return ops, nil
	}
	if and, ok := expr["$and"].(bson.A); ok && len(expr) == 1 {
		merged := bson.M{}
		for _, child := range and {
			ops, err := elementOperators(child.(bson.M))
			if err != nil {
				return nil, err
			}
			for k, v := range ops {
				if _, dup := merged[k]; dup {
					return nil, errNotElementPredicate
				}
				merged[k] = v
			}
		}
		return merged, nil
	}
	if nor, ok := expr["$nor"].(bson.A); ok && len(expr) == 1 && len(nor) == 1 {
		ops, err := elementOperators(nor[0].(bson.M))
		if err != nil || len(ops) != 1 {
			return nil, errNotElementPredicate
		}
		return bson.M{"$not": ops}, nil
	}
	return nil, errNotElementPredicate
}

// field renders the dotted document path of p relative to its scope.
func field(p compile.Path) string {
	if len(p.Steps) == 0 {
		return elementKey
	}
	keys := make([]string, 0, len(p.Steps)+1)
	for _, m := range p.Steps {
		keys = append(keys, m.DocumentKey())
	}
	if p.Key != "" {
		keys = append(keys, p.Key)
	}
	return strings.Join(keys, ".")
}

// Value converts compiled values to their BSON representation.
func Value(v any) (any, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return decimal128(x.String())
	case *big.Int:
		return decimal128(x.String())
	case uuid.UUID:
		return primitive.Binary{Subtype: 0x04, Data: x[:]}, nil
	}
	return v, nil
}

func decimal128(s string) (any, error) {
	d, err := primitive.ParseDecimal128(s)
	if err != nil {
		return nil, fmt.Errorf("value %s does not fit a decimal128: %w", s, err)
	}
	return d, nil
}
