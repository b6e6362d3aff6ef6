package model

// Operator of a comparison leaf.
type Operator int

const (
	OpEq Operator = iota
	OpNe
	OpGt
	OpGe
	OpLt
	OpLe
	OpLike
	OpLikeIgnoreCase
	OpIn
)

// Family groups operators by the value shapes they accept.
type Family int

const (
	FamilyCompare Family = iota
	FamilyLike
	FamilyIn
)

var operatorNames = [...]string{
	OpEq:             "eq",
	OpNe:             "ne",
	OpGt:             "gt",
	OpGe:             "ge",
	OpLt:             "lt",
	OpLe:             "le",
	OpLike:           "like",
	OpLikeIgnoreCase: "likeIgnoreCase",
	OpIn:             "in",
}

func (o Operator) String() string {
	if o < 0 || int(o) >= len(operatorNames) {
		return "unknown"
	}
	return operatorNames[o]
}

// Family returns the operator family.
func (o Operator) Family() Family {
	switch o {
	case OpLike, OpLikeIgnoreCase:
		return FamilyLike
	case OpIn:
		return FamilyIn
	default:
		return FamilyCompare
	}
}

// IsOrdering reports whether the operator needs an orderable operand.
func (o Operator) IsOrdering() bool {
	return o == OpGt || o == OpGe || o == OpLt || o == OpLe
}

// LookupOperator resolves an operator by its query-language name.
// Names are case-sensitive.
func LookupOperator(name string) (Operator, bool) {
	for i, n := range operatorNames {
		if n == name {
			return Operator(i), true
		}
	}
	return 0, false
}
