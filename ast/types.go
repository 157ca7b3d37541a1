package ast

// TypeExpr is implemented by the three type-expression forms spec.md §4.2
// describes: primitive, generic (List/Map/Option/Result), and named.
type TypeExpr interface {
	typeExprNode()
	String() string
}

var primitiveNames = map[string]bool{
	"int": true, "float": true, "string": true, "bool": true,
	"bytes": true, "uuid": true, "timestamp": true, "json": true,
	"unit": true,
}

var genericNames = map[string]bool{
	"List": true, "Map": true, "Option": true, "Result": true,
}

// PrimitiveType is a built-in scalar type name.
type PrimitiveType struct {
	Name string
}

func (*PrimitiveType) typeExprNode() {}
func (p *PrimitiveType) String() string { return p.Name }

// GenericType is one of List/Map/Option/Result applied to type arguments.
type GenericType struct {
	Name string
	Args []TypeExpr
}

func (*GenericType) typeExprNode() {}
func (g *GenericType) String() string {
	s := g.Name + "<"
	for i, a := range g.Args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ">"
}

// NamedType is a user-defined record/variant type reference.
type NamedType struct {
	Name string
}

func (*NamedType) typeExprNode() {}
func (n *NamedType) String() string { return n.Name }

// NewTypeExpr classifies a bare identifier or keyword-marker type name
// into the right TypeExpr form, per spec.md §4.2: a fixed set of primitive
// names map to PrimitiveType, {List, Map, Option, Result} to GenericType,
// others to NamedType.
func NewTypeExpr(name string, args []TypeExpr) TypeExpr {
	if primitiveNames[name] {
		return &PrimitiveType{Name: name}
	}
	if genericNames[name] {
		return &GenericType{Name: name, Args: args}
	}
	return &NamedType{Name: name}
}

// TypesEqual compares two type expressions by their pretty-printed string
// form, matching spec.md §4.6's "string comparison of pretty-printed type"
// rule for compatibility analysis.
func TypesEqual(a, b TypeExpr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}
