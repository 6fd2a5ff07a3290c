// Package props describes the editable properties of scene nodes. Values form
// a closed tagged union; each kind maps to exactly one editor builder.
package props

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Kind identifies a property editor.
type Kind int

const (
	KindNumber        Kind = iota // number or "=expression"
	KindVector                    // three numbers or "=expression"
	KindString                    // free text
	KindChildSelector             // one of a fixed list of options
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindVector:
		return "vector"
	case KindString:
		return "string"
	case KindChildSelector:
		return "selector"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is one of Number, Vector, Text or Choice.
type Value interface {
	Kind() Kind
	isValue()
}

// Number is a scalar. Expr holds the source when the value was computed.
type Number struct {
	V    float64
	Expr string
}

// Vector is a 3-vector. Expr holds the source when the value was computed.
type Vector struct {
	V    mgl64.Vec3
	Expr string
}

// Text is a string value.
type Text struct {
	S string
}

// Choice selects one of Options by index.
type Choice struct {
	Index   int
	Options []string
}

func (Number) Kind() Kind { return KindNumber }
func (Vector) Kind() Kind { return KindVector }
func (Text) Kind() Kind   { return KindString }
func (Choice) Kind() Kind { return KindChildSelector }

func (Number) isValue() {}
func (Vector) isValue() {}
func (Text) isValue()   {}
func (Choice) isValue() {}

// Selected returns the chosen option, or "" when the index is out of range.
func (c Choice) Selected() string {
	if c.Index < 0 || c.Index >= len(c.Options) {
		return ""
	}
	return c.Options[c.Index]
}
