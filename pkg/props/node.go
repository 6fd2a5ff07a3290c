package props

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/platen/pkg/scene"
)

// ErrUnknownField is returned by ApplyField for names NodeFields never lists.
var ErrUnknownField = errors.New("props: unknown field")

var outputOptions = []string{
	scene.OutputNormal.String(),
	scene.OutputHole.String(),
	scene.OutputSupport.String(),
	scene.OutputSolid.String(),
}

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Change is an applied edit that can be reverted for the undo stack.
type Change struct {
	Field string
	undo  func()
	redo  func()
}

func (c Change) Undo() { c.undo() }
func (c Change) Redo() { c.redo() }

func position(n *scene.Node) mgl64.Vec3 {
	return n.LocalTransform().Col(3).Vec3()
}

func scale(n *scene.Node) mgl64.Vec3 {
	m := n.LocalTransform()
	return mgl64.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}
}

// Vars returns the names expressions on n may use.
func Vars(n *scene.Node) map[string]float64 {
	p, s := position(n), scale(n)
	return map[string]float64{
		"x": p[0], "y": p[1], "z": p[2],
		"sx": s[0], "sy": s[1], "sz": s[2],
		"material": float64(n.Material),
	}
}

// activeChild is the index of the first visible child.
func activeChild(n *scene.Node) int {
	for i, c := range n.Children() {
		if c.Visible() {
			return i
		}
	}
	return 0
}

func selectable(n *scene.Node) bool {
	return n.Kind == scene.KindGroup && len(n.Children()) > 1
}

// NodeFields lists the editable properties of n.
func NodeFields(n *scene.Node) []Field {
	fields := []Field{
		{Name: "name", Label: "Name", Value: Text{S: n.Name}},
		{Name: "position", Label: "Position", Value: Vector{V: position(n)}},
		{Name: "scale", Label: "Scale", Value: Vector{V: scale(n)}},
	}
	if n.Mesh() != nil {
		fields = append(fields,
			Field{Name: "color", Label: "Color", Value: Text{S: n.Color}},
			Field{Name: "output", Label: "Output", Value: Choice{Index: int(n.OutputType), Options: outputOptions}},
			Field{Name: "material", Label: "Material", Value: Number{V: float64(n.Material)}},
		)
	}
	if selectable(n) {
		opts := make([]string, len(n.Children()))
		for i, c := range n.Children() {
			opts[i] = c.Name
			if opts[i] == "" {
				opts[i] = strconv.Itoa(i)
			}
		}
		fields = append(fields, Field{Name: "active", Label: "Active child", Value: Choice{Index: activeChild(n), Options: opts}})
	}
	return fields
}

// ApplyField parses input for the named field and applies it to n.
func ApplyField(n *scene.Node, field, input string) (Change, error) {
	vars := Vars(n)
	switch field {
	case "name":
		return setString(field, &n.Name, input), nil

	case "position":
		v, err := ParseVector(input, vars)
		if err != nil {
			return Change{}, fmt.Errorf("position: %w", err)
		}
		m := n.LocalTransform()
		m.SetCol(3, v.V.Vec4(1))
		return transformChange(field, scene.SetTransform(n, m)), nil

	case "scale":
		v, err := ParseVector(input, vars)
		if err != nil {
			return Change{}, fmt.Errorf("scale: %w", err)
		}
		old := scale(n)
		m := n.LocalTransform()
		for i := 0; i < 3; i++ {
			if v.V[i] == 0 || old[i] == 0 {
				return Change{}, fmt.Errorf("scale: zero factor on axis %d", i)
			}
			m.SetCol(i, m.Col(i).Mul(v.V[i]/old[i]))
		}
		return transformChange(field, scene.SetTransform(n, m)), nil

	case "color":
		c := strings.ToLower(strings.TrimSpace(input))
		if c != "" && !colorPattern.MatchString(c) {
			return Change{}, fmt.Errorf("color: %q is not #rrggbb", input)
		}
		return setString(field, &n.Color, c), nil

	case "output":
		t, err := parseChoice(input, outputOptions)
		if err != nil {
			return Change{}, fmt.Errorf("output: %w", err)
		}
		before, after := n.OutputType, scene.OutputType(t)
		n.OutputType = after
		return Change{
			Field: field,
			undo:  func() { n.OutputType = before },
			redo:  func() { n.OutputType = after },
		}, nil

	case "material":
		v, err := ParseNumber(input, vars)
		if err != nil {
			return Change{}, fmt.Errorf("material: %w", err)
		}
		if v.V < 0 || v.V != math.Trunc(v.V) {
			return Change{}, fmt.Errorf("material: %g is not a non-negative integer", v.V)
		}
		before, after := n.Material, int(v.V)
		n.Material = after
		return Change{
			Field: field,
			undo:  func() { n.Material = before },
			redo:  func() { n.Material = after },
		}, nil

	case "active":
		if !selectable(n) {
			return Change{}, fmt.Errorf("active: %s has no children to choose from", n)
		}
		opts := make([]string, len(n.Children()))
		for i, c := range n.Children() {
			opts[i] = c.Name
		}
		idx, err := parseChoice(input, opts)
		if err != nil {
			return Change{}, fmt.Errorf("active: %w", err)
		}
		children := append([]*scene.Node(nil), n.Children()...)
		before := make([]bool, len(children))
		for i, c := range children {
			before[i] = c.Visible()
		}
		show := func() {
			for i, c := range children {
				c.SetVisible(i == idx)
			}
		}
		show()
		return Change{
			Field: field,
			undo: func() {
				for i, c := range children {
					c.SetVisible(before[i])
				}
			},
			redo: show,
		}, nil
	}
	return Change{}, fmt.Errorf("%w %q", ErrUnknownField, field)
}

func setString(field string, p *string, v string) Change {
	before := *p
	*p = v
	return Change{
		Field: field,
		undo:  func() { *p = before },
		redo:  func() { *p = v },
	}
}

func transformChange(field string, c scene.TransformChange) Change {
	return Change{Field: field, undo: c.Undo, redo: c.Redo}
}

// parseChoice accepts an option name or its index.
func parseChoice(input string, options []string) (int, error) {
	s := strings.TrimSpace(input)
	for i, o := range options {
		if o == s {
			return i, nil
		}
	}
	if i, err := strconv.Atoi(s); err == nil && i >= 0 && i < len(options) {
		return i, nil
	}
	return 0, fmt.Errorf("%q is not one of %s", input, strings.Join(options, ", "))
}
