package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/platen/pkg/boolean"
	"github.com/chazu/platen/pkg/kernel"
	"github.com/chazu/platen/pkg/mesh"
	"github.com/chazu/platen/pkg/scene"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a vector.
type sexpVec3 struct {
	vec mgl64.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpSolid wraps a kernel solid. Plain boxes and their transforms also carry
// an exact polyhedron, which is used instead of tessellating.
type sexpSolid struct {
	solid kernel.Solid
	exact *mesh.Mesh
	desc  string
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string { return "(" + s.desc + ")" }
func (s *sexpSolid) Type() *zygo.RegisteredType            { return nil }

// sexpShape is an existing mesh reused by another object.
type sexpShape struct {
	mesh *mesh.Mesh
	from string
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string { return fmt.Sprintf("(ref %q)", s.from) }
func (s *sexpShape) Type() *zygo.RegisteredType            { return nil }

// sexpNode wraps a scene node built by object, group or difference.
type sexpNode struct {
	node *scene.Node
}

func (n *sexpNode) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", n.node.Kind, n.node.Name)
}
func (n *sexpNode) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts both :kw and "kw". Hyphens in a plain string are
// read as underscores, as the preprocessor does for keywords.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if name, ok := strings.CutPrefix(str.S, kwPrefix); ok {
		return name, nil
	}
	return strings.ReplaceAll(str.S, "-", "_"), nil
}

func toVec3(s zygo.Sexp) (mgl64.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl64.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toSolid(s zygo.Sexp) (*sexpSolid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

func toNode(s zygo.Sexp) (*scene.Node, error) {
	if v, ok := s.(*sexpNode); ok {
		return v.node, nil
	}
	return nil, fmt.Errorf("expected object, group or difference, got %T (%s)", s, s.SexpString(nil))
}

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// placement builds a local transform from :at, :rotate (degrees, applied
// X then Y then Z) and :scale.
func placement(pa kwArgs) (mgl64.Mat4, error) {
	m := mgl64.Ident4()
	if v, ok := pa.kw["at"]; ok {
		at, err := toVec3(v)
		if err != nil {
			return m, fmt.Errorf("at: %w", err)
		}
		m = m.Mul4(mgl64.Translate3D(at[0], at[1], at[2]))
	}
	if v, ok := pa.kw["rotate"]; ok {
		r, err := toVec3(v)
		if err != nil {
			return m, fmt.Errorf("rotate: %w", err)
		}
		m = m.Mul4(rotation(r))
	}
	if v, ok := pa.kw["scale"]; ok {
		s, err := toVec3(v)
		if err != nil {
			return m, fmt.Errorf("scale: %w", err)
		}
		if s[0] == 0 || s[1] == 0 || s[2] == 0 {
			return m, fmt.Errorf("scale: zero factor in %v", s)
		}
		m = m.Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
	}
	return m, nil
}

func rotation(deg mgl64.Vec3) mgl64.Mat4 {
	return mgl64.HomogRotate3DZ(mgl64.DegToRad(deg[2])).
		Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(deg[1]))).
		Mul4(mgl64.HomogRotate3DX(mgl64.DegToRad(deg[0])))
}

// ---------------------------------------------------------------------------
// Scene construction state
// ---------------------------------------------------------------------------

// build accumulates the nodes created during one evaluation. Nodes start as
// top-level and leave that list when a group or difference adopts them.
type build struct {
	kernel    kernel.Kernel
	processor *boolean.Processor

	top      []*scene.Node
	named    map[string]*scene.Node
	diffs    []*boolean.DifferenceGroup
	warnings []EvalWarning
}

func newBuild(k kernel.Kernel, p *boolean.Processor) *build {
	return &build{kernel: k, processor: p, named: make(map[string]*scene.Node)}
}

func (b *build) add(n *scene.Node) {
	b.top = append(b.top, n)
	if n.Name == "" {
		return
	}
	if _, dup := b.named[n.Name]; dup {
		b.warnings = append(b.warnings, EvalWarning{
			Message: fmt.Sprintf("name %q reused; ref resolves to the latest", n.Name),
			NodeID:  n.ID,
		})
	}
	b.named[n.Name] = n
}

func (b *build) adopt(n *scene.Node) error {
	for i, t := range b.top {
		if t == n {
			b.top = append(b.top[:i], b.top[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s already belongs to another group", n)
}

func (b *build) result() *Result {
	root := scene.NewGroup("")
	for _, n := range b.top {
		root.AddChild(n)
	}
	return &Result{Root: root, Differences: b.diffs, Warnings: b.warnings}
}

// tessellate returns the mesh for a solid, preferring its exact form.
func (b *build) tessellate(s *sexpSolid) (*mesh.Mesh, error) {
	if s.exact != nil {
		return s.exact, nil
	}
	return b.kernel.ToMesh(s.solid)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the scene DSL into a zygomys environment.
// Source code must be preprocessed with preprocessSource() so that :keyword
// tokens arrive as recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *build) {
	k := b.kernel

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v mgl64.Vec3
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// (box :x 10 :y 20 :z 5)
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		size := mgl64.Vec3{1, 1, 1}
		for i, axis := range []string{"x", "y", "z"} {
			if v, ok := pa.kw[axis]; ok {
				f, err := toFloat64(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("box: %s: %w", axis, err)
				}
				if f <= 0 {
					return zygo.SexpNull, fmt.Errorf("box: %s must be positive, got %g", axis, f)
				}
				size[i] = f
			}
		}
		s, err := k.Box(size[0], size[1], size[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		return &sexpSolid{
			solid: s,
			exact: mesh.NewBox(mgl64.Vec3{}, size),
			desc:  fmt.Sprintf("box %gx%gx%g", size[0], size[1], size[2]),
		}, nil
	})

	// (cylinder :height 10 :radius 2)
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		height, radius := 1.0, 0.5
		if v, ok := pa.kw["height"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: height: %w", err)
			}
			height = f
		}
		if v, ok := pa.kw["radius"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: radius: %w", err)
			}
			radius = f
		}
		s, err := k.Cylinder(height, radius)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		return &sexpSolid{solid: s, desc: fmt.Sprintf("cylinder h%g r%g", height, radius)}, nil
	})

	// (sphere :radius 3)
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		radius := 0.5
		if v, ok := pa.kw["radius"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
			}
			radius = f
		}
		s, err := k.Sphere(radius)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		return &sexpSolid{solid: s, desc: fmt.Sprintf("sphere r%g", radius)}, nil
	})

	// (union a b ...), (carve a b ...), (intersect a b ...)
	env.AddFunction("union", fold("union", k.Union))
	env.AddFunction("carve", fold("carve", k.Difference))
	env.AddFunction("intersect", fold("intersect", k.Intersection))

	// (translate s (vec3 ...)), (rotate s (vec3 deg...)), (scale s (vec3 ...))
	env.AddFunction("translate", solidTransform("translate",
		func(v mgl64.Vec3) mgl64.Mat4 { return mgl64.Translate3D(v[0], v[1], v[2]) },
		func(s kernel.Solid, v mgl64.Vec3) kernel.Solid { return k.Translate(s, v[0], v[1], v[2]) }))
	env.AddFunction("rotate", solidTransform("rotate",
		rotation,
		func(s kernel.Solid, v mgl64.Vec3) kernel.Solid { return k.Rotate(s, v[0], v[1], v[2]) }))
	env.AddFunction("scale", solidTransform("scale",
		func(v mgl64.Vec3) mgl64.Mat4 { return mgl64.Scale3D(v[0], v[1], v[2]) },
		func(s kernel.Solid, v mgl64.Vec3) kernel.Solid { return k.Scale(s, v[0], v[1], v[2]) }))

	// (ref "name")
	env.AddFunction("ref", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("ref requires a name argument")
		}
		target, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("ref: name: %w", err)
		}
		n, ok := b.named[target]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("ref: no object named %q", target)
		}
		m := n.Mesh()
		if m == nil {
			return zygo.SexpNull, fmt.Errorf("ref: %q has no mesh", target)
		}
		return &sexpShape{mesh: m, from: target}, nil
	})

	// (object "name" solid :at v :rotate v :scale v :color "#hex"
	//         :output :hole :material 2)
	env.AddFunction("object", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("object requires a name and a solid")
		}
		objName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("object: name: %w", err)
		}

		var m *mesh.Mesh
		switch body := pa.positional[1].(type) {
		case *sexpSolid:
			m, err = b.tessellate(body)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("object %q: %w", objName, err)
			}
		case *sexpShape:
			m = body.mesh
		default:
			return zygo.SexpNull, fmt.Errorf("object %q: expected solid or ref, got %T", objName, body)
		}

		n := scene.New(objName, m)
		if err := applyObjectOptions(n, pa); err != nil {
			return zygo.SexpNull, fmt.Errorf("object %q: %w", objName, err)
		}
		b.add(n)
		return &sexpNode{node: n}, nil
	})

	// (group "name" child ... :at v)
	env.AddFunction("group", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("group requires a name argument")
		}
		groupName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("group: name: %w", err)
		}
		members, err := b.members(groupName, pa.positional[1:])
		if err != nil {
			return zygo.SexpNull, err
		}
		g := scene.NewGroup(groupName)
		local, err := placement(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("group %q: %w", groupName, err)
		}
		g.SetLocalTransform(local)
		for _, m := range members {
			g.AddChild(m)
		}
		b.add(g)
		return &sexpNode{node: g}, nil
	})

	// (difference "name" keep hole ... :at v)
	env.AddFunction("difference", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 2 {
			return zygo.SexpNull, fmt.Errorf("difference requires a name and at least one member")
		}
		diffName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("difference: name: %w", err)
		}
		members, err := b.members(diffName, pa.positional[1:])
		if err != nil {
			return zygo.SexpNull, err
		}
		local, err := placement(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("difference %q: %w", diffName, err)
		}

		holder := scene.NewGroup("")
		for _, m := range members {
			holder.AddChild(m)
		}
		opts := []boolean.Option{boolean.Deferred()}
		if b.processor != nil {
			opts = append(opts, boolean.WithProcessor(b.processor))
		}
		dg, err := boolean.NewDifferenceGroup(context.Background(), diffName, members, opts...)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("difference %q: %w", diffName, err)
		}
		dg.Node.Detach()
		dg.Node.SetLocalTransform(local)
		b.diffs = append(b.diffs, dg)
		b.add(dg.Node)
		return &sexpNode{node: dg.Node}, nil
	})
}

// members resolves group arguments and takes them off the top-level list.
func (b *build) members(owner string, args []zygo.Sexp) ([]*scene.Node, error) {
	out := make([]*scene.Node, 0, len(args))
	for i, a := range args {
		n, err := toNode(a)
		if err != nil {
			return nil, fmt.Errorf("%s: member %d: %w", owner, i+1, err)
		}
		if err := b.adopt(n); err != nil {
			return nil, fmt.Errorf("%s: member %d: %w", owner, i+1, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func applyObjectOptions(n *scene.Node, pa kwArgs) error {
	local, err := placement(pa)
	if err != nil {
		return err
	}
	n.SetLocalTransform(local)

	if v, ok := pa.kw["color"]; ok {
		c, err := toString(v)
		if err != nil {
			return fmt.Errorf("color: %w", err)
		}
		if !colorPattern.MatchString(c) {
			return fmt.Errorf("color: %q is not #rrggbb", c)
		}
		n.Color = strings.ToLower(c)
	}
	if v, ok := pa.kw["output"]; ok {
		s, err := toKeywordString(v)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		t, err := scene.ParseOutputType(s)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		n.OutputType = t
	}
	if v, ok := pa.kw["material"]; ok {
		i, err := toInt(v)
		if err != nil {
			return fmt.Errorf("material: %w", err)
		}
		if i < 0 {
			return fmt.Errorf("material: negative index %d", i)
		}
		n.Material = i
	}
	if v, ok := pa.kw["hidden"]; ok {
		n.SetVisible(isFalse(v))
	}
	return nil
}

// isFalse reports an explicit false; a bare trailing keyword counts as true.
func isFalse(s zygo.Sexp) bool {
	if v, ok := s.(*zygo.SexpBool); ok {
		return !v.Val
	}
	return false
}

// fold applies a binary solid operation left to right.
func fold(op string, f func(a, b kernel.Solid) kernel.Solid) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires at least two solids", op)
		}
		acc, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: operand 1: %w", op, err)
		}
		out := acc.solid
		parts := []string{acc.desc}
		for i, a := range args[1:] {
			s, err := toSolid(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: operand %d: %w", op, i+2, err)
			}
			out = f(out, s.solid)
			parts = append(parts, s.desc)
		}
		return &sexpSolid{solid: out, desc: op + " " + strings.Join(parts, " ")}, nil
	}
}

func solidTransform(op string, matrix func(mgl64.Vec3) mgl64.Mat4, apply func(kernel.Solid, mgl64.Vec3) kernel.Solid) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires a solid and a vec3", op)
		}
		s, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
		}
		v, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
		}
		out := &sexpSolid{solid: apply(s.solid, v), desc: op + " " + s.desc}
		if s.exact != nil {
			out.exact = s.exact.Transformed(matrix(v))
		}
		return out, nil
	}
}
