package props

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrNotExpression is returned when the input does not start with "=".
var ErrNotExpression = errors.New("props: not an expression")

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsExpression reports whether input is an "=" expression.
func IsExpression(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "=")
}

// eval runs an "=" expression in a fresh sandbox with vars bound as globals.
func eval(input string, vars map[string]float64) (zygo.Sexp, error) {
	src := strings.TrimSpace(input)
	if !strings.HasPrefix(src, "=") {
		return nil, ErrNotExpression
	}
	src = strings.TrimSpace(src[1:])
	if src == "" {
		return nil, fmt.Errorf("props: empty expression")
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		if identPattern.MatchString(name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "(def %s %s)\n", name, floatLiteral(vars[name]))
	}
	b.WriteString(src)

	env := zygo.NewZlispSandbox()
	defer env.Stop()
	out, err := env.EvalString(b.String())
	if err != nil {
		return nil, fmt.Errorf("props: %s: %w", src, err)
	}
	return out, nil
}

// floatLiteral keeps a decimal point so zygomys does float arithmetic.
func floatLiteral(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// EvalNumber evaluates an "=" expression to a number.
func EvalNumber(input string, vars map[string]float64) (float64, error) {
	out, err := eval(input, vars)
	if err != nil {
		return 0, err
	}
	return sexpFloat(out)
}

// EvalVector evaluates an "=" expression to a list or array of three numbers.
func EvalVector(input string, vars map[string]float64) (mgl64.Vec3, error) {
	out, err := eval(input, vars)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	var items []zygo.Sexp
	switch v := out.(type) {
	case *zygo.SexpArray:
		items = v.Val
	case *zygo.SexpPair:
		items, err = zygo.ListToArray(v)
		if err != nil {
			return mgl64.Vec3{}, fmt.Errorf("props: vector: %w", err)
		}
	default:
		return mgl64.Vec3{}, fmt.Errorf("props: vector expression returned %s", out.SexpString(nil))
	}
	if len(items) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("props: vector needs 3 components, got %d", len(items))
	}
	var vec mgl64.Vec3
	for i, it := range items {
		f, err := sexpFloat(it)
		if err != nil {
			return mgl64.Vec3{}, fmt.Errorf("props: vector component %d: %w", i, err)
		}
		vec[i] = f
	}
	return vec, nil
}

func sexpFloat(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("props: expected number, got %s", s.SexpString(nil))
}

// ParseNumber accepts a literal or an "=" expression.
func ParseNumber(input string, vars map[string]float64) (Number, error) {
	if IsExpression(input) {
		v, err := EvalNumber(input, vars)
		if err != nil {
			return Number{}, err
		}
		return Number{V: v, Expr: strings.TrimSpace(input)}, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		return Number{}, fmt.Errorf("props: %q is not a number", input)
	}
	return Number{V: v}, nil
}

// ParseVector accepts "x, y, z" (commas or spaces) or an "=" expression.
func ParseVector(input string, vars map[string]float64) (Vector, error) {
	if IsExpression(input) {
		v, err := EvalVector(input, vars)
		if err != nil {
			return Vector{}, err
		}
		return Vector{V: v, Expr: strings.TrimSpace(input)}, nil
	}
	fields := strings.FieldsFunc(input, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(fields) != 3 {
		return Vector{}, fmt.Errorf("props: %q needs 3 components", input)
	}
	var v mgl64.Vec3
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Vector{}, fmt.Errorf("props: component %d: %q is not a number", i, f)
		}
		v[i] = x
	}
	return Vector{V: v}, nil
}
