// Package engine provides the scene-script evaluator for Platen.
// It wraps zygomys in a sandboxed environment and produces scene nodes,
// with their meshes already tessellated, from user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/rs/zerolog"

	"github.com/chazu/platen/pkg/boolean"
	"github.com/chazu/platen/pkg/kernel"
	"github.com/chazu/platen/pkg/logging"
	"github.com/chazu/platen/pkg/scene"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning represents a non-fatal warning produced during evaluation.
type EvalWarning struct {
	Message string
	NodeID  string
}

// Result is the output of a successful evaluation.
type Result struct {
	// Root is an unnamed group holding every top-level node in creation order.
	Root *scene.Node
	// Differences are the difference groups declared by the script. They are
	// built but not started.
	Differences []*boolean.DifferenceGroup
	Warnings    []EvalWarning
}

// Objects returns the top-level nodes.
func (r *Result) Objects() []*scene.Node {
	return r.Root.Children()
}

// Engine wraps the zygomys interpreter for scene evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	// Timeout is the hard limit for a single evaluation.
	Timeout time.Duration
	// Processor is given to declared difference groups; nil selects the
	// boolean package default.
	Processor *boolean.Processor

	kernel kernel.Kernel
	log    zerolog.Logger

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates an engine that builds solids with k.
func NewEngine(k kernel.Kernel) *Engine {
	return &Engine{
		Timeout: EvalTimeout,
		kernel:  k,
		log:     logging.For("engine"),
	}
}

// Evaluate takes Lisp source code and produces a new scene.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns result + nil errors + nil error
//   - On parse/eval failure: returns nil result + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Result, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	start := time.Now()
	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		res, evalErrs, err := e.evaluate(source)
		ch <- evalResult{result: res, errors: evalErrs, err: err}
	}()

	res, evalErrs, err := waitWithTimeout(ch, gen, &e.mu, &e.generation, e.Timeout)
	switch {
	case err != nil:
		e.log.Error().Err(err).Uint64("generation", gen).Msg("evaluation failed")
	case len(evalErrs) > 0:
		e.log.Debug().Int("errors", len(evalErrs)).Str("first", evalErrs[0].Error()).Msg("script errors")
	default:
		e.log.Debug().
			Int("objects", len(res.Objects())).
			Int("differences", len(res.Differences)).
			Dur("elapsed", time.Since(start)).
			Msg("evaluated")
	}
	return res, evalErrs, err
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Result, []EvalError, error) {
	b := newBuild(e.kernel, e.Processor)

	// Empty source is a valid program that produces an empty scene.
	if strings.TrimSpace(source) == "" {
		return b.result(), nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, b)

	err := env.LoadString(preprocessSource(source))
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	_, err = env.Run()
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	return b.result(), nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}

	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
