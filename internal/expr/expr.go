// Package expr compiles CEL expressions over named inputs into conditions.
//
// Every input is declared as a CEL bool variable, so a binding can be
// written as "arm && !estop" instead of composing conditions by hand.
package expr

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/sweeney/trigger-loop/internal/event"
	"github.com/sweeney/trigger-loop/internal/gpio"
)

// costLimit bounds the work a single evaluation may do.
const costLimit = 10000

// ErrNotBool is returned when an expression does not produce a bool.
var ErrNotBool = errors.New("expression is not boolean")

// Source supplies the current input sample.
type Source interface {
	Sample() (gpio.Sample, error)
}

// Env declares the inputs expressions may reference.
type Env struct {
	env   *cel.Env
	names []string
}

// NewEnv creates an environment with one bool variable per name.
func NewEnv(names []string) (*Env, error) {
	opts := make([]cel.EnvOption, 0, len(names))
	for _, n := range names {
		opts = append(opts, cel.Variable(n, cel.BoolType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return &Env{env: env, names: append([]string(nil), names...)}, nil
}

// Expr is a compiled, type-checked boolean expression.
type Expr struct {
	src  string
	prog cel.Program
}

// Compile parses and type-checks src.
func (e *Env) Compile(src string) (*Expr, error) {
	ast, issues := e.env.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", src, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("compile %q: %w (got %s)", src, ErrNotBool, ast.OutputType())
	}
	prog, err := e.env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", src, err)
	}
	return &Expr{src: src, prog: prog}, nil
}

// String returns the source text.
func (x *Expr) String() string {
	return x.src
}

// Eval evaluates the expression against a sample.
func (x *Expr) Eval(sample gpio.Sample) (bool, error) {
	vars := make(map[string]any, len(sample))
	for k, v := range sample {
		vars[k] = v
	}
	out, _, err := x.prog.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", x.src, err)
	}
	v, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("eval %q: %w", x.src, ErrNotBool)
	}
	return v, nil
}

// Condition returns a condition that evaluates x against src's current
// sample on every Get.
func (x *Expr) Condition(src Source) event.Condition {
	return event.FuncE(func() (bool, error) {
		s, err := src.Sample()
		if err != nil {
			return false, err
		}
		return x.Eval(s)
	})
}
