package expression

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/cannectors/wrangler/pkg/row"
)

// JSEvaluator compiles JavaScript expressions with goja.
//
// Columns are bound as globals, so `this` at the top level of an expression is
// the global object and `this["unit price"]` reaches columns whose names are
// not identifiers. Columns that collide with engine globals (Math, JSON, the
// built-in functions) are only visible through expressions that avoid the name.
type JSEvaluator struct{}

// NewJSEvaluator returns the goja evaluator.
func NewJSEvaluator() *JSEvaluator {
	return &JSEvaluator{}
}

// Language implements Evaluator.
func (e *JSEvaluator) Language() string { return LangJS }

// Compile implements Evaluator. Every compiled expression owns its runtime;
// goja runtimes are not goroutine-safe.
func (e *JSEvaluator) Compile(source string) (Compiled, error) {
	program, err := goja.Compile("expression", source, true)
	if err != nil {
		return nil, &CompileError{Source: source, Message: err.Error(), Cause: err}
	}

	vm := goja.New()
	s := &scope{}
	for name, fn := range builtins(s) {
		if err := vm.Set(name, jsFunction(vm, fn)); err != nil {
			return nil, &CompileError{Source: source, Message: fmt.Sprintf("register %s: %v", name, err), Cause: err}
		}
	}
	if err := newJSConsole(vm, source); err != nil {
		return nil, &CompileError{Source: source, Message: err.Error(), Cause: err}
	}

	return &jsProgram{source: source, program: program, runtime: vm, scope: s}, nil
}

// jsFunction adapts a built-in to a goja callable. Errors become Go errors
// thrown into the script; the scope keeps the original for classification.
func jsFunction(vm *goja.Runtime, fn function) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, a := range call.Arguments {
			args[i] = a.Export()
		}
		out, err := fn(args...)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return vm.ToValue(out)
	}
}

type jsProgram struct {
	source  string
	program *goja.Program
	runtime *goja.Runtime
	scope   *scope
	bound   []string
}

func (p *jsProgram) Source() string { return p.source }

func (p *jsProgram) Evaluate(vars Variables) (row.Value, error) {
	if p.runtime == nil {
		return row.Null(), &EvalError{Source: p.source, Message: "expression is closed"}
	}
	p.scope.reset()

	global := p.runtime.GlobalObject()
	for _, name := range p.bound {
		_ = global.Delete(name)
	}
	p.bound = p.bound[:0]

	for name, v := range vars {
		if name == ThisBinding || global.Get(name) != nil {
			continue
		}
		if err := p.runtime.Set(name, v); err != nil {
			return row.Null(), &EvalError{
				Source:  p.source,
				Message: fmt.Sprintf("bind column %q: %v", name, err),
				Cause:   err,
			}
		}
		p.bound = append(p.bound, name)
	}

	out, err := p.runtime.RunProgram(p.program)
	if err != nil {
		return row.Null(), classify(p.source, err, p.scope.raised)
	}
	return result(p.source, out.Export())
}

func (p *jsProgram) Close() {
	p.runtime = nil
	p.program = nil
	p.bound = nil
}
