// Package jsengine runs JavaScript device scripts for `jyn run`.
package jsengine

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/devicelab-dev/jyn/pkg/logger"
)

// Engine wraps a goja runtime with the jyn script globals.
type Engine struct {
	runtime   *goja.Runtime
	variables map[string]interface{}
	output    map[string]interface{}
	stdout    io.Writer
	failure   error // last device failure, reported instead of the JS wrapper
	mu        sync.Mutex
}

// New creates a new JS engine instance.
func New() *Engine {
	e := &Engine{
		runtime:   goja.New(),
		variables: make(map[string]interface{}),
		output:    make(map[string]interface{}),
		stdout:    os.Stdout,
	}

	e.setupBuiltins()
	return e
}

func (e *Engine) setupBuiltins() {
	e.setupConsole()

	e.runtime.Set("json", e.jsonFunc())
	e.runtime.Set("sleep", e.sleepFunc())
	e.runtime.Set("keycode", e.keycodeObject())

	// values handed back to the caller
	e.runtime.Set("output", e.output)
}

// SetStdout redirects console output.
func (e *Engine) SetStdout(w io.Writer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stdout = w
}

func (e *Engine) setupConsole() {
	makeConsoleFunc := func(prefix string, log func(string, ...interface{})) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			args := make([]interface{}, len(call.Arguments))
			for i, arg := range call.Arguments {
				args[i] = arg.Export()
			}
			line := fmt.Sprintln(args...)
			if prefix != "" {
				line = prefix + " " + line
			}
			io.WriteString(e.stdout, line)
			log("script: %s", line[:len(line)-1])
			return goja.Undefined()
		}
	}

	console := e.runtime.NewObject()
	console.Set("log", makeConsoleFunc("", logger.Info))
	console.Set("error", makeConsoleFunc("ERROR:", logger.Error))
	console.Set("warn", makeConsoleFunc("WARN:", logger.Warn))
	e.runtime.Set("console", console)
}

// jsonFunc parses a JSON string into a JS value.
func (e *Engine) jsonFunc() func(call goja.FunctionCall) goja.Value {
	parse, _ := goja.AssertFunction(e.runtime.Get("JSON").ToObject(e.runtime).Get("parse"))

	return func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(e.runtime.NewTypeError("json requires 1 argument"))
		}
		result, err := parse(goja.Undefined(), call.Arguments[0])
		if err != nil {
			panic(e.runtime.NewTypeError(fmt.Sprintf("invalid JSON: %v", err)))
		}
		return result
	}
}

// sleepFunc blocks the script for the given number of milliseconds.
func (e *Engine) sleepFunc() func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(e.runtime.NewTypeError("sleep requires 1 argument"))
		}
		time.Sleep(time.Duration(call.Arguments[0].ToInteger()) * time.Millisecond)
		return goja.Undefined()
	}
}

// SetVariable sets a variable accessible in JS as a global.
func (e *Engine) SetVariable(name string, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.variables[name] = value
	e.runtime.Set(name, value)
}

// SetVariables sets multiple variables.
func (e *Engine) SetVariables(vars map[string]interface{}) {
	for k, v := range vars {
		e.SetVariable(k, v)
	}
}

// GetOutput returns a copy of the output object (values set by scripts).
func (e *Engine) GetOutput() map[string]interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	outputVal := e.runtime.Get("output")
	var source map[string]interface{}

	if outputVal != nil && !goja.IsUndefined(outputVal) {
		if m, ok := outputVal.Export().(map[string]interface{}); ok {
			source = m
		}
	}

	if source == nil {
		source = e.output
	}

	result := make(map[string]interface{}, len(source))
	for k, v := range source {
		result[k] = v
	}
	return result
}

// Eval evaluates a JavaScript expression and returns the result.
func (e *Engine) Eval(script string) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failure = nil
	result, err := e.runtime.RunString(script)
	if err != nil {
		return nil, e.scriptError(err)
	}

	return result.Export(), nil
}

// RunScript runs script under name, which is used in stack traces.
func (e *Engine) RunScript(name, script string) error {
	program, err := goja.Compile(name, script, false)
	if err != nil {
		return fmt.Errorf("JS compile error: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.failure = nil
	if _, err := e.runtime.RunProgram(program); err != nil {
		return e.scriptError(err)
	}
	return nil
}

// RunFile runs the script at path.
func (e *Engine) RunFile(path string) error {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided script
	if err != nil {
		return err
	}
	return e.RunScript(path, string(data))
}

// scriptError prefers the device failure that aborted the script over the
// JS exception wrapping it.
func (e *Engine) scriptError(err error) error {
	if e.failure != nil {
		failure := e.failure
		e.failure = nil
		return failure
	}
	return fmt.Errorf("JS runtime error: %w", err)
}

// Close stops a running script. Safe to call multiple times.
func (e *Engine) Close() {
	e.runtime.Interrupt("engine closed")
}
