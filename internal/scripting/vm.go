// Package scripting evaluates user-supplied JavaScript predicates against
// generated races. Scripts define match(race) and return a boolean.
package scripting

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/race"
)

// ErrNoMatchFunc is returned when a script does not define match().
var ErrNoMatchFunc = errors.New("match() function is not defined")

// ErrCompile wraps syntax errors in a predicate.
var ErrCompile = errors.New("script compile error")

// LogEntry represents a single log message from the script.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Program is a compiled script shareable across VMs.
type Program struct {
	prog *goja.Program
}

// Compile parses source once so each scan worker can load it cheaply.
func Compile(source string) (*Program, error) {
	prog, err := goja.Compile("predicate.js", source, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}
	return &Program{prog: prog}, nil
}

// VM wraps a goja runtime with sandbox restrictions. A goja runtime is
// single-threaded, so every scan worker owns its own VM.
type VM struct {
	runtime *goja.Runtime
	mu      sync.Mutex
	match   goja.Callable

	logs    []LogEntry
	logsMu  sync.Mutex
	maxLogs int

	initTimeout time.Duration
	callTimeout time.Duration
}

const (
	defaultInitTimeout = 2 * time.Second
	defaultCallTimeout = 1 * time.Second
)

// NewVM creates a sandboxed runtime. A zero callTimeout uses the default.
func NewVM(callTimeout time.Duration) *VM {
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	vm := &VM{
		runtime:     goja.New(),
		maxLogs:     500,
		initTimeout: defaultInitTimeout,
		callTimeout: callTimeout,
	}
	vm.injectGlobalFunctions()
	injectConstants(vm.runtime)
	return vm
}

// injectGlobalFunctions registers log and console.log and removes globals a
// predicate has no business touching.
func (vm *VM) injectGlobalFunctions() {
	vm.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		msg := strings.Join(parts, " ")

		vm.logsMu.Lock()
		if len(vm.logs) >= vm.maxLogs {
			vm.logs = vm.logs[1:]
		}
		vm.logs = append(vm.logs, LogEntry{Time: time.Now(), Message: msg})
		vm.logsMu.Unlock()

		return goja.Undefined()
	})

	console := vm.runtime.NewObject()
	console.Set("log", vm.runtime.Get("log"))
	vm.runtime.Set("console", console)

	vm.runtime.Set("require", goja.Undefined())
	vm.runtime.Set("fetch", goja.Undefined())
	vm.runtime.Set("XMLHttpRequest", goja.Undefined())
	vm.runtime.Set("eval", goja.Undefined())
	vm.runtime.Set("Function", goja.Undefined())
}

// Load runs a compiled program and binds its match() function.
func (vm *VM) Load(p *Program) error {
	return vm.runWithTimeout(vm.initTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()

		if _, err := vm.runtime.RunProgram(p.prog); err != nil {
			return fmt.Errorf("script execution error: %w", err)
		}
		fn := vm.runtime.Get("match")
		if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
			return ErrNoMatchFunc
		}
		callable, ok := goja.AssertFunction(fn)
		if !ok {
			return fmt.Errorf("match is not a function")
		}
		vm.match = callable
		return nil
	})
}

// Match calls match(race) and coerces the result to a boolean.
func (vm *VM) Match(res *race.Result) (bool, error) {
	var matched bool
	err := vm.runWithTimeout(vm.callTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()

		if vm.match == nil {
			return ErrNoMatchFunc
		}
		out, err := vm.match(goja.Undefined(), vm.runtime.ToValue(raceObject(res)))
		if err != nil {
			return fmt.Errorf("match() error: %w", err)
		}
		matched = out.ToBoolean()
		return nil
	})
	return matched, err
}

// GetLogs returns a copy of the current log buffer.
func (vm *VM) GetLogs() []LogEntry {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	out := make([]LogEntry, len(vm.logs))
	copy(out, vm.logs)
	return out
}

// ClearLogs clears the log buffer.
func (vm *VM) ClearLogs() {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	vm.logs = vm.logs[:0]
}

func (vm *VM) runWithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		// Interrupt a runaway script, then make the runtime usable again.
		vm.runtime.Interrupt("script execution timeout")
		err := <-done
		vm.runtime.ClearInterrupt()
		if err == nil {
			// fn finished before the interrupt took effect.
			return nil
		}
		return fmt.Errorf("script timed out: %w", err)
	}
}
