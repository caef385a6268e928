// Package sandbox executes inline `function` link code (spec.md §4.4
// function, §9 "Sandbox for inline function code") using the Yaegi Go
// interpreter, restricted to a whitelist of arithmetic/collection/random
// stdlib packages. Generalized from
// internal/autopoiesis/yaegi_executor.go's YaegiExecutor: that executor
// interprets Go tool code to avoid `go build` dependency hell; here the
// same interpreter enforces the spec's sandbox boundary (no filesystem,
// process, or network access) for recipe-authored code.
package sandbox

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// allowedPackages is the whitelist of arithmetic/collection/random
// builtins permitted to inline function code (spec §4.4: "only a
// whitelisted set of arithmetic/collection builtins plus a few random
// helpers are available; access to the host filesystem, process table, or
// network is denied").
var allowedPackages = map[string]bool{
	"strings":       true,
	"strconv":       true,
	"fmt":           true,
	"math":          true,
	"math/rand":     true,
	"sort":          true,
	"time":          true,
	"encoding/json": true,
	"errors":        true,

	// EXPLICITLY BLOCKED (unsafe packages):
	// "os", "os/exec", "net", "net/http", "syscall", "unsafe", "io", "bufio"
}

// Executor runs whitelisted Go code in a Yaegi interpreter.
type Executor struct{}

func New() *Executor { return &Executor{} }

// Run interprets code, which must define:
//
//	func Run(inputs map[string]interface{}) (map[string]interface{}, error)
//
// and invokes it with inputs. Execution is cancellable via ctx.
func (e *Executor) Run(ctx context.Context, code string, inputs map[string]interface{}) (map[string]interface{}, error) {
	wrapped := wrap(code)
	if err := validateImports(wrapped); err != nil {
		return nil, fmt.Errorf("sandbox: invalid imports: %w", err)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("sandbox: load stdlib: %w", err)
	}

	if _, err := i.Eval(wrapped); err != nil {
		return nil, fmt.Errorf("sandbox: evaluate code: %w", err)
	}

	fnVal, err := i.Eval("main.Run")
	if err != nil {
		return nil, fmt.Errorf("sandbox: Run function not found: %w", err)
	}
	fn, ok := fnVal.Interface().(func(map[string]interface{}) (map[string]interface{}, error))
	if !ok {
		return nil, fmt.Errorf("sandbox: Run has incorrect signature (expected func(map[string]interface{}) (map[string]interface{}, error))")
	}

	type result struct {
		out map[string]interface{}
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		out, err := fn(inputs)
		resultCh <- result{out: out, err: err}
	}()

	select {
	case r := <-resultCh:
		return r.out, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("sandbox: execution cancelled: %w", ctx.Err())
	}
}

func wrap(code string) string {
	if strings.Contains(code, "package main") {
		return code
	}
	return "package main\n\n" + code
}

// validateImports parses code with the real Go parser and inspects the
// resulting AST's import declarations, rather than scanning source text.
// A textual scan can be bypassed by any import spelling the scanner didn't
// anticipate (no space after "import", tab-separated clauses, etc.) while
// still being valid Go that the parser, and therefore Yaegi, would accept.
func validateImports(code string) error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "sandbox_input.go", code, parser.ImportsOnly)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	var forbidden []string
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			path = strings.Trim(imp.Path.Value, `"`)
		}
		if !allowedPackages[path] {
			forbidden = append(forbidden, path)
		}
	}

	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports: %v", forbidden)
	}
	return nil
}
