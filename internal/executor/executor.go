// Package executor implements the recipe executor (spec.md §4.6, C6): it
// parses a recipe, builds the dependency graph for cycle detection,
// renders each link's fields, dispatches to the registered handler,
// validates schema-declared output, and accumulates the execution context
// link by link. The executor does not shape output itself: only the llm
// handler runs the output shaper, and other handlers' data is validated
// as returned, with a failure logged as a warning. Grounded on internal/campaign/orchestrator_lifecycle.go's
// sequential step-running loop, generalized from campaign tasks to recipe
// links.
package executor

import (
	"context"
	"errors"
	"fmt"

	"recipeforge/internal/execctx"
	"recipeforge/internal/links"
	"recipeforge/internal/logging"
	"recipeforge/internal/recipe"
	"recipeforge/internal/registry"
	"recipeforge/internal/schema"
	"recipeforge/internal/template"
)

// Options configures one Execute call (spec §7 Open Questions: strict mode
// is an execution option, not a global).
type Options struct {
	// Strict aborts the run on the first handler error instead of
	// recording data.error and continuing (spec §4.6 step 5).
	Strict bool
}

// Executor runs one recipe against a shared Registry/SchemaRegistry.
type Executor struct {
	Registry  *registry.Registry
	SchemaReg *schema.Registry
}

func New(reg *registry.Registry, schemaReg *schema.Registry) *Executor {
	return &Executor{Registry: reg, SchemaReg: schemaReg}
}

// ErrHandlerNotFound reports a link type with no registered handler (spec
// §4.1: "link-handler lookup misses are fatal configuration errors").
var ErrHandlerNotFound = errors.New("executor: no handler registered for link type")

// Execute runs r to completion (or early termination/cancellation),
// returning the accumulated context. It never returns a nil context, even
// on a fatal cycle or missing-handler error: the context accumulated so
// far is always returned alongside the error (spec §5 Cancellation:
// "terminates the run with the context assembled so far").
func (e *Executor) Execute(ctx context.Context, r *recipe.Recipe, opts Options) (*execctx.Context, error) {
	ec := execctx.New()

	graph := BuildGraph(r.Links)
	if cycle, found := graph.DetectCycle(); found {
		return ec, ErrCycle(cycle)
	}

	completed := 0
	for _, link := range r.Links {
		select {
		case <-ctx.Done():
			ec.Set(link.ContextKey(), recipe.Output{
				Data: recipe.NewValue(map[string]any{"error": "cancelled"}),
			})
			e.attachMetadata(ec, r, completed)
			return ec, ctx.Err()
		default:
		}

		if link.HasCondition() {
			expr := link.ConditionExpr()
			skip := expr == ""
			if !skip {
				engine := template.New()
				rendered := engine.Render(expr, ec.AsValue())
				skip = !recipe.NewValue(rendered).Bool()
			}
			if skip {
				logging.Get(logging.CategoryExecutor).Debug("skipping link %q: condition falsy", link.Name)
				continue
			}
		}

		handler, ok := e.Registry.Handler(link.Type)
		if !ok {
			if opts.Strict {
				e.attachMetadata(ec, r, completed)
				return ec, fmt.Errorf("%w: %q (link %q)", ErrHandlerNotFound, link.Type, link.Name)
			}
			ec.Set(link.ContextKey(), recipe.Output{
				Data: recipe.NewValue(map[string]any{"error": fmt.Sprintf("%v: %s", ErrHandlerNotFound, link.Type)}),
			})
			continue
		}

		engine := template.New()
		cfg := engine.RenderFields(link.Raw, ec.AsValue())

		out, err := handler.Execute(ctx, link, cfg, ec)
		if errors.Is(err, links.ErrTerminate) {
			logging.Get(logging.CategoryExecutor).Info("link %q terminated recipe", link.Name)
			e.attachMetadata(ec, r, completed)
			return ec, nil
		}
		if err != nil {
			logging.Get(logging.CategoryExecutor).Error("link %q failed: %v", link.Name, err)
			if opts.Strict {
				e.attachMetadata(ec, r, completed)
				return ec, err
			}
			ec.Set(link.ContextKey(), recipe.Output{
				Data: recipe.NewValue(map[string]any{"error": err.Error()}),
			})
			continue
		}

		if outputSchemaDecl, hasSchema := schemaFromNode(link); hasSchema {
			shapeSchema, validateAgainst := e.SchemaReg.Resolve(outputSchemaDecl)
			target := validateAgainst
			if target == nil {
				target = shapeSchema
			}
			if ok, errs := e.SchemaReg.Validate(out.Data.Raw(), target); !ok {
				logging.Get(logging.CategoryExecutor).Warn("link %q output failed schema validation: %s", link.Name, schema.DescribeErrors(errs))
			}
		}

		ec.Set(link.ContextKey(), out)
		completed++
	}

	e.attachMetadata(ec, r, completed)
	return ec, nil
}

func (e *Executor) attachMetadata(ec *execctx.Context, r *recipe.Recipe, completed int) {
	ec.Set(execctx.MetadataKey, recipe.Output{
		Data: recipe.NewValue(map[string]any{
			"name":            r.Name,
			"version":         r.Version,
			"link_count":      len(r.Links),
			"completed_links": completed,
		}),
	})
}

// schemaFromNode decodes the link's output_schema YAML node into a plain
// map, if present.
func schemaFromNode(link recipe.Link) (map[string]any, bool) {
	if link.OutputSchema == nil {
		return nil, false
	}
	var decoded map[string]any
	if err := link.OutputSchema.Decode(&decoded); err != nil {
		return nil, false
	}
	return decoded, true
}
