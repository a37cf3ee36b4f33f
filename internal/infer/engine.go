// Package infer implements Blaze's Hindley-Milner-style type inferencer
// (spec §4.3): constraint generation over the AST followed by unification
// with an occurs-check. No example repo in the retrieval pack implements
// HM inference, so this package is grounded directly on spec.md §4.3's own
// constraint table rather than on a pack file; see DESIGN.md.
package infer

import (
	"github.com/blazify/blazify/internal/ast"
	"github.com/blazify/blazify/internal/diag"
	"github.com/blazify/blazify/internal/token"
	"github.com/blazify/blazify/internal/types"
)

// Engine runs annotation, constraint collection and solving. It keeps the
// monotonic type-variable counter as an instance field rather than a
// package global, per REDESIGN FLAG (a) in spec §9, so two Engines can run
// concurrently without sharing a counter.
type Engine struct {
	interner    *token.Interner
	nextVar     int
	constraints []constraint
}

// New returns an Engine that resolves interned identifiers through interner
// for error messages.
func New(interner *token.Interner) *Engine {
	return &Engine{interner: interner}
}

func (e *Engine) fresh() types.Type {
	e.nextVar++
	return types.NewVar(e.nextVar)
}

func (e *Engine) constrain(a, b types.Type, span diag.Span) {
	e.constraints = append(e.constraints, constraint{a: a, b: b, span: span})
}

func (e *Engine) constrainAccess(a, b types.Type, span diag.Span) {
	e.constraints = append(e.constraints, constraint{a: a, b: b, span: span, accessMerge: true})
}

// Run infers types for root and every node it reaches, mutating each node's
// type slot in place via ast.Node.SetType. It returns a TypeError diagnostic
// on the first unification failure (including a recovered CircularType
// occurs-check panic) or on any free type variable left in the result.
func (e *Engine) Run(root []ast.Node) *diag.Diagnostic {
	sc := newRootScope()
	for _, n := range root {
		e.walk(n, sc)
	}

	sub, err := e.solve()
	if err != nil {
		return err
	}

	var free *diag.Diagnostic
	for _, n := range root {
		if d := e.finalize(n, sub); d != nil && free == nil {
			free = d
		}
	}
	return free
}

func (e *Engine) solve() (substitution, *diag.Diagnostic) {
	sub := substitution{}
	var result *diag.Diagnostic
	func() {
		defer func() {
			if r := recover(); r != nil {
				if op, ok := r.(occursPanic); ok {
					result = op.d
					return
				}
				panic(r)
			}
		}()
		for _, c := range e.constraints {
			if c.accessMerge {
				if d := unify(sub, c.a, c.b, c.span, true); d != nil {
					result = d
					return
				}
			} else if d := unify(sub, c.a, c.b, c.span, false); d != nil {
				result = d
				return
			}
		}
	}()
	if result != nil {
		return nil, result
	}
	return sub, nil
}

// finalize rewrites every node's type slot to its fully-resolved ground
// type and reports the first free variable found, satisfying the "type
// preservation" property of spec §8.
func (e *Engine) finalize(n ast.Node, sub substitution) *diag.Diagnostic {
	var err *diag.Diagnostic
	ast.Walk(n, func(node ast.Node) bool {
		if err != nil {
			return false
		}
		resolved := resolve(sub, node.TypeOf())
		node.SetType(resolved)
		free := map[int]bool{}
		types.FreeVars(resolved, free)
		if len(free) > 0 {
			err = diag.New(diag.TypeError, node.Span(), "UnresolvedType",
				"expression's type could not be fully determined")
			return false
		}
		return true
	})
	return err
}
