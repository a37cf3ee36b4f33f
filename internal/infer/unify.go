package infer

import (
	"fmt"

	"github.com/blazify/blazify/internal/diag"
	"github.com/blazify/blazify/internal/types"
)

// constraint is one equality obligation emitted while walking the AST, per
// the table in spec §4.3. accessMerge marks an Object constraint
// (unify_as_access) under which a field of the smaller side that the larger
// side lacks is tolerated; without it (unify_as_equal) such a field is a
// MissingField error — spec §9's suggested split.
type constraint struct {
	a, b        types.Type
	span        diag.Span
	accessMerge bool
}

// substitution maps type-variable ids to the type they were bound to.
// Entries may themselves mention other variables; resolve follows the chain.
type substitution map[int]types.Type

// resolve fully dereferences t through sub, rebuilding any compound type so
// that every reachable Var is either free or has been substituted.
func resolve(sub substitution, t types.Type) types.Type {
	switch t.Kind {
	case types.Var:
		if bound, ok := sub[t.ID]; ok {
			return resolve(sub, bound)
		}
		return t
	case types.Array:
		elem := resolve(sub, *t.Elem)
		return types.Type{Kind: types.Array, Elem: &elem, Size: t.Size}
	case types.Fun:
		params := make([]types.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = resolve(sub, p)
		}
		var ret *types.Type
		if t.Ret != nil {
			r := resolve(sub, *t.Ret)
			ret = &r
		}
		return types.Type{Kind: types.Fun, Params: params, Ret: ret}
	case types.Object, types.Class:
		fields := make(map[string]types.Type, len(t.Fields))
		for k, v := range t.Fields {
			fields[k] = resolve(sub, v)
		}
		return types.Type{Kind: t.Kind, Fields: fields}
	default:
		return t
	}
}

// occursPanic is recovered at the top-level Solve boundary and converted
// back into a plain *diag.Diagnostic, per spec §4.3 ("occurs panics the
// compilation with CircularType") and SPEC_FULL's note that panics never
// cross a package boundary uncaught.
type occursPanic struct{ d *diag.Diagnostic }

func unify(sub substitution, a, b types.Type, span diag.Span, accessMerge bool) *diag.Diagnostic {
	a = resolve(sub, a)
	b = resolve(sub, b)

	if a.Kind == types.Var {
		return bindVar(sub, a.ID, b, span)
	}
	if b.Kind == types.Var {
		return bindVar(sub, b.ID, a, span)
	}
	record := func(k types.Kind) bool { return k == types.Object || k == types.Class }
	if a.Kind != b.Kind && !(record(a.Kind) && record(b.Kind)) {
		return mismatch(a, b, span)
	}

	switch a.Kind {
	case types.Array:
		if a.Size != nil && b.Size != nil && *a.Size != *b.Size {
			return mismatch(a, b, span)
		}
		return unify(sub, *a.Elem, *b.Elem, span, false)
	case types.Fun:
		if len(a.Params) != len(b.Params) {
			return diag.New(diag.TypeError, span, "ArityMismatch",
				fmt.Sprintf("expected %d argument(s), found %d", len(a.Params), len(b.Params)))
		}
		for i := range a.Params {
			if err := unify(sub, a.Params[i], b.Params[i], span, false); err != nil {
				return err
			}
		}
		return unify(sub, *a.Ret, *b.Ret, span, false)
	case types.Object, types.Class:
		return unifyObjects(sub, a, b, span, accessMerge)
	default:
		return nil // identical ground kinds
	}
}

// unifyObjects implements spec §4.3's row-like check: every field of the
// smaller map that the larger also has must unify with it. A field of the
// smaller map missing from the larger is a MissingField error unless
// accessMerge is set, in which case it is skipped. unifyObjects builds no
// combined field map; only a type variable's binding accumulates fields,
// through mergeBinding.
func unifyObjects(sub substitution, a, b types.Type, span diag.Span, accessMerge bool) *diag.Diagnostic {
	small, large := a, b
	if len(small.Fields) > len(large.Fields) {
		small, large = large, small
	}
	for name, st := range small.Fields {
		lt, ok := large.Fields[name]
		if !ok {
			if accessMerge {
				continue // tolerated in access mode; neither side gains the field here
			}
			return diag.New(diag.TypeError, span, "MissingField",
				fmt.Sprintf("object type %s has no field %q", large, name))
		}
		if err := unify(sub, st, lt, span, false); err != nil {
			return err
		}
	}
	return nil
}

// bindVar binds type-variable id to t. If id is already bound, the existing
// binding and t are unified instead of silently overwritten — this is what
// lets an object-typed variable accumulate fields across several accesses,
// edits and method calls on the same underlying value (spec §4.3's "Object
// access"/"Object edit"/"Method call" rows all constrain the same variable).
func bindVar(sub substitution, id int, t types.Type, span diag.Span) *diag.Diagnostic {
	t = resolve(sub, t)
	if t.Kind == types.Var && t.ID == id {
		return nil
	}
	if existing, ok := sub[id]; ok {
		merged, err := mergeBinding(sub, existing, t, span)
		if err != nil {
			return err
		}
		sub[id] = merged
		return nil
	}

	free := map[int]bool{}
	types.FreeVars(t, free)
	if free[id] {
		panic(occursPanic{diag.New(diag.TypeError, span, "CircularType",
			fmt.Sprintf("type variable t%d occurs within %s", id, t))})
	}
	sub[id] = t
	return nil
}

// mergeBinding unifies two bindings for the same variable and returns the
// resulting (possibly field-merged) type, rather than just failing when
// both are structurally-compatible Objects seen from two different call
// sites.
func mergeBinding(sub substitution, existing, t types.Type, span diag.Span) (types.Type, *diag.Diagnostic) {
	if existing.Kind == types.Object && t.Kind == types.Object {
		fields := make(map[string]types.Type, len(existing.Fields)+len(t.Fields))
		for k, v := range existing.Fields {
			fields[k] = v
		}
		for k, v := range t.Fields {
			if ev, ok := fields[k]; ok {
				if err := unify(sub, ev, v, span, false); err != nil {
					return types.Type{}, err
				}
				fields[k] = resolve(sub, ev)
			} else {
				fields[k] = v
			}
		}
		return types.Type{Kind: types.Object, Fields: fields}, nil
	}
	if err := unify(sub, existing, t, span, false); err != nil {
		return types.Type{}, err
	}
	return resolve(sub, existing), nil
}

func mismatch(found, expected types.Type, span diag.Span) *diag.Diagnostic {
	return diag.New(diag.TypeError, span, "TypeMismatch",
		fmt.Sprintf("expected %s, found %s", expected, found))
}
