package ast

// Walk visits n and every node reachable from it in pre-order (parent
// before children), calling visit on each. If visit returns false, Walk
// stops descending into that node's children (but sibling subtrees
// elsewhere in the call chain are unaffected).
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	switch v := n.(type) {
	case *Number, *String, *Char, *Boolean, *VarAccess, *Extern:
		// leaves
	case *VarAssign:
		Walk(v.Value, visit)
	case *VarReassign:
		Walk(v.Value, visit)
	case *Unary:
		Walk(v.Operand, visit)
	case *Binary:
		Walk(v.Left, visit)
		Walk(v.Right, visit)
	case *If:
		for _, c := range v.Cases {
			Walk(c.Cond, visit)
			walkAll(c.Body, visit)
		}
		walkAll(v.Else, visit)
	case *While:
		Walk(v.Cond, visit)
		walkAll(v.Body, visit)
	case *For:
		Walk(v.Start, visit)
		Walk(v.End, visit)
		Walk(v.Step, visit)
		walkAll(v.Body, visit)
	case *FunDef:
		walkAll(v.Body, visit)
	case *Call:
		Walk(v.Callee, visit)
		walkAll(v.Args, visit)
	case *Return:
		if v.Value != nil {
			Walk(v.Value, visit)
		}
	case *Array:
		walkAll(v.Elements, visit)
	case *Index:
		Walk(v.Array, visit)
		Walk(v.Idx, visit)
	case *ObjectDef:
		for _, f := range v.Properties {
			Walk(f.Value, visit)
		}
	case *ObjectPropAccess:
		Walk(v.Object, visit)
	case *ObjectPropEdit:
		Walk(v.Object, visit)
		Walk(v.NewValue, visit)
	case *ObjectMethodCall:
		Walk(v.Object, visit)
		walkAll(v.Args, visit)
	case *ClassDef:
		if v.Constructor != nil {
			walkAll(v.Constructor.Body, visit)
		}
		for _, f := range v.Properties {
			if f.Value != nil {
				Walk(f.Value, visit)
			}
		}
		for _, m := range v.Methods {
			walkAll(m.Body, visit)
		}
	case *ClassInit:
		walkAll(v.Args, visit)
	case *Statements:
		walkAll(v.List, visit)
	}
}

func walkAll(nodes []Node, visit func(Node) bool) {
	for _, n := range nodes {
		Walk(n, visit)
	}
}
