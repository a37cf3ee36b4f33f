package llvm

import (
	golvm "tinygo.org/x/go-llvm"

	"github.com/blazify/blazify/internal/ast"
	"github.com/blazify/blazify/internal/diag"
	"github.com/blazify/blazify/internal/token"
	"github.com/blazify/blazify/internal/types"
)

// registerClass lowers a ClassDef to a set of funcDecls: one per method
// (mangled "Class%method", taking soul as its first parameter) and one
// constructor that allocates the soul itself, the same object-as-struct
// model spec §4.6 describes. Grounded on the bytecode compiler's own
// class lowering (internal/bytecode/compiler.go's ClassDef case), which
// this package mirrors at the LLVM level instead of the stack VM's.
func (e *Emitter) registerClass(v *ast.ClassDef) *diag.Diagnostic {
	classTy := v.TypeOf()
	e.classDecl[v.Name] = v
	soulSym := e.interner.Intern("soul")

	if e.methods[v.Name] == nil {
		e.methods[v.Name] = make(map[token.SymbolID]*funcDecl)
	}
	for _, m := range v.Methods {
		mt, ok := classTy.Fields[e.name(m.Name)]
		if !ok || mt.Kind != types.Fun {
			return e.codegenErr(v.Span(), e.name(v.Name), "method "+e.name(m.Name)+" has no inferred function type")
		}
		retTy := types.Ground(types.Null)
		if mt.Ret != nil {
			retTy = *mt.Ret
		}
		fd := &funcDecl{
			name:       mangleMethod(e.name(v.Name), e.name(m.Name)),
			params:     m.Params,
			paramTypes: mt.Params,
			soul:       soulSym,
			soulTy:     classTy,
			owner:      v,
			body:       m.Body,
			retTy:      retTy,
		}
		e.funcs = append(e.funcs, fd)
		e.methods[v.Name][m.Name] = fd
	}

	var ctorParams []token.SymbolID
	var ctorBody []ast.Node
	if v.Constructor != nil {
		ctorParams = v.Constructor.Params
		ctorBody = v.Constructor.Body
	}
	ctorParamTypes := make([]types.Type, len(ctorParams))
	for i, p := range ctorParams {
		ctorParamTypes[i] = e.inferParamType(ctorBody, p, types.Ground(types.Int))
	}
	ctorFd := &funcDecl{
		name:       e.name(v.Name),
		params:     ctorParams,
		paramTypes: ctorParamTypes,
		owner:      v,
		body:       ctorBody,
		retTy:      classTy,
		isCtor:     true,
	}
	e.funcs = append(e.funcs, ctorFd)
	e.ctors[v.Name] = ctorFd
	return nil
}

// inferParamType recovers a constructor parameter's ground type by finding
// its first use as a VarAccess in body and reading the type the inferencer
// already annotated there (every occurrence of the same binding carries the
// same resolved type, per internal/infer's single-type-var-per-binding
// design). Constructor parameters aren't stored anywhere else once
// inference discards its scope, so an unreferenced parameter falls back to
// fallback rather than leaving its LLVM type undetermined.
func (e *Emitter) inferParamType(body []ast.Node, param token.SymbolID, fallback types.Type) types.Type {
	found := fallback
	hit := false
	for _, stmt := range body {
		if hit {
			break
		}
		ast.Walk(stmt, func(n ast.Node) bool {
			if hit {
				return false
			}
			if va, ok := n.(*ast.VarAccess); ok && va.Name == param {
				found = va.TypeOf()
				hit = true
				return false
			}
			return true
		})
	}
	return found
}

// registerExtern declares an extern's LLVM signature. Unlike the bytecode
// VM (which rejects a variadic extern, spec Open Question (d)), the AOT
// path can lower one directly to an LLVM variadic function type, since
// printf-style FFI is exactly what llvm.FunctionType's variadic flag is for.
func (e *Emitter) registerExtern(v *ast.Extern) *diag.Diagnostic {
	paramTys := make([]golvm.Type, len(v.ArgTypes))
	for i, k := range v.ArgTypes {
		paramTys[i] = e.llvmType(externTypeOf(k))
	}
	retTy := externTypeOf(v.ReturnType)
	ftyp := golvm.FunctionType(e.llvmType(retTy), paramTys, v.Variadic)
	fn := golvm.AddFunction(e.module, e.name(v.Name), ftyp)
	e.externs[v.Name] = &funcDecl{name: e.name(v.Name), retTy: retTy, ll: fn}
	return nil
}

func externTypeOf(k ast.TypeExprKind) types.Type {
	switch k {
	case ast.TypeInt:
		return types.Ground(types.Int)
	case ast.TypeFloat:
		return types.Ground(types.Float)
	case ast.TypeBool:
		return types.Ground(types.Boolean)
	case ast.TypeString:
		return types.Ground(types.String)
	case ast.TypeChar:
		return types.Ground(types.Char)
	default:
		return types.Ground(types.Null)
	}
}
