package llvm

import (
	golvm "tinygo.org/x/go-llvm"

	"github.com/blazify/blazify/internal/ast"
	"github.com/blazify/blazify/internal/diag"
	"github.com/blazify/blazify/internal/token"
	"github.com/blazify/blazify/internal/types"
)

// genBlock generates every statement of body in order, mirroring the
// teacher's gen() dispatcher that threads a "did this subtree already
// return" bool through If/While so the caller can suppress the fallthrough
// branch (REDESIGN FLAG (c) generalizes this to full early-return support:
// a Return nested arbitrarily deep inside If/While/For bodies, not only in
// tail position, terminates the enclosing function).
func (e *Emitter) genBlock(body []ast.Node, fc *funcContext) (bool, val, *diag.Diagnostic) {
	last := val{ll: e.zeroOf(types.Ground(types.Null)), ty: types.Ground(types.Null)}
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *ast.If:
			term, res, err := e.genIf(s, fc)
			if err != nil {
				return false, val{}, err
			}
			last = res
			if term {
				return true, res, nil
			}
		case *ast.While:
			if err := e.genWhile(s, fc); err != nil {
				return false, val{}, err
			}
			last = val{ll: e.zeroOf(types.Ground(types.Null)), ty: types.Ground(types.Null)}
		case *ast.For:
			if err := e.genFor(s, fc); err != nil {
				return false, val{}, err
			}
			last = val{ll: e.zeroOf(types.Ground(types.Null)), ty: types.Ground(types.Null)}
		case *ast.Return:
			rv, err := e.genReturnStmt(s, fc)
			if err != nil {
				return false, val{}, err
			}
			return true, rv, nil
		default:
			v, err := e.genExpr(stmt, fc)
			if err != nil {
				return false, val{}, err
			}
			last = v
		}
	}
	return false, last, nil
}

func (e *Emitter) genReturnStmt(r *ast.Return, fc *funcContext) (val, *diag.Diagnostic) {
	if r.Value == nil {
		zero := val{ll: e.zeroOf(fc.retTy), ty: fc.retTy}
		e.builder.CreateRet(zero.ll)
		return zero, nil
	}
	v, err := e.genExpr(r.Value, fc)
	if err != nil {
		return val{}, err
	}
	v = e.coerce(v, fc.retTy)
	e.builder.CreateRet(v.ll)
	return v, nil
}

// genIf lowers an If to a cond/then(/elif)*/else chain merging into a
// shared block, storing each taken branch's value through an alloca rather
// than a phi (simpler to get right across an arbitrary number of cases,
// and the teacher's own "typed dest variable" alloca-for-result pattern,
// transform.go's genDeclaration). Reports terminated=true only when every
// reachable branch (including an explicit else) ends in a Return, so the
// caller knows not to fall through.
func (e *Emitter) genIf(v *ast.If, fc *funcContext) (bool, val, *diag.Diagnostic) {
	ty := v.TypeOf()
	resAlloc := e.builder.CreateAlloca(e.llvmType(ty), "if.result")
	e.builder.CreateStore(e.zeroOf(ty), resAlloc)
	mergeBB := e.ctx.AddBasicBlock(fc.fn, "if.end")

	allTerminated := v.Else != nil
	for i, c := range v.Cases {
		condV, err := e.genExpr(c.Cond, fc)
		if err != nil {
			return false, val{}, err
		}
		thenBB := e.ctx.AddBasicBlock(fc.fn, "if.then")
		isLast := i == len(v.Cases)-1 && v.Else == nil
		var nextBB golvm.BasicBlock
		if isLast {
			nextBB = mergeBB
		} else {
			nextBB = e.ctx.AddBasicBlock(fc.fn, "if.cond")
		}
		e.builder.CreateCondBr(condV.ll, thenBB, nextBB)

		e.builder.SetInsertPointAtEnd(thenBB)
		e.pushScope(&scopeFrame{vars: make(map[token.SymbolID]scopeVar)})
		term, bodyVal, err := e.genBlock(c.Body, fc)
		e.popScope()
		if err != nil {
			return false, val{}, err
		}
		if !term {
			allTerminated = false
			e.builder.CreateStore(e.coerce(bodyVal, ty).ll, resAlloc)
			e.builder.CreateBr(mergeBB)
		}
		e.builder.SetInsertPointAtEnd(nextBB)
	}

	if v.Else != nil {
		e.pushScope(&scopeFrame{vars: make(map[token.SymbolID]scopeVar)})
		term, bodyVal, err := e.genBlock(v.Else, fc)
		e.popScope()
		if err != nil {
			return false, val{}, err
		}
		if !term {
			allTerminated = false
			e.builder.CreateStore(e.coerce(bodyVal, ty).ll, resAlloc)
			e.builder.CreateBr(mergeBB)
		}
	}

	e.builder.SetInsertPointAtEnd(mergeBB)
	if allTerminated {
		// Every arm returned; mergeBB is unreachable but still needed as the
		// CFG target wired above, so leave it empty and report termination.
		return true, val{ll: e.zeroOf(ty), ty: ty}, nil
	}
	return false, val{ll: e.builder.CreateLoad(resAlloc, "if.val"), ty: ty}, nil
}

func (e *Emitter) genWhile(v *ast.While, fc *funcContext) *diag.Diagnostic {
	headBB := e.ctx.AddBasicBlock(fc.fn, "while.cond")
	bodyBB := e.ctx.AddBasicBlock(fc.fn, "while.body")
	endBB := e.ctx.AddBasicBlock(fc.fn, "while.end")

	e.builder.CreateBr(headBB)
	e.builder.SetInsertPointAtEnd(headBB)
	condV, err := e.genExpr(v.Cond, fc)
	if err != nil {
		return err
	}
	e.builder.CreateCondBr(condV.ll, bodyBB, endBB)

	e.builder.SetInsertPointAtEnd(bodyBB)
	e.pushScope(&scopeFrame{vars: make(map[token.SymbolID]scopeVar)})
	term, _, err := e.genBlock(v.Body, fc)
	e.popScope()
	if err != nil {
		return err
	}
	if !term {
		e.builder.CreateBr(headBB)
	}
	e.builder.SetInsertPointAtEnd(endBB)
	return nil
}

// genFor lowers the literal desugaring spec §4.4 spells out (compiler.go's
// compileFor): bind the loop variable to Start, loop while it differs from
// End, run the body, then reassign it by adding Step.
func (e *Emitter) genFor(v *ast.For, fc *funcContext) *diag.Diagnostic {
	startV, err := e.genExpr(v.Start, fc)
	if err != nil {
		return err
	}
	alloc := e.builder.CreateAlloca(e.llvmType(startV.ty), e.name(v.Var)+".addr")
	e.builder.CreateStore(startV.ll, alloc)
	e.pushScope(&scopeFrame{vars: map[token.SymbolID]scopeVar{
		v.Var: {alloca: alloc, ty: startV.ty, mutable: true},
	}})
	defer e.popScope()

	headBB := e.ctx.AddBasicBlock(fc.fn, "for.cond")
	bodyBB := e.ctx.AddBasicBlock(fc.fn, "for.body")
	endBB := e.ctx.AddBasicBlock(fc.fn, "for.end")

	e.builder.CreateBr(headBB)
	e.builder.SetInsertPointAtEnd(headBB)
	cur := val{ll: e.builder.CreateLoad(alloc, ""), ty: startV.ty}
	endV, err := e.genExpr(v.End, fc)
	if err != nil {
		return err
	}
	neq, err := e.compare(ast.BinNeq, cur, endV)
	if err != nil {
		return err
	}
	e.builder.CreateCondBr(neq.ll, bodyBB, endBB)

	e.builder.SetInsertPointAtEnd(bodyBB)
	e.pushScope(&scopeFrame{vars: make(map[token.SymbolID]scopeVar)})
	term, _, err := e.genBlock(v.Body, fc)
	e.popScope()
	if err != nil {
		return err
	}
	if !term {
		stepV, err := e.genExpr(v.Step, fc)
		if err != nil {
			return err
		}
		cur2 := val{ll: e.builder.CreateLoad(alloc, ""), ty: startV.ty}
		next, err := e.arith(ast.BinAdd, cur2, stepV, v.Span())
		if err != nil {
			return err
		}
		e.builder.CreateStore(next.ll, alloc)
		e.builder.CreateBr(headBB)
	}
	e.builder.SetInsertPointAtEnd(endBB)
	return nil
}
