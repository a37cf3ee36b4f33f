// Package driver orchestrates the full pipeline cmd/blazify dispatches to
// by source extension: lex, parse, infer, then either compile to bytecode
// (.bzs), run serialized bytecode directly (.bze), or emit a native object
// file through internal/codegen/llvm (.bz/.bzx). Grounded on the teacher's
// main.go run() function, which performs the same read-lex-parse-then-branch
// sequence ahead of its own backend.GenerateAssembler/ll2.GenLLVM split.
package driver

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/blazify/blazify/internal/ast"
	"github.com/blazify/blazify/internal/bytecode"
	"github.com/blazify/blazify/internal/codegen/llvm"
	"github.com/blazify/blazify/internal/diag"
	"github.com/blazify/blazify/internal/infer"
	"github.com/blazify/blazify/internal/lexer"
	"github.com/blazify/blazify/internal/parser"
	"github.com/blazify/blazify/internal/token"
	"github.com/blazify/blazify/internal/vm"
)

// Result carries the bits cmd/blazify needs to print a version banner, an
// optional -l dump, and timing lines, without the driver itself knowing
// about flags.
type Result struct {
	// Listing is the text -l should print: the typed AST for a bytecode
	// target, or a note that object code was written, for an AOT target.
	Listing string
	// Value is the VM's final value, set only when run directly from a
	// .bze file.
	Value bytecode.Value
}

// frontend runs lex/parse/infer and returns the typed AST, shared by every
// extension branch below.
func frontend(path string) ([]ast.Node, *token.Interner, *diag.Diagnostic) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, diag.New(diag.IOError, diag.Span{}, path, err.Error())
	}
	src := &diag.Source{File: path, Content: string(content)}
	interner := token.NewInterner()

	toks, lexErr := lexer.New(src, interner).Lex()
	if lexErr != nil {
		return nil, nil, lexErr
	}
	prog, parseErr := parser.New(src, toks, interner).Parse()
	if parseErr != nil {
		return nil, nil, parseErr
	}
	if inferErr := infer.New(interner).Run(prog); inferErr != nil {
		return nil, nil, inferErr
	}
	return prog, interner, nil
}

// CompileToBytecode handles a .bz(s) source file: lex/parse/infer/compile,
// then serialize the result to outPath (internal/bytecode/serialize.go's
// Write).
func CompileToBytecode(path, outPath string) (*Result, *diag.Diagnostic) {
	prog, interner, err := frontend(path)
	if err != nil {
		return nil, err
	}
	code, compErr := bytecode.Compile(interner, prog)
	if compErr != nil {
		return nil, compErr
	}
	f, oerr := os.Create(outPath)
	if oerr != nil {
		return nil, diag.New(diag.IOError, diag.Span{}, outPath, oerr.Error())
	}
	defer f.Close()
	if werr := bytecode.Write(f, code); werr != nil {
		return nil, diag.New(diag.IOError, diag.Span{}, outPath, werr.Error())
	}
	return &Result{Listing: dumpAST(prog)}, nil
}

// RunBytecode handles a .bze file: deserialize and execute it directly on
// the VM.
func RunBytecode(path string) (*Result, *diag.Diagnostic) {
	f, oerr := os.Open(path)
	if oerr != nil {
		return nil, diag.New(diag.IOError, diag.Span{}, path, oerr.Error())
	}
	defer f.Close()
	code, rerr := bytecode.Read(f)
	if rerr != nil {
		return nil, diag.New(diag.IOError, diag.Span{}, path, rerr.Error())
	}
	result, vmErr := vm.New(code, vm.DefaultExterns()).Run()
	if vmErr != nil {
		return nil, vmErr
	}
	return &Result{Value: result}, nil
}

// EmitObject handles a .bz/.bzx source file: lex/parse/infer/emit an object
// file for the host triple through internal/codegen/llvm, then — unless
// objOnly — invoke the host C compiler to link it into an executable at
// linkedOut. Spec §4.6 calls for linking against `libblazex.a`; this
// exercise builds no such archive (no runtime sources are in scope), so the
// driver links directly against the host libc instead, which already
// satisfies every extern the emitter declares (printf, malloc, strlen,
// strcpy, strcat, strcmp, pow — see internal/codegen/llvm/expr.go).
func EmitObject(path, objOut, linkedOut string, objOnly bool) (*Result, *diag.Diagnostic) {
	prog, interner, err := frontend(path)
	if err != nil {
		return nil, err
	}
	moduleName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if emitErr := llvm.Emit(interner, prog, moduleName, objOut); emitErr != nil {
		return nil, emitErr
	}
	listing := fmt.Sprintf("wrote object file %s", objOut)
	if objOnly {
		return &Result{Listing: listing}, nil
	}
	cc := exec.Command("cc", objOut, "-lm", "-o", linkedOut)
	cc.Stdout = os.Stdout
	cc.Stderr = os.Stderr
	if cerr := cc.Run(); cerr != nil {
		return nil, diag.New(diag.IOError, diag.Span{}, linkedOut, cerr.Error())
	}
	return &Result{Listing: listing + fmt.Sprintf(", linked %s", linkedOut)}, nil
}

// dumpAST renders a coarse, line-per-node listing of the typed program for
// -l. It does not aim to be a faithful re-printer of Blaze syntax, only a
// readable structural trace of what got compiled.
func dumpAST(prog []ast.Node) string {
	var b strings.Builder
	for _, n := range prog {
		fmt.Fprintf(&b, "%T :: %s\n", n, n.TypeOf().String())
	}
	return b.String()
}
