// internal/tracer/tracer.go

// Package tracer locates functions in Go source and rewrites them so their
// local bindings are reported to a scan session.
package tracer

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/go/packages"
)

var (
	ErrFuncNotFound   = errors.New("function not found")
	ErrNoContextParam = errors.New("function has no context.Context parameter")
	// ErrContextShadowed means the body redeclares the context parameter
	// with a value that is not built by the context package, so checkpoints
	// could not be passed the context.
	ErrContextShadowed = errors.New("context parameter is redeclared")
)

// LoadProject loads every package under dir with syntax and type information.
// Package errors are logged to log and do not fail the load.
func LoadProject(dir string, log *slog.Logger) ([]*packages.Package, error) {
	cfg := &packages.Config{Mode: packages.LoadSyntax | packages.LoadTypes | packages.LoadFiles, Dir: dir}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", dir, err)
	}
	if log != nil {
		packages.Visit(pkgs, nil, func(p *packages.Package) {
			for _, e := range p.Errors {
				log.Warn("package error", "pkg", p.PkgPath, "err", e.Msg)
			}
		})
	}
	return pkgs, nil
}

// FindTarget locates funcName in filePath among the loaded packages. Methods
// match either by name or as Type.Method.
func FindTarget(pkgs []*packages.Package, filePath, funcName string) (Target, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return Target{}, err
	}
	for _, p := range pkgs {
		for i, file := range p.GoFiles {
			if file != abs || i >= len(p.Syntax) {
				continue
			}
			if fn := findFuncDecl(p.Syntax[i], funcName); fn != nil {
				return Target{Fset: p.Fset, File: p.Syntax[i], Fn: fn}, nil
			}
		}
	}
	return Target{}, fmt.Errorf("%w: %q in %s", ErrFuncNotFound, funcName, filePath)
}

// ParseFile parses a single Go file with comments.
func ParseFile(path string) (*token.FileSet, *ast.File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return ParseSource(path, src)
}

// ParseSource parses src as if it were read from name.
func ParseSource(name string, src []byte) (*token.FileSet, *ast.File, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, name, src, parser.ParseComments)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return fset, file, nil
}

// Lookup finds funcName in an already parsed file.
func Lookup(fset *token.FileSet, file *ast.File, funcName string) (Target, error) {
	fn := findFuncDecl(file, funcName)
	if fn == nil {
		return Target{}, fmt.Errorf("%w: %q in %s", ErrFuncNotFound, funcName, fset.Position(file.Pos()).Filename)
	}
	return Target{Fset: fset, File: file, Fn: fn}, nil
}

// GetFuncCode returns the formatted source of the target function.
func GetFuncCode(target Target) (string, error) {
	var buf bytes.Buffer
	if err := format.Node(&buf, target.Fset, target.Fn); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// GetTypeCode returns the formatted declaration of the target's receiver
// type when it is declared in the same file.
func GetTypeCode(target Target) (string, error) {
	name := receiverType(target.Fn)
	if name == "" {
		return "", fmt.Errorf("%s is not a method", target.Fn.Name.Name)
	}
	var found ast.Node
	ast.Inspect(target.File, func(n ast.Node) bool {
		if ts, ok := n.(*ast.TypeSpec); ok && ts.Name.Name == name {
			found = ts
			return false
		}
		return found == nil
	})
	if found == nil {
		return "", fmt.Errorf("type %s not declared in file", name)
	}
	node := found
	path, _ := astutil.PathEnclosingInterval(target.File, found.Pos(), found.End())
	for _, p := range path {
		if gd, ok := p.(*ast.GenDecl); ok && gd.Tok == token.TYPE {
			node = gd
			break
		}
	}
	var buf bytes.Buffer
	if err := format.Node(&buf, target.Fset, node); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func findFuncDecl(file *ast.File, funcName string) *ast.FuncDecl {
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if fn.Name.Name == funcName {
			return fn
		}
		if recv := receiverType(fn); recv != "" && recv+"."+fn.Name.Name == funcName {
			return fn
		}
	}
	return nil
}

// receiverType returns the base type name of a method receiver, or "".
func receiverType(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	expr := fn.Recv.List[0].Type
	for {
		switch t := expr.(type) {
		case *ast.StarExpr:
			expr = t.X
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		case *ast.ParenExpr:
			expr = t.X
		case *ast.Ident:
			return t.Name
		default:
			return ""
		}
	}
}
