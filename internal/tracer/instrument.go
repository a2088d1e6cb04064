// internal/tracer/instrument.go
package tracer

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/token"
	"strconv"

	"golang.org/x/tools/go/ast/astutil"
)

// InstrumentOption configures Instrument.
type InstrumentOption func(*instrumenter)

// WithImport changes the package the checkpoints call.
func WithImport(imp Import) InstrumentOption {
	return func(in *instrumenter) { in.imp = imp }
}

type instrumenter struct {
	fset *token.FileSet
	imp  Import
	ctx  string
	n    int
}

// Instrument rewrites funcName in file so each binding statement is followed
// by a TrackAt checkpoint carrying its original line, and returns the
// formatted source of the whole file. The file's AST is modified in place.
//
// Statements in blocks and case bodies are tracked directly. Range keys and
// values, for-loop counters and select receives are tracked at the top of the
// body they scope over. Function literals are left alone.
func Instrument(fset *token.FileSet, file *ast.File, funcName string, opts ...InstrumentOption) (string, error) {
	target, err := Lookup(fset, file, funcName)
	if err != nil {
		return "", err
	}
	ctx := contextParam(target.Fn)
	if ctx == "" {
		return "", fmt.Errorf("%w: %s", ErrNoContextParam, funcName)
	}
	if pos, ok := shadowed(target.Fn.Body, ctx); ok {
		return "", fmt.Errorf("%w: %s at %s", ErrContextShadowed, ctx, fset.Position(pos))
	}
	in := &instrumenter{fset: fset, imp: DefaultImport, ctx: ctx}
	for _, opt := range opts {
		opt(in)
	}
	if target.Fn.Body != nil {
		astutil.Apply(target.Fn.Body, in.pre, nil)
	}
	if in.n > 0 {
		astutil.AddNamedImport(fset, file, in.imp.Name, in.imp.Path)
	}
	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return "", fmt.Errorf("format: %w", err)
	}
	return buf.String(), nil
}

func (in *instrumenter) pre(c *astutil.Cursor) bool {
	switch n := c.Node().(type) {
	case *ast.FuncLit:
		return false
	case *ast.AssignStmt, *ast.IncDecStmt, *ast.DeclStmt:
		if inStmtList(c) {
			if call := in.track(n); call != nil {
				c.InsertAfter(call)
			}
		}
	case *ast.RangeStmt:
		in.prepend(n.Body, n)
	case *ast.ForStmt:
		if n.Init != nil {
			in.prepend(n.Body, n.Init)
		}
	case *ast.CommClause:
		if n.Comm != nil {
			in.prependList(&n.Body, n.Comm)
		}
	}
	return true
}

func inStmtList(c *astutil.Cursor) bool {
	if c.Index() < 0 {
		return false
	}
	switch c.Parent().(type) {
	case *ast.BlockStmt, *ast.CaseClause, *ast.CommClause:
		return true
	}
	return false
}

func (in *instrumenter) prepend(body *ast.BlockStmt, node ast.Node) {
	if body == nil {
		return
	}
	in.prependList(&body.List, node)
}

func (in *instrumenter) prependList(list *[]ast.Stmt, node ast.Node) {
	if call := in.track(node); call != nil {
		*list = append([]ast.Stmt{call}, *list...)
	}
}

// track builds the checkpoint for node, or nil when it binds nothing.
func (in *instrumenter) track(node ast.Node) ast.Stmt {
	names := boundNames(node)
	if len(names) == 0 {
		return nil
	}
	in.n++
	args := []ast.Expr{
		ast.NewIdent(in.ctx),
		&ast.BasicLit{Kind: token.INT, Value: strconv.Itoa(in.fset.Position(node.Pos()).Line)},
	}
	for _, name := range names {
		args = append(args, &ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(name)}, ast.NewIdent(name))
	}
	return &ast.ExprStmt{X: &ast.CallExpr{
		Fun:  &ast.SelectorExpr{X: ast.NewIdent(in.imp.Name), Sel: ast.NewIdent("TrackAt")},
		Args: args,
	}}
}

// contextParam returns the name of the first context.Context parameter.
func contextParam(fn *ast.FuncDecl) string {
	for _, field := range fn.Type.Params.List {
		if !isContextType(field.Type) {
			continue
		}
		for _, id := range field.Names {
			if id.Name != "_" {
				return id.Name
			}
		}
	}
	return ""
}

// shadowed finds a declaration of name in body whose value may not be a
// context.Context. Redeclarations from context.WithX calls are allowed.
func shadowed(body *ast.BlockStmt, name string) (token.Pos, bool) {
	if body == nil {
		return token.NoPos, false
	}
	var found token.Pos
	ast.Inspect(body, func(n ast.Node) bool {
		if found.IsValid() {
			return false
		}
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.AssignStmt:
			if n.Tok != token.DEFINE {
				return true
			}
			for i, lhs := range n.Lhs {
				if id, ok := lhs.(*ast.Ident); ok && id.Name == name && !fromContextPkg(n.Rhs, i, len(n.Lhs)) {
					found = id.Pos()
				}
			}
		case *ast.RangeStmt:
			if n.Tok != token.DEFINE {
				return true
			}
			for _, e := range []ast.Expr{n.Key, n.Value} {
				if id, ok := e.(*ast.Ident); ok && id.Name == name {
					found = id.Pos()
				}
			}
		case *ast.ValueSpec:
			for i, id := range n.Names {
				if id.Name != name || isContextType(n.Type) {
					continue
				}
				if n.Type != nil || !fromContextPkg(n.Values, i, len(n.Names)) {
					found = id.Pos()
				}
			}
		}
		return true
	})
	return found, found.IsValid()
}

// fromContextPkg reports whether the value bound to the i-th of n names is
// produced by a call into the context package.
func fromContextPkg(rhs []ast.Expr, i, n int) bool {
	var e ast.Expr
	switch {
	case len(rhs) == n:
		e = rhs[i]
	case len(rhs) == 1 && i == 0:
		e = rhs[0]
	default:
		return false
	}
	call, ok := e.(*ast.CallExpr)
	if !ok {
		return false
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	pkg, ok := sel.X.(*ast.Ident)
	return ok && pkg.Name == "context"
}

func isContextType(e ast.Expr) bool {
	sel, ok := e.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Context" {
		return false
	}
	pkg, ok := sel.X.(*ast.Ident)
	return ok && pkg.Name == "context"
}

// HasContextParam reports whether fn can be instrumented.
func HasContextParam(fn *ast.FuncDecl) bool {
	return contextParam(fn) != ""
}
