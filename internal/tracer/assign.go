// internal/tracer/assign.go
package tracer

import (
	"go/ast"
	"go/token"
	"strings"
)

// assignmentCollector implements ast.Visitor. It records every statement in a
// function body that binds local names, skipping function literals.
type assignmentCollector struct {
	fset  *token.FileSet
	found []Assignment
}

func (v *assignmentCollector) Visit(node ast.Node) ast.Visitor {
	if node == nil {
		return nil
	}
	if _, ok := node.(*ast.FuncLit); ok {
		return nil
	}
	if names := boundNames(node); len(names) > 0 {
		v.found = append(v.found, Assignment{Line: v.fset.Position(node.Pos()).Line, Names: names})
	}
	return v
}

// Assignments lists the binding statements of the target function in source
// order.
func Assignments(target Target) []Assignment {
	if target.Fn.Body == nil {
		return nil
	}
	v := &assignmentCollector{fset: target.Fset}
	ast.Walk(v, target.Fn.Body)
	return v.found
}

// boundNames returns the traceable names a statement binds.
func boundNames(node ast.Node) []string {
	var exprs []ast.Expr
	switch n := node.(type) {
	case *ast.AssignStmt:
		exprs = n.Lhs
	case *ast.IncDecStmt:
		exprs = []ast.Expr{n.X}
	case *ast.RangeStmt:
		if n.Tok == token.ILLEGAL {
			return nil
		}
		exprs = []ast.Expr{n.Key, n.Value}
	case *ast.DeclStmt:
		gd, ok := n.Decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.VAR {
			return nil
		}
		for _, spec := range gd.Specs {
			for _, id := range spec.(*ast.ValueSpec).Names {
				exprs = append(exprs, id)
			}
		}
	default:
		return nil
	}
	return identNames(exprs)
}

func identNames(exprs []ast.Expr) []string {
	var names []string
	seen := make(map[string]bool)
	for _, e := range exprs {
		id, ok := e.(*ast.Ident)
		if !ok || !traceable(id.Name) || seen[id.Name] {
			continue
		}
		seen[id.Name] = true
		names = append(names, id.Name)
	}
	return names
}

func traceable(name string) bool {
	return name != "" && !strings.HasPrefix(name, "_")
}
