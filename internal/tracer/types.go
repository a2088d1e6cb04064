// internal/tracer/types.go
package tracer

import (
	"go/ast"
	"go/token"
)

// Target is a function or method located in parsed source.
type Target struct {
	Fset *token.FileSet
	File *ast.File
	Fn   *ast.FuncDecl
}

// Assignment is one statement that binds or rebinds local names.
type Assignment struct {
	Line  int      `json:"line"`
	Names []string `json:"names"`
}

// Import is the package the generated checkpoints call into.
type Import struct {
	Path string
	Name string
}

// DefaultImport is the root steely package, which re-exports TrackAt.
var DefaultImport = Import{Path: "go-steely", Name: "steely"}
