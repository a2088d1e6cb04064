// internal/server/handlers.go
package server

import (
	"context"
	"log/slog"
	"path/filepath"

	"go-steely/internal/logging"
	"go-steely/internal/tracer"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Handlers serves the tracer tools over MCP.
type Handlers struct {
	log *slog.Logger
}

// New returns handlers that report load problems to log.
func New(log *slog.Logger) *Handlers {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handlers{log: log}
}

// AssignmentsResult is the structured payload of the assignments tool.
type AssignmentsResult struct {
	Function    string              `json:"function"`
	Context     bool                `json:"context"`
	Assignments []tracer.Assignment `json:"assignments"`
}

// resolve joins a project-relative file onto the project root.
func resolve(request mcp.CallToolRequest) (string, error) {
	file, err := request.RequireString("file")
	if err != nil {
		return "", err
	}
	project := request.GetString("project", "")
	if project != "" && !filepath.IsAbs(file) {
		file = filepath.Join(project, file)
	}
	return file, nil
}

// lookup parses the requested file and locates the requested function.
func lookup(request mcp.CallToolRequest) (tracer.Target, *mcp.CallToolResult) {
	file, err := resolve(request)
	if err != nil {
		return tracer.Target{}, mcp.NewToolResultError(err.Error())
	}
	funcName, err := request.RequireString("func")
	if err != nil {
		return tracer.Target{}, mcp.NewToolResultError(err.Error())
	}
	fset, f, err := tracer.ParseFile(file)
	if err != nil {
		return tracer.Target{}, mcp.NewToolResultError("Failed to parse file: " + err.Error())
	}
	target, err := tracer.Lookup(fset, f, funcName)
	if err != nil {
		return tracer.Target{}, mcp.NewToolResultError("Failed to find target: " + err.Error())
	}
	return target, nil
}

// funcCode handles requests for the 'func_code' tool. With a project it
// loads the whole module so the file is type-checked alongside its package.
func (h *Handlers) funcCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var target tracer.Target
	if project := request.GetString("project", ""); project != "" {
		file, err := resolve(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		funcName, err := request.RequireString("func")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		pkgs, err := tracer.LoadProject(project, h.log)
		if err != nil {
			return mcp.NewToolResultError("Failed to load project: " + err.Error()), nil
		}
		target, err = tracer.FindTarget(pkgs, file, funcName)
		if err != nil {
			return mcp.NewToolResultError("Failed to find target: " + err.Error()), nil
		}
	} else {
		var failed *mcp.CallToolResult
		if target, failed = lookup(request); failed != nil {
			return failed, nil
		}
	}

	code, err := tracer.GetFuncCode(target)
	if err != nil {
		return mcp.NewToolResultError("Failed to get function code: " + err.Error()), nil
	}
	if request.GetBool("receiver", false) {
		if typ, err := tracer.GetTypeCode(target); err == nil {
			code = typ + "\n\n" + code
		}
	}
	return mcp.NewToolResultText(code), nil
}

// assignments handles requests for the 'assignments' tool.
func (h *Handlers) assignments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, failed := lookup(request)
	if failed != nil {
		return failed, nil
	}
	result := AssignmentsResult{
		Function:    target.Fn.Name.Name,
		Context:     tracer.HasContextParam(target.Fn),
		Assignments: tracer.Assignments(target),
	}
	if result.Assignments == nil {
		result.Assignments = []tracer.Assignment{}
	}
	return mcp.NewToolResultStructured(result, "assignments"), nil
}

// instrument handles requests for the 'instrument' tool.
func (h *Handlers) instrument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, failed := lookup(request)
	if failed != nil {
		return failed, nil
	}
	var opts []tracer.InstrumentOption
	if path := request.GetString("import", ""); path != "" {
		opts = append(opts, tracer.WithImport(tracer.Import{Path: path, Name: request.GetString("import_name", filepath.Base(path))}))
	}
	out, err := tracer.Instrument(target.Fset, target.File, target.Fn.Name.Name, opts...)
	if err != nil {
		h.log.Debug("instrument failed", "func", target.Fn.Name.Name, "err", err)
		return mcp.NewToolResultError("Failed to instrument: " + err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

// RegisterTools defines all tools on the server and registers their handlers.
func (h *Handlers) RegisterTools(s *server.MCPServer) {
	// Tool 1: retrieve the source code of a function.
	funcCodeTool := mcp.NewTool("func_code",
		mcp.WithDescription("Get the formatted source code of a Go function or method. Use it to read a function before instrumenting it."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Path to the Go file containing the function, absolute or relative to 'project'")),
		mcp.WithString("func", mcp.Required(), mcp.Description("Function or method name, either 'Name' or 'Type.Name' (case-sensitive)")),
		mcp.WithString("project", mcp.Description("Absolute path to the Go project root. When set the project's packages are loaded and type-checked.")),
		mcp.WithBoolean("receiver", mcp.Description("Prepend the receiver type declaration for methods")),
	)
	s.AddTool(funcCodeTool, h.funcCode)

	// Tool 2: list the statements whose bindings would be traced.
	assignmentsTool := mcp.NewTool("assignments",
		mcp.WithDescription("List the statements of a Go function that bind local names, with their line numbers. These are the places where 'instrument' inserts checkpoints."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Path to the Go file, absolute or relative to 'project'")),
		mcp.WithString("func", mcp.Required(), mcp.Description("Function or method name (case-sensitive)")),
		mcp.WithString("project", mcp.Description("Absolute path to the Go project root")),
	)
	s.AddTool(assignmentsTool, h.assignments)

	// Tool 3: return the file with checkpoints inserted into one function.
	instrumentTool := mcp.NewTool("instrument",
		mcp.WithDescription("Return the source of a Go file with TrackAt checkpoints inserted after every binding in the named function. The function needs a context.Context parameter. The file on disk is not modified."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Path to the Go file, absolute or relative to 'project'")),
		mcp.WithString("func", mcp.Required(), mcp.Description("Function or method name (case-sensitive)")),
		mcp.WithString("project", mcp.Description("Absolute path to the Go project root")),
		mcp.WithString("import", mcp.Description("Import path of the package providing TrackAt. Defaults to go-steely.")),
		mcp.WithString("import_name", mcp.Description("Package name to call TrackAt through. Defaults to the import path's last element.")),
	)
	s.AddTool(instrumentTool, h.instrument)
}

// NewMCPServer builds an MCP server with every tool registered.
func NewMCPServer(version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"Go Steely",
		version,
		server.WithToolCapabilities(false),
	)
	New(log).RegisterTools(s)
	return s
}
