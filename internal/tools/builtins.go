package tools

import (
	"fmt"

	"github.com/venke07/conductor/internal/lua"
)

// BuiltinOptions selects which built-in tools are registered.
type BuiltinOptions struct {
	// OutputDir enables the file tools and file output for documents.
	OutputDir string
	// EnableCode registers executeCode.
	EnableCode bool
	Lua        lua.Options
}

// Builtins owns resources held by the built-in tools.
type Builtins struct {
	Files *Files
}

func (b *Builtins) Close() error {
	if b.Files == nil {
		return nil
	}
	return b.Files.Close()
}

type builtin struct {
	tool Tool
	h    Handler
}

// RegisterBuiltins adds the built-in tools to reg.
func RegisterBuiltins(reg *Registry, opts BuiltinOptions) (*Builtins, error) {
	b := &Builtins{}
	if opts.OutputDir != "" {
		files, err := OpenFiles(opts.OutputDir)
		if err != nil {
			return nil, err
		}
		b.Files = files
	}

	var entries []builtin
	add := func(t Tool, h Handler) {
		entries = append(entries, builtin{t, h})
	}

	if b.Files != nil {
		add(Tool{
			ID: "readFile", Name: "Read File",
			Description: "Read a text file from the output directory.",
			Parameters:  []Parameter{{Name: "path", Description: "relative file path", Required: true}},
		}, HandlerFunc(b.Files.ReadFile))
		add(Tool{
			ID: "writeFile", Name: "Write File",
			Description: "Write text to a file in the output directory.",
			Parameters: []Parameter{
				{Name: "path", Description: "relative file path", Required: true},
				{Name: "content", Description: "text to write", Required: true},
				{Name: "append", Type: "boolean", Description: "append instead of replacing"},
			},
		}, HandlerFunc(b.Files.WriteFile))
		add(Tool{
			ID: "listFiles", Name: "List Files",
			Description: "List files in the output directory.",
			Parameters:  []Parameter{{Name: "path", Description: "relative directory, default the root"}},
		}, HandlerFunc(b.Files.ListFiles))
		add(Tool{
			ID: "deleteFile", Name: "Delete File",
			Description: "Delete a file from the output directory.",
			Parameters:  []Parameter{{Name: "path", Description: "relative file path", Required: true}},
		}, HandlerFunc(b.Files.DeleteFile))
	}

	add(Tool{
		ID: "analyzeData", Name: "Analyze Data",
		Description: "Summarize CSV or JSON data with per-column statistics.",
		Parameters: []Parameter{
			{Name: "data", Description: "inline CSV or JSON"},
			{Name: "path", Description: "file to analyze instead of inline data"},
			{Name: "format", Description: "csv or json, detected when omitted"},
		},
	}, NewAnalyzer(b.Files))
	add(Tool{
		ID: "generateDocument", Name: "Generate Document",
		Description: "Render content as a markdown, html, txt or json document.",
		Parameters: []Parameter{
			{Name: "title", Description: "document title"},
			{Name: "content", Description: "document body", Required: true},
			{Name: "format", Description: "markdown, html, txt or json"},
			{Name: "filename", Description: "save the document under this name"},
		},
	}, NewDocuments(b.Files))

	if opts.EnableCode {
		add(Tool{
			ID: "executeCode", Name: "Execute Code",
			Description: "Run a Lua snippet in a sandbox and return its output.",
			Parameters: []Parameter{
				{Name: "code", Description: "Lua source", Required: true},
				{Name: "language", Description: "must be lua"},
			},
		}, NewCodeRunner(opts.Lua))
	}

	for _, e := range entries {
		if err := reg.Register(e.tool, e.h); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("builtin tools: %w", err)
		}
	}
	return b, nil
}
