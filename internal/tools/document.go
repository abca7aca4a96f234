package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"path"
	"strings"
	"time"
)

var htmlDocument = template.Must(template.New("doc").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}</body>
</html>
`))

var documentExt = map[string]string{
	"markdown": ".md",
	"html":     ".html",
	"txt":      ".txt",
	"json":     ".json",
}

// Documents implements generateDocument. When a filename is given and file
// access is enabled the rendered document is also written to disk.
type Documents struct {
	files *Files
	now   func() time.Time
}

func NewDocuments(files *Files) *Documents {
	return &Documents{files: files, now: time.Now}
}

func (d *Documents) Execute(_ context.Context, params map[string]any) (any, error) {
	title, err := stringParam(params, "title", false)
	if err != nil {
		return nil, err
	}
	content, err := stringParam(params, "content", true)
	if err != nil {
		return nil, err
	}
	format, err := stringParam(params, "format", false)
	if err != nil {
		return nil, err
	}
	filename, err := stringParam(params, "filename", false)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = "Untitled"
	}
	if format == "" {
		format = "markdown"
	}
	format = strings.ToLower(format)
	if format == "md" {
		format = "markdown"
	}

	doc, err := d.render(title, content, format)
	if err != nil {
		return nil, err
	}
	out := map[string]any{"format": format, "title": title, "document": doc}
	if filename == "" {
		return out, nil
	}
	if d.files == nil {
		return nil, fmt.Errorf("file access is disabled")
	}
	if path.Ext(filename) == "" {
		filename += documentExt[format]
	}
	if err := d.files.write(filename, []byte(doc), false); err != nil {
		return nil, fmt.Errorf("write %s: %w", filename, err)
	}
	out["path"] = cleanPath(filename)
	return out, nil
}

func (d *Documents) render(title, content, format string) (string, error) {
	switch format {
	case "markdown":
		return "# " + title + "\n\n" + strings.TrimSpace(content) + "\n", nil
	case "txt":
		return title + "\n" + strings.Repeat("=", len(title)) + "\n\n" + strings.TrimSpace(content) + "\n", nil
	case "html":
		var sb strings.Builder
		data := struct {
			Title      string
			Paragraphs []string
		}{Title: title, Paragraphs: paragraphs(content)}
		if err := htmlDocument.Execute(&sb, data); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
		return sb.String(), nil
	case "json":
		b, err := json.MarshalIndent(map[string]any{
			"title":       title,
			"content":     content,
			"generatedAt": d.now().UTC().Format(time.RFC3339),
		}, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("unsupported document format %q", format)
	}
}

func paragraphs(content string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
