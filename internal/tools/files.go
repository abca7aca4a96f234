package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

const maxReadBytes = 1 << 20

// Files serves the file tools from one directory. Paths are relative to it
// and cannot escape it.
type Files struct {
	root *os.Root
}

// OpenFiles opens dir as the tool sandbox, creating it when missing.
func OpenFiles(dir string) (*Files, error) {
	if dir == "" {
		return nil, fmt.Errorf("file tools: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file tools: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("file tools: %w", err)
	}
	return &Files{root: root}, nil
}

func (f *Files) Close() error {
	return f.root.Close()
}

func (f *Files) Dir() string {
	return f.root.Name()
}

func cleanPath(p string) string {
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "."
	}
	return p
}

func (f *Files) read(name string) ([]byte, error) {
	file, err := f.root.Open(cleanPath(name))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	data, err := io.ReadAll(io.LimitReader(file, maxReadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxReadBytes {
		return nil, fmt.Errorf("%s is larger than %d bytes", name, maxReadBytes)
	}
	return data, nil
}

func (f *Files) write(name string, data []byte, appendMode bool) error {
	p := cleanPath(name)
	if p == "." {
		return fmt.Errorf("invalid file path %q", name)
	}
	if dir := path.Dir(p); dir != "." {
		if err := f.mkdirAll(dir); err != nil {
			return err
		}
	}
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendMode {
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	file, err := f.root.OpenFile(p, flag, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func (f *Files) mkdirAll(dir string) error {
	var cur string
	for _, part := range strings.Split(dir, "/") {
		cur = path.Join(cur, part)
		if err := f.root.Mkdir(cur, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}

type fileEntry struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	IsDir bool   `json:"isDir"`
}

func (f *Files) ReadFile(_ context.Context, params map[string]any) (any, error) {
	name, err := stringParam(params, "path", true)
	if err != nil {
		return nil, err
	}
	data, err := f.read(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return map[string]any{"path": cleanPath(name), "content": string(data), "size": len(data)}, nil
}

func (f *Files) WriteFile(_ context.Context, params map[string]any) (any, error) {
	name, err := stringParam(params, "path", true)
	if err != nil {
		return nil, err
	}
	content, err := stringParam(params, "content", false)
	if err != nil {
		return nil, err
	}
	if err := f.write(name, []byte(content), boolParam(params, "append")); err != nil {
		return nil, fmt.Errorf("write %s: %w", name, err)
	}
	return map[string]any{"path": cleanPath(name), "bytes": len(content)}, nil
}

func (f *Files) ListFiles(_ context.Context, params map[string]any) (any, error) {
	name, err := stringParam(params, "path", false)
	if err != nil {
		return nil, err
	}
	p := cleanPath(name)
	dir, err := f.root.Open(p)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", p, err)
	}
	defer func() { _ = dir.Close() }()
	entries, err := dir.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", p, err)
	}

	files := make([]fileEntry, 0, len(entries))
	for _, e := range entries {
		fe := fileEntry{Name: e.Name(), IsDir: e.IsDir()}
		if info, err := e.Info(); err == nil && !e.IsDir() {
			fe.Size = info.Size()
		}
		files = append(files, fe)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return map[string]any{"path": p, "files": files}, nil
}

func (f *Files) DeleteFile(_ context.Context, params map[string]any) (any, error) {
	name, err := stringParam(params, "path", true)
	if err != nil {
		return nil, err
	}
	p := cleanPath(name)
	if p == "." {
		return nil, fmt.Errorf("refusing to delete the tool directory")
	}
	if err := f.root.Remove(p); err != nil {
		return nil, fmt.Errorf("delete %s: %w", p, err)
	}
	return map[string]any{"path": p, "deleted": true}, nil
}
