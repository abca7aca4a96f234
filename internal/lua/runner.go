// Package lua runs untrusted snippets in a restricted gopher-lua state: no
// file, process or module loading, bounded output and a context deadline.
package lua

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

const (
	DefaultTimeout        = 5 * time.Second
	DefaultMaxOutputBytes = 16 * 1024
	DefaultMaxStringBytes = 1 << 20
	maxTableDepth         = 8

	callStackSize   = 256
	registrySize    = 1024
	registryMaxSize = 64 * 1024
)

var ErrTimeout = errors.New("lua: execution timed out")

// Options limits one run. Env lists the only variables os.getenv may read.
// MaxStringBytes caps strings built by string.rep.
type Options struct {
	Timeout        time.Duration
	MaxOutputBytes int
	MaxStringBytes int
	Env            []string
}

// Result holds what the script printed and the first value it returned,
// converted to Go (string, float64, bool, []any, map[string]any or nil).
type Result struct {
	Output    string `json:"output"`
	Value     any    `json:"value,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

var unsafeGlobals = []string{"dofile", "loadfile", "load", "loadstring", "require", "module", "collectgarbage"}

// Run executes code and returns its printed output and return value.
func Run(ctx context.Context, code string, opts Options) (*Result, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("lua: empty script")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = DefaultMaxOutputBytes
	}
	if opts.MaxStringBytes <= 0 {
		opts.MaxStringBytes = DefaultMaxStringBytes
	}

	runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	lState := lua.NewState(lua.Options{
		SkipOpenLibs:    true,
		CallStackSize:   callStackSize,
		RegistrySize:    registrySize,
		RegistryMaxSize: registryMaxSize,
	})
	defer lState.Close()
	openSafeLibs(lState)
	if str, ok := lState.GetGlobal(lua.StringLibName).(*lua.LTable); ok {
		lState.SetField(str, "rep", lState.NewFunction(cappedRep(opts.MaxStringBytes)))
	}

	out := &output{limit: opts.MaxOutputBytes}
	lState.SetGlobal("print", lState.NewFunction(out.print))
	lState.SetGlobal("os", newOSTable(lState, opts.Env))
	lState.SetContext(runCtx)

	if err := lState.DoString(code); err != nil {
		if runCtx.Err() != nil {
			if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, fmt.Errorf("%w after %s", ErrTimeout, opts.Timeout)
			}
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("lua: %w", err)
	}

	res := &Result{Output: out.sb.String(), Truncated: out.truncated}
	if lState.GetTop() > 0 {
		res.Value = toGo(lState.Get(1), 0)
	}
	return res, nil
}

func openSafeLibs(lState *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		lState.Push(lState.NewFunction(lib.fn))
		lState.Push(lua.LString(lib.name))
		lState.Call(1, 0)
	}
	for _, name := range unsafeGlobals {
		lState.SetGlobal(name, lua.LNil)
	}
}

// cappedRep is string.rep refusing results larger than limit bytes.
func cappedRep(limit int) lua.LGFunction {
	return func(ls *lua.LState) int {
		s := ls.CheckString(1)
		n := ls.CheckInt64(2)
		sep := ls.OptString(3, "")
		if n <= 0 {
			ls.Push(lua.LString(""))
			return 1
		}
		unit := int64(len(s) + len(sep))
		if unit > 0 && n > int64(limit)/unit+1 {
			ls.RaiseError("string.rep: result exceeds the %d byte limit", limit)
			return 0
		}
		size := int64(len(s))*n + int64(len(sep))*(n-1)
		if size > int64(limit) {
			ls.RaiseError("string.rep: result of %d bytes exceeds the %d byte limit", size, limit)
			return 0
		}
		var sb strings.Builder
		sb.Grow(int(size))
		for i := int64(0); i < n; i++ {
			if i > 0 {
				sb.WriteString(sep)
			}
			sb.WriteString(s)
		}
		ls.Push(lua.LString(sb.String()))
		return 1
	}
}

// newOSTable exposes time, clock and an allow-listed getenv.
func newOSTable(lState *lua.LState, env []string) *lua.LTable {
	allowed := make(map[string]bool, len(env))
	for _, k := range env {
		allowed[k] = true
	}
	start := time.Now()

	mod := lState.NewTable()
	lState.SetField(mod, "getenv", lState.NewFunction(func(ls *lua.LState) int {
		key := ls.CheckString(1)
		if !allowed[key] {
			ls.Push(lua.LNil)
			return 1
		}
		ls.Push(lua.LString(os.Getenv(key)))
		return 1
	}))
	lState.SetField(mod, "time", lState.NewFunction(func(ls *lua.LState) int {
		ls.Push(lua.LNumber(time.Now().Unix()))
		return 1
	}))
	lState.SetField(mod, "clock", lState.NewFunction(func(ls *lua.LState) int {
		ls.Push(lua.LNumber(time.Since(start).Seconds()))
		return 1
	}))
	return mod
}

type output struct {
	sb        strings.Builder
	limit     int
	truncated bool
}

func (o *output) print(ls *lua.LState) int {
	n := ls.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, ls.ToStringMeta(ls.Get(i)).String())
	}
	line := strings.Join(parts, "\t") + "\n"
	if room := o.limit - o.sb.Len(); len(line) > room {
		if room > 0 {
			o.sb.WriteString(line[:room])
		}
		o.truncated = true
		return 0
	}
	o.sb.WriteString(line)
	return 0
}

func toGo(v lua.LValue, depth int) any {
	switch lv := v.(type) {
	case lua.LString:
		return string(lv)
	case lua.LNumber:
		return float64(lv)
	case lua.LBool:
		return bool(lv)
	case *lua.LTable:
		if depth >= maxTableDepth {
			return nil
		}
		if n := lv.MaxN(); n > 0 {
			arr := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				arr = append(arr, toGo(lv.RawGetInt(i), depth+1))
			}
			return arr
		}
		m := make(map[string]any)
		lv.ForEach(func(k, val lua.LValue) {
			m[k.String()] = toGo(val, depth+1)
		})
		return m
	default:
		return nil
	}
}
