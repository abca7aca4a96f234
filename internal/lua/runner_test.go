package lua

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRunCapturesPrint(t *testing.T) {
	res, err := Run(context.Background(), `
for i = 1, 3 do
  print("line", i)
end
`, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Output != "line\t1\nline\t2\nline\t3\n" {
		t.Errorf("Output = %q", res.Output)
	}
}

func TestRunReturnValue(t *testing.T) {
	tests := []struct {
		name string
		code string
		want any
	}{
		{"number", "return 6 * 7", float64(42)},
		{"string", `return string.upper("ok")`, "OK"},
		{"bool", "return 1 < 2", true},
		{"array", "return {1, 2, 3}", []any{float64(1), float64(2), float64(3)}},
		{"map", `return {name = "x"}`, map[string]any{"name": "x"}},
		{"none", "local x = 1", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run(context.Background(), tt.code, Options{})
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(res.Value, tt.want) {
				t.Errorf("Value = %#v, want %#v", res.Value, tt.want)
			}
		})
	}
}

func TestRunBlocksUnsafeGlobals(t *testing.T) {
	for _, code := range []string{
		`dofile("/etc/passwd")`,
		`loadfile("/etc/passwd")`,
		`require("io")`,
		`io.open("/etc/passwd")`,
		`os.execute("ls")`,
		`os.remove("x")`,
	} {
		if _, err := Run(context.Background(), code, Options{}); err == nil {
			t.Errorf("%s: expected error", code)
		}
	}
}

func TestRunGetenvAllowList(t *testing.T) {
	t.Setenv("CONDUCTOR_LUA_ALLOWED", "yes")
	t.Setenv("CONDUCTOR_LUA_SECRET", "no")

	res, err := Run(context.Background(),
		`return {os.getenv("CONDUCTOR_LUA_ALLOWED"), tostring(os.getenv("CONDUCTOR_LUA_SECRET"))}`,
		Options{Env: []string{"CONDUCTOR_LUA_ALLOWED"}})
	if err != nil {
		t.Fatal(err)
	}
	want := []any{"yes", "nil"}
	if !reflect.DeepEqual(res.Value, want) {
		t.Errorf("Value = %#v, want %#v", res.Value, want)
	}
}

func TestRunTimeout(t *testing.T) {
	_, err := Run(context.Background(), `while true do end`, Options{Timeout: 50 * time.Millisecond})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, `while true do end`, Options{Timeout: time.Second})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRunTruncatesOutput(t *testing.T) {
	res, err := Run(context.Background(), `for i = 1, 100 do print("0123456789") end`, Options{MaxOutputBytes: 25})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Truncated {
		t.Error("expected Truncated")
	}
	if len(res.Output) != 25 {
		t.Errorf("len(Output) = %d, want 25", len(res.Output))
	}
}

func TestRunSyntaxError(t *testing.T) {
	_, err := Run(context.Background(), `this is not lua`, Options{})
	if err == nil || !strings.HasPrefix(err.Error(), "lua:") {
		t.Errorf("err = %v", err)
	}
}

func TestRunEmpty(t *testing.T) {
	if _, err := Run(context.Background(), "  ", Options{}); err == nil {
		t.Error("expected error for empty script")
	}
}

func TestRunCapsStringRep(t *testing.T) {
	_, err := Run(context.Background(), `return string.rep("x", 1e10)`, Options{})
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("err = %v, want a size limit error", err)
	}

	_, err = Run(context.Background(), `return ("ab"):rep(600)`, Options{MaxStringBytes: 1000})
	if err == nil {
		t.Error("method form should be capped too")
	}

	res, err := Run(context.Background(), `return string.rep("ab", 3, "-")`, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Value != "ab-ab-ab" {
		t.Errorf("Value = %v, want ab-ab-ab", res.Value)
	}
}
