package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Conductor ") {
		t.Errorf("output = %q", out)
	}
}

func TestClassifyCommand(t *testing.T) {
	out, err := execute(t, "classify", "--json", "summarize", "the", "meeting", "notes")
	if err != nil {
		t.Fatal(err)
	}
	var c struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(out), &c); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if c.Intent == "" || c.Confidence <= 0 {
		t.Errorf("classification = %+v", c)
	}
}

func TestPlanCommand(t *testing.T) {
	out, err := execute(t, "plan", "--json=false", "Write a blog article about rivers")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "pattern content_creation") || !strings.Contains(out, "1. writer") {
		t.Errorf("output = %q", out)
	}
}

func TestRunUnknownMode(t *testing.T) {
	_, err := execute(t, "run", "--mode", "diagonal", "hello")
	if err == nil || !strings.Contains(err.Error(), "unknown mode") {
		t.Errorf("err = %v", err)
	}
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "--config", "/nonexistent/conductor.yaml", "classify", "x")
	configPath = ""
	if err == nil {
		t.Error("expected error for missing config")
	}
}
