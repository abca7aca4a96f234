package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/venke07/conductor/internal/capability"
	"github.com/venke07/conductor/internal/config"
	"github.com/venke07/conductor/internal/orchestrator"
	"github.com/venke07/conductor/internal/provider"
	"github.com/venke07/conductor/internal/scheduler"
)

func echoCaller() provider.Caller {
	return provider.CallerFunc(func(_ context.Context, req *provider.CallRequest) (*provider.CallResponse, error) {
		return &provider.CallResponse{Reply: req.Model + ": " + req.Messages[len(req.Messages)-1].Content}, nil
	})
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Archive.DataDir = dir
	cfg.Tools.OutputDir = dir + "/out"
	return cfg
}

func newApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, nil, WithCaller(echoCaller()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		if err := a.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return a
}

func TestNewDefaults(t *testing.T) {
	a := newApp(t, testConfig(t))
	if a.Tools != nil || a.Runs != nil || a.Scheduler != nil {
		t.Error("optional services should be off by default")
	}
	if len(a.Registry.Agents()) != len(capability.DefaultAgents()) {
		t.Errorf("agents = %d", len(a.Registry.Agents()))
	}
	res, err := a.Engine.RunWorkflow(context.Background(), orchestrator.WorkflowRequest{Prompt: "hi", AgentIDs: []string{"summarizer"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.FinalResult != "gpt-4o-mini: hi" {
		t.Errorf("FinalResult = %q", res.FinalResult)
	}
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.State.Backend = "etcd"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestConfiguredAgentsAndRoutes(t *testing.T) {
	cfg := testConfig(t)
	cfg.Capabilities = []capability.Capability{{ID: "legal", Name: "Legal", Keywords: []string{"contract"}}}
	cfg.Agents = []capability.Agent{
		{ID: "lawyer", Name: "Lawyer", Model: "local-llama", Capabilities: []string{"legal"}},
		{ID: "writer", Name: "House Writer", Model: "gpt-4o", Capabilities: []string{"content_writing"}},
	}
	a := newApp(t, cfg)

	if _, ok := a.Registry.Capability("legal"); !ok {
		t.Error("configured capability missing")
	}
	w, ok := a.Registry.Agent("writer")
	if !ok || w.Name != "House Writer" {
		t.Errorf("writer = %+v, want configured override", w)
	}
	if len(a.Registry.Agents()) != len(capability.DefaultAgents())+1 {
		t.Errorf("agents = %d", len(a.Registry.Agents()))
	}
	if r := a.Routes.Resolve("claude-3-5-haiku-latest"); r.Provider != "anthropic" {
		t.Errorf("default routes lost: %+v", r)
	}
}

func TestArchiveJanitorAndTools(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archive.Enabled = true
	cfg.Janitor.Enabled = true
	cfg.Tools.Enabled = true
	cfg.Tools.EnableCode = true
	a := newApp(t, cfg)

	if a.Runs == nil || a.Scheduler == nil || a.Tools == nil {
		t.Fatal("services not wired")
	}
	ids := map[string]bool{}
	for _, tl := range a.Tools.Registry().Tools() {
		ids[tl.ID] = true
	}
	for _, want := range []string{"readFile", "writeFile", "analyzeData", "generateDocument", "executeCode", scheduler.ToolName} {
		if !ids[want] {
			t.Errorf("tool %s not registered", want)
		}
	}

	ctx := context.Background()
	res, err := a.Engine.RunWorkflow(ctx, orchestrator.WorkflowRequest{Prompt: "hi", AgentIDs: []string{"summarizer"}})
	if err != nil {
		t.Fatal(err)
	}
	run, err := a.Runs.GetRun(ctx, res.WorkflowID)
	if err != nil {
		t.Fatalf("archived run: %v", err)
	}
	if run.FinalResult != res.FinalResult {
		t.Errorf("archived final result = %q", run.FinalResult)
	}

	job, err := a.Scheduler.RunNow(ctx, scheduler.ArchiveJanitorJob)
	if err != nil {
		t.Fatal(err)
	}
	if job.LastError != "" || !strings.HasPrefix(job.LastResult, "pruned 0 runs") {
		t.Errorf("janitor = %+v", job)
	}
}

func TestRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.State.Backend = config.BackendRedis
	cfg.State.Redis.Addr = mr.Addr()
	a := newApp(t, cfg)

	ctx := context.Background()
	if _, err := a.Engine.RunWorkflow(ctx, orchestrator.WorkflowRequest{SessionID: "shared", Prompt: "hi", AgentIDs: []string{"summarizer"}}); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists(cfg.State.Redis.Prefix + "shared") {
		t.Error("session not stored in redis")
	}
}

func TestRedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.State.Backend = config.BackendRedis
	cfg.State.Redis.Addr = "127.0.0.1:1"
	if _, err := New(context.Background(), cfg, nil, WithCaller(echoCaller())); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestServerRoutes(t *testing.T) {
	a := newApp(t, testConfig(t))
	rec := httptest.NewRecorder()
	a.Server().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("metrics = %d", rec.Code)
	}
}
