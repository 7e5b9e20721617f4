package registry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/axiom-ai/axiom/internal/config"
	"github.com/axiom-ai/axiom/pkg/plugin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// testModule is a minimal module for testing.
type testModule struct {
	info     plugin.PluginInfo
	initErr  error
	initDeps plugin.Dependencies
}

func newTestModule(name string, deps ...string) *testModule {
	return &testModule{
		info: plugin.PluginInfo{
			Name:         name,
			Version:      "1.0.0",
			Description:  "test module " + name,
			Dependencies: deps,
			APIVersion:   plugin.APIVersionCurrent,
		},
	}
}

func (m *testModule) Info() plugin.PluginInfo { return m.info }
func (m *testModule) Init(_ context.Context, deps plugin.Dependencies) error {
	m.initDeps = deps
	return m.initErr
}
func (m *testModule) Start(_ context.Context) error { return nil }
func (m *testModule) Stop(_ context.Context) error  { return nil }

// shutdownModule records stop order and simulates slow or failing Stop.
type shutdownModule struct {
	info         plugin.PluginInfo
	stopDuration time.Duration
	stopErr      error
	stopOrder    *[]string
	stopCount    *int32
}

func newShutdownModule(name string, stopOrder *[]string, deps ...string) *shutdownModule {
	return &shutdownModule{
		info: plugin.PluginInfo{
			Name:         name,
			Version:      "1.0.0",
			Dependencies: deps,
			APIVersion:   plugin.APIVersionCurrent,
		},
		stopOrder: stopOrder,
	}
}

func (m *shutdownModule) Info() plugin.PluginInfo                             { return m.info }
func (m *shutdownModule) Init(_ context.Context, _ plugin.Dependencies) error { return nil }
func (m *shutdownModule) Start(_ context.Context) error                       { return nil }

func (m *shutdownModule) Stop(ctx context.Context) error {
	if m.stopCount != nil {
		atomic.AddInt32(m.stopCount, 1)
	}
	if m.stopDuration > 0 {
		select {
		case <-time.After(m.stopDuration):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.info.Name)
	}
	return m.stopErr
}

type httpModule struct {
	testModule
	routes []plugin.Route
}

func (m *httpModule) Routes() []plugin.Route { return m.routes }

// validatingModule rejects configs without an api_key.
type validatingModule struct {
	testModule
	initCalled bool
}

func (m *validatingModule) ValidateConfig(cfg plugin.Config) error {
	if cfg.GetString("api_key") == "" {
		return errors.New("api_key is required")
	}
	return nil
}

func (m *validatingModule) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.initCalled = true
	return m.testModule.Init(ctx, deps)
}

type panicModule struct {
	testModule
	panicOnInit  bool
	panicOnStart bool
	panicOnStop  bool
}

func (m *panicModule) Init(ctx context.Context, deps plugin.Dependencies) error {
	if m.panicOnInit {
		panic("boom in Init")
	}
	return m.testModule.Init(ctx, deps)
}

func (m *panicModule) Start(ctx context.Context) error {
	if m.panicOnStart {
		panic("boom in Start")
	}
	return m.testModule.Start(ctx)
}

func (m *panicModule) Stop(ctx context.Context) error {
	if m.panicOnStop {
		panic("boom in Stop")
	}
	return m.testModule.Stop(ctx)
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func testDeps() func(string) plugin.Dependencies {
	return func(name string) plugin.Dependencies {
		return plugin.Dependencies{Logger: testLogger().Named(name)}
	}
}

func depsWithConfig(values map[string]any) func(string) plugin.Dependencies {
	return func(name string) plugin.Dependencies {
		v := viper.New()
		for k, val := range values {
			v.Set(k, val)
		}
		return plugin.Dependencies{
			Logger: testLogger().Named(name),
			Config: config.New(v),
		}
	}
}

func mustValidate(t *testing.T, reg *Registry) {
	t.Helper()
	if err := reg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestRegister(t *testing.T) {
	reg := New(testLogger())

	m := newTestModule("llm")
	if err := reg.Register(m); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register(m); err == nil {
		t.Fatal("Register() expected error for duplicate, got nil")
	}
	if err := reg.Register(&testModule{}); err == nil {
		t.Fatal("Register() expected error for empty name, got nil")
	}
}

func TestValidate_DependencyOrder(t *testing.T) {
	reg := New(testLogger())
	reg.Register(newTestModule("ws", "chat", "auth"))
	reg.Register(newTestModule("chat", "llm", "auth"))
	reg.Register(newTestModule("auth"))
	reg.Register(newTestModule("llm"))
	mustValidate(t, reg)

	var names []string
	for _, m := range reg.All() {
		names = append(names, m.Info().Name)
	}
	want := []string{"auth", "llm", "chat", "ws"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", names, want)
	}
}

func TestValidate_CycleDetection(t *testing.T) {
	reg := New(testLogger())
	reg.Register(newTestModule("a", "b"))
	reg.Register(newTestModule("b", "a"))

	if err := reg.Validate(); err == nil {
		t.Fatal("Validate() expected cycle error, got nil")
	}
}

func TestValidate_MissingDependency(t *testing.T) {
	t.Run("required fails", func(t *testing.T) {
		reg := New(testLogger())
		m := newTestModule("chat", "llm")
		m.info.Required = true
		reg.Register(m)
		if err := reg.Validate(); err == nil {
			t.Fatal("Validate() expected error for missing required dep, got nil")
		}
	})
	t.Run("optional disabled", func(t *testing.T) {
		reg := New(testLogger())
		reg.Register(newTestModule("ws", "chat"))
		mustValidate(t, reg)
		if !reg.IsDisabled("ws") {
			t.Error("expected ws to be disabled")
		}
	})
}

func TestValidate_APIVersion(t *testing.T) {
	for _, v := range []int{0, 999} {
		reg := New(testLogger())
		m := newTestModule("llm")
		m.info.APIVersion = v
		m.info.Required = true
		reg.Register(m)
		if err := reg.Validate(); err == nil {
			t.Errorf("APIVersion %d: expected error, got nil", v)
		}
	}
}

func TestValidate_CascadeDisable(t *testing.T) {
	reg := New(testLogger())
	search := newTestModule("search")
	search.info.APIVersion = 0
	reg.Register(search)
	reg.Register(newTestModule("digest", "search"))
	mustValidate(t, reg)

	if !reg.IsDisabled("search") || !reg.IsDisabled("digest") {
		t.Error("expected search and its dependent to be disabled")
	}
}

func TestInitAll_PassesDependencies(t *testing.T) {
	reg := New(testLogger())
	m := newTestModule("llm")
	reg.Register(m)
	mustValidate(t, reg)

	if err := reg.InitAll(context.Background(), testDeps()); err != nil {
		t.Fatalf("InitAll() error = %v", err)
	}
	if m.initDeps.Logger == nil {
		t.Error("Init did not receive a logger")
	}
}

func TestInitAll_Failures(t *testing.T) {
	t.Run("required", func(t *testing.T) {
		reg := New(testLogger())
		m := newTestModule("llm")
		m.info.Required = true
		m.initErr = errors.New("init failed")
		reg.Register(m)
		mustValidate(t, reg)
		if err := reg.InitAll(context.Background(), testDeps()); err == nil {
			t.Fatal("InitAll() expected error, got nil")
		}
	})
	t.Run("optional cascades to dependents", func(t *testing.T) {
		reg := New(testLogger())
		m := newTestModule("search")
		m.initErr = errors.New("init failed")
		reg.Register(m)
		reg.Register(newTestModule("digest", "search"))
		mustValidate(t, reg)
		if err := reg.InitAll(context.Background(), testDeps()); err != nil {
			t.Fatalf("InitAll() error = %v", err)
		}
		if !reg.IsDisabled("search") || !reg.IsDisabled("digest") {
			t.Error("expected failed module and dependent disabled")
		}
	})
}

func TestInitAll_ValidatorRunsBeforeInit(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		reg := New(testLogger())
		m := &validatingModule{testModule: *newTestModule("llm")}
		reg.Register(m)
		mustValidate(t, reg)

		err := reg.InitAll(context.Background(), depsWithConfig(map[string]any{"api_key": "sk-1"}))
		if err != nil {
			t.Fatalf("InitAll() error = %v", err)
		}
		if !m.initCalled {
			t.Error("Init not called for valid config")
		}
	})
	t.Run("invalid optional", func(t *testing.T) {
		reg := New(testLogger())
		m := &validatingModule{testModule: *newTestModule("llm")}
		reg.Register(m)
		mustValidate(t, reg)

		if err := reg.InitAll(context.Background(), depsWithConfig(nil)); err != nil {
			t.Fatalf("InitAll() error = %v", err)
		}
		if m.initCalled {
			t.Error("Init called despite invalid config")
		}
		if !reg.IsDisabled("llm") {
			t.Error("expected module disabled")
		}
	})
	t.Run("invalid required", func(t *testing.T) {
		reg := New(testLogger())
		m := &validatingModule{testModule: *newTestModule("llm")}
		m.info.Required = true
		reg.Register(m)
		mustValidate(t, reg)

		err := reg.InitAll(context.Background(), depsWithConfig(nil))
		if err == nil || !strings.Contains(err.Error(), "api_key") {
			t.Fatalf("InitAll() error = %v, want api_key validation error", err)
		}
	})
}

func TestAllRoutes(t *testing.T) {
	reg := New(testLogger())
	reg.Register(&httpModule{
		testModule: *newTestModule("chat"),
		routes:     []plugin.Route{{Method: "POST", Path: "/send"}},
	})
	reg.Register(newTestModule("search"))
	mustValidate(t, reg)

	routes := reg.AllRoutes()
	if len(routes) != 1 {
		t.Fatalf("AllRoutes() returned %d route sets, want 1", len(routes))
	}
	if _, ok := routes["chat"]; !ok {
		t.Error("AllRoutes() missing chat routes")
	}
}

func TestResolve(t *testing.T) {
	reg := New(testLogger())
	llm := newTestModule("llm")
	llm.info.Roles = []string{"llm"}
	reg.Register(llm)
	reg.Register(newTestModule("chat", "llm"))
	mustValidate(t, reg)

	if _, ok := reg.Resolve("chat"); !ok {
		t.Error("Resolve(chat) = false")
	}
	if _, ok := reg.Resolve("nonexistent"); ok {
		t.Error("Resolve(nonexistent) = true")
	}
	if got := reg.ResolveByRole("llm"); len(got) != 1 || got[0].Info().Name != "llm" {
		t.Errorf("ResolveByRole(llm) = %v", got)
	}

	infos := reg.Infos()
	if len(infos) != 2 || infos[0].Name != "chat" {
		t.Errorf("Infos() = %+v, want chat then llm", infos)
	}
}

func TestStopAll_ReverseOrder(t *testing.T) {
	var stopOrder []string
	reg := New(testLogger())
	reg.Register(newShutdownModule("llm", &stopOrder))
	reg.Register(newShutdownModule("chat", &stopOrder, "llm"))
	reg.Register(newShutdownModule("ws", &stopOrder, "chat"))
	mustValidate(t, reg)

	ctx := context.Background()
	reg.InitAll(ctx, testDeps())
	reg.StartAll(ctx)
	reg.StopAll(ctx)

	want := "ws,chat,llm"
	if got := strings.Join(stopOrder, ","); got != want {
		t.Errorf("stop order = %s, want %s", got, want)
	}
}

func TestStopAll_ErrorDoesNotBlockOthers(t *testing.T) {
	var stopOrder []string
	reg := New(testLogger())
	reg.Register(newShutdownModule("llm", &stopOrder))
	chat := newShutdownModule("chat", &stopOrder, "llm")
	chat.stopErr = errors.New("chat failed to stop")
	reg.Register(chat)
	reg.Register(newShutdownModule("ws", &stopOrder, "chat"))
	mustValidate(t, reg)

	ctx := context.Background()
	reg.InitAll(ctx, testDeps())
	reg.StartAll(ctx)
	reg.StopAll(ctx)

	if len(stopOrder) != 3 {
		t.Fatalf("stopped %d modules, want 3", len(stopOrder))
	}
}

func TestStopAll_ContextTimeout(t *testing.T) {
	var stopOrder []string
	reg := New(testLogger())
	reg.Register(newShutdownModule("fast", &stopOrder))
	slow := newShutdownModule("slow", nil)
	slow.stopDuration = 5 * time.Second
	reg.Register(slow)
	mustValidate(t, reg)

	ctx := context.Background()
	reg.InitAll(ctx, testDeps())
	reg.StartAll(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	reg.StopAll(shutdownCtx)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("StopAll took %v, expected < 500ms with context timeout", elapsed)
	}
	if len(stopOrder) != 1 || stopOrder[0] != "fast" {
		t.Errorf("stopOrder = %v, want [fast]", stopOrder)
	}
}

func TestStopAll_DisabledSkipped(t *testing.T) {
	var stopCount int32
	reg := New(testLogger())

	active := newShutdownModule("active", nil)
	active.stopCount = &stopCount
	disabled := newShutdownModule("disabled", nil)
	disabled.stopCount = &stopCount
	disabled.info.APIVersion = 0

	reg.Register(active)
	reg.Register(disabled)
	mustValidate(t, reg)

	ctx := context.Background()
	reg.InitAll(ctx, testDeps())
	reg.StartAll(ctx)
	reg.StopAll(ctx)

	if stopCount != 1 {
		t.Errorf("stop count = %d, want 1", stopCount)
	}
}

func TestPanicRecovery(t *testing.T) {
	t.Run("optional Init", func(t *testing.T) {
		reg := New(testLogger())
		reg.Register(&panicModule{testModule: *newTestModule("search"), panicOnInit: true})
		reg.Register(newTestModule("llm"))
		mustValidate(t, reg)

		if err := reg.InitAll(context.Background(), testDeps()); err != nil {
			t.Fatalf("InitAll() error = %v", err)
		}
		if !reg.IsDisabled("search") || reg.IsDisabled("llm") {
			t.Error("expected only the panicking module disabled")
		}
	})
	t.Run("required Start", func(t *testing.T) {
		reg := New(testLogger())
		m := &panicModule{testModule: *newTestModule("llm"), panicOnStart: true}
		m.info.Required = true
		reg.Register(m)
		mustValidate(t, reg)

		ctx := context.Background()
		reg.InitAll(ctx, testDeps())
		err := reg.StartAll(ctx)
		if err == nil || !strings.Contains(err.Error(), "panicked") {
			t.Fatalf("StartAll() error = %v, want panic error", err)
		}
	})
	t.Run("Stop", func(t *testing.T) {
		var stopOrder []string
		reg := New(testLogger())
		reg.Register(&panicModule{testModule: *newTestModule("search"), panicOnStop: true})
		reg.Register(newShutdownModule("llm", &stopOrder))
		mustValidate(t, reg)

		ctx := context.Background()
		reg.InitAll(ctx, testDeps())
		reg.StartAll(ctx)
		reg.StopAll(ctx)

		if len(stopOrder) != 1 {
			t.Error("expected llm Stop despite search panicking")
		}
	})
}

func TestStopAll_ConcurrentSafety(t *testing.T) {
	var stopCount int32
	reg := New(testLogger())
	m := newShutdownModule("concurrent", nil)
	m.stopCount = &stopCount
	m.stopDuration = 20 * time.Millisecond
	reg.Register(m)
	mustValidate(t, reg)

	ctx := context.Background()
	reg.InitAll(ctx, testDeps())
	reg.StartAll(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.StopAll(ctx)
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&stopCount); got != 3 {
		t.Errorf("stop count = %d, want 3", got)
	}
}
