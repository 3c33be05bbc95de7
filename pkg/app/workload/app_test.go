package workload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/uhyunpark/scriptgen/pkg/app/script"
	"github.com/uhyunpark/scriptgen/pkg/sink"
	"github.com/uhyunpark/scriptgen/pkg/storage"
	"github.com/uhyunpark/scriptgen/pkg/util"
)

var testClock = util.FixedClock{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

func newTestApp(t *testing.T, opts ...Option) (*App, string, *storage.ManifestStore) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewManifestStore(filepath.Join(dir, "manifests"))
	if err != nil {
		t.Fatalf("NewManifestStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	out := filepath.Join(dir, "out")
	base := []Option{
		WithSinks(sink.NewFileSink(out)),
		WithStore(store),
		WithClock(testClock),
	}
	return New(append(base, opts...)...), out, store
}

func multiParams(seed int64) script.Params {
	return script.Params{Clients: 4, Transactions: 300, NumInstruments: 3, Cancel: true, Seed: seed}
}

func TestGenerate_WritesFileAndManifest(t *testing.T) {
	app, out, store := newTestApp(t)

	res, err := app.Generate(context.Background(), Request{Name: "test.in", Profile: "multi", Params: multiParams(11)})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, "test.in"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != string(res.Data) {
		t.Error("file contents differ from returned script")
	}

	m, err := store.GetManifest(res.Manifest.ID)
	if err != nil {
		t.Fatalf("GetManifest failed: %v", err)
	}
	if m.Digest != Digest(data) {
		t.Errorf("manifest digest %s does not match file", m.Digest)
	}
	if m.Profile != "multi" || m.Scope != string(ScopeFile) {
		t.Errorf("unexpected manifest metadata: %+v", m)
	}
	if m.Lines != 300+3 {
		t.Errorf("Lines = %d, want %d", m.Lines, 303)
	}
	if len(m.Destinations) != 1 || m.Destinations[0] != filepath.Join(out, "test.in") {
		t.Errorf("Destinations = %v", m.Destinations)
	}
	if !m.CreatedAt.Equal(testClock.T) {
		t.Errorf("CreatedAt = %v, want %v", m.CreatedAt, testClock.T)
	}
}

func TestGenerate_InvalidConfigurationWritesNothing(t *testing.T) {
	app, out, store := newTestApp(t)

	_, err := app.Generate(context.Background(), Request{Name: "bad.in", Params: script.Params{Clients: 0, NumInstruments: 1}})
	if !errors.Is(err, script.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "bad.in")); !os.IsNotExist(err) {
		t.Errorf("output file exists after invalid config: %v", err)
	}
	if runs, _ := store.ListManifests(0); len(runs) != 0 {
		t.Errorf("expected no manifests, got %d", len(runs))
	}
}

func TestGenerate_SeedFromClock(t *testing.T) {
	app, _, _ := newTestApp(t)
	p := multiParams(0)

	res, err := app.Generate(context.Background(), Request{Name: "clock.in", Params: p})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Manifest.Config.Seed != testClock.T.UnixNano() {
		t.Errorf("Seed = %d, want clock-derived %d", res.Manifest.Config.Seed, testClock.T.UnixNano())
	}
}

func TestGenerate_Scopes(t *testing.T) {
	tests := []struct {
		scope       Scope
		wantSharing bool
	}{
		{ScopeFile, false},
		{ScopeProcess, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.scope), func(t *testing.T) {
			app, _, _ := newTestApp(t, WithScope(tt.scope))
			ctx := context.Background()

			first, err := app.Generate(ctx, Request{Name: "a.in", Params: multiParams(1)})
			if err != nil {
				t.Fatalf("first Generate failed: %v", err)
			}
			second, err := app.Generate(ctx, Request{Name: "b.in", Params: multiParams(2)})
			if err != nil {
				t.Fatalf("second Generate failed: %v", err)
			}

			if first.Script.FirstID != 0 {
				t.Errorf("first script starts at %d", first.Script.FirstID)
			}
			if tt.wantSharing && second.Script.FirstID != first.Script.NextID {
				t.Errorf("process scope: second starts at %d, want %d", second.Script.FirstID, first.Script.NextID)
			}
			if !tt.wantSharing && second.Script.FirstID != 0 {
				t.Errorf("file scope: second starts at %d, want 0", second.Script.FirstID)
			}
		})
	}
}

func TestReplay(t *testing.T) {
	app, out, _ := newTestApp(t)
	ctx := context.Background()

	orig, err := app.Generate(ctx, Request{Name: "orig.in", Params: multiParams(5)})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	replayed, err := app.Replay(ctx, orig.Manifest.ID, "copy.in")
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if string(replayed.Data) != string(orig.Data) {
		t.Error("replayed script differs from original")
	}
	data, err := os.ReadFile(filepath.Join(out, "copy.in"))
	if err != nil || string(data) != string(orig.Data) {
		t.Errorf("replay output not written: %v", err)
	}

	if _, err := app.Replay(ctx, "no-such-run", ""); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Replay(missing) = %v, want ErrNotFound", err)
	}
}

func TestReplay_ProcessScopeNotReplayable(t *testing.T) {
	app, _, _ := newTestApp(t, WithScope(ScopeProcess))
	ctx := context.Background()

	if _, err := app.Generate(ctx, Request{Name: "a.in", Params: multiParams(1)}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	second, err := app.Generate(ctx, Request{Name: "b.in", Params: multiParams(2)})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := app.Replay(ctx, second.Manifest.ID, ""); !errors.Is(err, ErrNotReplayable) {
		t.Errorf("Replay = %v, want ErrNotReplayable", err)
	}
}

func TestReplay_ByName(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	if _, err := app.Generate(ctx, Request{Name: "nightly.in", Params: multiParams(1)}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	latest, err := app.Generate(ctx, Request{Name: "nightly.in", Params: multiParams(2)})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	replayed, err := app.Replay(ctx, "nightly.in", "nightly-copy.in")
	if err != nil {
		t.Fatalf("Replay by name failed: %v", err)
	}
	if replayed.Manifest.ID != latest.Manifest.ID {
		t.Errorf("replayed run %s, want latest %s", replayed.Manifest.ID, latest.Manifest.ID)
	}

	if _, err := app.Replay(ctx, latest.Manifest.ID, "../copy.in"); !errors.Is(err, script.ErrInvalidConfiguration) {
		t.Errorf("Replay with unsafe name = %v, want ErrInvalidConfiguration", err)
	}
}

func TestReplay_NoStore(t *testing.T) {
	app := New()
	if _, err := app.Replay(context.Background(), "x", ""); !errors.Is(err, ErrNoStore) {
		t.Errorf("Replay without store = %v, want ErrNoStore", err)
	}
}

func TestGenerateBatch(t *testing.T) {
	app, out, _ := newTestApp(t)

	results, err := app.GenerateBatch(context.Background(), Request{Name: "load.in", Params: multiParams(100)}, 3)
	if err != nil {
		t.Fatalf("GenerateBatch failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if want := int64(100 + i); res.Manifest.Config.Seed != want {
			t.Errorf("script %d seed = %d, want %d", i, res.Manifest.Config.Seed, want)
		}
		name := filepath.Join(out, []string{"load_0.in", "load_1.in", "load_2.in"}[i])
		if _, err := os.Stat(name); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if string(results[0].Data) == string(results[1].Data) {
		t.Error("batch scripts with different seeds are identical")
	}

	if _, err := app.GenerateBatch(context.Background(), Request{Params: multiParams(1)}, 0); !errors.Is(err, script.ErrInvalidConfiguration) {
		t.Errorf("GenerateBatch(0) = %v, want ErrInvalidConfiguration", err)
	}
}

func TestGenerate_RejectsUnsafeNames(t *testing.T) {
	app, out, store := newTestApp(t)
	parent := filepath.Dir(out)

	for _, name := range []string{"../escaped.in", filepath.Join(parent, "abs.in"), "sub/x.in", `a\b.in`, ".."} {
		_, err := app.Generate(context.Background(), Request{Name: name, Params: multiParams(1)})
		if !errors.Is(err, script.ErrInvalidConfiguration) {
			t.Errorf("Generate(%q) = %v, want ErrInvalidConfiguration", name, err)
		}
	}

	for _, name := range []string{"escaped.in", "abs.in"} {
		if _, err := os.Stat(filepath.Join(parent, name)); !os.IsNotExist(err) {
			t.Errorf("%s written outside the output dir", name)
		}
	}
	if runs, _ := store.ListManifests(0); len(runs) != 0 {
		t.Errorf("%d manifests saved for rejected names", len(runs))
	}
}

func TestGenerate_TransactionLimit(t *testing.T) {
	app, _, _ := newTestApp(t, WithMaxTransactions(50))
	ctx := context.Background()

	p := multiParams(1)
	p.Transactions = 50
	if _, err := app.Generate(ctx, Request{Name: "limit.in", Params: p}); err != nil {
		t.Fatalf("Generate at limit failed: %v", err)
	}

	p.Transactions = 51
	if _, err := app.Generate(ctx, Request{Name: "over.in", Params: p}); !errors.Is(err, script.ErrInvalidConfiguration) {
		t.Errorf("Generate over limit = %v, want ErrInvalidConfiguration", err)
	}
}

type failingSink struct{ err error }

func (f failingSink) Name() string { return "failing" }

func (f failingSink) Write(context.Context, string, []byte) (string, error) { return "", f.err }

func TestGenerate_SinkErrorPropagates(t *testing.T) {
	boom := errors.New("disk full")
	app, _, store := newTestApp(t, WithSinks(failingSink{err: boom}))

	_, err := app.Generate(context.Background(), Request{Name: "x.in", Params: multiParams(3)})
	if !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if runs, _ := store.ListManifests(0); len(runs) != 0 {
		t.Errorf("manifest saved despite sink failure")
	}
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		in      string
		want    Scope
		wantErr bool
	}{
		{"", ScopeFile, false},
		{"file", ScopeFile, false},
		{"PROCESS", ScopeProcess, false},
		{"global", "", true},
	}
	for _, tt := range tests {
		got, err := ParseScope(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseScope(%q) = %q, %v", tt.in, got, err)
		}
	}
}
