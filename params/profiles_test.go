package params

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/uhyunpark/scriptgen/pkg/app/script"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestBuiltinProfilesResolve(t *testing.T) {
	for name, p := range BuiltinProfiles() {
		if _, err := script.Resolve(p.Params); err != nil {
			t.Errorf("builtin profile %q does not resolve: %v", name, err)
		}
	}
}

func TestLoadProfiles(t *testing.T) {
	t.Setenv("TEST_CLIENTS", "12")

	yaml := `
profiles:
  - name: nightly
    description: nightly regression
    clients: ${TEST_CLIENTS}
    transactions: 5000
    instruments: -1
    cancel: true
    seed: 99
  - name: default
    clients: 2
    transactions: 10
    instruments: 1
`
	profiles, err := LoadProfiles(writeTempFile(t, yaml))
	if err != nil {
		t.Fatalf("LoadProfiles failed: %v", err)
	}

	nightly, ok := profiles["nightly"]
	if !ok {
		t.Fatal("nightly profile missing")
	}
	if nightly.Params.Clients != 12 {
		t.Errorf("Clients = %d, want 12", nightly.Params.Clients)
	}
	if nightly.Params.NumInstruments != script.AllInstruments {
		t.Errorf("NumInstruments = %d, want all", nightly.Params.NumInstruments)
	}
	if !nightly.Params.Cancel || nightly.Params.Seed != 99 {
		t.Errorf("unexpected params %+v", nightly.Params)
	}
	if profiles["default"].Params.Clients != 2 {
		t.Errorf("file entry did not override builtin default")
	}
	if _, ok := profiles["stress"]; !ok {
		t.Error("builtin profiles dropped")
	}
}

func TestLoadProfiles_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "profiles:\n  - clients: 2\n    instruments: 1\n",
			wantErr: "profiles[0].name is required",
		},
		{
			name:    "invalid params",
			yaml:    "profiles:\n  - name: broken\n    clients: 0\n    instruments: 1\n",
			wantErr: `profile "broken": invalid configuration`,
		},
		{
			name:    "bad yaml",
			yaml:    "profiles: [",
			wantErr: "parse profiles yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProfiles(writeTempFile(t, tt.yaml))
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestProfileNamesSorted(t *testing.T) {
	names := ProfileNames(BuiltinProfiles())
	want := []string{"default", "multi", "stress", "sync-heavy"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("ProfileNames() = %v, want %v", names, want)
	}
}

func TestLoadProfilesFor_EnvironmentDefault(t *testing.T) {
	cfg := Default()
	cfg.Generation.Clients = 7
	cfg.Generation.Transactions = 42
	cfg.Generation.Instruments = -1
	cfg.Generation.Cancel = false
	cfg.Generation.Seed = 9

	profiles, err := LoadProfilesFor(cfg)
	if err != nil {
		t.Fatalf("LoadProfilesFor failed: %v", err)
	}
	def := profiles["default"].Params
	if def.Clients != 7 || def.Transactions != 42 || def.NumInstruments != script.AllInstruments ||
		def.Cancel || def.Seed != 9 {
		t.Errorf("default profile = %+v, want environment settings", def)
	}
	if _, ok := profiles["stress"]; !ok {
		t.Error("built-in presets dropped")
	}

	cfg.ProfilesPath = writeTempFile(t, `
profiles:
  - name: default
    clients: 3
    transactions: 10
    instruments: 1
`)
	profiles, err = LoadProfilesFor(cfg)
	if err != nil {
		t.Fatalf("LoadProfilesFor with file failed: %v", err)
	}
	if got := profiles["default"].Params.Clients; got != 3 {
		t.Errorf("file default clients = %d, want 3", got)
	}

	cfg.ProfilesPath = ""
	cfg.Generation.Clients = 0
	if _, err := LoadProfilesFor(cfg); err == nil {
		t.Error("expected error for invalid environment defaults")
	}
}
