package params

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/uhyunpark/scriptgen/pkg/app/script"
)

// Profile is a named set of generation parameters.
type Profile struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Params      script.Params `yaml:",inline"`
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// DefaultProfile mirrors the interactive tool's defaults.
func DefaultProfile() Profile {
	return Profile{
		Name:        "default",
		Description: "one client, 100 transactions, one instrument",
		Params: script.Params{
			Clients:        1,
			Transactions:   100,
			NumInstruments: 1,
			Cancel:         true,
			RoundNumbers:   true,
		},
	}
}

// MultiClientProfile exercises addressing and cross-client cancels at modest size.
func MultiClientProfile() Profile {
	return Profile{
		Name:        "multi",
		Description: "4 clients, 1000 transactions, 5 instruments",
		Params: script.Params{
			Clients:        4,
			Transactions:   1000,
			NumInstruments: 5,
			Cancel:         true,
			RoundNumbers:   true,
		},
	}
}

// StressProfile targets matching throughput: many clients, every instrument.
func StressProfile() Profile {
	return Profile{
		Name:        "stress",
		Description: "16 clients, 100k transactions, all instruments",
		Params: script.Params{
			Clients:        16,
			Transactions:   100000,
			NumInstruments: script.AllInstruments,
			Cancel:         true,
		},
	}
}

// SyncHeavyProfile widens the special-operation bands to stress barriers and waits.
func SyncHeavyProfile() Profile {
	return Profile{
		Name:        "sync-heavy",
		Description: "8 clients with 12% sleep/sync/wait/cancel bands",
		Params: script.Params{
			Clients:        8,
			Transactions:   2000,
			NumInstruments: 2,
			Cancel:         true,
			RoundNumbers:   true,
			SpecialOpProb:  0.12,
		},
	}
}

// BuiltinProfiles returns the presets keyed by name.
func BuiltinProfiles() map[string]Profile {
	out := make(map[string]Profile)
	for _, p := range []Profile{DefaultProfile(), MultiClientProfile(), StressProfile(), SyncHeavyProfile()} {
		out[p.Name] = p
	}
	return out
}

// GenerationProfile is the "default" profile built from environment settings.
func GenerationProfile(g Generation) Profile {
	return Profile{
		Name:        "default",
		Description: "defaults from SCRIPTGEN_* environment",
		Params: script.Params{
			Clients:        g.Clients,
			Transactions:   g.Transactions,
			NumInstruments: g.Instruments,
			Cancel:         g.Cancel,
			RoundNumbers:   g.RoundNumbers,
			Seed:           g.Seed,
		},
	}
}

// LoadProfiles reads a YAML profile file, expanding ${VAR} references, and
// returns the built-in presets overlaid with the file's entries. An empty
// path returns the presets alone.
func LoadProfiles(path string) (map[string]Profile, error) {
	return loadProfiles(BuiltinProfiles(), path)
}

// LoadProfilesFor is LoadProfiles with the "default" preset replaced by the
// environment's generation settings. A "default" entry in the file still wins.
func LoadProfilesFor(cfg Config) (map[string]Profile, error) {
	base := BuiltinProfiles()
	def := GenerationProfile(cfg.Generation)
	if _, err := script.Resolve(def.Params); err != nil {
		return nil, fmt.Errorf("environment defaults: %w", err)
	}
	base[def.Name] = def
	return loadProfiles(base, cfg.ProfilesPath)
}

func loadProfiles(profiles map[string]Profile, path string) (map[string]Profile, error) {
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	var file profileFile
	if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
		return nil, fmt.Errorf("parse profiles yaml: %w", err)
	}

	for i, p := range file.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profiles[%d].name is required", i)
		}
		if _, err := script.Resolve(p.Params); err != nil {
			return nil, fmt.Errorf("profile %q: %w", p.Name, err)
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}

// ProfileNames returns profile names in sorted order.
func ProfileNames(profiles map[string]Profile) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
