package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/uhyunpark/scriptgen/pkg/app/script"
)

func openStore(t *testing.T) *ManifestStore {
	t.Helper()
	s, err := NewManifestStore(filepath.Join(t.TempDir(), "manifests"))
	if err != nil {
		t.Fatalf("NewManifestStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newManifest(t *testing.T, name string) *Manifest {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("uuid: %v", err)
	}
	return &Manifest{
		ID:        id.String(),
		Name:      name,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Config: script.Config{
			ClientCount:      2,
			TransactionCount: 10,
			Instruments:      []string{"AAPL"},
			CancelEnabled:    true,
			Seed:             7,
			SpecialOpProb:    script.DefaultSpecialOpProb,
		},
		Scope:        "file",
		Digest:       "abc123",
		Stats:        script.Stats{Orders: 9, Buys: 4, Sells: 5, Cancels: 1},
		NextOrderID:  9,
		Destinations: []string{"out/test.in"},
	}
}

func TestManifestStore_SaveAndGet(t *testing.T) {
	s := openStore(t)
	m := newManifest(t, "test.in")

	if err := s.SaveManifest(m); err != nil {
		t.Fatalf("SaveManifest failed: %v", err)
	}

	got, err := s.GetManifest(m.ID)
	if err != nil {
		t.Fatalf("GetManifest failed: %v", err)
	}
	if got.Name != m.Name || got.Digest != m.Digest || got.Config.Seed != 7 {
		t.Errorf("round-tripped manifest differs: %+v", got)
	}
	if got.Stats != m.Stats {
		t.Errorf("Stats = %+v, want %+v", got.Stats, m.Stats)
	}
	if !got.CreatedAt.Equal(m.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, m.CreatedAt)
	}
	if !got.Replayable() {
		t.Error("manifest starting at id 0 should be replayable")
	}
}

func TestManifestStore_NotFound(t *testing.T) {
	s := openStore(t)
	if _, err := s.GetManifest("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetManifest(missing) = %v, want ErrNotFound", err)
	}
	if _, err := s.FindByName("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByName(missing) = %v, want ErrNotFound", err)
	}
}

func TestManifestStore_FindByNameReturnsLatest(t *testing.T) {
	s := openStore(t)
	first := newManifest(t, "nightly.in")
	second := newManifest(t, "nightly.in")
	second.Digest = "def456"

	for _, m := range []*Manifest{first, second} {
		if err := s.SaveManifest(m); err != nil {
			t.Fatalf("SaveManifest failed: %v", err)
		}
	}

	got, err := s.FindByName("nightly.in")
	if err != nil {
		t.Fatalf("FindByName failed: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("FindByName returned %s, want latest %s", got.ID, second.ID)
	}
}

func TestManifestStore_ListNewestFirst(t *testing.T) {
	s := openStore(t)
	var ids []string
	for i := 0; i < 5; i++ {
		m := newManifest(t, "run.in")
		ids = append(ids, m.ID)
		if err := s.SaveManifest(m); err != nil {
			t.Fatalf("SaveManifest failed: %v", err)
		}
	}

	all, err := s.ListManifests(0)
	if err != nil {
		t.Fatalf("ListManifests failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 manifests, got %d", len(all))
	}
	for i, m := range all {
		if want := ids[len(ids)-1-i]; m.ID != want {
			t.Errorf("all[%d] = %s, want %s", i, m.ID, want)
		}
	}

	limited, err := s.ListManifests(2)
	if err != nil {
		t.Fatalf("ListManifests(2) failed: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != ids[4] {
		t.Errorf("ListManifests(2) returned %d manifests", len(limited))
	}
}

func TestManifestStore_RequiresID(t *testing.T) {
	s := openStore(t)
	if err := s.SaveManifest(&Manifest{Name: "x"}); err == nil {
		t.Error("expected error for manifest without id")
	}
}

func TestKeyUpperBound(t *testing.T) {
	if got := string(keyUpperBound([]byte("run:"))); got != "run;" {
		t.Errorf("keyUpperBound(run:) = %q, want %q", got, "run;")
	}
	if got := keyUpperBound([]byte{0xff, 0xff}); got != nil {
		t.Errorf("keyUpperBound(ff ff) = %v, want nil", got)
	}
}
