package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

var ErrNotFound = errors.New("manifest not found")

// ManifestStore persists run manifests in Pebble.
// Safe for concurrent use; Pebble serializes writes internally.
type ManifestStore struct {
	db *pebble.DB
}

func NewManifestStore(path string) (*ManifestStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", path, err)
	}
	return &ManifestStore{db: db}, nil
}

func (s *ManifestStore) Close() error { return s.db.Close() }

// SaveManifest writes m and points its name at it, atomically.
func (s *ManifestStore) SaveManifest(m *Manifest) error {
	if m.ID == "" {
		return errors.New("manifest id is required")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(runKey(m.ID), data, nil); err != nil {
		return fmt.Errorf("failed to stage manifest: %w", err)
	}
	if m.Name != "" {
		if err := batch.Set(nameKey(m.Name), []byte(m.ID), nil); err != nil {
			return fmt.Errorf("failed to stage name index: %w", err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}
	return nil
}

// GetManifest loads a manifest by id.
func (s *ManifestStore) GetManifest(id string) (*Manifest, error) {
	data, closer, err := s.db.Get(runKey(id))
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest: %w", err)
	}
	defer closer.Close()

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &m, nil
}

// FindByName returns the latest manifest saved under name.
func (s *ManifestStore) FindByName(name string) (*Manifest, error) {
	id, closer, err := s.db.Get(nameKey(name))
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get name index: %w", err)
	}
	ref := string(id)
	closer.Close()
	return s.GetManifest(ref)
}

// ListManifests returns up to limit manifests, newest first. limit <= 0 means all.
func (s *ManifestStore) ListManifests(limit int) ([]*Manifest, error) {
	prefix := []byte(prefixRun)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var out []*Manifest
	for iter.Last(); iter.Valid(); iter.Prev() {
		if limit > 0 && len(out) >= limit {
			break
		}
		var m Manifest
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			continue // Skip invalid entries
		}
		out = append(out, &m)
	}
	return out, iter.Error()
}
