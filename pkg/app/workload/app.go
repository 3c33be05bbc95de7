// Package workload turns generation requests into written scripts: it resolves
// parameters, owns the order-id allocator's scope, hands the rendered script to
// every sink and records a manifest of the run.
package workload

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/uhyunpark/scriptgen/pkg/app/script"
	"github.com/uhyunpark/scriptgen/pkg/sink"
	"github.com/uhyunpark/scriptgen/pkg/storage"
	"github.com/uhyunpark/scriptgen/pkg/util"
)

// Scope decides how long an order-id allocator lives.
type Scope string

const (
	// ScopeFile gives every script its own numbering from 0.
	ScopeFile Scope = "file"
	// ScopeProcess shares one allocator across every script the App produces.
	ScopeProcess Scope = "process"
)

func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(s)) {
	case ScopeFile, "":
		return ScopeFile, nil
	case ScopeProcess:
		return ScopeProcess, nil
	}
	return "", fmt.Errorf("unknown allocator scope %q (want file or process)", s)
}

var (
	ErrNotReplayable  = errors.New("script continued a shared allocator and cannot be replayed")
	ErrDigestMismatch = errors.New("replayed script does not match recorded digest")
	ErrNoStore        = errors.New("manifest store is not configured")
)

// ManifestStore is the subset of storage.ManifestStore the App needs.
type ManifestStore interface {
	SaveManifest(m *storage.Manifest) error
	GetManifest(id string) (*storage.Manifest, error)
	FindByName(name string) (*storage.Manifest, error)
}

// ValidateName checks that an output name is a plain file name. Sinks place
// it under their own directory, so it may not carry a path of its own.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: invalid script name %q", script.ErrInvalidConfiguration, name)
	case filepath.IsAbs(name), strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: script name %q must be a plain file name", script.ErrInvalidConfiguration, name)
	}
	return nil
}

// Request asks for one script.
type Request struct {
	Name    string // output name; generated from the run id when empty
	Profile string // informational, recorded in the manifest
	Params  script.Params
}

// Result is a generated and delivered script.
type Result struct {
	Manifest *storage.Manifest
	Script   *script.Script
	Data     []byte
}

type App struct {
	mu    sync.Mutex // serializes generation passes
	scope Scope
	alloc *script.Allocator

	maxTransactions int

	sinks  []sink.Sink
	store  ManifestStore
	clock  util.Clock
	logger *zap.SugaredLogger
}

type Option func(*App)

func WithScope(s Scope) Option { return func(a *App) { a.scope = s } }

func WithSinks(sinks ...sink.Sink) Option {
	return func(a *App) { a.sinks = append(a.sinks, sinks...) }
}

func WithStore(s ManifestStore) Option { return func(a *App) { a.store = s } }

func WithClock(c util.Clock) Option { return func(a *App) { a.clock = c } }

func WithLogger(l *zap.SugaredLogger) Option { return func(a *App) { a.logger = l } }

// WithMaxTransactions lowers the per-script transaction limit below
// script.MaxTransactions. Values <= 0 keep the default.
func WithMaxTransactions(n int) Option {
	return func(a *App) {
		if n > 0 {
			a.maxTransactions = n
		}
	}
}

func New(opts ...Option) *App {
	a := &App{
		scope:           ScopeFile,
		maxTransactions: script.MaxTransactions,
		clock:           util.RealClock{},
		logger:          zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.scope == ScopeProcess {
		a.alloc = script.NewAllocator()
	}
	return a
}

func (a *App) Scope() Scope { return a.scope }

// Digest returns the hex blake2b-256 digest recorded for a script.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Generate resolves req, generates the script, writes it to every sink and
// saves its manifest. Invalid parameters fail before any output is written.
func (a *App) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.Name != "" {
		if err := ValidateName(req.Name); err != nil {
			return nil, err
		}
	}
	cfg, err := script.Resolve(req.Params)
	if err != nil {
		return nil, err
	}
	if cfg.TransactionCount > a.maxTransactions {
		return nil, fmt.Errorf("%w: transaction count %d exceeds limit %d",
			script.ErrInvalidConfiguration, cfg.TransactionCount, a.maxTransactions)
	}
	if cfg.Seed == 0 {
		cfg.Seed = a.clock.Now().UnixNano()
	}

	s, err := a.generate(cfg)
	if err != nil {
		a.logger.Errorw("generation_failed", "name", req.Name, "err", err)
		return nil, err
	}
	return a.deliver(ctx, req.Name, req.Profile, s)
}

// GenerateBatch writes count scripts named <base>_<i>.in. With an explicit
// seed, script i uses seed+i so the files differ.
func (a *App) GenerateBatch(ctx context.Context, req Request, count int) ([]*Result, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: batch count must be >= 1, got %d", script.ErrInvalidConfiguration, count)
	}
	base := strings.TrimSuffix(req.Name, ".in")
	if base == "" {
		base = "test"
	}

	results := make([]*Result, 0, count)
	for i := 0; i < count; i++ {
		r := req
		r.Name = fmt.Sprintf("%s_%d.in", base, i)
		if req.Params.Seed != 0 {
			r.Params.Seed = req.Params.Seed + int64(i)
		}
		res, err := a.Generate(ctx, r)
		if err != nil {
			return results, fmt.Errorf("script %s: %w", r.Name, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Replay regenerates a stored run from its recorded config and seed, checks
// the digest still matches, and writes it to the sinks under name (the
// original name when empty). ref is a run id or, failing that, a script name
// whose latest run is replayed. No new manifest is saved.
func (a *App) Replay(ctx context.Context, ref, name string) (*Result, error) {
	if a.store == nil {
		return nil, ErrNoStore
	}
	if name != "" {
		if err := ValidateName(name); err != nil {
			return nil, err
		}
	}
	m, err := a.store.GetManifest(ref)
	if errors.Is(err, storage.ErrNotFound) {
		m, err = a.store.FindByName(ref)
	}
	if err != nil {
		return nil, err
	}
	if !m.Replayable() {
		return nil, ErrNotReplayable
	}

	s, err := script.Generate(m.Config, script.NewAllocator())
	if err != nil {
		return nil, err
	}
	data := s.Bytes()
	if got := Digest(data); got != m.Digest {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrDigestMismatch, got, m.Digest)
	}

	if name == "" {
		name = m.Name
	}
	dests, err := a.write(ctx, name, data)
	if err != nil {
		return nil, err
	}
	a.logger.Infow("script_replayed", "run_id", m.ID, "name", name, "destinations", dests)
	return &Result{Manifest: m, Script: s, Data: data}, nil
}

func (a *App) generate(cfg script.Config) (*script.Script, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	alloc := a.alloc
	if alloc == nil {
		alloc = script.NewAllocator()
	}
	return script.Generate(cfg, alloc)
}

func (a *App) deliver(ctx context.Context, name, profile string, s *script.Script) (*Result, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("new run id: %w", err)
	}
	if name == "" {
		name = "script-" + id.String()[:8] + ".in"
	}
	data := s.Bytes()

	dests, err := a.write(ctx, name, data)
	if err != nil {
		return nil, err
	}

	m := &storage.Manifest{
		ID:           id.String(),
		Name:         name,
		Profile:      profile,
		CreatedAt:    a.clock.Now().UTC(),
		Config:       s.Config,
		Scope:        string(a.scope),
		Digest:       Digest(data),
		Bytes:        len(data),
		Lines:        len(s.Lines) + 1,
		Stats:        s.Stats,
		FirstOrderID: s.FirstID,
		NextOrderID:  s.NextID,
		Destinations: dests,
	}
	if a.store != nil {
		if err := a.store.SaveManifest(m); err != nil {
			return nil, fmt.Errorf("save manifest: %w", err)
		}
	}

	a.logger.Infow("script_generated",
		"run_id", m.ID,
		"name", name,
		"clients", s.Config.ClientCount,
		"transactions", s.Config.TransactionCount,
		"seed", s.Config.Seed,
		"orders", s.Stats.Orders,
		"cancels", s.Stats.Cancels,
		"first_order_id", s.FirstID,
		"next_order_id", s.NextID,
		"destinations", dests,
	)
	return &Result{Manifest: m, Script: s, Data: data}, nil
}

func (a *App) write(ctx context.Context, name string, data []byte) ([]string, error) {
	dests := make([]string, 0, len(a.sinks))
	for _, sk := range a.sinks {
		if err := ctx.Err(); err != nil {
			return dests, err
		}
		dest, err := sk.Write(ctx, name, data)
		if err != nil {
			return dests, fmt.Errorf("%s sink: %w", sk.Name(), err)
		}
		dests = append(dests, dest)
	}
	return dests, nil
}
