package script

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"strconv"
)

// Rand is the randomness a generation run draws from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
	Perm(n int) []int
}

// NewRand returns the deterministic source used for a given seed.
func NewRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}

// Stats counts the operations in a script.
type Stats struct {
	Orders  int `json:"orders"`
	Buys    int `json:"buys"`
	Sells   int `json:"sells"`
	Cancels int `json:"cancels"`
	Sleeps  int `json:"sleeps"`
	Syncs   int `json:"syncs"`
	Waits   int `json:"waits"`
}

func (s *Stats) count(op Op) {
	switch o := op.(type) {
	case Order:
		s.Orders++
		if o.Side == Buy {
			s.Buys++
		} else {
			s.Sells++
		}
	case Cancel:
		s.Cancels++
	case Sleep:
		s.Sleeps++
	case Sync:
		s.Syncs++
	case Wait:
		s.Waits++
	}
}

// Script is a fully generated, rendered workload. Lines excludes the header.
type Script struct {
	Config  Config
	Ops     []Op
	Lines   []string
	Stats   Stats
	FirstID OrderID // first id this script could issue
	NextID  OrderID // allocator position after the script
}

func (s *Script) append(op Op) {
	s.Ops = append(s.Ops, op)
	s.Lines = append(s.Lines, Render(op, s.Config.SingleClient()))
	s.Stats.count(op)
}

// Header is the first line of the file: the client count.
func (s *Script) Header() string { return strconv.Itoa(s.Config.ClientCount) }

// Bytes renders the whole file, every line newline-terminated.
func (s *Script) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = s.WriteTo(&buf)
	return buf.Bytes()
}

// WriteTo writes the whole file to w.
func (s *Script) WriteTo(w io.Writer) (int64, error) {
	var total int64
	n, err := io.WriteString(w, s.Header()+"\n")
	total += int64(n)
	if err != nil {
		return total, err
	}
	for _, line := range s.Lines {
		n, err = io.WriteString(w, line+"\n")
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// preallocLines caps the up-front slice capacity; longer scripts grow on append.
const preallocLines = 4096

// Generator produces scripts from a random source.
type Generator struct {
	rng Rand
}

func NewGenerator(rng Rand) *Generator { return &Generator{rng: rng} }

// Generate runs one pass seeded from cfg.Seed.
func Generate(cfg Config, alloc *Allocator) (*Script, error) {
	return NewGenerator(NewRand(cfg.Seed)).Generate(cfg, alloc)
}

// Generate builds a script for cfg, drawing order ids from alloc. A nil alloc
// gives the script its own numbering starting at 0.
//
// On error nothing usable is returned; ids issued before the failure stay
// consumed in alloc.
func (g *Generator) Generate(cfg Config, alloc *Allocator) (*Script, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if alloc == nil {
		alloc = NewAllocator()
	}
	if !cfg.SingleClient() && cfg.CancelEnabled {
		// Earlier scripts on a shared allocator must have left every id
		// cancellable by one of this script's clients.
		if n := alloc.Untracked(); n > 0 {
			return nil, invalidf("allocator holds %d orders without recorded owners; cancel targets would be unresolvable", n)
		}
		if owner := alloc.MaxOwner(); owner >= cfg.ClientCount {
			return nil, invalidf("allocator holds orders owned by client %d, beyond %d clients", owner, cfg.ClientCount)
		}
	}

	hint := min(cfg.TransactionCount+2, preallocLines)
	s := &Script{
		Config:  cfg,
		Ops:     make([]Op, 0, hint),
		Lines:   make([]string, 0, hint),
		FirstID: OrderID(alloc.Issued()),
	}
	all := AllClients(cfg.ClientCount)
	s.append(Connect{To: all})

	rules := multiClientRules
	if cfg.SingleClient() {
		rules = singleClientRules
	}
	p := &pass{cfg: cfg, alloc: alloc, rng: g.rng}
	for i := 0; i < cfg.TransactionCount; i++ {
		op, err := p.next(rules)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		s.append(op)
	}

	s.append(Disconnect{To: all})
	s.NextID = OrderID(alloc.Issued())
	return s, nil
}
