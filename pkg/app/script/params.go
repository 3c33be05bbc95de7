package script

import (
	"math"
	"strings"
)

const (
	// AllInstruments selects the whole instrument universe.
	AllInstruments = -1

	// DefaultSpecialOpProb is the width of each special-operation band
	// (sleep, sync, wait, cancel) in the selection policy.
	DefaultSpecialOpProb = 0.04

	// MaxTransactions and MaxClients bound a single script. Callers that
	// take parameters from untrusted sources should apply tighter limits.
	MaxTransactions = 10_000_000
	MaxClients      = 1 << 16
)

// Instruments is the default instrument universe, in selection order.
var Instruments = []string{
	"AAPL", "GOOG", "MSFT", "AMZN", "TSLA",
	"FB", "NVDA", "INTC", "CSCO", "ADBE",
	"PYPL", "NFLX", "CMCSA", "PEP", "TMO",
	"AVGO", "TXN", "QCOM", "COST", "TMUS",
	"BIN", "BAC", "WFC", "JPM", "GS",
	"MS", "C", "USB", "PNC", "BK",
	"BINARYD", "BINARYC", "BINARYB", "BINARYA", "BINARYE",
}

// Params are raw, caller-supplied generation parameters.
type Params struct {
	Clients        int      `json:"clients" yaml:"clients"`
	Transactions   int      `json:"transactions" yaml:"transactions"`
	NumInstruments int      `json:"instruments" yaml:"instruments"` // AllInstruments for the full universe
	Universe       []string `json:"universe,omitempty" yaml:"universe,omitempty"`
	Cancel         bool     `json:"cancel" yaml:"cancel"`
	RoundNumbers   bool     `json:"round_numbers" yaml:"round_numbers"`
	Seed           int64    `json:"seed,omitempty" yaml:"seed,omitempty"`
	SpecialOpProb  float64  `json:"special_op_prob,omitempty" yaml:"special_op_prob,omitempty"` // 0 means DefaultSpecialOpProb
}

// Config is a validated generation configuration. Treat it as immutable once
// generation starts.
type Config struct {
	ClientCount      int      `json:"client_count"`
	TransactionCount int      `json:"transaction_count"`
	Instruments      []string `json:"instruments"`
	CancelEnabled    bool     `json:"cancel_enabled"`
	UseRoundNumbers  bool     `json:"use_round_numbers"`
	Seed             int64    `json:"seed"`
	SpecialOpProb    float64  `json:"special_op_prob"`
}

// SingleClient reports whether the reduced single-client policy applies.
func (c Config) SingleClient() bool { return c.ClientCount == 1 }

// Resolve validates raw parameters and produces a Config with the instrument
// subset resolved. It has no side effects.
func Resolve(p Params) (Config, error) {
	if p.Clients < 1 || p.Clients > MaxClients {
		return Config{}, invalidf("client count must be in [1, %d], got %d", MaxClients, p.Clients)
	}
	if p.Transactions < 0 || p.Transactions > MaxTransactions {
		return Config{}, invalidf("transaction count must be in [0, %d], got %d", MaxTransactions, p.Transactions)
	}

	universe := p.Universe
	if len(universe) == 0 {
		universe = Instruments
	}
	for i, sym := range universe {
		if sym == "" || strings.ContainsAny(sym, " \t\r\n") {
			return Config{}, invalidf("instrument %d (%q) must be a non-empty token", i, sym)
		}
	}

	var instruments []string
	switch {
	case p.NumInstruments == AllInstruments:
		instruments = universe
	case p.NumInstruments < 1:
		return Config{}, invalidf("instrument count must be >= 1 or %d for all, got %d", AllInstruments, p.NumInstruments)
	case p.NumInstruments > len(universe):
		instruments = universe
	default:
		instruments = universe[:p.NumInstruments]
	}

	prob := p.SpecialOpProb
	if prob == 0 {
		prob = DefaultSpecialOpProb
	}

	cfg := Config{
		ClientCount:      p.Clients,
		TransactionCount: p.Transactions,
		Instruments:      append([]string(nil), instruments...),
		CancelEnabled:    p.Cancel,
		UseRoundNumbers:  p.RoundNumbers,
		Seed:             p.Seed,
		SpecialOpProb:    prob,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks a Config built by hand rather than through Resolve.
func (c Config) Validate() error {
	if c.ClientCount < 1 || c.ClientCount > MaxClients {
		return invalidf("client count must be in [1, %d], got %d", MaxClients, c.ClientCount)
	}
	if c.TransactionCount < 0 || c.TransactionCount > MaxTransactions {
		return invalidf("transaction count must be in [0, %d], got %d", MaxTransactions, c.TransactionCount)
	}
	if len(c.Instruments) == 0 {
		return invalidf("instrument universe is empty")
	}
	// The single-client cancel band is 5p wide.
	p := c.SpecialOpProb
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || 5*p > 1 {
		return invalidf("special op probability must be in [0, 0.2], got %g", c.SpecialOpProb)
	}
	return nil
}
