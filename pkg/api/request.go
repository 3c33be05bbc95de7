package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/uhyunpark/scriptgen/params"
	"github.com/uhyunpark/scriptgen/pkg/app/script"
	"github.com/uhyunpark/scriptgen/pkg/app/workload"
)

// resolve overlays the request's fields on its profile.
func (r GenerateRequest) resolve(profiles map[string]params.Profile) (script.Params, error) {
	if r.Name != "" {
		if err := workload.ValidateName(r.Name); err != nil {
			return script.Params{}, err
		}
	}
	name := r.Profile
	if name == "" {
		name = "default"
	}
	profile, ok := profiles[name]
	if !ok {
		return script.Params{}, fmt.Errorf("%w: unknown profile %q", script.ErrInvalidConfiguration, name)
	}

	p := profile.Params
	if r.Clients != nil {
		p.Clients = *r.Clients
	}
	if r.Transactions != nil {
		p.Transactions = *r.Transactions
	}
	if r.Instruments != nil {
		p.NumInstruments = *r.Instruments
	}
	if len(r.Universe) > 0 {
		p.Universe = r.Universe
	}
	if r.Cancel != nil {
		p.Cancel = *r.Cancel
	}
	if r.RoundNumbers != nil {
		p.RoundNumbers = *r.RoundNumbers
	}
	if r.Seed != nil {
		p.Seed = *r.Seed
	}
	if r.SpecialOpProb != nil {
		p.SpecialOpProb = *r.SpecialOpProb
	}
	return p, nil
}

// requestFromQuery reads a GenerateRequest from URL query parameters, for the
// WebSocket stream endpoint where there is no body.
func requestFromQuery(r *http.Request) (GenerateRequest, error) {
	q := r.URL.Query()
	req := GenerateRequest{
		Name:    q.Get("name"),
		Profile: q.Get("profile"),
	}

	intParam := func(key string) (*int, error) {
		v := q.Get(key)
		if v == "" {
			return nil, nil
		}
		if key == "instruments" && strings.EqualFold(v, "all") {
			n := script.AllInstruments
			return &n, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer, got %q", script.ErrInvalidConfiguration, key, v)
		}
		return &n, nil
	}
	boolParam := func(key string) (*bool, error) {
		v := q.Get(key)
		if v == "" {
			return nil, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a boolean, got %q", script.ErrInvalidConfiguration, key, v)
		}
		return &b, nil
	}

	var err error
	if req.Clients, err = intParam("clients"); err != nil {
		return req, err
	}
	if req.Transactions, err = intParam("transactions"); err != nil {
		return req, err
	}
	if req.Instruments, err = intParam("instruments"); err != nil {
		return req, err
	}
	if req.Cancel, err = boolParam("cancel"); err != nil {
		return req, err
	}
	if req.RoundNumbers, err = boolParam("round"); err != nil {
		return req, err
	}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, fmt.Errorf("%w: seed must be an integer, got %q", script.ErrInvalidConfiguration, v)
		}
		req.Seed = &seed
	}
	return req, nil
}
