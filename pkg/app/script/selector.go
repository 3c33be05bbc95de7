package script

// rule is one probability band of the selection policy. Bands are laid out in
// slice order, each width*SpecialOpProb wide, starting at 0. A draw that lands
// in a band whose guard fails falls through to an order.
type rule struct {
	kind     Kind
	width    int
	eligible func(p *pass) bool
	build    func(p *pass) (Op, error)
}

var multiClientRules = []rule{
	{kind: KindSleep, width: 1, eligible: always, build: (*pass).sleep},
	{kind: KindSync, width: 1, eligible: (*pass).multiClient, build: (*pass).sync},
	{kind: KindWait, width: 1, eligible: (*pass).hasOrders, build: (*pass).wait},
	{kind: KindCancel, width: 1, eligible: (*pass).canCancel, build: (*pass).cancel},
}

// With one client there is nothing to address or synchronize, so the policy
// collapses to cancel-or-order.
var singleClientRules = []rule{
	{kind: KindCancel, width: 5, eligible: (*pass).canCancel, build: (*pass).cancel},
}

// pass holds the state of one generation run.
type pass struct {
	cfg   Config
	alloc *Allocator
	rng   Rand
}

func always(*pass) bool { return true }

func (p *pass) multiClient() bool { return p.cfg.ClientCount > 1 }

func (p *pass) hasOrders() bool { return p.alloc.HasAnyIssued() }

func (p *pass) canCancel() bool { return p.cfg.CancelEnabled && p.alloc.HasAnyIssued() }

// next draws one operation.
func (p *pass) next(rules []rule) (Op, error) {
	u := p.rng.Float64()
	end := 0
	for _, r := range rules {
		lo := float64(end) * p.cfg.SpecialOpProb
		end += r.width
		hi := float64(end) * p.cfg.SpecialOpProb
		if u < lo || u >= hi {
			continue
		}
		if r.eligible(p) {
			return r.build(p)
		}
		break
	}
	return p.order()
}

func (p *pass) order() (Op, error) {
	client := 0
	if !p.cfg.SingleClient() {
		client = p.rng.Intn(p.cfg.ClientCount)
	}
	side := Buy
	if p.rng.Intn(2) == 1 {
		side = Sell
	}
	instrument := p.cfg.Instruments[p.rng.Intn(len(p.cfg.Instruments))]
	count := p.quantity()
	price := p.quantity()

	id := p.alloc.Next()
	if p.cfg.CancelEnabled {
		p.alloc.Record(id, client)
	}
	return Order{
		Client:     Single(client),
		Side:       side,
		ID:         id,
		Instrument: instrument,
		Price:      price,
		Count:      count,
	}, nil
}

// quantity draws a price or a count.
func (p *pass) quantity() int {
	if p.cfg.UseRoundNumbers {
		return 10 * (p.rng.Intn(10) + 1)
	}
	return p.rng.Intn(100) + 1
}

func (p *pass) sleep() (Op, error) {
	to := p.target()
	return Sleep{To: to, Millis: p.rng.Intn(1001)}, nil
}

func (p *pass) sync() (Op, error) {
	return Sync{To: p.subset()}, nil
}

func (p *pass) wait() (Op, error) {
	to := p.target()
	id, err := p.reference("wait")
	if err != nil {
		return nil, err
	}
	return Wait{To: to, Target: id}, nil
}

func (p *pass) cancel() (Op, error) {
	id, err := p.reference("cancel")
	if err != nil {
		return nil, err
	}
	if p.cfg.SingleClient() {
		return Cancel{Client: 0, Target: id}, nil
	}
	owner, err := p.alloc.Owner(id)
	if err != nil {
		return nil, err
	}
	if owner >= p.cfg.ClientCount {
		return nil, &IntegrityError{Op: "cancel", OrderID: id, Reason: "owner is outside the client range"}
	}
	return Cancel{Client: Single(owner), Target: id}, nil
}

// reference picks an already-issued order id.
func (p *pass) reference(op string) (OrderID, error) {
	n := p.alloc.Issued()
	if n == 0 {
		return 0, &IntegrityError{Op: op, OrderID: -1, Reason: "no order has been issued"}
	}
	return OrderID(p.rng.Intn(n)), nil
}

// target flips a fair coin between a random subset and a single client.
func (p *pass) target() Address {
	if p.rng.Float64() < 0.5 {
		return p.subset()
	}
	return Single(p.rng.Intn(p.cfg.ClientCount))
}

// subset samples between 2 and ClientCount distinct clients without replacement.
func (p *pass) subset() Subset {
	k := 2 + p.rng.Intn(p.cfg.ClientCount-1)
	return Subset(p.rng.Perm(p.cfg.ClientCount)[:k])
}
