package script

// OrderID identifies a submitted order. Ids are issued in strictly increasing
// order starting at 0.
type OrderID int

// Allocator issues order ids and remembers which client submitted each one.
//
// Its lifetime is the caller's choice: construct one per script for per-file
// numbering, or share one across scripts to keep numbering running for the
// whole process. An Allocator is not safe for concurrent use.
type Allocator struct {
	next     OrderID
	owners   map[OrderID]int
	maxOwner int
}

// NewAllocator returns an allocator whose first id is 0.
func NewAllocator() *Allocator {
	return &Allocator{owners: make(map[OrderID]int), maxOwner: -1}
}

// Next issues the next order id.
func (a *Allocator) Next() OrderID {
	id := a.next
	a.next++
	return id
}

// HasAnyIssued reports whether at least one id has been issued.
func (a *Allocator) HasAnyIssued() bool { return a.next > 0 }

// Issued returns how many ids have been issued, which is also the next id.
func (a *Allocator) Issued() int { return int(a.next) }

// Record stores the client that owns id.
func (a *Allocator) Record(id OrderID, client int) {
	a.owners[id] = client
	if client > a.maxOwner {
		a.maxOwner = client
	}
}

// Owner returns the client that submitted id. Looking up an id without a
// recorded owner is an IntegrityError.
func (a *Allocator) Owner(id OrderID) (int, error) {
	if id < 0 || id >= a.next {
		return 0, &IntegrityError{Op: "owner", OrderID: id, Reason: "id was never issued"}
	}
	client, ok := a.owners[id]
	if !ok {
		return 0, &IntegrityError{Op: "owner", OrderID: id, Reason: "no recorded owner"}
	}
	return client, nil
}

// Untracked returns how many issued ids have no recorded owner.
func (a *Allocator) Untracked() int { return int(a.next) - len(a.owners) }

// MaxOwner returns the highest recorded client index, or -1 if none.
func (a *Allocator) MaxOwner() int { return a.maxOwner }

// Reset restarts numbering at 0 and forgets all owners.
func (a *Allocator) Reset() {
	a.next = 0
	a.owners = make(map[OrderID]int)
	a.maxOwner = -1
}
