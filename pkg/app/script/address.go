package script

import "strconv"

// Address names the client or clients an operation applies to.
// The set of variants is closed: Single, Range and Subset.
type Address interface {
	// Members returns the addressed client indices in render order.
	Members() []int
	appendTo(b []byte) []byte
}

// Single addresses one client.
type Single int

// Range addresses the contiguous clients [Low, High].
type Range struct {
	Low, High int
}

// Subset addresses an explicit list of distinct clients.
type Subset []int

func (s Single) Members() []int { return []int{int(s)} }

func (s Single) appendTo(b []byte) []byte { return strconv.AppendInt(b, int64(s), 10) }

func (r Range) Members() []int {
	out := make([]int, 0, r.High-r.Low+1)
	for i := r.Low; i <= r.High; i++ {
		out = append(out, i)
	}
	return out
}

func (r Range) appendTo(b []byte) []byte {
	b = strconv.AppendInt(b, int64(r.Low), 10)
	b = append(b, '-')
	return strconv.AppendInt(b, int64(r.High), 10)
}

func (s Subset) Members() []int { return append([]int(nil), s...) }

func (s Subset) appendTo(b []byte) []byte {
	for i, c := range s {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendInt(b, int64(c), 10)
	}
	return b
}

// AllClients is the address used by connect and disconnect.
func AllClients(n int) Range { return Range{Low: 0, High: n - 1} }

// RenderAddress formats an address the way it prefixes a script line.
func RenderAddress(a Address) string { return string(a.appendTo(nil)) }
