package script

import "strconv"

// Kind identifies an operation type.
type Kind uint8

const (
	KindConnect Kind = iota
	KindDisconnect
	KindOrder
	KindCancel
	KindSleep
	KindSync
	KindWait
)

func (k Kind) String() string {
	switch k {
	case KindConnect:
		return "connect"
	case KindDisconnect:
		return "disconnect"
	case KindOrder:
		return "order"
	case KindCancel:
		return "cancel"
	case KindSleep:
		return "sleep"
	case KindSync:
		return "sync"
	case KindWait:
		return "wait"
	default:
		return "unknown"
	}
}

// Side is the order side, encoded as its directive letter.
type Side byte

const (
	Buy  Side = 'B'
	Sell Side = 'S'
)

func (s Side) String() string { return string(s) }

// Op is one client-addressed script directive.
type Op interface {
	Kind() Kind
	Addr() Address
	// appendBody writes the directive without its address prefix.
	appendBody(b []byte, single bool) []byte
}

type Connect struct{ To Address }

type Disconnect struct{ To Address }

type Order struct {
	Client     Single
	Side       Side
	ID         OrderID
	Instrument string
	Price      int
	Count      int
}

type Cancel struct {
	Client Single
	Target OrderID
}

type Sleep struct {
	To     Address
	Millis int
}

type Sync struct{ To Subset }

type Wait struct {
	To     Address
	Target OrderID
}

func (Connect) Kind() Kind    { return KindConnect }
func (Disconnect) Kind() Kind { return KindDisconnect }
func (Order) Kind() Kind      { return KindOrder }
func (Cancel) Kind() Kind     { return KindCancel }
func (Sleep) Kind() Kind      { return KindSleep }
func (Sync) Kind() Kind       { return KindSync }
func (Wait) Kind() Kind       { return KindWait }

func (o Connect) Addr() Address    { return o.To }
func (o Disconnect) Addr() Address { return o.To }
func (o Order) Addr() Address      { return o.Client }
func (o Cancel) Addr() Address     { return o.Client }
func (o Sleep) Addr() Address      { return o.To }
func (o Sync) Addr() Address       { return o.To }
func (o Wait) Addr() Address       { return o.To }

func (Connect) appendBody(b []byte, _ bool) []byte    { return append(b, 'o') }
func (Disconnect) appendBody(b []byte, _ bool) []byte { return append(b, 'x') }

// Single-client order lines carry no price; the consuming harness expects
// "<side> <id> <instrument> <count>" in that mode.
func (o Order) appendBody(b []byte, single bool) []byte {
	b = append(b, byte(o.Side), ' ')
	b = strconv.AppendInt(b, int64(o.ID), 10)
	b = append(b, ' ')
	b = append(b, o.Instrument...)
	b = append(b, ' ')
	if !single {
		b = strconv.AppendInt(b, int64(o.Price), 10)
		b = append(b, ' ')
	}
	return strconv.AppendInt(b, int64(o.Count), 10)
}

func (o Cancel) appendBody(b []byte, _ bool) []byte {
	b = append(b, 'C', ' ')
	return strconv.AppendInt(b, int64(o.Target), 10)
}

func (o Sleep) appendBody(b []byte, _ bool) []byte {
	b = append(b, 's', ' ')
	return strconv.AppendInt(b, int64(o.Millis), 10)
}

func (Sync) appendBody(b []byte, _ bool) []byte { return append(b, '.') }

func (o Wait) appendBody(b []byte, _ bool) []byte {
	b = append(b, 'w', ' ')
	return strconv.AppendInt(b, int64(o.Target), 10)
}

// Render formats op as one script line without the trailing newline.
// In single-client mode the address prefix is omitted.
func Render(op Op, single bool) string {
	var b []byte
	if !single {
		b = op.Addr().appendTo(b)
		b = append(b, ' ')
	}
	return string(op.appendBody(b, single))
}
