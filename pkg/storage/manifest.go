package storage

import (
	"time"

	"github.com/uhyunpark/scriptgen/pkg/app/script"
)

// Manifest records everything needed to identify and reproduce a generated script.
type Manifest struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Profile      string         `json:"profile,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	Config       script.Config  `json:"config"`
	Scope        string         `json:"scope"`
	Digest       string         `json:"digest"` // blake2b-256 of the script bytes, hex
	Bytes        int            `json:"bytes"`
	Lines        int            `json:"lines"`
	Stats        script.Stats   `json:"stats"`
	FirstOrderID script.OrderID `json:"first_order_id"`
	NextOrderID  script.OrderID `json:"next_order_id"`
	Destinations []string       `json:"destinations"`
}

// Replayable reports whether regenerating from Config alone reproduces the
// script byte for byte. Scripts that continued a shared allocator depend on
// state that is not recorded.
func (m *Manifest) Replayable() bool { return m.FirstOrderID == 0 }
