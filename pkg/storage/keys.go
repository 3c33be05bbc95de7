package storage

// Key schema:
//   run:<id>    → Manifest (JSON). Ids are UUIDv7 so key order is creation order.
//   name:<name> → id of the latest manifest written under that name

const (
	prefixRun  = "run:"
	prefixName = "name:"
)

func runKey(id string) []byte { return []byte(prefixRun + id) }

func nameKey(name string) []byte { return []byte(prefixName + name) }

// keyUpperBound returns the smallest key greater than every key with prefix.
func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
