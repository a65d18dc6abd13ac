package naming

import "sync"

// Claims tracks which record claimed each output path within one pass.
// Generated names are not made unique; Claims only lets the caller notice
// when two records map onto the same file. All methods are goroutine-safe.
type Claims struct {
	mu     sync.Mutex
	owners map[string]int // output path → index of the first record naming it
}

// NewClaims creates an empty claim table.
func NewClaims() *Claims {
	return &Claims{owners: make(map[string]int)}
}

// Claim records that record index names path. When another record
// already claimed path, its index is returned with collided set.
func (c *Claims) Claim(index int, path string) (owner int, collided bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner, exists := c.owners[path]
	if !exists || owner == index {
		c.owners[path] = index
		return index, false
	}
	return owner, true
}
