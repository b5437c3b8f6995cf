// Package server assigns ephemeral display names to connections for the
// lifetime of a single room membership.
package server

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// identityWords is the fixed vocabulary of category words used for display
// names.
var identityWords = []string{
	"Otter", "Heron", "Badger", "Lynx",
	"Marten", "Plover", "Wren", "Vole",
}

// IdentityAssignor generates ephemeral display names. Names are a category
// word plus a 4-digit suffix in [1000, 9999]. No uniqueness is enforced:
// a collision within or across rooms is cosmetic, not a correctness problem.
type IdentityAssignor struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewIdentityAssignor creates an assignor with its own random source.
func NewIdentityAssignor() *IdentityAssignor {
	return &IdentityAssignor{
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Generate returns a fresh display name.
func (a *IdentityAssignor) Generate() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	word := identityWords[a.rng.IntN(len(identityWords))]
	return fmt.Sprintf("%s-%d", word, 1000+a.rng.IntN(9000))
}
