// internal/service/rand.go
package service

import (
	"math/rand"
	"time"
)

// Rand is the random source injected into the engines. Engines never read
// process-wide random state, so tests can supply a seeded or scripted source
// and assert exact rewards.
type Rand interface {
	Float64() float64
}

// NewRand returns a Rand seeded with the given value.
func NewRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}

// NewTimeSeededRand returns a Rand seeded from the wall clock, for production
// wiring.
func NewTimeSeededRand() Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
