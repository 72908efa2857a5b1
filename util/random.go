package util

import (
	"fmt"
	"strings"

	"golang.org/x/exp/rand"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// Random generates test fixtures from a seeded source.
type Random struct {
	rnd *rand.Rand
}

func NewRandom(seed uint64) *Random {
	return &Random{rnd: rand.New(rand.NewSource(seed))}
}

// Int generates a random integer between min and max
func (r *Random) Int(min, max int) int {
	return min + r.rnd.Intn(max-min+1)
}

// Float generates a random float in [min, max)
func (r *Random) Float(min, max float64) float64 {
	return min + (max-min)*r.rnd.Float64()
}

// String generates a random string of length n
func (r *Random) String(n int) string {
	var sb strings.Builder
	k := len(alphabet)
	for i := 0; i < n; i++ {
		sb.WriteByte(alphabet[r.rnd.Intn(k)])
	}
	return sb.String()
}

// Stock generates a random ticker
func (r *Random) Stock() string {
	return strings.ToUpper(r.String(4))
}

// Email generates a random email
func (r *Random) Email() string {
	return fmt.Sprintf("%s@email.com", r.String(6))
}

// Spots generates n positive spots around level.
func (r *Random) Spots(n int, level float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = level * r.Float(0.8, 1.2)
	}
	return out
}
