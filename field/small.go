package field

import "math/big"

// goldilocksPrime is 2^64 - 2^32 + 1, the modulus of the field used by the
// zero-knowledge proving systems this resolver was built for.
const goldilocksPrime uint64 = 0xFFFFFFFF00000001

var modulus = new(big.Int).SetUint64(goldilocksPrime)

// Small is a field element modulo the Goldilocks prime. It exists so this
// module is self-contained and testable; production callers bring their own
// Element implementation from their field-arithmetic library.
type Small struct {
	v uint64
}

// NewSmall reduces v modulo the field's prime and returns the resulting
// element.
func NewSmall(v uint64) Small {
	return Small{v: v % goldilocksPrime}
}

// Zero returns the additive identity.
func (Small) Zero() Small {
	return Small{}
}

// Add returns s + other, reduced modulo the field's prime.
func (s Small) Add(other Small) Small {
	sum := new(big.Int).SetUint64(s.v)
	sum.Add(sum, new(big.Int).SetUint64(other.v))
	sum.Mod(sum, modulus)
	return Small{v: sum.Uint64()}
}

// Mul returns s * other, reduced modulo the field's prime.
func (s Small) Mul(other Small) Small {
	prod := new(big.Int).SetUint64(s.v)
	prod.Mul(prod, new(big.Int).SetUint64(other.v))
	prod.Mod(prod, modulus)
	return Small{v: prod.Uint64()}
}

// Uint64 returns the element's canonical representative.
func (s Small) Uint64() uint64 {
	return s.v
}
