// Package field supplies the finite-field arithmetic the resolver is
// parameterized over. The resolver itself is algorithm-agnostic: it moves
// Element values between slots and hands them to caller-supplied closures,
// never inspecting or validating the arithmetic.
package field

// Element is the value type a CircuitResolver computes over. It is supplied
// by the surrounding circuit toolkit's field-arithmetic library; this
// package's Small implementation exists so the resolver is usable and
// testable standalone.
type Element[T any] interface {
	// Zero returns the additive identity.
	Zero() T
	// Add returns the sum of the receiver and other.
	Add(other T) T
	// Mul returns the product of the receiver and other.
	Mul(other T) T
}
