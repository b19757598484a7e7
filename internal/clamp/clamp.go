// Package clamp holds small generic ordering helpers, generalizing the
// per-type `constrain[T constraints.Ordered]` helper from
// tmc5160/helpers.go to any ordered type. The motion package uses
// Clamp for the position percent.
package clamp

import "golang.org/x/exp/constraints"

// Clamp returns v restricted to [lo, hi]. Callers are expected to pass
// lo <= hi; Clamp does not validate the bound order.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Min returns the smaller of a and b.
func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}
