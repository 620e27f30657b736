// Package seqnum implements wrap-around 16-bit sequence number arithmetic
// and a sequence-indexed ring buffer built on top of it.
//
// Packet sequences and per-lane message sequences share the same wrap-around
// rule but live in distinct number spaces; callers should not mix a Seq taken
// from one space with a Seq from another.
package seqnum

import "github.com/lithdew/seq"

// Seq is a 16-bit sequence number with half-range wrap-around ordering:
// a < b iff (b-a) mod 2^16 is in (0, 2^15].
type Seq uint16

// Add returns s+delta, wrapping at 2^16.
func (s Seq) Add(delta uint16) Seq {
	return Seq(uint16(s) + delta)
}

// Less reports whether s occurs before o in wrap-around order.
func (s Seq) Less(o Seq) bool {
	return seq.LT(uint16(s), uint16(o))
}

// Greater reports whether s occurs after o in wrap-around order.
func (s Seq) Greater(o Seq) bool {
	return seq.GT(uint16(s), uint16(o))
}

// LessEqual reports whether s occurs at or before o.
func (s Seq) LessEqual(o Seq) bool {
	return s == o || s.Less(o)
}

// GreaterEqual reports whether s occurs at or after o.
func (s Seq) GreaterEqual(o Seq) bool {
	return s == o || s.Greater(o)
}

// Diff returns the wrap-around distance o-s, positive when o is ahead of s.
// The result is only meaningful for seqs within half the number space of
// each other, same as the ordering rule itself.
func Diff(s, o Seq) int32 {
	return int32(int16(uint16(o) - uint16(s)))
}
