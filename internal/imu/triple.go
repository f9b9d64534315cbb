// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// Triple holds one physical quantity (acceleration or angular rate) for the
// X, Y and Z axes in raw sensor units.
// The zero value is the all-zero triple.
type Triple struct {
	X int16 `json:"x"`
	Y int16 `json:"y"`
	Z int16 `json:"z"`
}

// NewTriple returns a triple with explicit values.
func NewTriple(x, y, z int16) Triple {
	return Triple{X: x, Y: y, Z: z}
}

// Accumulate adds o to t component-wise, in place.
// Components wrap on int16 overflow; use Sum for long accumulations.
func (t *Triple) Accumulate(o Triple) {
	t.X += o.X
	t.Y += o.Y
	t.Z += o.Z
}

// Add returns t + o component-wise.
func (t Triple) Add(o Triple) Triple {
	t.Accumulate(o)
	return t
}

// Div divides t by o component-wise.
// A zero component in o is a programming error and panics.
func (t Triple) Div(o Triple) Triple {
	return Triple{X: t.X / o.X, Y: t.Y / o.Y, Z: t.Z / o.Z}
}

// DivScalar divides every component by n. n == 0 panics.
func (t Triple) DivScalar(n int16) Triple {
	return Triple{X: t.X / n, Y: t.Y / n, Z: t.Z / n}
}

// Fill sets all three components to v.
func (t *Triple) Fill(v int16) {
	t.X, t.Y, t.Z = v, v, v
}

// Sum accumulates triples in int32 so that a few hundred full-scale
// readings can be averaged without overflow.
type Sum struct {
	X, Y, Z int32
	n       int32
}

// Add accumulates one triple.
func (s *Sum) Add(t Triple) {
	s.X += int32(t.X)
	s.Y += int32(t.Y)
	s.Z += int32(t.Z)
	s.n++
}

// Count returns the number of accumulated triples.
func (s *Sum) Count() int {
	return int(s.n)
}

// Mean returns the truncated integer mean of the accumulated triples.
// Calling Mean on an empty Sum panics.
func (s *Sum) Mean() Triple {
	return Triple{
		X: int16(s.X / s.n),
		Y: int16(s.Y / s.n),
		Z: int16(s.Z / s.n),
	}
}

// Reset clears the accumulator.
func (s *Sum) Reset() {
	*s = Sum{}
}
