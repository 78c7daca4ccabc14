// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package linear

// M3 is a column-major 3x3 matrix of float32.
type M3 [3]V3

// Floats returns the elements of m in column-major
// order.
func (m *M3) Floats() (f [9]float32) {
	for i := range m {
		copy(f[i*3:], m[i][:])
	}
	return
}

// M4 is a column-major 4x4 matrix of float32.
type M4 [4]V4

// I makes m an identity matrix.
func (m *M4) I() { *m = M4{{1}, {0, 1}, {0, 0, 1}, {0, 0, 0, 1}} }

// Ortho2D sets m to contain an orthographic projection of
// the rectangle at x, y with the given size, and depth
// range [0, 1].
// It is the usual projection for rendering to a
// framebuffer of that size.
func (m *M4) Ortho2D(x, y, width, height float32) {
	*m = M4{
		{2 / width},
		{1: 2 / height},
		{2: -2},
		{-(2*x + width) / width, -(2*y + height) / height, -1, 1},
	}
}

// Floats returns the elements of m in column-major
// order.
func (m *M4) Floats() (f [16]float32) {
	for i := range m {
		copy(f[i*4:], m[i][:])
	}
	return
}
